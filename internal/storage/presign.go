package storage

import (
	"strings"

	"github.com/fincontrol/attachd/internal/config"
)

// Presign returns a time-limited GET URL for an object key. No network
// call happens here; the provider checks the embedded signature when
// the URL is fetched and answers 403 once the window has passed.
// Callers must treat the URL as non-cacheable and request a fresh one
// per view.
func (c *Client) Presign(key string, expiresIn int) (string, error) {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" {
		return "", ErrEmptyKey
	}
	if expiresIn <= 0 {
		expiresIn = config.DefaultPresignExpiry
	}

	query, err := c.signer.PresignQuery(c.creds.Host(), key, expiresIn, c.now())
	if err != nil {
		return "", err
	}

	url := c.objectURL(key) + "?" + query
	c.log.Debug().Str("key", key).Int("expiresIn", expiresIn).Msg("presigned object url")
	return url, nil
}
