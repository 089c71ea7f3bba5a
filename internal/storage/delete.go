package storage

import (
	"context"
	"io"
	"net/http"

	"github.com/fincontrol/attachd/internal/sigv4"
)

// Delete removes the object a previously issued URL points at. The
// delete is idempotent: 404 from the provider counts as success, since
// the goal state (object gone) already holds. Other rejections are
// returned for the caller to log; they must never abort a broader
// operation such as an attachment replace.
func (c *Client) Delete(ctx context.Context, fileURL string) error {
	key, err := c.KeyFromURL(fileURL)
	if err != nil {
		return err
	}

	now := c.now()
	amzDate := sigv4.FormatAmzDate(now)
	host := c.creds.Host()

	headers := []sigv4.Header{
		{Name: "host", Value: host},
		{Name: "x-amz-content-sha256", Value: sigv4.EmptyPayloadHash},
		{Name: "x-amz-date", Value: amzDate},
	}
	auth, err := c.signer.AuthorizationHeader(http.MethodDelete, host, key, headers, sigv4.EmptyPayloadHash, now)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.objectURL(key), nil)
	if err != nil {
		return err
	}
	req.Host = host
	req.Header.Set("x-amz-content-sha256", sigv4.EmptyPayloadHash)
	req.Header.Set("x-amz-date", amzDate)
	req.Header.Set("Authorization", auth)

	c.log.Debug().Str("key", key).Msg("deleting object")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: "delete", Err: err}
	}
	defer resp.Body.Close()

	ok := (resp.StatusCode >= 200 && resp.StatusCode <= 299) || resp.StatusCode == http.StatusNotFound
	if !ok {
		body, _ := io.ReadAll(resp.Body)
		c.log.Warn().
			Int("status", resp.StatusCode).
			Str("key", key).
			Msg("delete rejected by storage")
		return &RejectionError{Op: "delete", StatusCode: resp.StatusCode, Body: string(body)}
	}

	c.log.Info().Str("key", key).Int("status", resp.StatusCode).Msg("object deleted")
	return nil
}
