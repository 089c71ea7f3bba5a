package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/fincontrol/attachd/internal/sigv4"
)

// UploadResult is what the caller persists (url+name) plus the key for
// later presigning.
type UploadResult struct {
	URL  string
	Key  string
	Name string
}

// Upload allocates a key, signs, and PUTs the payload. Exactly one
// object is created on success; on failure nothing must be persisted
// by the caller.
func (c *Client) Upload(ctx context.Context, payload []byte, contentType, folder, filename string) (*UploadResult, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := c.keys.Allocate(folder, filename)
	payloadHash := sigv4.HashPayload(payload)

	now := c.now()
	amzDate := sigv4.FormatAmzDate(now)
	host := c.creds.Host()

	// Canonical header set; the request below must carry exactly these.
	headers := []sigv4.Header{
		{Name: "content-type", Value: contentType},
		{Name: "host", Value: host},
		{Name: "x-amz-content-sha256", Value: payloadHash},
		{Name: "x-amz-date", Value: amzDate},
	}
	auth, err := c.signer.AuthorizationHeader(http.MethodPut, host, key, headers, payloadHash, now)
	if err != nil {
		return nil, err
	}

	url := c.objectURL(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Host = host
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-amz-content-sha256", payloadHash)
	req.Header.Set("x-amz-date", amzDate)
	req.Header.Set("Authorization", auth)

	c.log.Debug().
		Str("key", key).
		Str("contentType", contentType).
		Int("size", len(payload)).
		Msg("uploading object")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "upload", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		c.log.Error().
			Int("status", resp.StatusCode).
			Str("key", key).
			Msg("upload rejected by storage")
		return nil, &RejectionError{Op: "upload", StatusCode: resp.StatusCode, Body: string(body)}
	}

	c.log.Info().Str("key", key).Str("url", url).Msg("object uploaded")
	return &UploadResult{URL: url, Key: key, Name: filename}, nil
}
