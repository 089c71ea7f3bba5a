// Package storage is the signed-request client for the S3-compatible
// object store: key allocation plus the upload, delete, and presign
// operations. Each operation is single-shot and stateless; it never
// retries on its own and shares nothing with other in-flight calls.
package storage

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/fincontrol/attachd/internal/config"
	"github.com/fincontrol/attachd/internal/sigv4"
)

// Client issues signed requests against one bucket. Credentials are
// immutable after construction; the HTTP client is injected so callers
// control transport, proxying, and (if they want it) retries.
type Client struct {
	creds      config.Credentials
	signer     *sigv4.Signer
	httpClient *http.Client
	keys       *KeyAllocator
	log        zerolog.Logger
	now        func() time.Time

	// baseURL is normally "https://{bucket}.{endpoint}"; tests point it
	// at a local fake.
	baseURL string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient injects the outbound HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithBaseURL overrides the storage base URL. Intended for tests
// against a local fake endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithClock overrides the signing clock. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient validates the credential set and builds a client. A
// missing credential field is fatal here, before any network call.
func NewClient(creds config.Credentials, opts ...Option) (*Client, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	signer, err := sigv4.NewSigner(creds.AccessKey, creds.SecretKey)
	if err != nil {
		return nil, err
	}
	c := &Client{
		creds:      creds,
		signer:     signer,
		httpClient: &http.Client{Timeout: 300 * time.Second},
		keys:       NewKeyAllocator(),
		log:        zerolog.Nop(),
		now:        time.Now,
		baseURL:    "https://" + creds.Host(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Host returns the virtual-hosted bucket host requests are signed for.
func (c *Client) Host() string { return c.creds.Host() }

// BaseURL returns the URL prefix of objects in this bucket.
func (c *Client) BaseURL() string { return c.baseURL }

// KeyFromURL recovers the object key from a previously issued object
// URL by stripping the bucket prefix.
func (c *Client) KeyFromURL(fileURL string) (string, error) {
	prefix := c.baseURL + "/"
	if len(fileURL) <= len(prefix) || fileURL[:len(prefix)] != prefix {
		return "", ErrForeignURL
	}
	key := fileURL[len(prefix):]
	if key == "" {
		return "", ErrEmptyKey
	}
	return key, nil
}

func (c *Client) objectURL(key string) string {
	return c.baseURL + sigv4.EscapePath("/"+key)
}
