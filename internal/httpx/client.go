// Package httpx builds the outbound HTTP client used for storage
// calls: tuned transport, optional proxy (system, basic, NTLM), and an
// opt-in retry wrapper. Operations themselves never retry; retrying is
// a caller decision made when the client is constructed.
package httpx

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	ntlmssp "github.com/Azure/go-ntlmssp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"golang.org/x/net/http/httpproxy"

	"github.com/fincontrol/attachd/internal/config"
)

const (
	dialTimeout           = 30 * time.Second
	dialKeepAlive         = 30 * time.Second
	idleConnTimeout       = 90 * time.Second
	tlsHandshakeTimeout   = 10 * time.Second
	expectContinueTimeout = 1 * time.Second
	clientTimeout         = 300 * time.Second
)

// New builds an *http.Client for the given proxy configuration.
func New(cfg config.Proxy) (*http.Client, error) {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   dialTimeout,
			KeepAlive: dialKeepAlive,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   tlsHandshakeTimeout,
		ExpectContinueTimeout: expectContinueTimeout,
	}

	switch strings.ToLower(cfg.Mode) {
	case "no-proxy", "":
		transport.Proxy = nil

	case "system":
		transport.Proxy = http.ProxyFromEnvironment

	case "basic":
		if cfg.Host == "" {
			return nil, fmt.Errorf("proxy mode %q requires a proxy host", cfg.Mode)
		}
		transport.Proxy = proxyFuncWithBypass(buildProxyURL(cfg), cfg.NoProxy)

	case "ntlm":
		if cfg.Host == "" {
			return nil, fmt.Errorf("proxy mode %q requires a proxy host", cfg.Mode)
		}
		transport.Proxy = proxyFuncWithBypass(buildProxyURL(cfg), cfg.NoProxy)
		return &http.Client{
			Transport: ntlmssp.Negotiator{RoundTripper: transport},
			Timeout:   clientTimeout,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported proxy mode: %s", cfg.Mode)
	}

	return &http.Client{
		Transport: transport,
		Timeout:   clientTimeout,
	}, nil
}

// WithRetries wraps client with retryablehttp when retries > 0; with 0
// it returns the client unchanged, keeping single-shot semantics the
// default.
func WithRetries(client *http.Client, retries int, log zerolog.Logger) *http.Client {
	if retries <= 0 {
		return client
	}
	rc := retryablehttp.NewClient()
	rc.HTTPClient = client
	rc.RetryMax = retries
	rc.RetryWaitMin = 1 * time.Second
	rc.RetryWaitMax = 30 * time.Second
	rc.Logger = &retryLogger{log: log}
	return rc.StandardClient()
}

// retryLogger adapts zerolog to the retryablehttp.LeveledLogger
// interface. Info and Debug stay quiet; retries are warnings.
type retryLogger struct {
	log zerolog.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Error().Fields(fieldMap(keysAndValues)).Msg(msg)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Warn().Fields(fieldMap(keysAndValues)).Msg(msg)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{})  {}
func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {}

func fieldMap(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		fields[key] = keysAndValues[i+1]
	}
	return fields
}

func buildProxyURL(cfg config.Proxy) *url.URL {
	port := cfg.Port
	if port == 0 {
		port = 8080
	}
	proxyURL := &url.URL{
		Scheme: "http",
		Host:   fmt.Sprintf("%s:%d", cfg.Host, port),
	}
	// Credentials only go into the URL when both halves are present;
	// an empty password confuses some proxies.
	if cfg.User != "" && cfg.Password != "" {
		proxyURL.User = url.UserPassword(cfg.User, cfg.Password)
	}
	return proxyURL
}

// proxyFuncWithBypass honors a NO_PROXY-style bypass list. With an
// empty list it behaves exactly like http.ProxyURL.
func proxyFuncWithBypass(proxyURL *url.URL, noProxy string) func(*http.Request) (*url.URL, error) {
	if noProxy == "" {
		return http.ProxyURL(proxyURL)
	}
	cfg := httpproxy.Config{
		HTTPProxy:  proxyURL.String(),
		HTTPSProxy: proxyURL.String(),
		NoProxy:    noProxy,
	}
	proxyFunc := cfg.ProxyFunc()
	return func(req *http.Request) (*url.URL, error) {
		return proxyFunc(req.URL)
	}
}
