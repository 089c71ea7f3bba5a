// Package config loads attachd runtime configuration. Credentials are
// environment-first and read exactly once at startup; operations
// receive them by injection and never touch the environment themselves.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables. The WASABI_* names are the storage contract;
// ATTACHD_* tune the service itself.
const (
	EnvAccessKey = "WASABI_ACCESS_KEY"
	EnvSecretKey = "WASABI_SECRET_KEY"
	EnvBucket    = "WASABI_BUCKET_NAME"
	EnvEndpoint  = "WASABI_ENDPOINT"

	EnvAddr          = "ATTACHD_ADDR"
	EnvConfigPath    = "ATTACHD_CONFIG"
	EnvPresignExpiry = "ATTACHD_PRESIGN_EXPIRY"
	EnvRetries       = "ATTACHD_RETRIES"
	EnvProxyMode     = "ATTACHD_PROXY_MODE"
	EnvProxyHost     = "ATTACHD_PROXY_HOST"
	EnvProxyPort     = "ATTACHD_PROXY_PORT"
	EnvProxyUser     = "ATTACHD_PROXY_USER"
	EnvProxyPassword = "ATTACHD_PROXY_PASSWORD"
	EnvNoProxy       = "ATTACHD_NO_PROXY"
)

// DefaultPresignExpiry is the presigned-URL lifetime in seconds when a
// caller does not specify one.
const DefaultPresignExpiry = 300

// ErrIncompleteCredentials reports missing storage configuration. It is
// fatal: the process must not attempt a network call without a full
// credential set.
var ErrIncompleteCredentials = errors.New("storage configuration incomplete")

// Credentials is the immutable credential set for the object store.
// Endpoint is scheme-less (e.g. "s3.us-east-1.wasabisys.com").
type Credentials struct {
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Endpoint  string `yaml:"endpoint"`
}

// Host returns the virtual-hosted bucket host, "{bucket}.{endpoint}".
func (c Credentials) Host() string {
	return c.Bucket + "." + c.Endpoint
}

// Validate reports every missing field by its environment variable name.
func (c Credentials) Validate() error {
	var missing []string
	if c.AccessKey == "" {
		missing = append(missing, EnvAccessKey)
	}
	if c.SecretKey == "" {
		missing = append(missing, EnvSecretKey)
	}
	if c.Bucket == "" {
		missing = append(missing, EnvBucket)
	}
	if c.Endpoint == "" {
		missing = append(missing, EnvEndpoint)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncompleteCredentials, strings.Join(missing, ", "))
	}
	return nil
}

// Proxy configures the outbound HTTP client.
// Modes: "no-proxy" (default), "system", "basic", "ntlm".
type Proxy struct {
	Mode     string `yaml:"mode"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password,omitempty"`
	NoProxy  string `yaml:"noProxy"`
}

// Config holds the full runtime configuration.
type Config struct {
	Address       string      `yaml:"address"`
	PresignExpiry int         `yaml:"presignExpirySeconds"`
	Retries       int         `yaml:"retries"` // caller-driven; 0 disables
	Storage       Credentials `yaml:"storage"`
	Proxy         Proxy       `yaml:"proxy"`
}

// Default returns a Config with safe local defaults and no credentials.
func Default() Config {
	return Config{
		Address:       ":8086",
		PresignExpiry: DefaultPresignExpiry,
		Retries:       0,
		Proxy:         Proxy{Mode: "no-proxy"},
	}
}

// Load reads configuration from path (YAML, optional), then applies
// environment overrides. An empty path falls back to ATTACHD_CONFIG,
// then ./attachd.yaml, then pure defaults+env.
func Load(path string) (Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		if _, err := os.Stat("attachd.yaml"); err == nil {
			path = "attachd.yaml"
		}
	}

	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// Fall through to env-only configuration.
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %q: %w", path, err)
			}
		}
	}
	return applyEnvOverrides(cfg), nil
}

func applyEnvOverrides(cfg Config) Config {
	if v := os.Getenv(EnvAccessKey); v != "" {
		cfg.Storage.AccessKey = strings.TrimSpace(v)
	}
	if v := os.Getenv(EnvSecretKey); v != "" {
		cfg.Storage.SecretKey = strings.TrimSpace(v)
	}
	if v := os.Getenv(EnvBucket); v != "" {
		cfg.Storage.Bucket = strings.TrimSpace(v)
	}
	if v := os.Getenv(EnvEndpoint); v != "" {
		cfg.Storage.Endpoint = v
	}
	cfg.Storage.Endpoint = NormalizeEndpoint(cfg.Storage.Endpoint)

	if v := os.Getenv(EnvAddr); v != "" {
		cfg.Address = strings.TrimSpace(v)
	}
	if v := os.Getenv(EnvPresignExpiry); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			cfg.PresignExpiry = n
		}
	}
	if v := os.Getenv(EnvRetries); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 0 {
			cfg.Retries = n
		}
	}

	if v := os.Getenv(EnvProxyMode); v != "" {
		mode := strings.ToLower(strings.TrimSpace(v))
		switch mode {
		case "no-proxy", "system", "basic", "ntlm":
			cfg.Proxy.Mode = mode
		}
	}
	if v := os.Getenv(EnvProxyHost); v != "" {
		cfg.Proxy.Host = strings.TrimSpace(v)
	}
	if v := os.Getenv(EnvProxyPort); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			cfg.Proxy.Port = n
		}
	}
	if v := os.Getenv(EnvProxyUser); v != "" {
		cfg.Proxy.User = v
	}
	if v := os.Getenv(EnvProxyPassword); v != "" {
		cfg.Proxy.Password = v
	}
	if v := os.Getenv(EnvNoProxy); v != "" {
		cfg.Proxy.NoProxy = strings.TrimSpace(v)
	}
	if cfg.Proxy.Mode == "" {
		cfg.Proxy.Mode = "no-proxy"
	}
	return cfg
}

var schemeRe = regexp.MustCompile(`^https?://`)

// NormalizeEndpoint strips any scheme and trailing slash so the value
// can be composed into a virtual-hosted bucket host.
func NormalizeEndpoint(s string) string {
	s = strings.TrimSpace(s)
	s = schemeRe.ReplaceAllString(s, "")
	return strings.TrimRight(s, "/")
}
