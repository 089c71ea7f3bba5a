// Package sigv4 implements AWS Signature Version 4 signing for
// S3-compatible object storage, built directly on HMAC-SHA256 and
// SHA-256 rather than a vendor SDK.
//
// Two authentication modes are supported:
//   - header-based (Authorization header) for PUT and DELETE
//   - query-based (presigned URL) for GET
//
// The canonical request, string-to-sign, and signing-key chain follow
// the SigV4 definition byte for byte; any divergence between the
// headers canonicalized here and the headers actually transmitted
// invalidates the signature.
package sigv4

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	// Algorithm is the SigV4 algorithm identifier.
	Algorithm = "AWS4-HMAC-SHA256"

	// Region and Service are fixed for S3-compatible stores that accept
	// the default region, as Wasabi-style endpoints do.
	Region  = "us-east-1"
	Service = "s3"

	// UnsignedPayload is the payload-hash sentinel used for presigned
	// GETs, where the response body does not exist at signing time.
	UnsignedPayload = "UNSIGNED-PAYLOAD"

	// EmptyPayloadHash is sha256("") and signs bodyless requests (DELETE).
	EmptyPayloadHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

	amzDateFormat = "20060102T150405Z"
)

// Errors returned by the signer.
var (
	ErrNoCredentials  = errors.New("sigv4: missing access or secret key")
	ErrMalformedInput = errors.New("sigv4: malformed signing input")
)

// Header is one canonical header. Names must be lowercase; callers
// must transmit exactly the headers they sign, in the same set.
type Header struct {
	Name  string
	Value string
}

// Signer computes SigV4 signatures for a fixed credential pair.
type Signer struct {
	accessKey string
	secretKey string
}

// NewSigner returns a Signer for the given credential pair.
// Both keys are required; failing here keeps a misconfigured process
// from ever reaching the network.
func NewSigner(accessKey, secretKey string) (*Signer, error) {
	if accessKey == "" || secretKey == "" {
		return nil, ErrNoCredentials
	}
	return &Signer{accessKey: accessKey, secretKey: secretKey}, nil
}

// HashPayload returns the 64-char lowercase hex SHA-256 of b.
func HashPayload(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// FormatAmzDate renders t as an X-Amz-Date value (YYYYMMDDTHHMMSSZ).
func FormatAmzDate(t time.Time) string {
	return t.UTC().Format(amzDateFormat)
}

// AuthorizationHeader signs a header-authenticated request (PUT,
// DELETE) and returns the Authorization header value.
//
// key is the object key without a leading slash. headers must be the
// full canonical header set: lowercase names, sorted, exactly what the
// request will carry. payloadHash is the hex SHA-256 of the body (or
// EmptyPayloadHash for bodyless requests).
func (s *Signer) AuthorizationHeader(method, host, key string, headers []Header, payloadHash string, t time.Time) (string, error) {
	if err := validateInputs(method, host, payloadHash); err != nil {
		return "", err
	}
	if err := validateHeaders(headers); err != nil {
		return "", err
	}

	amzDate := FormatAmzDate(t)
	dateStamp := amzDate[:8]
	scope := credentialScope(dateStamp)

	canonical := canonicalRequest(method, canonicalURI(key), "", headers, payloadHash)
	signature := s.sign(canonical, amzDate, dateStamp)

	return fmt.Sprintf("%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		Algorithm, s.accessKey, scope, signedHeaderList(headers), signature), nil
}

// PresignQuery signs a query-authenticated GET and returns the full
// query string, sorted lexicographically with X-Amz-Signature appended
// last. The only signed header is host; the payload hash is the
// unsigned-payload sentinel.
func (s *Signer) PresignQuery(host, key string, expiresIn int, t time.Time) (string, error) {
	if err := validateInputs("GET", host, UnsignedPayload); err != nil {
		return "", err
	}
	if expiresIn <= 0 {
		return "", fmt.Errorf("%w: non-positive expiry %d", ErrMalformedInput, expiresIn)
	}

	amzDate := FormatAmzDate(t)
	dateStamp := amzDate[:8]
	scope := credentialScope(dateStamp)

	query := canonicalQuery(map[string]string{
		"X-Amz-Algorithm":     Algorithm,
		"X-Amz-Credential":    s.accessKey + "/" + scope,
		"X-Amz-Date":          amzDate,
		"X-Amz-Expires":       strconv.Itoa(expiresIn),
		"X-Amz-SignedHeaders": "host",
	})

	headers := []Header{{Name: "host", Value: host}}
	canonical := canonicalRequest("GET", canonicalURI(key), query, headers, UnsignedPayload)
	signature := s.sign(canonical, amzDate, dateStamp)

	return query + "&X-Amz-Signature=" + signature, nil
}

// sign hashes the canonical request, builds the string-to-sign, derives
// the signing key, and returns the hex signature.
func (s *Signer) sign(canonical, amzDate, dateStamp string) string {
	stringToSign := strings.Join([]string{
		Algorithm,
		amzDate,
		credentialScope(dateStamp),
		HashPayload([]byte(canonical)),
	}, "\n")
	key := signingKey(s.secretKey, dateStamp, Region, Service)
	return hex.EncodeToString(hmacSHA256(key, stringToSign))
}

// canonicalRequest assembles the normalized request form that gets
// hashed into the string-to-sign. Each canonical header line ends with
// a newline; the header block is followed by one more newline.
func canonicalRequest(method, uri, query string, headers []Header, payloadHash string) string {
	var b strings.Builder
	b.WriteString(method)
	b.WriteByte('\n')
	b.WriteString(uri)
	b.WriteByte('\n')
	b.WriteString(query)
	b.WriteByte('\n')
	for _, h := range headers {
		b.WriteString(h.Name)
		b.WriteByte(':')
		b.WriteString(h.Value)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	b.WriteString(signedHeaderList(headers))
	b.WriteByte('\n')
	b.WriteString(payloadHash)
	return b.String()
}

// signingKey derives the four-step HMAC key chain:
// kDate -> kRegion -> kService -> kSigning.
func signingKey(secretKey, dateStamp, region, service string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secretKey), dateStamp)
	kRegion := hmacSHA256(kDate, region)
	kService := hmacSHA256(kRegion, service)
	return hmacSHA256(kService, "aws4_request")
}

func hmacSHA256(key []byte, data string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}

func credentialScope(dateStamp string) string {
	return dateStamp + "/" + Region + "/" + Service + "/aws4_request"
}

func signedHeaderList(headers []Header) string {
	names := make([]string, len(headers))
	for i, h := range headers {
		names[i] = h.Name
	}
	return strings.Join(names, ";")
}

// canonicalURI is "/" + the URI-encoded object key, slashes preserved.
func canonicalURI(key string) string {
	return EscapePath("/" + strings.TrimPrefix(key, "/"))
}

// canonicalQuery sorts parameters lexicographically by name and encodes
// both names and values. The signature itself is appended afterwards
// and is never part of the signed query.
func canonicalQuery(params map[string]string) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, len(names))
	for i, name := range names {
		pairs[i] = uriEncode(name, true) + "=" + uriEncode(params[name], true)
	}
	return strings.Join(pairs, "&")
}

// EscapePath URI-encodes a request path, leaving slashes intact.
func EscapePath(p string) string {
	return uriEncode(p, false)
}

// uriEncode implements the SigV4 variant of RFC 3986 percent-encoding:
// unreserved characters pass through, everything else becomes %XX with
// uppercase hex. Slashes survive only in path position.
func uriEncode(s string, encodeSlash bool) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '-', c == '_', c == '.', c == '~':
			b.WriteByte(c)
		case c == '/' && !encodeSlash:
			b.WriteByte(c)
		default:
			b.WriteString(fmt.Sprintf("%%%02X", c))
		}
	}
	return b.String()
}

func validateInputs(method, host, payloadHash string) error {
	if method == "" {
		return fmt.Errorf("%w: empty method", ErrMalformedInput)
	}
	if host == "" {
		return fmt.Errorf("%w: empty host", ErrMalformedInput)
	}
	if payloadHash == "" {
		return fmt.Errorf("%w: empty payload hash", ErrMalformedInput)
	}
	return nil
}

// validateHeaders enforces the canonicalization contract: lowercase
// names, sorted order, no blanks. Violations are programming errors in
// the calling operation, not recoverable conditions.
func validateHeaders(headers []Header) error {
	if len(headers) == 0 {
		return fmt.Errorf("%w: no canonical headers", ErrMalformedInput)
	}
	for i, h := range headers {
		if h.Name == "" {
			return fmt.Errorf("%w: empty header name", ErrMalformedInput)
		}
		if h.Name != strings.ToLower(h.Name) {
			return fmt.Errorf("%w: header %q is not lowercase", ErrMalformedInput, h.Name)
		}
		if i > 0 && headers[i-1].Name >= h.Name {
			return fmt.Errorf("%w: headers not sorted at %q", ErrMalformedInput, h.Name)
		}
	}
	return nil
}
