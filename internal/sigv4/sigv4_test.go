package sigv4

import (
	"crypto/hmac"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"
)

// Published SigV4 derivation example (20150830, us-east-1, iam).
const (
	awsExampleSecret     = "wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY"
	awsExampleDateStamp  = "20150830"
	awsExampleSigningKey = "c4afb1cc5771d871763a393e44b703571b55cc28424d1a5e86da6ed3c154a4b9"
)

func TestHashPayload_EmptyMatchesConstant(t *testing.T) {
	if got := HashPayload(nil); got != EmptyPayloadHash {
		t.Errorf("HashPayload(nil) = %s, want %s", got, EmptyPayloadHash)
	}
	if got := HashPayload([]byte{}); got != EmptyPayloadHash {
		t.Errorf("HashPayload(empty) = %s, want %s", got, EmptyPayloadHash)
	}
}

func TestHashPayload_KnownVector(t *testing.T) {
	// sha256("hello world")
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if got := HashPayload([]byte("hello world")); got != want {
		t.Errorf("HashPayload = %s, want %s", got, want)
	}
}

func TestSigningKey_AWSVector(t *testing.T) {
	key := signingKey(awsExampleSecret, awsExampleDateStamp, "us-east-1", "iam")
	if got := hex.EncodeToString(key); got != awsExampleSigningKey {
		t.Errorf("signingKey = %s, want %s", got, awsExampleSigningKey)
	}
}

// TestCanonicalRequest_AWSVector reproduces the documented GET example
// for the IAM service: canonical request hash, string-to-sign, and the
// final signature.
func TestCanonicalRequest_AWSVector(t *testing.T) {
	headers := []Header{
		{Name: "content-type", Value: "application/x-www-form-urlencoded; charset=utf-8"},
		{Name: "host", Value: "iam.amazonaws.com"},
		{Name: "x-amz-date", Value: "20150830T123600Z"},
	}
	canonical := canonicalRequest("GET", "/", "Action=ListUsers&Version=2010-05-08", headers, EmptyPayloadHash)

	wantHash := "f536975d06c0309214f805bb90ccff089219ecd68b2577efef23edd43b7e1a59"
	if got := HashPayload([]byte(canonical)); got != wantHash {
		t.Fatalf("canonical request hash = %s, want %s\ncanonical request:\n%s", got, wantHash, canonical)
	}

	stringToSign := strings.Join([]string{
		Algorithm,
		"20150830T123600Z",
		"20150830/us-east-1/iam/aws4_request",
		wantHash,
	}, "\n")
	key := signingKey(awsExampleSecret, awsExampleDateStamp, "us-east-1", "iam")
	sig := hex.EncodeToString(hmacSHA256(key, stringToSign))

	wantSig := "5d672d79c15b13162d9279b0855cfba6789a8edb4c82c400e06b5924a6f2b5d7"
	if sig != wantSig {
		t.Errorf("signature = %s, want %s", sig, wantSig)
	}
}

func TestNewSigner_RequiresBothKeys(t *testing.T) {
	cases := []struct{ access, secret string }{
		{"", ""},
		{"AKIAEXAMPLE", ""},
		{"", "secret"},
	}
	for _, c := range cases {
		if _, err := NewSigner(c.access, c.secret); !errors.Is(err, ErrNoCredentials) {
			t.Errorf("NewSigner(%q, %q) err = %v, want ErrNoCredentials", c.access, c.secret, err)
		}
	}
	if _, err := NewSigner("AKIAEXAMPLE", "secret"); err != nil {
		t.Fatalf("NewSigner with both keys: %v", err)
	}
}

func TestAuthorizationHeader_DeterministicAndTimeSensitive(t *testing.T) {
	s, err := NewSigner("AKIAEXAMPLE", awsExampleSecret)
	if err != nil {
		t.Fatal(err)
	}
	at := time.Date(2025, 8, 30, 12, 36, 0, 0, time.UTC)
	headers := []Header{
		{Name: "content-type", Value: "application/pdf"},
		{Name: "host", Value: "invoices.s3.example.com"},
		{Name: "x-amz-content-sha256", Value: EmptyPayloadHash},
		{Name: "x-amz-date", Value: FormatAmzDate(at)},
	}

	first, err := s.AuthorizationHeader("PUT", "invoices.s3.example.com", "contas-a-pagar/1-abc123.pdf", headers, EmptyPayloadHash, at)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.AuthorizationHeader("PUT", "invoices.s3.example.com", "contas-a-pagar/1-abc123.pdf", headers, EmptyPayloadHash, at)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("same inputs produced different Authorization values:\n%s\n%s", first, second)
	}

	// One second later the signature must change.
	later, err := s.AuthorizationHeader("PUT", "invoices.s3.example.com", "contas-a-pagar/1-abc123.pdf", headers, EmptyPayloadHash, at.Add(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if later == first {
		t.Error("signature did not change when amzDate moved by one second")
	}
}

func TestAuthorizationHeader_Format(t *testing.T) {
	s, _ := NewSigner("AKIAEXAMPLE", awsExampleSecret)
	at := time.Date(2025, 8, 30, 0, 0, 0, 0, time.UTC)
	headers := []Header{
		{Name: "host", Value: "b.s3.example.com"},
		{Name: "x-amz-content-sha256", Value: EmptyPayloadHash},
		{Name: "x-amz-date", Value: FormatAmzDate(at)},
	}
	auth, err := s.AuthorizationHeader("DELETE", "b.s3.example.com", "docs/1-abc123.pdf", headers, EmptyPayloadHash, at)
	if err != nil {
		t.Fatal(err)
	}

	want := regexp.MustCompile(`^AWS4-HMAC-SHA256 Credential=AKIAEXAMPLE/20250830/us-east-1/s3/aws4_request, SignedHeaders=host;x-amz-content-sha256;x-amz-date, Signature=[0-9a-f]{64}$`)
	if !want.MatchString(auth) {
		t.Errorf("Authorization header has unexpected shape: %s", auth)
	}
}

func TestAuthorizationHeader_RejectsBadHeaderSets(t *testing.T) {
	s, _ := NewSigner("AKIAEXAMPLE", awsExampleSecret)
	at := time.Now()

	cases := []struct {
		name    string
		headers []Header
	}{
		{"empty set", nil},
		{"uppercase name", []Header{{Name: "Host", Value: "h"}}},
		{"unsorted", []Header{
			{Name: "x-amz-date", Value: "20250830T000000Z"},
			{Name: "host", Value: "h"},
		}},
	}
	for _, c := range cases {
		if _, err := s.AuthorizationHeader("PUT", "h", "k", c.headers, EmptyPayloadHash, at); !errors.Is(err, ErrMalformedInput) {
			t.Errorf("%s: err = %v, want ErrMalformedInput", c.name, err)
		}
	}
}

func TestPresignQuery_SortedAndSignatureLast(t *testing.T) {
	s, _ := NewSigner("AKIAEXAMPLE", awsExampleSecret)
	at := time.Date(2025, 8, 30, 12, 0, 0, 0, time.UTC)

	query, err := s.PresignQuery("b.s3.example.com", "docs/1-abc123.pdf", 300, at)
	if err != nil {
		t.Fatal(err)
	}

	names := []string{}
	for _, pair := range strings.Split(query, "&") {
		name, _, ok := strings.Cut(pair, "=")
		if !ok {
			t.Fatalf("malformed query pair %q in %s", pair, query)
		}
		names = append(names, name)
	}
	want := []string{
		"X-Amz-Algorithm",
		"X-Amz-Credential",
		"X-Amz-Date",
		"X-Amz-Expires",
		"X-Amz-SignedHeaders",
		"X-Amz-Signature",
	}
	if len(names) != len(want) {
		t.Fatalf("query has %d params, want %d: %s", len(names), len(want), query)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("param %d = %s, want %s", i, names[i], want[i])
		}
	}

	if !strings.Contains(query, "X-Amz-Credential=AKIAEXAMPLE%2F20250830%2Fus-east-1%2Fs3%2Faws4_request") {
		t.Errorf("credential not URL-encoded in query: %s", query)
	}
	if !strings.Contains(query, "X-Amz-Expires=300") {
		t.Errorf("expiry missing from query: %s", query)
	}
	if !regexp.MustCompile(`X-Amz-Signature=[0-9a-f]{64}$`).MatchString(query) {
		t.Errorf("signature must be the final parameter: %s", query)
	}
}

func TestPresignQuery_RejectsNonPositiveExpiry(t *testing.T) {
	s, _ := NewSigner("AKIAEXAMPLE", awsExampleSecret)
	for _, exp := range []int{0, -1} {
		if _, err := s.PresignQuery("h", "k", exp, time.Now()); !errors.Is(err, ErrMalformedInput) {
			t.Errorf("expiry %d: err = %v, want ErrMalformedInput", exp, err)
		}
	}
}

func TestURIEncode(t *testing.T) {
	cases := []struct {
		in          string
		encodeSlash bool
		want        string
	}{
		{"docs/nota fiscal.pdf", false, "docs/nota%20fiscal.pdf"},
		{"a/b", true, "a%2Fb"},
		{"safe-chars_.~", true, "safe-chars_.~"},
		{"ç", true, "%C3%A7"},
	}
	for _, c := range cases {
		if got := uriEncode(c.in, c.encodeSlash); got != c.want {
			t.Errorf("uriEncode(%q, %v) = %q, want %q", c.in, c.encodeSlash, got, c.want)
		}
	}
}

// hmacSHA256 sanity against the stdlib, guarding the helper the whole
// key chain depends on.
func TestHMACSHA256_MatchesStdlib(t *testing.T) {
	got := hmacSHA256([]byte("key"), "data")
	if !hmac.Equal(got, hmacSHA256([]byte("key"), "data")) {
		t.Fatal("hmacSHA256 not deterministic")
	}
	if len(got) != 32 {
		t.Fatalf("hmacSHA256 length = %d, want 32", len(got))
	}
}
