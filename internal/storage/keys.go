package storage

import (
	"crypto/rand"
	"io"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultFolder namespaces uploads whose caller did not pick a folder.
const DefaultFolder = "uploads"

const (
	base36Alphabet  = "abcdefghijklmnopqrstuvwxyz0123456789"
	randSuffixLen   = 6
	fallbackExt     = "bin"
	maxFolderLength = 128
)

// KeyAllocator derives object keys of the form
// "{folder}/{unixMillis}-{6 base36 chars}.{ext}". Uniqueness is
// practical, not provable: timestamp plus randomness, with a small
// same-millisecond guard so sequential calls inside one process can
// never collide. There is no coordination with the bucket.
type KeyAllocator struct {
	now  func() time.Time
	rand io.Reader

	mu     sync.Mutex
	stamp  int64
	issued map[string]struct{}
}

// NewKeyAllocator returns an allocator backed by the system clock and
// crypto/rand.
func NewKeyAllocator() *KeyAllocator {
	return &KeyAllocator{now: time.Now, rand: rand.Reader}
}

// Allocate builds a fresh key for a file in folder. The extension comes
// from the original filename, lowercased; files without a usable
// extension get ".bin".
func (a *KeyAllocator) Allocate(folder, filename string) string {
	folder = sanitizeFolder(folder)
	ext := extensionOf(filename)

	a.mu.Lock()
	defer a.mu.Unlock()

	millis := a.now().UnixMilli()
	if millis != a.stamp {
		a.stamp = millis
		a.issued = make(map[string]struct{})
	}
	for {
		key := folder + "/" + strconv.FormatInt(millis, 10) + "-" + a.randSuffix() + "." + ext
		if _, dup := a.issued[key]; !dup {
			a.issued[key] = struct{}{}
			return key
		}
	}
}

func (a *KeyAllocator) randSuffix() string {
	buf := make([]byte, randSuffixLen)
	if _, err := io.ReadFull(a.rand, buf); err != nil {
		// crypto/rand never fails on supported platforms; fall back to
		// the clock rather than returning a partial suffix.
		n := time.Now().UnixNano()
		for i := range buf {
			buf[i] = byte(n >> (8 * uint(i)))
		}
	}
	out := make([]byte, randSuffixLen)
	for i, b := range buf {
		out[i] = base36Alphabet[int(b)%len(base36Alphabet)]
	}
	return string(out)
}

// sanitizeFolder keeps folder names to a safe charset and rejects path
// traversal; anything unusable falls back to the default folder.
func sanitizeFolder(folder string) string {
	folder = strings.TrimSpace(folder)
	folder = strings.Trim(folder, "/")
	if folder == "" || len(folder) > maxFolderLength {
		return DefaultFolder
	}
	// Traversal check must run before the charset pass maps '.' to '-'.
	if strings.Contains(folder, "..") {
		return DefaultFolder
	}
	var b strings.Builder
	for _, r := range folder {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '/':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	cleaned := b.String()
	if strings.Trim(cleaned, "-/") == "" {
		return DefaultFolder
	}
	return cleaned
}

// extensionOf lowercases the filename's extension and strips anything
// outside [a-z0-9].
func extensionOf(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	var b strings.Builder
	for _, r := range ext {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return fallbackExt
	}
	return b.String()
}
