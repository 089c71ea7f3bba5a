// Package attach coordinates the attachment lifecycle of a single
// domain record: attach, replace, remove, view. It guarantees the
// persisted {url, name} pair only ever changes after the operation it
// depends on has succeeded, so a record is never left pointing at an
// object that was not confirmed.
package attach

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/fincontrol/attachd/internal/storage"
)

// ErrNoAttachment is returned by View when the record has no file.
var ErrNoAttachment = errors.New("attach: record has no attachment")

// Reference is the {url, name} pair a domain record persists.
// Invariant: both fields set or both empty.
type Reference struct {
	URL  string `json:"attachment_url"`
	Name string `json:"attachment_name"`
}

// IsZero reports whether the record has no attachment.
func (r Reference) IsZero() bool { return r.URL == "" && r.Name == "" }

// Store is the slice of the storage client the coordinator needs.
type Store interface {
	Upload(ctx context.Context, payload []byte, contentType, folder, filename string) (*storage.UploadResult, error)
	Delete(ctx context.Context, fileURL string) error
	Presign(key string, expiresIn int) (string, error)
	KeyFromURL(fileURL string) (string, error)
}

// File is the caller-supplied attachment content.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// State of the coordinator between and during operations.
type State int

const (
	StateEmpty State = iota
	StatePresent
	StateUploading
	StateReplacing
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePresent:
		return "present"
	case StateUploading:
		return "uploading"
	case StateReplacing:
		return "replacing"
	default:
		return "unknown"
	}
}

// Coordinator drives the lifecycle for one record's attachment slot.
// Distinct records use distinct coordinators; there is no shared state
// between them.
type Coordinator struct {
	store  Store
	folder string
	expiry int
	log    zerolog.Logger

	mu    sync.Mutex
	state State
	ref   Reference
}

// New returns a coordinator for an empty attachment slot. folder
// namespaces the record's business domain (payables, receivables, ...).
func New(store Store, folder string, presignExpiry int, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		store:  store,
		folder: folder,
		expiry: presignExpiry,
		log:    log,
		state:  StateEmpty,
	}
}

// Load seeds the coordinator with a reference already persisted on the
// record. A half-set pair is treated as empty rather than propagated.
func (c *Coordinator) Load(ref Reference) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ref.URL == "" || ref.Name == "" {
		c.ref = Reference{}
		c.state = StateEmpty
		return
	}
	c.ref = ref
	c.state = StatePresent
}

// Current returns the reference the record should persist right now.
func (c *Coordinator) Current() Reference {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ref
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attach uploads a file into the slot. When a file is already present
// this is a replace: the new object is uploaded first, and only after
// that succeeds is the old one deleted, best-effort. A failed upload
// leaves the previous reference untouched, so a record with an
// attachment can never end up with none because of a replace attempt.
func (c *Coordinator) Attach(ctx context.Context, file File) (Reference, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.ref
	if prev.IsZero() {
		c.state = StateUploading
	} else {
		c.state = StateReplacing
	}

	res, err := c.store.Upload(ctx, file.Data, file.ContentType, c.folder, file.Name)
	if err != nil {
		// Revert to the prior state; the caller must not persist anything.
		if prev.IsZero() {
			c.state = StateEmpty
		} else {
			c.state = StatePresent
		}
		c.log.Error().Err(err).Str("folder", c.folder).Msg("attachment upload failed")
		return prev, err
	}

	if !prev.IsZero() {
		// Best-effort cleanup of the replaced object. Its outcome does
		// not affect the new reference.
		if derr := c.store.Delete(ctx, prev.URL); derr != nil {
			c.log.Warn().Err(derr).Str("url", prev.URL).Msg("old attachment not deleted")
		}
	}

	c.ref = Reference{URL: res.URL, Name: res.Name}
	c.state = StatePresent
	c.log.Info().Str("url", res.URL).Str("name", res.Name).Msg("attachment set")
	return c.ref, nil
}

// Remove clears the slot. The object delete is best-effort: the slot
// becomes empty regardless of the outcome, and the record may be saved
// without an attachment either way.
func (c *Coordinator) Remove(ctx context.Context) Reference {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ref.IsZero() {
		return c.ref
	}
	if err := c.store.Delete(ctx, c.ref.URL); err != nil {
		c.log.Warn().Err(err).Str("url", c.ref.URL).Msg("attachment object not deleted")
	}
	c.ref = Reference{}
	c.state = StateEmpty
	return c.ref
}

// View returns a fresh presigned URL for the current attachment.
// Presigned URLs are never cached; every view asks for a new one.
func (c *Coordinator) View(ctx context.Context) (string, error) {
	c.mu.Lock()
	ref := c.ref
	c.mu.Unlock()

	if ref.IsZero() {
		return "", ErrNoAttachment
	}
	key, err := c.store.KeyFromURL(ref.URL)
	if err != nil {
		return "", err
	}
	return c.store.Presign(key, c.expiry)
}
