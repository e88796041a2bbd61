// Package reader defines the common, read-only contract every
// platform-specific reader implements, plus a bounded-retry helper
// (OpenLocked) and the copy-to-tmp helper readers use to open a locked DB.
package reader

import (
	"context"
	"time"

	"github.com/aicfd/aicfd/internal/model"
)

// Cursor is an opaque position a reader can resume reading from. Each
// platform encodes whatever it needs (a rowid, an offset, a timestamp) as
// a string.
type Cursor string

// Reader is the contract every platform-specific reader implements.
// Readers are read-only: they must never write to the underlying store.
type Reader interface {
	// Platform returns this reader's platform id (e.g. "augment", "warp").
	Platform() string

	// IsAvailable reports whether the underlying store can currently be
	// opened, without mutating anything.
	IsAvailable(ctx context.Context) bool

	// ReadAll returns every message the store currently holds. On failure
	// to open the store it returns an empty slice and a non-nil error; the
	// caller is responsible for logging the access/audit event.
	ReadAll(ctx context.Context) ([]model.Message, error)

	// ReadSince returns messages produced after cursor, plus the cursor to
	// resume from next time.
	ReadSince(ctx context.Context, cursor Cursor) ([]model.Message, Cursor, error)
}

// RetryConfig bounds the backoff OpenLocked applies: ≤3 attempts, ≤5s
// total. The platform readers do not call OpenLocked; each tries its live
// store once and falls back to a copy-to-tmp open when that fails.
var RetryConfig = struct {
	MaxAttempts int
	MaxElapsed  time.Duration
}{
	MaxAttempts: 3,
	MaxElapsed:  5 * time.Second,
}
