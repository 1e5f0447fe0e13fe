package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors shared across storage backends and the repository.
var (
	// ErrNotFound marks an absent document or blob. Recoverable: callers
	// show an empty state instead of failing the session.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks an optimistic-revision mismatch on write. The
	// caller must re-read and retry; a stale write is never applied.
	ErrConflict = errors.New("revision conflict")
)

// StorageReadError marks malformed persisted content. Fatal for that read;
// it must surface to the caller and never degrade to an empty document.
type StorageReadError struct {
	Path string
	Err  error
}

func (e *StorageReadError) Error() string {
	return fmt.Sprintf("storage read %s: %v", e.Path, e.Err)
}

func (e *StorageReadError) Unwrap() error { return e.Err }

// ValidationError rejects a save with a required field missing or empty.
// The caller keeps its scratch state so the user can fix and resubmit.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// IndexOutOfRangeError rejects an item removal at an invalid position.
type IndexOutOfRangeError struct {
	Index int
	Len   int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("index %d out of range (len %d)", e.Index, e.Len)
}

// WriteStep records the outcome of one blob write inside a multi-blob save.
type WriteStep struct {
	ID       string `json:"id"`
	Path     string `json:"path"`
	Message  string `json:"message"`
	Done     bool   `json:"done"`
	Revision string `json:"revision,omitempty"`
	Error    string `json:"error,omitempty"`
}

// WriteManifest is the ordered list of steps a logical save attempted.
// Succeeded steps are never rolled back; each failed step is individually
// retryable.
type WriteManifest struct {
	Steps []WriteStep `json:"steps"`
}

// Failed returns the steps that did not complete.
func (m WriteManifest) Failed() []WriteStep {
	var out []WriteStep
	for _, s := range m.Steps {
		if !s.Done {
			out = append(out, s)
		}
	}
	return out
}

// PartialWriteError reports a multi-blob save where at least one step failed
// after others succeeded. The manifest names exactly which paths need a
// retry.
type PartialWriteError struct {
	Manifest WriteManifest
}

func (e *PartialWriteError) Error() string {
	failed := e.Manifest.Failed()
	if len(failed) == 0 {
		return "partial write"
	}
	return fmt.Sprintf("partial write: %d of %d steps failed (first: %s)",
		len(failed), len(e.Manifest.Steps), failed[0].Path)
}
