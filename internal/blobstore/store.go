// Package blobstore provides the document/blob persistence used by the
// catalog repository: a path-keyed store with get-with-revision and
// conditional put semantics. Three backends are provided (local directory,
// bbolt file, GitHub Contents API) plus a bounded-retry wrapper.
package blobstore

import (
	"context"
	"crypto/sha1"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/svpecas/catalogd/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Store is a path-keyed blob store with optimistic revisioning.
//
// Revisions are opaque tags: callers pass the revision returned by Get back
// into Put to detect concurrent writers. An empty expectedRevision means an
// unconditional last-writer-wins put.
type Store interface {
	// Get returns the blob content and its current revision.
	// Returns domain.ErrNotFound when the path does not exist.
	Get(ctx context.Context, path string) (content []byte, revision string, err error)

	// Put writes content under path. message is a human-readable commit
	// note (persisted by backends that support it). When expectedRevision
	// is non-empty and no longer matches the stored revision, Put returns
	// domain.ErrConflict and writes nothing.
	Put(ctx context.Context, path string, content []byte, message, expectedRevision string) (newRevision string, err error)

	// Delete removes the blob at path. Same conditional semantics as Put.
	// Deleting an absent path returns domain.ErrNotFound.
	Delete(ctx context.Context, path string, message, expectedRevision string) error

	// List returns the paths stored under prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// BlobRevision computes the git-style blob SHA-1 of content. The fs and
// bbolt backends use it as the revision tag so all backends, including the
// GitHub one, agree on revision semantics.
func BlobRevision(content []byte) string {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(content))
	h.Write(content)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// checkRevision applies the conditional-write rule shared by the local
// backends.
func checkRevision(current, expected string) error {
	if expected != "" && expected != current {
		return domain.ErrConflict
	}
	return nil
}
