package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/svpecas/catalogd/internal/domain"
	"github.com/svpecas/catalogd/pkg/ids"
	"go.uber.org/zap"
)

// ImageUpload is one pending image write inside a catalog save.
type ImageUpload struct {
	Code string
	Ext  string
	Data []byte
}

// SaveCatalogAssets persists a catalog and its images as an explicit
// sequence of independent commit steps: images first, then the catalog
// document. There is no cross-write atomicity; the returned manifest names
// which steps succeeded so a failed piece can be retried on its own. When
// any step fails the error is a PartialWriteError wrapping that manifest,
// completed steps are not rolled back, and failed steps are queued on the
// write journal when one is attached.
func (r *CatalogRepository) SaveCatalogAssets(ctx context.Context, clientKey string, cat *domain.ClientCatalog, images []ImageUpload, expectedRevision string) (domain.WriteManifest, error) {
	var manifest domain.WriteManifest
	var pending []JournalEntry

	for _, img := range images {
		step := domain.WriteStep{
			ID:      ids.Next(),
			Path:    ImagePath(img.Code, img.Ext),
			Message: fmt.Sprintf("Add image for %s", img.Code),
		}
		rev, err := r.store.Put(ctx, step.Path, img.Data, step.Message, "")
		if err != nil {
			step.Error = err.Error()
			pending = append(pending, journalEntryFor(step, img.Data))
			zap.L().Error("repository: image upload failed",
				zap.String("step", step.ID), zap.String("path", step.Path), zap.Error(err))
		} else {
			step.Done = true
			step.Revision = rev
		}
		manifest.Steps = append(manifest.Steps, step)
	}

	docStep := domain.WriteStep{
		ID:      ids.Next(),
		Path:    CatalogPath(clientKey),
		Message: fmt.Sprintf("Add catalog for %s", cat.ClientName),
	}
	content, err := marshalDocument(cat)
	if err != nil {
		return manifest, errors.Wrap(err, "encode client catalog")
	}
	rev, err := r.store.Put(ctx, docStep.Path, content, docStep.Message, expectedRevision)
	switch {
	case errors.Is(err, domain.ErrConflict):
		// A conflict on the document is definitive: the caller must
		// re-read and redo the edit, so it is not queued for retry.
		docStep.Error = err.Error()
		manifest.Steps = append(manifest.Steps, docStep)
		r.recordPending(ctx, pending)
		return manifest, err
	case err != nil:
		docStep.Error = err.Error()
		pending = append(pending, journalEntryFor(docStep, content))
		zap.L().Error("repository: catalog document write failed",
			zap.String("step", docStep.ID), zap.String("path", docStep.Path), zap.Error(err))
	default:
		docStep.Done = true
		docStep.Revision = rev
		zap.L().Info("repository: client catalog saved",
			zap.String("client", clientKey), zap.Int("items", len(cat.Items)), zap.String("revision", rev))
	}
	manifest.Steps = append(manifest.Steps, docStep)

	if len(pending) > 0 {
		r.recordPending(ctx, pending)
		return manifest, &domain.PartialWriteError{Manifest: manifest}
	}
	return manifest, nil
}

func journalEntryFor(step domain.WriteStep, content []byte) JournalEntry {
	return JournalEntry{
		ID:        step.ID,
		Path:      step.Path,
		Message:   step.Message,
		Content:   content,
		Attempts:  1,
		LastError: step.Error,
		QueuedAt:  time.Now(),
	}
}

func (r *CatalogRepository) recordPending(ctx context.Context, entries []JournalEntry) {
	if r.journal == nil || len(entries) == 0 {
		return
	}
	if err := r.journal.Record(ctx, entries...); err != nil {
		zap.L().Error("repository: failed to journal pending writes", zap.Error(err))
	}
}

// RenameAndMigrate saves the catalog under the key derived from newName and
// then deletes the old document. The store offers no atomic move: if the
// delete fails after the write succeeded, both documents exist and the error
// tells the operator to retry just the delete.
func (r *CatalogRepository) RenameAndMigrate(ctx context.Context, oldKey, newName string, expectedRevision string) (string, error) {
	cat, rev, err := r.LoadClientCatalog(ctx, oldKey)
	if err != nil {
		return "", err
	}
	// The rename starts from the revision the caller read; a concurrent edit
	// to the old document must surface as a conflict, not get migrated away.
	if expectedRevision != "" && expectedRevision != rev {
		return "", domain.ErrConflict
	}
	cat.ClientName = newName
	newKey := domain.ClientKey(newName)
	if newKey == "" {
		return "", &domain.ValidationError{Field: "cliente", Reason: "client name is required"}
	}
	if newKey == oldKey {
		_, err := r.SaveClientCatalog(ctx, oldKey, cat, rev)
		return oldKey, err
	}
	if _, err := r.SaveClientCatalog(ctx, newKey, cat, ""); err != nil {
		return "", errors.Wrapf(err, "migrate catalog %s to %s", oldKey, newKey)
	}
	// Delete conditionally on the revision we migrated, so an edit that
	// landed in between keeps the old document and is reported below.
	if err := r.DeleteClientCatalog(ctx, oldKey, rev); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return newKey, errors.Wrapf(err, "catalog migrated to %s but old document %s was not removed, retry the delete", newKey, oldKey)
	}
	zap.L().Info("repository: catalog migrated",
		zap.String("from", oldKey), zap.String("to", newKey))
	return newKey, nil
}
