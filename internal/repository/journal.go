package repository

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/svpecas/catalogd/internal/blobstore"
	"github.com/svpecas/catalogd/internal/domain"
	"go.uber.org/zap"
)

const journalPath = "journal/pending.json"

// JournalEntry is one blob write that failed during a multi-blob save and
// is waiting for a retry. Content is kept verbatim so the retry needs no
// other state.
type JournalEntry struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Message   string    `json:"message"`
	Content   []byte    `json:"content"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error,omitempty"`
	QueuedAt  time.Time `json:"queued_at"`
}

// WriteJournal records failed write steps so the scheduler can retry them
// without operator intervention. The journal itself lives in the blob store
// under journal/pending.json.
type WriteJournal struct {
	store blobstore.Store
	mu    sync.Mutex
}

func NewWriteJournal(store blobstore.Store) *WriteJournal {
	return &WriteJournal{store: store}
}

func (j *WriteJournal) load(ctx context.Context) ([]JournalEntry, error) {
	content, _, err := j.store.Get(ctx, journalPath)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entries []JournalEntry
	if err := json.Unmarshal(content, &entries); err != nil {
		return nil, &domain.StorageReadError{Path: journalPath, Err: err}
	}
	return entries, nil
}

func (j *WriteJournal) save(ctx context.Context, entries []JournalEntry) error {
	content, err := marshalDocument(entries)
	if err != nil {
		return errors.Wrap(err, "encode journal")
	}
	_, err = j.store.Put(ctx, journalPath, content, "Update pending write journal", "")
	return err
}

// Record queues failed steps for later retry.
func (j *WriteJournal) Record(ctx context.Context, entries ...JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	current, err := j.load(ctx)
	if err != nil {
		return err
	}
	current = append(current, entries...)
	if err := j.save(ctx, current); err != nil {
		return err
	}
	zap.L().Warn("journal: queued failed write steps", zap.Int("pending", len(current)))
	return nil
}

// Pending returns the queued entries.
func (j *WriteJournal) Pending(ctx context.Context) ([]JournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.load(ctx)
}

// RetryPending replays every queued write once. Entries that succeed are
// dropped; the rest stay queued with the attempt count bumped. Returns how
// many entries were flushed.
func (j *WriteJournal) RetryPending(ctx context.Context) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	entries, err := j.load(ctx)
	if err != nil || len(entries) == 0 {
		return 0, err
	}
	var remaining []JournalEntry
	flushed := 0
	for _, e := range entries {
		if _, err := j.store.Put(ctx, e.Path, e.Content, e.Message, ""); err != nil {
			e.Attempts++
			e.LastError = err.Error()
			remaining = append(remaining, e)
			zap.L().Warn("journal: retry failed",
				zap.String("path", e.Path), zap.Int("attempts", e.Attempts), zap.Error(err))
			continue
		}
		flushed++
		zap.L().Info("journal: pending write flushed", zap.String("path", e.Path))
	}
	if err := j.save(ctx, remaining); err != nil {
		return flushed, err
	}
	return flushed, nil
}
