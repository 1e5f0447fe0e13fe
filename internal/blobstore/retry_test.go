package blobstore

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/svpecas/catalogd/internal/domain"
)

// countingStore fails the first n calls of each operation.
type countingStore struct {
	Store
	failFirst int
	calls     int
}

func (s *countingStore) Put(ctx context.Context, path string, content []byte, message, expectedRevision string) (string, error) {
	s.calls++
	if s.calls <= s.failFirst {
		return "", errors.New("transient failure")
	}
	return s.Store.Put(ctx, path, content, message, expectedRevision)
}

func newRetryStore(t *testing.T, failFirst int) (*RetryStore, *countingStore) {
	t.Helper()
	fs, err := NewFsStore(t.TempDir())
	require.NoError(t, err)
	counting := &countingStore{Store: fs, failFirst: failFirst}
	rs := WithRetry(counting)
	rs.wait = time.Millisecond
	return rs, counting
}

func TestRetryStoreRecoversFromOneFailure(t *testing.T) {
	rs, counting := newRetryStore(t, 1)
	_, err := rs.Put(context.Background(), "doc.json", []byte("x"), "m", "")
	require.NoError(t, err)
	assert.Equal(t, 2, counting.calls)
}

func TestRetryStoreGivesUpAfterOneRetry(t *testing.T) {
	rs, counting := newRetryStore(t, 5)
	_, err := rs.Put(context.Background(), "doc.json", []byte("x"), "m", "")
	require.Error(t, err)
	assert.Equal(t, 2, counting.calls)
}

func TestRetryStoreDoesNotRetryConflict(t *testing.T) {
	fs, err := NewFsStore(t.TempDir())
	require.NoError(t, err)
	rs := WithRetry(fs)
	rs.wait = time.Millisecond
	ctx := context.Background()

	_, err = rs.Put(ctx, "doc.json", []byte("one"), "v1", "")
	require.NoError(t, err)
	_, err = rs.Put(ctx, "doc.json", []byte("two"), "v2", "bogus-revision")
	require.ErrorIs(t, err, domain.ErrConflict)

	// not found comes straight back as well
	_, _, err = rs.Get(ctx, "missing.json")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
