package blobstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/svpecas/catalogd/internal/domain"
	"go.uber.org/zap"
)

// RetryStore wraps a Store with a single bounded retry on transient errors.
// NotFound and Conflict are definitive answers and are never retried.
type RetryStore struct {
	inner Store
	wait  time.Duration
}

func WithRetry(inner Store) *RetryStore {
	return &RetryStore{inner: inner, wait: 500 * time.Millisecond}
}

func retryable(err error) bool {
	return err != nil &&
		!errors.Is(err, domain.ErrNotFound) &&
		!errors.Is(err, domain.ErrConflict)
}

func (s *RetryStore) pause(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.wait):
		return nil
	}
}

func (s *RetryStore) Get(ctx context.Context, path string) ([]byte, string, error) {
	content, rev, err := s.inner.Get(ctx, path)
	if !retryable(err) {
		return content, rev, err
	}
	zap.L().Warn("blobstore: get failed, retrying once", zap.String("path", path), zap.Error(err))
	if perr := s.pause(ctx); perr != nil {
		return nil, "", perr
	}
	return s.inner.Get(ctx, path)
}

func (s *RetryStore) Put(ctx context.Context, path string, content []byte, message, expectedRevision string) (string, error) {
	rev, err := s.inner.Put(ctx, path, content, message, expectedRevision)
	if !retryable(err) {
		return rev, err
	}
	zap.L().Warn("blobstore: put failed, retrying once", zap.String("path", path), zap.Error(err))
	if perr := s.pause(ctx); perr != nil {
		return "", perr
	}
	return s.inner.Put(ctx, path, content, message, expectedRevision)
}

func (s *RetryStore) Delete(ctx context.Context, path string, message, expectedRevision string) error {
	err := s.inner.Delete(ctx, path, message, expectedRevision)
	if !retryable(err) {
		return err
	}
	zap.L().Warn("blobstore: delete failed, retrying once", zap.String("path", path), zap.Error(err))
	if perr := s.pause(ctx); perr != nil {
		return perr
	}
	return s.inner.Delete(ctx, path, message, expectedRevision)
}

func (s *RetryStore) List(ctx context.Context, prefix string) ([]string, error) {
	paths, err := s.inner.List(ctx, prefix)
	if err == nil {
		return paths, nil
	}
	zap.L().Warn("blobstore: list failed, retrying once", zap.String("prefix", prefix), zap.Error(err))
	if perr := s.pause(ctx); perr != nil {
		return nil, perr
	}
	return s.inner.List(ctx, prefix)
}
