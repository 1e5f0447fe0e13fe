package blobstore

import (
	"bytes"
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/svpecas/catalogd/internal/domain"
	bolt "go.etcd.io/bbolt"
)

var blobBucket = []byte("blobs")

// BoltStore keeps all blobs in a single bbolt file, keyed by path. Useful
// for single-binary deployments where a directory tree is unwanted.
type BoltStore struct {
	db *bolt.DB
}

func NewBoltStore(file string) (*BoltStore, error) {
	db, err := bolt.Open(file, 0o600, nil)
	if err != nil {
		return nil, errors.Wrap(err, "open bolt store")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(blobBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "init bolt store")
	}
	return &BoltStore{db: db}, nil
}

// Close releases the underlying bolt file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Get(ctx context.Context, path string) ([]byte, string, error) {
	var content []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(blobBucket).Get([]byte(path))
		if v == nil {
			return domain.ErrNotFound
		}
		content = bytes.Clone(v)
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return content, BlobRevision(content), nil
}

func (s *BoltStore) Put(ctx context.Context, path string, content []byte, message, expectedRevision string) (string, error) {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(blobBucket)
		current := b.Get([]byte(path))
		if current == nil {
			// A conditional put must not resurrect a deleted document.
			if expectedRevision != "" {
				return domain.ErrConflict
			}
		} else if err := checkRevision(BlobRevision(current), expectedRevision); err != nil {
			return err
		}
		return b.Put([]byte(path), content)
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return "", err
		}
		return "", errors.Wrapf(err, "put blob %s", path)
	}
	return BlobRevision(content), nil
}

func (s *BoltStore) Delete(ctx context.Context, path string, message, expectedRevision string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(blobBucket)
		current := b.Get([]byte(path))
		if current == nil {
			return domain.ErrNotFound
		}
		if err := checkRevision(BlobRevision(current), expectedRevision); err != nil {
			return err
		}
		return b.Delete([]byte(path))
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrConflict) {
			return err
		}
		return errors.Wrapf(err, "delete blob %s", path)
	}
	return nil
}

func (s *BoltStore) List(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(blobBucket).Cursor()
		p := []byte(prefix)
		for k, _ := c.Seek(p); k != nil && strings.HasPrefix(string(k), prefix); k, _ = c.Next() {
			out = append(out, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "list blobs %s", prefix)
	}
	sort.Strings(out)
	return out, nil
}
