package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/svpecas/catalogd/internal/domain"
)

// FsStore keeps blobs as plain files under a root directory, the layout the
// legacy deployment used (database/, catalogos/, imagens/).
type FsStore struct {
	root string
}

// NewFsStore creates the root directory if needed.
func NewFsStore(root string) (*FsStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "create blob root")
	}
	return &FsStore{root: root}, nil
}

func (s *FsStore) fullPath(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
		return "", errors.Errorf("invalid blob path %q", path)
	}
	return filepath.Join(s.root, clean), nil
}

func (s *FsStore) Get(ctx context.Context, path string) ([]byte, string, error) {
	full, err := s.fullPath(path)
	if err != nil {
		return nil, "", err
	}
	content, err := os.ReadFile(full)
	if os.IsNotExist(err) {
		return nil, "", domain.ErrNotFound
	}
	if err != nil {
		return nil, "", errors.Wrapf(err, "read blob %s", path)
	}
	return content, BlobRevision(content), nil
}

func (s *FsStore) Put(ctx context.Context, path string, content []byte, message, expectedRevision string) (string, error) {
	full, err := s.fullPath(path)
	if err != nil {
		return "", err
	}
	current, _, err := s.Get(ctx, path)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// A caller holding a revision expects the blob to still exist; a
		// conditional put must not resurrect a deleted document.
		if expectedRevision != "" {
			return "", domain.ErrConflict
		}
	case err != nil:
		return "", err
	default:
		if err := checkRevision(BlobRevision(current), expectedRevision); err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", errors.Wrapf(err, "create blob dir for %s", path)
	}
	// Write through a temp file so readers never observe a torn blob.
	tmp, err := os.CreateTemp(filepath.Dir(full), ".blob-*")
	if err != nil {
		return "", errors.Wrapf(err, "stage blob %s", path)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", errors.Wrapf(err, "stage blob %s", path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", errors.Wrapf(err, "stage blob %s", path)
	}
	if err := os.Rename(tmpName, full); err != nil {
		os.Remove(tmpName)
		return "", errors.Wrapf(err, "commit blob %s", path)
	}
	return BlobRevision(content), nil
}

func (s *FsStore) Delete(ctx context.Context, path string, message, expectedRevision string) error {
	full, err := s.fullPath(path)
	if err != nil {
		return err
	}
	current, _, err := s.Get(ctx, path)
	if err != nil {
		return err
	}
	if err := checkRevision(BlobRevision(current), expectedRevision); err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		if os.IsNotExist(err) {
			return domain.ErrNotFound
		}
		return errors.Wrapf(err, "delete blob %s", path)
	}
	return nil
}

func (s *FsStore) List(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	err := filepath.Walk(s.root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() || strings.HasPrefix(info.Name(), ".blob-") {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.HasPrefix(rel, prefix) {
			out = append(out, rel)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "list blobs %s", prefix)
	}
	sort.Strings(out)
	return out, nil
}
