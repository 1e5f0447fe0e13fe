// Package repository persists the shared product database and the per-client
// catalog documents through the blob store, keeping the file layout of the
// legacy deployment: database/database.json, catalogos/<key>.json and
// imagens/<code>.<ext>.
package repository

import (
	"context"
	"fmt"
	"path"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/svpecas/catalogd/internal/blobstore"
	"github.com/svpecas/catalogd/internal/domain"
	"go.uber.org/zap"
)

const (
	ProductDatabasePath = "database/database.json"
	CatalogDir          = "catalogos"
	ImageDir            = "imagens"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CatalogRepository owns document persistence. It never caches: every load
// reads current store state so callers always see the freshest revision tag.
type CatalogRepository struct {
	store   blobstore.Store
	journal *WriteJournal
}

func NewCatalogRepository(store blobstore.Store) *CatalogRepository {
	return &CatalogRepository{store: store}
}

// WithJournal enables queueing of failed multi-blob write steps for the
// scheduler's retry job.
func (r *CatalogRepository) WithJournal(j *WriteJournal) *CatalogRepository {
	r.journal = j
	return r
}

// CatalogPath returns the storage path for a client key.
func CatalogPath(clientKey string) string {
	return path.Join(CatalogDir, clientKey+".json")
}

// ImagePath returns the storage path for a product image, named after the
// product code as the legacy tool did.
func ImagePath(code, ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "jpeg" {
		ext = "jpg"
	}
	return path.Join(ImageDir, code+"."+ext)
}

// LoadProductDatabase returns the shared database and its revision. An
// absent blob yields an empty database (first run); malformed content is a
// StorageReadError and must not be treated as empty.
func (r *CatalogRepository) LoadProductDatabase(ctx context.Context) (domain.ProductDatabase, string, error) {
	content, rev, err := r.store.Get(ctx, ProductDatabasePath)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ProductDatabase{}, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	var db domain.ProductDatabase
	if err := json.Unmarshal(content, &db); err != nil {
		return nil, "", &domain.StorageReadError{Path: ProductDatabasePath, Err: err}
	}
	return db, rev, nil
}

// SaveProductDatabase writes the full collection. A stale expectedRevision
// yields domain.ErrConflict; pass "" for last-writer-wins.
func (r *CatalogRepository) SaveProductDatabase(ctx context.Context, db domain.ProductDatabase, expectedRevision string) (string, error) {
	content, err := marshalDocument(db)
	if err != nil {
		return "", errors.Wrap(err, "encode product database")
	}
	rev, err := r.store.Put(ctx, ProductDatabasePath, content, "Update product database", expectedRevision)
	if err != nil {
		return "", err
	}
	zap.L().Info("repository: product database saved",
		zap.Int("products", len(db)), zap.String("revision", rev))
	return rev, nil
}

// LoadClientCatalog returns the catalog stored under clientKey.
func (r *CatalogRepository) LoadClientCatalog(ctx context.Context, clientKey string) (*domain.ClientCatalog, string, error) {
	p := CatalogPath(clientKey)
	content, rev, err := r.store.Get(ctx, p)
	if err != nil {
		return nil, "", err
	}
	var cat domain.ClientCatalog
	if err := json.Unmarshal(content, &cat); err != nil {
		return nil, "", &domain.StorageReadError{Path: p, Err: err}
	}
	return &cat, rev, nil
}

// SaveClientCatalog writes one catalog document.
func (r *CatalogRepository) SaveClientCatalog(ctx context.Context, clientKey string, cat *domain.ClientCatalog, expectedRevision string) (string, error) {
	content, err := marshalDocument(cat)
	if err != nil {
		return "", errors.Wrap(err, "encode client catalog")
	}
	rev, err := r.store.Put(ctx, CatalogPath(clientKey), content,
		fmt.Sprintf("Add catalog for %s", cat.ClientName), expectedRevision)
	if err != nil {
		return "", err
	}
	zap.L().Info("repository: client catalog saved",
		zap.String("client", clientKey), zap.Int("items", len(cat.Items)), zap.String("revision", rev))
	return rev, nil
}

// ListClientCatalogs returns the client keys with a stored catalog.
func (r *CatalogRepository) ListClientCatalogs(ctx context.Context) ([]string, error) {
	paths, err := r.store.List(ctx, CatalogDir+"/")
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, p := range paths {
		name := path.Base(p)
		if strings.HasSuffix(name, ".json") {
			keys = append(keys, strings.TrimSuffix(name, ".json"))
		}
	}
	return keys, nil
}

// DeleteClientCatalog removes a catalog document.
func (r *CatalogRepository) DeleteClientCatalog(ctx context.Context, clientKey, expectedRevision string) error {
	return r.store.Delete(ctx, CatalogPath(clientKey),
		fmt.Sprintf("Remove catalog %s", clientKey), expectedRevision)
}

// SaveImage stores an uploaded product image as-is and returns the stored
// path for ProductRecord.ImagePath.
func (r *CatalogRepository) SaveImage(ctx context.Context, code, ext string, data []byte) (string, error) {
	p := ImagePath(code, ext)
	if _, err := r.store.Put(ctx, p, data, fmt.Sprintf("Add image for %s", code), ""); err != nil {
		return "", err
	}
	return p, nil
}

// marshalDocument renders documents the way the legacy tool wrote them:
// indented, with unescaped text so accented names stay readable in the repo.
func marshalDocument(v interface{}) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
