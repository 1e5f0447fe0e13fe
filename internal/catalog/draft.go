package catalog

import (
	"context"
	"strings"

	"github.com/svpecas/catalogd/internal/domain"
	"github.com/svpecas/catalogd/internal/repository"
)

// Draft is the scratch state of one catalog-editing workflow: client fields
// plus the pending item list and image uploads. Nothing touches storage
// until Commit; Discard throws the state away. One Draft per workflow, no
// shared globals.
type Draft struct {
	ClientName    string
	SellerName    string
	SellerContact string
	Items         []domain.ItemRef
	Images        []repository.ImageUpload

	// BaseRevision is the catalog revision the edit started from; empty
	// for a brand new catalog (or to skip the conflict check).
	BaseRevision string
}

// NewDraft starts an empty draft.
func NewDraft() *Draft {
	return &Draft{}
}

// DraftFrom starts a draft pre-filled from an existing catalog.
func DraftFrom(cat *domain.ClientCatalog, revision string) *Draft {
	return &Draft{
		ClientName:    cat.ClientName,
		SellerName:    cat.SellerName,
		SellerContact: cat.SellerContact,
		Items:         append([]domain.ItemRef(nil), cat.Items...),
		BaseRevision:  revision,
	}
}

// AddItem appends a reference to the pending list.
func (d *Draft) AddItem(item domain.ItemRef) {
	d.Items = append(d.Items, item)
}

// AddImage queues an image to be written on commit.
func (d *Draft) AddImage(code, ext string, data []byte) {
	d.Images = append(d.Images, repository.ImageUpload{Code: code, Ext: ext, Data: data})
}

// RemoveItem drops the pending item at index.
func (d *Draft) RemoveItem(index int) error {
	if index < 0 || index >= len(d.Items) {
		return &domain.IndexOutOfRangeError{Index: index, Len: len(d.Items)}
	}
	d.Items = append(d.Items[:index], d.Items[index+1:]...)
	return nil
}

// Validate checks the required fields before a save. On error the draft is
// left untouched so the user can fix the input and resubmit.
func (d *Draft) Validate() error {
	if strings.TrimSpace(d.ClientName) == "" {
		return &domain.ValidationError{Field: "cliente", Reason: "client name is required"}
	}
	if strings.TrimSpace(d.SellerName) == "" {
		return &domain.ValidationError{Field: "vendedor", Reason: "seller name is required"}
	}
	if strings.TrimSpace(d.SellerContact) == "" {
		return &domain.ValidationError{Field: "contato_vendedor", Reason: "seller contact is required"}
	}
	if len(d.Items) == 0 {
		return &domain.ValidationError{Field: "pecas", Reason: "at least one item is required"}
	}
	return nil
}

// Catalog builds the document the draft describes.
func (d *Draft) Catalog() *domain.ClientCatalog {
	return &domain.ClientCatalog{
		ClientName:    d.ClientName,
		SellerName:    d.SellerName,
		SellerContact: d.SellerContact,
		Items:         d.Items,
	}
}

// Commit validates and persists the draft through the repository's
// multi-step save. The manifest reports per-step outcomes; on validation
// failure nothing is written and the draft survives for another attempt.
func (d *Draft) Commit(ctx context.Context, repo *repository.CatalogRepository) (string, domain.WriteManifest, error) {
	if err := d.Validate(); err != nil {
		return "", domain.WriteManifest{}, err
	}
	key := domain.ClientKey(d.ClientName)
	manifest, err := repo.SaveCatalogAssets(ctx, key, d.Catalog(), d.Images, d.BaseRevision)
	return key, manifest, err
}

// Discard drops all pending state.
func (d *Draft) Discard() {
	*d = Draft{}
}
