package adminapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/svpecas/catalogd/internal/app"
	"github.com/svpecas/catalogd/internal/catalog"
	"github.com/svpecas/catalogd/internal/domain"
	"github.com/svpecas/catalogd/internal/repository"
	"github.com/svpecas/catalogd/internal/webserver"
)

func registerCatalogRoutes() {
	webserver.ApiGET("/catalogs", listCatalogs)
	webserver.ApiGET("/catalogs/:key", getCatalog)
	webserver.ApiPOST("/catalogs", createCatalog)
	webserver.ApiPUT("/catalogs/:key", updateCatalog)
	webserver.ApiPOST("/catalogs/:key/items", addCatalogItem)
	webserver.ApiDELETE("/catalogs/:key/items/:index", removeCatalogItem)
	webserver.ApiPOST("/catalogs/:key/items/remove", removeCatalogItems)
	webserver.ApiPOST("/catalogs/:key/rename", renameCatalog)
	webserver.ApiDELETE("/catalogs/:key", deleteCatalog)
}

type catalogSummary struct {
	Key        string `json:"key"`
	ClientName string `json:"cliente"`
	SellerName string `json:"vendedor"`
	ItemCount  int    `json:"qtd_pecas"`
}

// listCatalogs returns one summary row per stored catalog. A document that
// fails to load is reported in place rather than hiding the rest.
func listCatalogs(c echo.Context) error {
	ctx := c.Request().Context()
	repo := getApp(c).Repository()
	keys, err := repo.ListClientCatalogs(ctx)
	if err != nil {
		return failFor(c, err, "catalogs")
	}
	summaries := make([]catalogSummary, 0, len(keys))
	var broken []string
	for _, key := range keys {
		cat, _, err := repo.LoadClientCatalog(ctx, key)
		if err != nil {
			broken = append(broken, key)
			continue
		}
		summaries = append(summaries, catalogSummary{
			Key:        key,
			ClientName: cat.ClientName,
			SellerName: cat.SellerName,
			ItemCount:  len(cat.Items),
		})
	}
	return ok(c, map[string]interface{}{"catalogs": summaries, "unreadable": broken})
}

func getCatalog(c echo.Context) error {
	cat, rev, err := getApp(c).Repository().LoadClientCatalog(c.Request().Context(), c.Param("key"))
	if err != nil {
		return failFor(c, err, "catalog")
	}
	c.Response().Header().Set("ETag", rev)
	return ok(c, cat)
}

type imagePayload struct {
	Code string `json:"codigo"`
	Ext  string `json:"ext"`
	Data []byte `json:"data"` // base64 on the wire
}

type catalogPayload struct {
	ClientName    string           `json:"cliente"`
	SellerName    string           `json:"vendedor"`
	SellerContact string           `json:"contato_vendedor"`
	Items         []domain.ItemRef `json:"pecas"`
	Images        []imagePayload   `json:"imagens"`
}

func (p catalogPayload) draft(baseRevision string) *catalog.Draft {
	d := &catalog.Draft{
		ClientName:    p.ClientName,
		SellerName:    p.SellerName,
		SellerContact: p.SellerContact,
		Items:         p.Items,
		BaseRevision:  baseRevision,
	}
	for _, img := range p.Images {
		d.AddImage(img.Code, img.Ext, img.Data)
	}
	return d
}

// createCatalog validates the draft and commits it as a multi-step save.
// The write manifest comes back to the caller so a partially failed save
// can be retried piece by piece.
func createCatalog(c echo.Context) error {
	var payload catalogPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse catalog", err.Error())
	}
	key, manifest, err := payload.draft("").Commit(c.Request().Context(), getApp(c).Repository())
	if err != nil {
		var pwErr *domain.PartialWriteError
		if errors.As(err, &pwErr) {
			return fail(c, http.StatusBadGateway, "PARTIAL_WRITE", pwErr.Error(), manifest)
		}
		return failFor(c, err, "catalog")
	}
	getApp(c).Bus().Publish(app.TopicCatalogSaved, key, payload.ClientName)
	return ok(c, map[string]interface{}{"key": key, "manifest": manifest})
}

// updateCatalog replaces the document under :key. The If-Match header
// carries the revision the edit started from; a stale one gets a 409.
func updateCatalog(c echo.Context) error {
	var payload catalogPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse catalog", err.Error())
	}
	key := c.Param("key")
	d := payload.draft(c.Request().Header.Get("If-Match"))
	if err := d.Validate(); err != nil {
		return failFor(c, err, "catalog")
	}
	manifest, err := getApp(c).Repository().SaveCatalogAssets(
		c.Request().Context(), key, d.Catalog(),
		imageUploads(payload.Images), d.BaseRevision)
	if err != nil {
		var pwErr *domain.PartialWriteError
		if errors.As(err, &pwErr) {
			return fail(c, http.StatusBadGateway, "PARTIAL_WRITE", pwErr.Error(), manifest)
		}
		return failFor(c, err, "catalog")
	}
	getApp(c).Bus().Publish(app.TopicCatalogSaved, key, payload.ClientName)
	return ok(c, map[string]interface{}{"key": key, "manifest": manifest})
}

func imageUploads(images []imagePayload) []repository.ImageUpload {
	out := make([]repository.ImageUpload, 0, len(images))
	for _, img := range images {
		out = append(out, repository.ImageUpload{Code: img.Code, Ext: img.Ext, Data: img.Data})
	}
	return out
}

// addCatalogItem appends one reference; duplicates are allowed on purpose
// (two lines of the same code are two order lines).
func addCatalogItem(c echo.Context) error {
	var item domain.ItemRef
	if err := c.Bind(&item); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse item", err.Error())
	}
	ctx := c.Request().Context()
	key := c.Param("key")
	repo := getApp(c).Repository()
	cat, rev, err := repo.LoadClientCatalog(ctx, key)
	if err != nil {
		return failFor(c, err, "catalog")
	}
	if expected := c.Request().Header.Get("If-Match"); expected != "" {
		rev = expected
	}
	catalog.AddItemToCatalog(cat, item)
	newRev, err := repo.SaveClientCatalog(ctx, key, cat, rev)
	if err != nil {
		return failFor(c, err, "catalog")
	}
	getApp(c).Bus().Publish(app.TopicCatalogSaved, key, cat.ClientName)
	c.Response().Header().Set("ETag", newRev)
	return ok(c, cat)
}

func removeCatalogItem(c echo.Context) error {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_INDEX", "Invalid item index", nil)
	}
	ctx := c.Request().Context()
	key := c.Param("key")
	repo := getApp(c).Repository()
	cat, rev, err := repo.LoadClientCatalog(ctx, key)
	if err != nil {
		return failFor(c, err, "catalog")
	}
	if expected := c.Request().Header.Get("If-Match"); expected != "" {
		rev = expected
	}
	if err := catalog.RemoveItemFromCatalog(cat, index); err != nil {
		return failFor(c, err, "catalog item")
	}
	newRev, err := repo.SaveClientCatalog(ctx, key, cat, rev)
	if err != nil {
		return failFor(c, err, "catalog")
	}
	getApp(c).Bus().Publish(app.TopicCatalogSaved, key, cat.ClientName)
	c.Response().Header().Set("ETag", newRev)
	return ok(c, cat)
}

// removeCatalogItems removes a batch of indices in one save, applied in
// descending order so positions stay valid while removing.
func removeCatalogItems(c echo.Context) error {
	var payload struct {
		Indices []int `json:"indices"`
	}
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
	}
	ctx := c.Request().Context()
	key := c.Param("key")
	repo := getApp(c).Repository()
	cat, rev, err := repo.LoadClientCatalog(ctx, key)
	if err != nil {
		return failFor(c, err, "catalog")
	}
	if expected := c.Request().Header.Get("If-Match"); expected != "" {
		rev = expected
	}
	if err := catalog.RemoveItemsFromCatalog(cat, payload.Indices); err != nil {
		return failFor(c, err, "catalog items")
	}
	newRev, err := repo.SaveClientCatalog(ctx, key, cat, rev)
	if err != nil {
		return failFor(c, err, "catalog")
	}
	getApp(c).Bus().Publish(app.TopicCatalogSaved, key, cat.ClientName)
	c.Response().Header().Set("ETag", newRev)
	return ok(c, cat)
}

// renameCatalog renames the client and migrates the document to the new
// storage key, removing the old one. A failed delete leaves both documents
// and is reported for a manual retry.
func renameCatalog(c echo.Context) error {
	var payload struct {
		ClientName string `json:"cliente"`
	}
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
	}
	newKey, err := getApp(c).Repository().RenameAndMigrate(
		c.Request().Context(), c.Param("key"), payload.ClientName,
		c.Request().Header.Get("If-Match"))
	if err != nil {
		if newKey != "" {
			// migrated but old key not cleaned up
			return fail(c, http.StatusBadGateway, "PARTIAL_MIGRATION", err.Error(),
				map[string]string{"new_key": newKey})
		}
		return failFor(c, err, "catalog")
	}
	getApp(c).Bus().Publish(app.TopicCatalogSaved, newKey, payload.ClientName)
	return ok(c, map[string]interface{}{"key": newKey})
}

func deleteCatalog(c echo.Context) error {
	key := c.Param("key")
	err := getApp(c).Repository().DeleteClientCatalog(
		c.Request().Context(), key, c.Request().Header.Get("If-Match"))
	if err != nil {
		return failFor(c, err, "catalog")
	}
	getApp(c).Bus().Publish(app.TopicCatalogDeleted, key, "")
	return ok(c, map[string]interface{}{"key": key})
}
