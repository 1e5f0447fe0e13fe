package adminapi

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"
	"github.com/svpecas/catalogd/internal/app"
	"github.com/svpecas/catalogd/internal/catalog"
	"github.com/svpecas/catalogd/internal/domain"
	"github.com/svpecas/catalogd/internal/webserver"
	"go.uber.org/zap"
)

func registerProductRoutes() {
	webserver.ApiGET("/products", listProducts)
	webserver.ApiGET("/products/export", exportProducts)
	webserver.ApiGET("/products/:code", getProduct)
	webserver.ApiPOST("/products", upsertProduct)
	webserver.ApiDELETE("/products/:code", deleteProduct)
	webserver.ApiPOST("/products/:code/image", uploadProductImage)
}

func listProducts(c echo.Context) error {
	page, pageSize := parsePagination(c)
	q := strings.ToLower(strings.TrimSpace(c.QueryParam("q")))

	db, rev, err := getApp(c).Repository().LoadProductDatabase(c.Request().Context())
	if err != nil {
		return failFor(c, err, "product database")
	}

	filtered := db
	if q != "" {
		filtered = filtered[:0:0]
		for _, p := range db {
			if strings.Contains(strings.ToLower(p.Name), q) ||
				strings.Contains(strings.ToLower(p.Code), q) {
				filtered = append(filtered, p)
			}
		}
	}

	total := int64(len(filtered))
	start := (page - 1) * pageSize
	if start > len(filtered) {
		start = len(filtered)
	}
	end := start + pageSize
	if end > len(filtered) {
		end = len(filtered)
	}
	c.Response().Header().Set("ETag", rev)
	return paged(c, filtered[start:end], total, page, pageSize)
}

func getProduct(c echo.Context) error {
	db, rev, err := getApp(c).Repository().LoadProductDatabase(c.Request().Context())
	if err != nil {
		return failFor(c, err, "product database")
	}
	rec, found := catalog.FindProduct(db, c.Param("code"))
	if !found {
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	}
	c.Response().Header().Set("ETag", rev)
	return ok(c, rec)
}

// upsertProduct inserts or updates by code: an existing code is replaced in
// place, a new one is appended.
func upsertProduct(c echo.Context) error {
	var rec domain.ProductRecord
	if err := c.Bind(&rec); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	rec.Code = strings.TrimSpace(rec.Code)
	rec.Name = strings.TrimSpace(rec.Name)
	if err := rec.Valid(); err != nil {
		return failFor(c, err, "product")
	}

	ctx := c.Request().Context()
	repo := getApp(c).Repository()
	db, rev, err := repo.LoadProductDatabase(ctx)
	if err != nil {
		return failFor(c, err, "product database")
	}
	if expected := c.Request().Header.Get("If-Match"); expected != "" {
		rev = expected
	}
	db = catalog.UpsertProduct(db, rec)
	newRev, err := repo.SaveProductDatabase(ctx, db, rev)
	if err != nil {
		return failFor(c, err, "product database")
	}
	getApp(c).Bus().Publish(app.TopicProductSaved, rec.Code, rec.Name)
	c.Response().Header().Set("ETag", newRev)
	return ok(c, rec)
}

func deleteProduct(c echo.Context) error {
	code := c.Param("code")
	ctx := c.Request().Context()
	repo := getApp(c).Repository()
	db, rev, err := repo.LoadProductDatabase(ctx)
	if err != nil {
		return failFor(c, err, "product database")
	}
	if expected := c.Request().Header.Get("If-Match"); expected != "" {
		rev = expected
	}
	db, removed := catalog.RemoveProduct(db, code)
	if !removed {
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	}
	newRev, err := repo.SaveProductDatabase(ctx, db, rev)
	if err != nil {
		return failFor(c, err, "product database")
	}
	getApp(c).Bus().Publish(app.TopicProductDeleted, code, "")
	c.Response().Header().Set("ETag", newRev)
	return ok(c, map[string]interface{}{"codigo": code})
}

type productCSVRow struct {
	Code        string `csv:"codigo"`
	Name        string `csv:"nome"`
	Description string `csv:"descricao"`
	ImagePath   string `csv:"imagem"`
}

// exportProducts streams the shared database as CSV for offline curation.
func exportProducts(c echo.Context) error {
	db, _, err := getApp(c).Repository().LoadProductDatabase(c.Request().Context())
	if err != nil {
		return failFor(c, err, "product database")
	}
	rows := make([]productCSVRow, 0, len(db))
	for _, p := range db {
		rows = append(rows, productCSVRow{
			Code: p.Code, Name: p.Name, Description: p.Description, ImagePath: p.ImagePath,
		})
	}
	out, err := gocsv.MarshalString(&rows)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "EXPORT_ERROR", "Failed to render CSV", err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="database.csv"`)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", []byte(out))
}

// uploadProductImage stores the uploaded file as-is under imagens/<code> and
// stamps the stored path on the product record.
func uploadProductImage(c echo.Context) error {
	code := c.Param("code")
	fh, err := c.FormFile("imagem")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Image file is required", err.Error())
	}
	ext := strings.TrimPrefix(filepath.Ext(fh.Filename), ".")
	if ext == "" {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Image file needs an extension", nil)
	}
	f, err := fh.Open()
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to read image", err.Error())
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to read image", err.Error())
	}

	ctx := c.Request().Context()
	repo := getApp(c).Repository()
	imgPath, err := repo.SaveImage(ctx, code, ext, data)
	if err != nil {
		return failFor(c, err, "image")
	}

	// Stamp the path on the record when the product exists; a standalone
	// upload for a not-yet-registered code is still accepted.
	db, rev, err := repo.LoadProductDatabase(ctx)
	if err != nil {
		return failFor(c, err, "product database")
	}
	if rec, found := catalog.FindProduct(db, code); found {
		rec.ImagePath = imgPath
		db = catalog.UpsertProduct(db, rec)
		if _, err := repo.SaveProductDatabase(ctx, db, rev); err != nil {
			return failFor(c, err, "product database")
		}
	}
	zap.L().Info("adminapi: product image stored",
		zap.String("code", code), zap.String("path", imgPath))
	return ok(c, map[string]interface{}{"imagem": imgPath})
}
