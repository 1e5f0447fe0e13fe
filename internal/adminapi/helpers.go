// Package adminapi implements the HTTP surface: admin endpoints for curating
// the product database and client catalogs, plus the public client endpoints
// that render a catalog and format the order link.
package adminapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/svpecas/catalogd/internal/app"
	"github.com/svpecas/catalogd/internal/domain"
	"github.com/svpecas/catalogd/internal/webserver"
)

// RegisterRoutes wires every endpoint into the webserver registry.
func RegisterRoutes() {
	registerAuthRoutes()
	registerProductRoutes()
	registerCatalogRoutes()
	registerClientRoutes()
}

func getApp(c echo.Context) app.AppContext {
	return webserver.GetApp(c)
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"data": data})
}

func fail(c echo.Context, status int, code, message string, detail interface{}) error {
	return c.JSON(status, map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
			"detail":  detail,
		},
	})
}

func paged(c echo.Context, rows interface{}, total int64, page, pageSize int) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":      rows,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func parsePagination(c echo.Context) (page, pageSize int) {
	page = 1
	pageSize = 20
	if p, err := strconv.Atoi(c.QueryParam("page")); err == nil && p > 0 {
		page = p
	}
	if ps, err := strconv.Atoi(c.QueryParam("perPage")); err == nil && ps > 0 && ps <= 500 {
		pageSize = ps
	}
	return page, pageSize
}

// failFor maps the error taxonomy onto HTTP responses in one place so the
// handlers stay short.
func failFor(c echo.Context, err error, subject string) error {
	var (
		vErr  *domain.ValidationError
		iErr  *domain.IndexOutOfRangeError
		sErr  *domain.StorageReadError
		pwErr *domain.PartialWriteError
	)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fail(c, http.StatusNotFound, "NOT_FOUND", subject+" not found", nil)
	case errors.Is(err, domain.ErrConflict):
		return fail(c, http.StatusConflict, "CONFLICT",
			"Document changed since it was read, reload and retry", nil)
	case errors.As(err, &vErr):
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", vErr.Reason,
			map[string]string{"field": vErr.Field})
	case errors.As(err, &iErr):
		return fail(c, http.StatusBadRequest, "INDEX_OUT_OF_RANGE", iErr.Error(), nil)
	case errors.As(err, &sErr):
		return fail(c, http.StatusInternalServerError, "STORAGE_READ_ERROR", sErr.Error(), nil)
	case errors.As(err, &pwErr):
		return fail(c, http.StatusBadGateway, "PARTIAL_WRITE", pwErr.Error(),
			pwErr.Manifest)
	default:
		return fail(c, http.StatusInternalServerError, "STORAGE_ERROR",
			"Failed to access "+subject, err.Error())
	}
}
