package adminapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/svpecas/catalogd/config"
	"github.com/svpecas/catalogd/internal/app"
	"github.com/svpecas/catalogd/internal/blobstore"
	"github.com/svpecas/catalogd/internal/webserver"
)

func setupTestServer(t *testing.T) *app.Application {
	t.Helper()
	cfg := *config.DefaultAppConfig
	cfg.Storage.Dir = t.TempDir()

	a := app.NewApplication(&cfg)
	store, err := blobstore.NewFsStore(cfg.Storage.Dir)
	require.NoError(t, err)
	a.OverrideStore(store)

	webserver.Init(a)
	RegisterRoutes()
	return a
}

func doJSON(t *testing.T, method, target, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	webserver.Echo().ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Data
}

func login(t *testing.T) string {
	t.Helper()
	rec := doJSON(t, http.MethodPost, "/api/auth/login", "",
		map[string]string{"password": "SV2024"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token, _ := decodeData(t, rec)["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	setupTestServer(t)
	rec := doJSON(t, http.MethodPost, "/api/auth/login", "",
		map[string]string{"password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "WRONG_PASSWORD")
}

func TestApiRequiresToken(t *testing.T) {
	setupTestServer(t)
	rec := doJSON(t, http.MethodGet, "/api/products", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProductLifecycle(t *testing.T) {
	setupTestServer(t)
	token := login(t)

	rec := doJSON(t, http.MethodPost, "/api/products", token,
		map[string]string{"codigo": "P-100", "nome": "Filtro de óleo", "descricao": "Filtro blindado"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("ETag"))

	// missing name is rejected
	rec = doJSON(t, http.MethodPost, "/api/products", token,
		map[string]string{"codigo": "P-101"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")

	rec = doJSON(t, http.MethodGet, "/api/products/P-100", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Filtro de óleo", decodeData(t, rec)["nome"])

	// stale If-Match gets a conflict
	req := httptest.NewRequest(http.MethodPost, "/api/products",
		strings.NewReader(`{"codigo":"P-100","nome":"Filtro novo"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("If-Match", "0000000000000000000000000000000000000000")
	stale := httptest.NewRecorder()
	webserver.Echo().ServeHTTP(stale, req)
	assert.Equal(t, http.StatusConflict, stale.Code)

	rec = doJSON(t, http.MethodGet, "/api/products?q=filtro", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Total int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, int64(1), page.Total)

	rec = doJSON(t, http.MethodDelete, "/api/products/P-100", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, http.MethodGet, "/api/products/P-100", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCatalogAndOrderFlow(t *testing.T) {
	setupTestServer(t)
	token := login(t)

	rec := doJSON(t, http.MethodPost, "/api/products", token,
		map[string]string{"codigo": "P-200", "nome": "Pastilha de freio"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, http.MethodPost, "/api/catalogs", token, map[string]interface{}{
		"cliente":          "Oficina do João",
		"vendedor":         "Carlos",
		"contato_vendedor": "+55 (11) 91234-5678",
		"pecas":            []string{"P-200"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "oficina_do_joão", decodeData(t, rec)["key"])

	// public page resolves against the shared database, no token needed
	rec = doJSON(t, http.MethodGet, "/catalog/oficina_do_joão", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := decodeData(t, rec)
	assert.Equal(t, "Oficina do João", data["cliente"])
	pecas, _ := data["pecas"].([]interface{})
	require.Len(t, pecas, 1)

	rec = doJSON(t, http.MethodPost, "/catalog/oficina_do_joão/order", "",
		map[string]interface{}{
			"itens": []map[string]interface{}{{"codigo": "P-200", "quantidade": 2}},
		})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	link, _ := decodeData(t, rec)["link"].(string)
	assert.Contains(t, link, "https://wa.me/5511912345678?text=")
	assert.Contains(t, link, "Quantidade")

	// an item outside the catalog is refused
	rec = doJSON(t, http.MethodPost, "/catalog/oficina_do_joão/order", "",
		map[string]interface{}{
			"itens": []map[string]interface{}{{"codigo": "P-999", "quantidade": 1}},
		})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNKNOWN_ITEM")
}

func TestCatalogItemEditing(t *testing.T) {
	setupTestServer(t)
	token := login(t)

	rec := doJSON(t, http.MethodPost, "/api/catalogs", token, map[string]interface{}{
		"cliente":          "Cliente B",
		"vendedor":         "Ana",
		"contato_vendedor": "11999990000",
		"pecas":            []string{"A", "B", "C"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, http.MethodPost, "/api/catalogs/cliente_b/items", token, "D")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, http.MethodPost, "/api/catalogs/cliente_b/items/remove", token,
		map[string]interface{}{"indices": []int{0, 2}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, http.MethodGet, "/api/catalogs/cliente_b", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items, _ := decodeData(t, rec)["pecas"].([]interface{})
	assert.Equal(t, []interface{}{"B", "D"}, items)

	// removing past the end reports the index and leaves the catalog alone
	rec = doJSON(t, http.MethodDelete, "/api/catalogs/cliente_b/items/9", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INDEX_OUT_OF_RANGE")
}

func TestRenameCatalogMovesKey(t *testing.T) {
	setupTestServer(t)
	token := login(t)

	rec := doJSON(t, http.MethodPost, "/api/catalogs", token, map[string]interface{}{
		"cliente":          "Cliente C",
		"vendedor":         "Ana",
		"contato_vendedor": "11999990000",
		"pecas":            []string{"A"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, http.MethodPost, "/api/catalogs/cliente_c/rename", token,
		map[string]string{"cliente": "Auto Center C"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "auto_center_c", decodeData(t, rec)["key"])

	rec = doJSON(t, http.MethodGet, "/api/catalogs/cliente_c", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = doJSON(t, http.MethodGet, "/api/catalogs/auto_center_c", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
