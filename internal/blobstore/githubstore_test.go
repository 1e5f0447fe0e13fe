package blobstore

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/svpecas/catalogd/internal/domain"
)

// fakeContentsAPI is a minimal GitHub Contents API: files keyed by path,
// sha = git blob sha, conditional updates on sha.
type fakeContentsAPI struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newFakeContentsAPI() *fakeContentsAPI {
	return &fakeContentsAPI{files: map[string][]byte{}}
}

func (f *fakeContentsAPI) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		const prefix = "/repos/svpecas/catalog-data/contents/"
		require.True(t, len(r.URL.Path) > len(prefix))
		path := r.URL.Path[len(prefix):]

		switch r.Method {
		case http.MethodGet:
			content, found := f.files[path]
			if !found {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`{"message": "Not Found"}`))
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"type":     "file",
				"path":     path,
				"sha":      BlobRevision(content),
				"content":  base64.StdEncoding.EncodeToString(content),
				"encoding": "base64",
			})
		case http.MethodPut:
			var payload struct {
				Message string `json:"message"`
				Content string `json:"content"`
				SHA     string `json:"sha"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			require.NotEmpty(t, payload.Message)

			current, exists := f.files[path]
			if exists && payload.SHA != BlobRevision(current) {
				w.WriteHeader(http.StatusConflict)
				w.Write([]byte(`{"message": "sha mismatch"}`))
				return
			}
			content, err := base64.StdEncoding.DecodeString(payload.Content)
			require.NoError(t, err)
			f.files[path] = content
			status := http.StatusCreated
			if exists {
				status = http.StatusOK
			}
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"content": map[string]interface{}{"sha": BlobRevision(content)},
			})
		case http.MethodDelete:
			var payload struct {
				SHA string `json:"sha"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			current, exists := f.files[path]
			if !exists {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`{"message": "Not Found"}`))
				return
			}
			if payload.SHA != BlobRevision(current) {
				w.WriteHeader(http.StatusConflict)
				w.Write([]byte(`{"message": "sha mismatch"}`))
				return
			}
			delete(f.files, path)
			w.Write([]byte(`{}`))
		}
	})
}

func newTestGithubStore(t *testing.T) (*GithubStore, *fakeContentsAPI) {
	t.Helper()
	api := newFakeContentsAPI()
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)
	store, err := NewGithubStore(GithubConfig{
		APIBase: srv.URL,
		Repo:    "svpecas/catalog-data",
		Token:   "test-token",
	})
	require.NoError(t, err)
	return store, api
}

func TestGithubStoreRoundTrip(t *testing.T) {
	store, _ := newTestGithubStore(t)
	ctx := context.Background()

	content := []byte(`[{"codigo":"P1","nome":"Filtro"}]`)
	rev, err := store.Put(ctx, "database/database.json", content, "Update product database", "")
	require.NoError(t, err)
	require.NotEmpty(t, rev)

	got, gotRev, err := store.Get(ctx, "database/database.json")
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assert.Equal(t, rev, gotRev)
}

func TestGithubStoreNotFound(t *testing.T) {
	store, _ := newTestGithubStore(t)
	_, _, err := store.Get(context.Background(), "catalogos/ninguem.json")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGithubStoreStaleShaConflicts(t *testing.T) {
	store, _ := newTestGithubStore(t)
	ctx := context.Background()

	rev1, err := store.Put(ctx, "doc.json", []byte("one"), "v1", "")
	require.NoError(t, err)
	_, err = store.Put(ctx, "doc.json", []byte("two"), "v2", rev1)
	require.NoError(t, err)

	_, err = store.Put(ctx, "doc.json", []byte("three"), "v3", rev1)
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestGithubStoreUnconditionalPutUpdates(t *testing.T) {
	// with no expected revision the store looks the current sha up itself
	store, api := newTestGithubStore(t)
	ctx := context.Background()

	_, err := store.Put(ctx, "doc.json", []byte("one"), "v1", "")
	require.NoError(t, err)
	_, err = store.Put(ctx, "doc.json", []byte("two"), "v2", "")
	require.NoError(t, err)

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, []byte("two"), api.files["doc.json"])
}

func TestGithubStoreDelete(t *testing.T) {
	store, _ := newTestGithubStore(t)
	ctx := context.Background()

	rev, err := store.Put(ctx, "doc.json", []byte("x"), "add", "")
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, "doc.json", "rm", rev))
	err = store.Delete(ctx, "doc.json", "rm", rev)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
