package blobstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/svpecas/catalogd/internal/domain"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	fs, err := NewFsStore(t.TempDir())
	require.NoError(t, err)
	bolt, err := NewBoltStore(filepath.Join(t.TempDir(), "blobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { bolt.Close() })
	return map[string]Store{"fs": fs, "bbolt": bolt}
}

func TestStoreGetAbsent(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, _, err := store.Get(context.Background(), "nope/missing.json")
			require.ErrorIs(t, err, domain.ErrNotFound)
		})
	}
}

func TestStorePutGetRoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			content := []byte(`{"ok":true}`)
			rev, err := store.Put(ctx, "database/database.json", content, "seed", "")
			require.NoError(t, err)
			assert.Equal(t, BlobRevision(content), rev)

			got, gotRev, err := store.Get(ctx, "database/database.json")
			require.NoError(t, err)
			assert.Equal(t, content, got)
			assert.Equal(t, rev, gotRev)
		})
	}
}

func TestStoreConditionalPut(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			rev1, err := store.Put(ctx, "doc.json", []byte("one"), "v1", "")
			require.NoError(t, err)

			// matching revision goes through
			rev2, err := store.Put(ctx, "doc.json", []byte("two"), "v2", rev1)
			require.NoError(t, err)
			require.NotEqual(t, rev1, rev2)

			// stale revision conflicts and leaves content alone
			_, err = store.Put(ctx, "doc.json", []byte("three"), "v3", rev1)
			require.ErrorIs(t, err, domain.ErrConflict)
			got, _, err := store.Get(ctx, "doc.json")
			require.NoError(t, err)
			assert.Equal(t, []byte("two"), got)

			// empty expected revision is last-writer-wins
			rev4, err := store.Put(ctx, "doc.json", []byte("four"), "v4", "")
			require.NoError(t, err)

			// a conditional put after a delete must not resurrect the blob
			require.NoError(t, store.Delete(ctx, "doc.json", "rm", rev4))
			_, err = store.Put(ctx, "doc.json", []byte("five"), "v5", rev4)
			require.ErrorIs(t, err, domain.ErrConflict)
			_, _, err = store.Get(ctx, "doc.json")
			require.ErrorIs(t, err, domain.ErrNotFound)
		})
	}
}

func TestStoreDelete(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			rev, err := store.Put(ctx, "doc.json", []byte("x"), "add", "")
			require.NoError(t, err)

			require.ErrorIs(t, store.Delete(ctx, "doc.json", "rm", "bogus"), domain.ErrConflict)
			require.NoError(t, store.Delete(ctx, "doc.json", "rm", rev))
			require.ErrorIs(t, store.Delete(ctx, "doc.json", "rm", ""), domain.ErrNotFound)
		})
	}
}

func TestStoreListPrefix(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, p := range []string{"catalogos/b.json", "catalogos/a.json", "imagens/a.jpg"} {
				_, err := store.Put(ctx, p, []byte("x"), "seed", "")
				require.NoError(t, err)
			}
			got, err := store.List(ctx, "catalogos/")
			require.NoError(t, err)
			assert.Equal(t, []string{"catalogos/a.json", "catalogos/b.json"}, got)
		})
	}
}

func TestFsStoreRejectsEscapingPaths(t *testing.T) {
	fs, err := NewFsStore(t.TempDir())
	require.NoError(t, err)
	_, _, err = fs.Get(context.Background(), "../outside")
	require.Error(t, err)
	_, err = fs.Put(context.Background(), "../outside", []byte("x"), "m", "")
	require.Error(t, err)
}

func TestBlobRevisionMatchesGitBlobSha(t *testing.T) {
	// sha1 of "blob 12\x00hello world\n", the hash git assigns to this blob
	assert.Equal(t, "3b18e512dba79e4c8300dd08aeb37f8e728b8dad", BlobRevision([]byte("hello world\n")))
}
