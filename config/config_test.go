package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig("")
	assert.Equal(t, "fs", cfg.Storage.Type)
	assert.Equal(t, 1870, cfg.Web.Port)
	assert.False(t, cfg.Catalog.PreferEmbedded)
	assert.Equal(t, "@every 5m", cfg.Catalog.RetryJobSpec)
}

func TestLoadConfigFromFile(t *testing.T) {
	cfile := filepath.Join(t.TempDir(), "catalogd.yml")
	require.NoError(t, os.WriteFile(cfile, []byte(`
web:
  port: 8080
storage:
  type: github
  github:
    repo: svpecas/catalogo-data
    branch: main
catalog:
  prefer_embedded: true
`), 0644))

	cfg := LoadConfig(cfile)
	assert.Equal(t, 8080, cfg.Web.Port)
	assert.Equal(t, "github", cfg.Storage.Type)
	assert.Equal(t, "svpecas/catalogo-data", cfg.Storage.Github.Repo)
	assert.True(t, cfg.Catalog.PreferEmbedded)
	// untouched sections keep their defaults
	assert.Equal(t, "America/Sao_Paulo", cfg.System.Location)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("CATALOGD_WEB_PORT", "9090")
	t.Setenv("CATALOGD_STORAGE_TYPE", "bbolt")
	t.Setenv("CATALOGD_CATALOG_PREFER_EMBEDDED", "true")

	cfg := LoadConfig("")
	assert.Equal(t, 9090, cfg.Web.Port)
	assert.Equal(t, "bbolt", cfg.Storage.Type)
	assert.True(t, cfg.Catalog.PreferEmbedded)
}
