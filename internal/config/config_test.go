package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeDefaultConfig(t *testing.T) {
	cfg := InitializeDefaultConfig()

	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, "uploads", cfg.Storage.UploadDir)
	assert.Equal(t, int64(10<<20), cfg.Storage.MaxUploadBytes)
	assert.Equal(t, "uploads/original-sample.pdf", cfg.Signing.DefaultSourcePath)
	assert.Equal(t, "bolosign", cfg.Database.Name)
	assert.Same(t, cfg, GetConfig())
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("UPLOAD_DIR", "/tmp/blobs")
	t.Setenv("DB_HOST", "db.internal")

	cfg := InitializeDefaultConfig()
	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, "/tmp/blobs", cfg.Storage.UploadDir)
	assert.Equal(t, "db.internal", cfg.Database.Host)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"server": {"port": "8080"},
		"storage": {"upload_dir": "data/files"},
		"database": {"host": "pg.example.com", "name": "signing"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "data/files", cfg.Storage.UploadDir)
	assert.Equal(t, "pg.example.com", cfg.Database.Host)
	// Unset values fall back to defaults.
	assert.Equal(t, "signing", cfg.Database.Name)
	assert.Equal(t, "info", cfg.Logging.Level)
}
