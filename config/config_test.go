package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmorrow/shopstore/config"
)

func TestDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "json", cfg.Backend)
	assert.Equal(t, "preserve", cfg.CorruptPolicy)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9000"
backend: sqlite
data_dir: /var/lib/shopstore
allowed_origins:
  - https://shop.example.com
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "sqlite", cfg.Backend)
	assert.Equal(t, "/var/lib/shopstore", cfg.DataDir)
	assert.Equal(t, []string{"https://shop.example.com"}, cfg.AllowedOrigins)
	// Untouched fields keep their defaults.
	assert.Equal(t, "preserve", cfg.CorruptPolicy)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: sqlite\n"), 0o644))

	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("PORT", "7070")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Backend)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
}

func TestUnknownFieldRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("prot: \"9000\"\n"), 0o644))

	_, err := config.Load(path)
	require.Error(t, err)
}

func TestMissingFileErrors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
