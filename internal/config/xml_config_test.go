package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_CreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "FileLoader.config")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, 8089, cfg.Server.Port)
	assert.Equal(t, filepath.Join(dir, "data", "uploads"), cfg.Storage.UploadsDirectory)
	assert.Equal(t, "", cfg.Catalog.File)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout())
	assert.Equal(t, 10*time.Minute, cfg.RefreshInterval())
	assert.Equal(t, 30*time.Minute, cfg.SessionTimeout())
	assert.Equal(t, 5*time.Minute, cfg.CleanupInterval())
}

func TestLoadConfig_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "FileLoader.config")

	content := `<?xml version="1.0" encoding="UTF-8"?>
<FileLoader>
  <Server><Port>9000</Port><BindAddress>127.0.0.1</BindAddress></Server>
  <Catalog><File>categories.yaml</File><FetchTimeoutSeconds>3</FetchTimeoutSeconds><RefreshIntervalMinutes>0</RefreshIntervalMinutes></Catalog>
  <Session><MaxSessions>7</MaxSessions></Session>
</FileLoader>`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.GetServerAddr())
	assert.Equal(t, filepath.Join(dir, "categories.yaml"), cfg.Catalog.File)
	assert.Equal(t, 3*time.Second, cfg.FetchTimeout())
	assert.Equal(t, time.Duration(0), cfg.RefreshInterval())
	assert.Equal(t, 7, cfg.Session.MaxSessions)
	// Sections missing from the file keep their defaults.
	assert.Equal(t, 30, cfg.Session.TimeoutMinutes)
	assert.Equal(t, "info", cfg.Advanced.LogLevel)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "elsewhere")
	t.Setenv("PORT", "7000")
	t.Setenv("DATA_DIR", dataDir)
	t.Setenv("CATALOG_URL", "http://catalog.local/categories.json")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig(filepath.Join(dir, "FileLoader.config"))
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, dataDir, cfg.Storage.DataDirectory)
	assert.Equal(t, filepath.Join(dataDir, "journal.duckdb"), cfg.Storage.JournalPath)
	assert.Equal(t, "http://catalog.local/categories.json", cfg.Catalog.URL)
	assert.Equal(t, "debug", cfg.Advanced.LogLevel)
}

func TestLoadConfig_InvalidXML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "FileLoader.config")
	require.NoError(t, os.WriteFile(path, []byte("<FileLoader><Server>"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.resolvePaths(dir)

	require.NoError(t, cfg.EnsureDirectories())
	for _, d := range []string{cfg.Storage.DataDirectory, cfg.Storage.UploadsDirectory} {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
