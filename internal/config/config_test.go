package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booru-dl/internal/model"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nonexistent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
output_dir = "/tmp/out"
concurrency = 8
safe_mode = true
cbz = true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/out", cfg.OutputDir)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.True(t, cfg.SafeMode)
	assert.True(t, cfg.CBZ)
}

func TestLoadConfigMalformedIsConfigError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("not = valid = toml ["), 0600))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrConfig)
}

func TestLoadBlacklistCreatesFileWhenMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blacklist.toml")

	bl, err := LoadBlacklist(path)
	require.NoError(t, err)
	assert.Empty(t, bl.Global)
	_, statErr := os.Stat(path)
	require.NoError(t, statErr)

	// Second call reads the now-present file rather than erroring.
	bl2, err := LoadBlacklist(path)
	require.NoError(t, err)
	assert.Equal(t, bl.Global, bl2.Global)
}

func TestLoadBlacklistParsesSections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blacklist.toml")
	content := `
[blacklist]
global = ["loli", "cub"]
danbooru = ["furry"]
e621 = []
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	bl, err := LoadBlacklist(path)
	require.NoError(t, err)
	assert.Contains(t, bl.Global, "loli")
	assert.Contains(t, bl.Global, "cub")
	assert.Contains(t, bl.Sites[model.SiteDanbooru], "furry")
	assert.Empty(t, bl.Sites[model.SiteE621])
}

func TestLoadAuthCreatesFileWhenMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "auth.toml")

	creds, err := LoadAuth(path)
	require.NoError(t, err)
	assert.Empty(t, creds)
	_, statErr := os.Stat(path)
	require.NoError(t, statErr)
}

func TestLoadAuthParsesCredentials(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "auth.toml")
	content := `
[danbooru]
login = "alice"
api_key = "secret"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	creds, err := LoadAuth(path)
	require.NoError(t, err)
	dan := creds[model.SiteDanbooru]
	assert.Equal(t, "alice", dan.Login)
	assert.Equal(t, "secret", dan.APIKey)
	assert.False(t, dan.Anonymous())

	e621 := creds[model.SiteE621]
	assert.True(t, e621.Anonymous())
}
