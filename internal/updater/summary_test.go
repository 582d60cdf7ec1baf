package updater

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booru-dl/internal/model"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	summary := NewSummary(model.SiteE621, []string{"1girl", "solo"}, 987654, 42)

	require.NoError(t, Save(dir, "1girl solo", summary))

	got, ok, err := Load(dir, model.SiteE621, "1girl solo")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, summary.Site, got.Site)
	assert.Equal(t, summary.Tags, got.Tags)
	assert.Equal(t, summary.HighestID, got.HighestID)
	assert.Equal(t, summary.Timestamp, got.Timestamp)
	assert.Equal(t, summary.DownloadedCount, got.DownloadedCount)
}

func TestLoadMissingFileIsNoPriorRun(t *testing.T) {
	dir := t.TempDir()
	_, ok, err := Load(dir, model.SiteDanbooru, "none")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadCorruptFileIsNoPriorRun(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir, model.SiteDanbooru, "tagq")
	require.NoError(t, Save(dir, "tagq", NewSummary(model.SiteDanbooru, nil, 1, 1)))

	// Truncate the file to simulate a corrupted/partial checkpoint.
	require.NoError(t, truncateFile(path, 3))

	_, ok, err := Load(dir, model.SiteDanbooru, "tagq")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPathLayout(t *testing.T) {
	got := Path("/out", model.SiteGelbooru, "1girl solo")
	assert.Equal(t, filepath.Join("/out", "gelbooru", "1girl solo", ".00_download_summary.bin"), got)
}

func TestEncodeDecodeEmptyTags(t *testing.T) {
	s := NewSummary(model.SiteRule34, nil, 0, 0)
	plain := encode(s)
	got, err := decode(plain)
	require.NoError(t, err)
	assert.Equal(t, s.Site, got.Site)
	assert.Empty(t, got.Tags)
}

func truncateFile(path string, n int64) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Truncate(n)
}
