package sink

import (
	"archive/zip"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booru-dl/internal/model"
)

func TestArchiveCommitAndCloseProducesValidZip(t *testing.T) {
	dir := t.TempDir()
	a, err := NewArchive(dir, model.SiteDanbooru, "tagq")
	require.NoError(t, err)

	post := model.Post{ID: 1, Site: model.SiteDanbooru, Rating: model.RatingSafe}
	exists, err := a.Exists(context.Background(), post, "tagq", "1.jpg")
	require.NoError(t, err)
	assert.False(t, exists)

	size, err := a.Commit(context.Background(), post, "tagq", "1.jpg", strings.NewReader("content-a"))
	require.NoError(t, err)
	assert.Equal(t, int64(9), size)

	post2 := model.Post{ID: 2, Site: model.SiteDanbooru, Rating: model.RatingExplicit}
	_, err = a.Commit(context.Background(), post2, "tagq", "2.jpg", strings.NewReader("content-b"))
	require.NoError(t, err)

	summary := model.DownloadSummary{
		Site:            model.SiteDanbooru,
		Tags:            []string{"a", "b"},
		HighestID:       2,
		Timestamp:       1700000000,
		DownloadedCount: 2,
	}
	require.NoError(t, a.Close(summary))

	path := filepath.Join(dir, "danbooru", "tagq.cbz")
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	names := make(map[string]*zip.File)
	for _, f := range zr.File {
		names[f.Name] = f
		assert.Equal(t, zip.Store, f.Method, "archive entries must be uncompressed")
	}

	require.Contains(t, names, "Safe/1.jpg")
	require.Contains(t, names, "Explicit/2.jpg")
	require.Contains(t, names, "00_summary.json")

	rc, err := names["00_summary.json"].Open()
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)

	var got archiveSummary
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "danbooru", got.Site)
	assert.Equal(t, uint64(2), got.HighestID)
	assert.Len(t, got.Posts, 2)
}

func TestArchiveAbortRemovesPartialFile(t *testing.T) {
	dir := t.TempDir()
	a, err := NewArchive(dir, model.SiteDanbooru, "tagq")
	require.NoError(t, err)

	_, err = a.Commit(context.Background(), model.Post{ID: 1, Rating: model.RatingSafe}, "tagq", "1.jpg", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, a.Abort())

	path := filepath.Join(dir, "danbooru", "tagq.cbz")
	_, statErr := zip.OpenReader(path)
	assert.Error(t, statErr)
}
