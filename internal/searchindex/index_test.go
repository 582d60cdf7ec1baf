package searchindex

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booru-dl/internal/model"
)

func TestNewDocProjection(t *testing.T) {
	p := model.NewPost(123, model.SiteDanbooru, []string{"1girl", "solo"})
	p.Rating = model.RatingSafe
	p.PostURL = "https://danbooru.donmai.us/posts/123"

	doc := NewDoc(p, "/out/danbooru/tagq/Safe/abc.jpg")
	assert.Equal(t, "danbooru:123", doc.ID)
	assert.Equal(t, "danbooru", doc.Site)
	assert.Equal(t, "Safe", doc.Rating)
	assert.ElementsMatch(t, []string{"1girl", "solo"}, doc.Tags)
	assert.Equal(t, "https://danbooru.donmai.us/posts/123", doc.PostURL)
}

func TestOpenIndexCreateAndSearch(t *testing.T) {
	dir := t.TempDir()
	idx, err := OpenOrCreate(filepath.Join(dir, "test.bleve"))
	require.NoError(t, err)
	defer idx.Close()

	p := model.NewPost(1, model.SiteE621, []string{"canine", "duo"})
	p.Rating = model.RatingExplicit
	require.NoError(t, IndexPost(idx, p, "/out/e621/duo/Explicit/1.jpg"))

	result, err := Search(idx, "+tags:canine")
	require.NoError(t, err)
	require.Equal(t, uint64(1), result.Total)
	assert.Equal(t, "e621:1", result.Hits[0].ID)
}

func TestOpenIndexReopensExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reopen.bleve")

	idx, err := OpenOrCreate(path)
	require.NoError(t, err)
	p := model.NewPost(5, model.SiteGelbooru, []string{"tag"})
	require.NoError(t, IndexPost(idx, p, "/path"))
	require.NoError(t, idx.Close())

	idx2, err := OpenOrCreate(path)
	require.NoError(t, err)
	defer idx2.Close()

	result, err := Search(idx2, "+id:gelbooru:5")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), result.Total)
}
