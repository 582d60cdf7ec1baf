package poolcache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booru-dl/internal/model"
)

func TestPutGetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pools")
	c, err := Open(path)
	require.NoError(t, err)
	defer c.Close()

	ids := []uint64{5, 3, 9, 1}
	require.NoError(t, c.Put(model.SiteDanbooru, 42, ids))

	got, err := c.Get(model.SiteDanbooru, 42)
	require.NoError(t, err)
	assert.Equal(t, ids, got)
}

func TestGetMissingReturnsErrNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pools")
	c, err := Open(path)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Get(model.SiteE621, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPoolIsolatedBySite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pools")
	c, err := Open(path)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Put(model.SiteDanbooru, 1, []uint64{1, 2}))
	require.NoError(t, c.Put(model.SiteE621, 1, []uint64{9, 8, 7}))

	dan, err := c.Get(model.SiteDanbooru, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, dan)

	e621, err := c.Get(model.SiteE621, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{9, 8, 7}, e621)
}
