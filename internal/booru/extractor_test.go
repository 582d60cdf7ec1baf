package booru

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booru-dl/internal/model"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return b
}

// TestNormalizationClosure is spec.md §8 property 1: every site variant's
// parser must produce posts whose url is absolute, rating is well-formed,
// and md5 is empty or a valid hex digest.
func TestNormalizationClosure(t *testing.T) {
	cases := []struct {
		site    model.Site
		fixture string
	}{
		{model.SiteDanbooru, "danbooru_posts.json"},
		{model.SiteE621, "e621_posts.json"},
		{model.SiteGelbooru, "gelbooru_posts.json"},
		{model.SiteKonachan, "konachan_posts.json"},
	}

	for _, tc := range cases {
		t.Run(tc.site.String(), func(t *testing.T) {
			ext, ok := For(tc.site)
			require.True(t, ok)

			body := readFixture(t, tc.fixture)
			posts, err := ext.ParsePosts(body)
			require.NoError(t, err)
			require.NotEmpty(t, posts)

			for _, p := range posts {
				if p.URL != "" {
					assert.Contains(t, p.URL, "://", "url must be absolute")
				}
				assert.NotEqual(t, model.RatingUnknown, p.Rating, "fixture ratings should all be known")
				assert.True(t, model.ValidMD5(p.MD5), "md5 %q must be empty or well formed", p.MD5)
			}
		})
	}
}

func TestDanbooruParsePostsOrderingAndFields(t *testing.T) {
	ext, ok := For(model.SiteDanbooru)
	require.True(t, ok)

	posts, err := ext.ParsePosts(readFixture(t, "danbooru_posts.json"))
	require.NoError(t, err)
	require.Len(t, posts, 3)

	// API-returned order is preserved (descending id in the fixture).
	assert.Equal(t, uint64(5000003), posts[0].ID)
	assert.Equal(t, uint64(5000001), posts[2].ID)

	assert.Equal(t, model.RatingSafe, posts[0].Rating)
	assert.True(t, posts[0].HasTag("arknights"))
	assert.Empty(t, posts[2].URL, "deleted post has no media url")
}

func TestDanbooruRequiresAuthForTagCount(t *testing.T) {
	ext, ok := For(model.SiteDanbooru)
	require.True(t, ok)
	assert.False(t, ext.RequiresAuthForTagCount(2))
	assert.True(t, ext.RequiresAuthForTagCount(3))
}

func TestE621NoAuthTagLimit(t *testing.T) {
	ext, ok := For(model.SiteE621)
	require.True(t, ok)
	assert.False(t, ext.RequiresAuthForTagCount(10))
}

func TestGelbooruRelativeURLAbsolutized(t *testing.T) {
	ext, ok := For(model.SiteGelbooru)
	require.True(t, ok)

	posts, err := ext.ParsePosts(readFixture(t, "gelbooru_posts.json"))
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Contains(t, posts[1].URL, "https://gelbooru.com/images/aa/bb/aabbcc.png")
}

func TestFilterChainSafeModeMonotonic(t *testing.T) {
	ext, ok := For(model.SiteE621)
	require.True(t, ok)
	posts, err := ext.ParsePosts(readFixture(t, "e621_posts.json"))
	require.NoError(t, err)

	unrestricted := FilterOptions{}
	safe := FilterOptions{SafeMode: true}

	var withoutSafe, withSafe int
	for _, p := range posts {
		if unrestricted.Accept(p) {
			withoutSafe++
		}
		if safe.Accept(p) {
			withSafe++
		}
	}
	assert.LessOrEqual(t, withSafe, withoutSafe)
	assert.Equal(t, 1, withSafe) // only the Safe-rated post survives
}

func TestFilterChainBlacklistMonotonic(t *testing.T) {
	ext, ok := For(model.SiteE621)
	require.True(t, ok)
	posts, err := ext.ParsePosts(readFixture(t, "e621_posts.json"))
	require.NoError(t, err)

	none := FilterOptions{Blacklist: model.NewBlacklist()}
	bl := model.NewBlacklist()
	bl.Global["duo"] = struct{}{}
	withBlacklist := FilterOptions{Blacklist: bl}

	var countNone, countBlacklisted int
	for _, p := range posts {
		if none.Accept(p) {
			countNone++
		}
		if withBlacklist.Accept(p) {
			countBlacklisted++
		}
	}
	assert.Less(t, countBlacklisted, countNone)
}

func TestFilterChainUpdaterCutoff(t *testing.T) {
	ext, ok := For(model.SiteDanbooru)
	require.True(t, ok)
	posts, err := ext.ParsePosts(readFixture(t, "danbooru_posts.json"))
	require.NoError(t, err)

	f := FilterOptions{HasHighestIDPrev: true, HighestIDPrev: 5000002}
	var accepted []uint64
	for _, p := range posts {
		if f.Accept(p) {
			accepted = append(accepted, p.ID)
		}
	}
	assert.Equal(t, []uint64{5000003}, accepted)
}
