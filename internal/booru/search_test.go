package booru

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booru-dl/internal/model"
	"booru-dl/internal/queue"
)

// fakeExtractor is a minimal in-test Extractor hitting a local httptest
// server instead of a real booru, so Search can be exercised end-to-end
// without a network dependency.
type fakeExtractor struct {
	baseURL string
}

func (f fakeExtractor) Site() model.Site { return model.SiteDanbooru }
func (fakeExtractor) PageSize() int      { return 2 }
func (fakeExtractor) RequiresAuthForTagCount(n int) bool { return n > 2 }

func (f fakeExtractor) BuildSearchURL(tags []string, page, limit int) string {
	return fmt.Sprintf("%s/posts.json?page=%d&limit=%d", f.baseURL, page, limit)
}
func (f fakeExtractor) BuildPostURL(id uint64) string {
	return fmt.Sprintf("%s/posts/%d.json", f.baseURL, id)
}
func (fakeExtractor) ParsePosts(body []byte) ([]model.Post, error) {
	ext, ok := For(model.SiteDanbooru)
	if !ok {
		return nil, fmt.Errorf("danbooru extractor not registered")
	}
	return ext.ParsePosts(body)
}
func (fakeExtractor) ParsePost(body []byte) (model.Post, error) {
	ext, _ := For(model.SiteDanbooru)
	return ext.ParsePost(body)
}

func TestSearchPaginatesUntilShortPage(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		page := r.URL.Query().Get("page")
		w.Header().Set("Content-Type", "application/json")
		switch page {
		case "1":
			w.Write([]byte(`[{"id":3,"md5":"","file_url":"https://x/3.jpg","rating":"s","tag_string":"a b"},{"id":2,"md5":"","file_url":"https://x/2.jpg","rating":"s","tag_string":"a b"}]`))
		case "2":
			w.Write([]byte(`[{"id":1,"md5":"","file_url":"https://x/1.jpg","rating":"s","tag_string":"a b"}]`))
		default:
			w.Write([]byte(`[]`))
		}
	}))
	defer srv.Close()

	ext := fakeExtractor{baseURL: srv.URL}
	q := queue.New(1)
	opts := SearchOptions{Tags: []string{"a", "b"}}

	result, err := Search(context.Background(), srv.Client(), ext, opts, q)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), result.Count)
	assert.Equal(t, uint64(3), result.HighestID)
	assert.Equal(t, 2, requests)

	var ids []uint64
	for {
		item, ok := q.Recv()
		require.True(t, ok)
		if item.Terminator {
			break
		}
		ids = append(ids, item.Post.ID)
	}
	assert.Equal(t, []uint64{3, 2, 1}, ids)
}

func TestSearchRespectsLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":5,"md5":"","file_url":"https://x/5.jpg","rating":"s","tag_string":"a"},{"id":4,"md5":"","file_url":"https://x/4.jpg","rating":"s","tag_string":"a"}]`))
	}))
	defer srv.Close()

	ext := fakeExtractor{baseURL: srv.URL}
	q := queue.New(1)
	opts := SearchOptions{Tags: []string{"a"}, Limit: 1}

	result, err := Search(context.Background(), srv.Client(), ext, opts, q)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), result.Count)
	assert.Equal(t, uint64(5), result.HighestID)
}

func TestSearchInsufficientAuth(t *testing.T) {
	ext := fakeExtractor{baseURL: "http://unused.invalid"}
	q := queue.New(1)
	opts := SearchOptions{Tags: []string{"a", "b", "c"}}

	_, err := Search(context.Background(), http.DefaultClient, ext, opts, q)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInsufficientAuth)

	_, ok := q.Recv()
	require.True(t, ok, "queue must still be closed with a terminator on fatal error")
}

func TestSearchCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":1,"md5":"","file_url":"https://x/1.jpg","rating":"s","tag_string":"a"}]`))
	}))
	defer srv.Close()

	ext := fakeExtractor{baseURL: srv.URL}
	q := queue.New(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Draining goroutine needed only if the cancellation races a send;
	// SendContext should return ctx.Err() before blocking indefinitely.
	done := make(chan struct{})
	go func() {
		for {
			if item, ok := q.Recv(); !ok || item.Terminator {
				break
			}
		}
		close(done)
	}()

	_, err := Search(ctx, srv.Client(), ext, SearchOptions{Tags: []string{"a"}}, q)
	assert.Error(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("queue was never drained to the terminator")
	}
}
