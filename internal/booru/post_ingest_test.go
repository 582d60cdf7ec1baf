package booru

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booru-dl/internal/model"
	"booru-dl/internal/queue"
)

func TestFetchPostsSkipsNotFoundAndKeepsRest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/posts/1.json":
			w.Write([]byte(`{"id":1,"md5":"","file_url":"https://x/1.jpg","rating":"s","tag_string":"a"}`))
		case "/posts/2.json":
			w.WriteHeader(http.StatusNotFound)
		case "/posts/3.json":
			w.Write([]byte(`{"id":3,"md5":"","file_url":"https://x/3.jpg","rating":"s","tag_string":"a"}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	ext := fakeExtractor{baseURL: srv.URL}
	q := queue.New(1)
	result, err := FetchPosts(context.Background(), srv.Client(), ext, []uint64{1, 2, 3}, model.Credential{}, FilterOptions{}, q)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), result.Count)
	assert.Equal(t, uint64(3), result.HighestID)

	var ids []uint64
	for {
		item, ok := q.Recv()
		require.True(t, ok)
		if item.Terminator {
			break
		}
		ids = append(ids, item.Post.ID)
	}
	assert.Equal(t, []uint64{1, 3}, ids)
}

func TestFetchPostsPropagatesFatalError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	ext := fakeExtractor{baseURL: srv.URL}
	q := queue.New(1)
	_, err := FetchPosts(context.Background(), srv.Client(), ext, []uint64{1}, model.Credential{}, FilterOptions{}, q)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrAuthFailed)

	_, ok := q.Recv()
	require.True(t, ok)
}

func TestPoolTag(t *testing.T) {
	assert.Equal(t, "pool:123", poolTag(123))
}

func TestResolvePoolCollectsIDsAcrossPages(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") != "1" {
			fmt.Fprint(w, `[]`)
			return
		}
		fmt.Fprint(w, `[{"id":2,"md5":"","file_url":"https://x/2.jpg","rating":"s","tag_string":"pool:1"},{"id":1,"md5":"","file_url":"https://x/1.jpg","rating":"s","tag_string":"pool:1"}]`)
	}))
	defer srv.Close()

	ext := fakeExtractor{baseURL: srv.URL}
	ids, err := ResolvePool(context.Background(), srv.Client(), ext, 1, model.Credential{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 1}, ids)
	assert.Equal(t, 2, requests)
}
