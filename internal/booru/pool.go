package booru

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"

	"booru-dl/internal/model"
	"booru-dl/internal/poolcache"
	"booru-dl/internal/queue"
)

// poolTag renders the pool-membership filter every supported engine
// accepts as an ordinary search tag, e.g. Danbooru's "pool:123".
func poolTag(poolID uint64) string {
	return fmt.Sprintf("pool:%d", poolID)
}

// ResolvePool returns a pool's post ids in site order. A cache hit (pool
// membership rarely changes once a pool is closed) skips the network
// entirely; otherwise it pages through a "pool:<id>" tag search collecting
// every id before any filtering, and memoizes the result.
func ResolvePool(ctx context.Context, client *http.Client, ext Extractor, poolID uint64, cred model.Credential, cache *poolcache.Cache) ([]uint64, error) {
	if cache != nil {
		ids, err := cache.Get(ext.Site(), poolID)
		switch {
		case err == nil:
			return ids, nil
		case errors.Is(err, poolcache.ErrNotFound):
			// fall through to network resolution
		default:
			return nil, err
		}
	}

	var ids []uint64
	page := 1
	pageSize := ext.PageSize()

	for pagesFetched := 0; pagesFetched < MaxPages; pagesFetched++ {
		searchURL := ext.BuildSearchURL([]string{poolTag(poolID)}, page, pageSize)
		body, err := fetch(ctx, client, func() (*http.Request, error) {
			return http.NewRequest(http.MethodGet, searchURL, nil)
		}, cred)
		if err != nil {
			return nil, err
		}

		posts, err := ext.ParsePosts(body)
		if err != nil {
			return nil, err
		}
		if len(posts) == 0 {
			break
		}
		for _, p := range posts {
			ids = append(ids, p.ID)
		}
		if len(posts) < pageSize {
			break
		}
		page++
	}

	if cache != nil {
		if err := cache.Put(ext.Site(), poolID, ids); err != nil {
			log.WithError(err).Warn("failed to cache pool membership")
		}
	}

	return ids, nil
}

// FetchPool resolves poolID's post ids, then ingests them exactly like
// FetchPosts (one single-post API call per id, same filter chain).
func FetchPool(ctx context.Context, client *http.Client, ext Extractor, poolID uint64, cred model.Credential, filter FilterOptions, cache *poolcache.Cache, q *queue.Queue) (SearchResult, error) {
	ids, err := ResolvePool(ctx, client, ext, poolID, cred, cache)
	if err != nil {
		q.Close()
		return SearchResult{}, err
	}
	return FetchPosts(ctx, client, ext, ids, cred, filter, q)
}
