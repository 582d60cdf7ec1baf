package booru

import (
	"context"
	"fmt"
	"net/http"

	"booru-dl/internal/model"
	"booru-dl/internal/queue"
)

// SearchOptions parametrizes a tag-query run against one site.
type SearchOptions struct {
	Tags       []string
	Limit      int // 0 means unlimited
	StartPage  int // defaults to 1
	Credential model.Credential
	Filter     FilterOptions
}

// SearchResult summarizes a completed (or partially completed) search:
// the count of posts actually enqueued and the highest id among them,
// exactly the pair the Updater needs to write a new DownloadSummary.
type SearchResult struct {
	Count     uint64
	HighestID uint64
}

// Search paginates ext's site API for opts.Tags, applies the filter chain
// and pushes accepted posts onto q, always closing q with the terminator
// before returning — on success, on a fatal error, or on cancellation —
// so the Downloader can never deadlock, per spec.md §4.2.
//
// This is the Go-side equivalent of the WASM fetch_links entry point
// spec.md §6 describes for the browser front-end; a future WASM build
// would bind to the same normalized Post stream this function produces.
func Search(ctx context.Context, client *http.Client, ext Extractor, opts SearchOptions, q *queue.Queue) (SearchResult, error) {
	var result SearchResult
	defer q.Close()

	if ext.RequiresAuthForTagCount(len(opts.Tags)) && opts.Credential.Anonymous() {
		return result, fmt.Errorf("%w: %s requires authentication for %d tags", model.ErrInsufficientAuth, ext.Site(), len(opts.Tags))
	}

	page := opts.StartPage
	if page <= 0 {
		page = 1
	}
	pageSize := ext.PageSize()

	for pagesFetched := 0; pagesFetched < MaxPages; pagesFetched++ {
		searchURL := ext.BuildSearchURL(opts.Tags, page, pageSize)
		body, err := fetch(ctx, client, func() (*http.Request, error) {
			return http.NewRequest(http.MethodGet, searchURL, nil)
		}, opts.Credential)
		if err != nil {
			return result, err
		}

		posts, err := ext.ParsePosts(body)
		if err != nil {
			return result, err
		}
		if len(posts) == 0 {
			return result, nil
		}

		for _, p := range posts {
			if !opts.Filter.Accept(p) {
				continue
			}
			if err := q.SendContext(ctx, p); err != nil {
				return result, err
			}
			result.Count++
			if p.ID > result.HighestID {
				result.HighestID = p.ID
			}
			if opts.Limit > 0 && result.Count >= uint64(opts.Limit) {
				return result, nil
			}
		}

		if len(posts) < pageSize {
			return result, nil
		}
		page++
	}

	return result, nil
}
