package booru

import (
	"context"
	"errors"
	"net/http"

	"booru-dl/internal/model"
	"booru-dl/internal/queue"
)

// FetchPosts is the degenerate, non-paginating Extractor mode spec.md §6's
// `post <ids...>` subcommand drives: one API call per id through the
// site's single-post endpoint, then the same filter chain as Search,
// always closing q with the terminator before returning.
func FetchPosts(ctx context.Context, client *http.Client, ext Extractor, ids []uint64, cred model.Credential, filter FilterOptions, q *queue.Queue) (SearchResult, error) {
	var result SearchResult
	defer q.Close()

	for _, id := range ids {
		postURL := ext.BuildPostURL(id)
		body, err := fetch(ctx, client, func() (*http.Request, error) {
			return http.NewRequest(http.MethodGet, postURL, nil)
		}, cred)
		if err != nil {
			if isPerPostError(err) {
				continue
			}
			return result, err
		}

		p, err := ext.ParsePost(body)
		if err != nil {
			if isPerPostError(err) {
				continue
			}
			return result, err
		}

		if !filter.Accept(p) {
			continue
		}
		if err := q.SendContext(ctx, p); err != nil {
			return result, err
		}
		result.Count++
		if p.ID > result.HighestID {
			result.HighestID = p.ID
		}
	}

	return result, nil
}

// isPerPostError reports whether err should only skip the single post
// (it was deleted, or the site could not find it) rather than abort the
// whole ingest run.
func isPerPostError(err error) bool {
	return errors.Is(err, model.ErrNotFound)
}
