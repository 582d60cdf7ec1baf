// Package booru implements the Extractor component: one value per site
// variant, each translating (tags, page, limit) into the site's JSON
// search API and normalizing results into model.Post. Grounded on the
// teacher's internal/api.Client single-site-API-call shape, generalized to
// the closed tagged union of six site variants spec.md §9 calls for.
package booru

import "booru-dl/internal/model"

// PageSize is the fixed per-request page size used across every variant
// unless a site caps it lower.
const PageSize = 100

// MaxPages bounds pagination as a rate-limit guard; not overridable by the
// CLI per spec.md §6.
const MaxPages = 100

// Extractor is the capability set a site variant must implement: a
// search-URL builder, a single-post URL builder, and parsers for both
// shapes. This is the closed tagged union of spec.md §9 — a new site is a
// new variant plus its parser, never open inheritance.
type Extractor interface {
	Site() model.Site
	PageSize() int
	RequiresAuthForTagCount(tagCount int) bool
	BuildSearchURL(tags []string, page, limit int) string
	BuildPostURL(id uint64) string
	ParsePosts(body []byte) ([]model.Post, error)
	ParsePost(body []byte) (model.Post, error)
}

// registry maps each Site to its Extractor value. Populated by each
// variant's init() via Register.
var registry = map[model.Site]Extractor{}

// Register adds an Extractor to the registry. Called from each variant's
// init().
func Register(e Extractor) {
	registry[e.Site()] = e
}

// For looks up the Extractor for a site.
func For(site model.Site) (Extractor, bool) {
	e, ok := registry[site]
	return e, ok
}
