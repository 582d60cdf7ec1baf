// Package searchindex adapts the teacher's index/index.go bleve wrapper
// from per-model-file indexing to per-post indexing: a completed download
// tree becomes queryable by tag, rating, site and post id without
// re-walking the filesystem (SPEC_FULL.md §2.11, §3's SearchIndexDoc).
package searchindex

import (
	"fmt"
	"log"
	"strconv"

	"github.com/blevesearch/bleve/v2"

	"booru-dl/internal/model"
)

const defaultIndexPath = "booru-dl.bleve"

// Doc is the bleve-indexed projection of a committed Post: SPEC_FULL.md
// §3's {id, site, rating, tags, post_url, path}. All fields are indexed
// and searchable under their lowercase JSON tag names, e.g.
// '+tags:1girl +rating:Safe +site:danbooru'.
type Doc struct {
	ID      string   `json:"id"`
	Site    string   `json:"site"`
	Rating  string   `json:"rating"`
	Tags    []string `json:"tags"`
	PostURL string   `json:"post_url"`
	Path    string   `json:"path"`
}

// docID produces the stable bleve document id for a post: "<site>:<id>".
func docID(site model.Site, postID uint64) string {
	return site.String() + ":" + strconv.FormatUint(postID, 10)
}

// NewDoc builds the indexed projection of a committed post.
func NewDoc(p model.Post, path string) Doc {
	return Doc{
		ID:      docID(p.Site, p.ID),
		Site:    p.Site.String(),
		Rating:  p.Rating.String(),
		Tags:    p.TagSlice(),
		PostURL: p.PostURL,
		Path:    path,
	}
}

// OpenOrCreate opens an existing Bleve index at indexPath, or creates a
// new one with a default mapping if none exists yet.
func OpenOrCreate(indexPath string) (bleve.Index, error) {
	if indexPath == "" {
		indexPath = defaultIndexPath
	}

	idx, err := bleve.Open(indexPath)
	if err == bleve.ErrorIndexPathDoesNotExist {
		log.Printf("searchindex: creating new index at %s", indexPath)
		mapping := bleve.NewIndexMapping()
		idx, err = bleve.New(indexPath, mapping)
		if err != nil {
			return nil, fmt.Errorf("create index %s: %w", indexPath, err)
		}
		return idx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", indexPath, err)
	}
	return idx, nil
}

// IndexPost adds or updates a post's entry in the index.
func IndexPost(idx bleve.Index, p model.Post, path string) error {
	doc := NewDoc(p, path)
	return idx.Index(doc.ID, doc)
}

// Search runs a bleve query-string search, returning every stored field.
func Search(idx bleve.Index, query string) (*bleve.SearchResult, error) {
	searchQuery := bleve.NewQueryStringQuery(query)
	req := bleve.NewSearchRequest(searchQuery)
	req.Fields = []string{"*"}
	return idx.Search(req)
}
