package booru

import (
	"encoding/json"
	"fmt"
	"net/url"

	"booru-dl/internal/model"
)

const e621BaseURL = "https://e621.net"

type e621File struct {
	URL string `json:"url"`
	Ext string `json:"ext"`
	MD5 string `json:"md5"`
}

type e621Tags struct {
	General   []string `json:"general"`
	Species   []string `json:"species"`
	Character []string `json:"character"`
	Copyright []string `json:"copyright"`
	Artist    []string `json:"artist"`
	Invalid   []string `json:"invalid"`
	Lore      []string `json:"lore"`
	Meta      []string `json:"meta"`
}

func (t e621Tags) flatten() []string {
	var out []string
	for _, group := range [][]string{t.General, t.Species, t.Character, t.Copyright, t.Artist, t.Invalid, t.Lore, t.Meta} {
		out = append(out, group...)
	}
	return out
}

type e621Post struct {
	ID      uint64   `json:"id"`
	File    e621File `json:"file"`
	Rating  string   `json:"rating"`
	Tags    e621Tags `json:"tags"`
	Sources []string `json:"sources"`
}

type e621PostsResponse struct {
	Posts []e621Post `json:"posts"`
}

type e621PostResponse struct {
	Post e621Post `json:"post"`
}

type e621Extractor struct{}

func init() { Register(e621Extractor{}) }

func (e621Extractor) Site() model.Site { return model.SiteE621 }

func (e621Extractor) PageSize() int { return PageSize }

// RequiresAuthForTagCount: e621 has no anonymous tag-count limit.
func (e621Extractor) RequiresAuthForTagCount(int) bool { return false }

func (e621Extractor) BuildSearchURL(tags []string, page, limit int) string {
	v := url.Values{}
	v.Set("tags", joinTagsPlus(tags))
	v.Set("page", itoa(uint64(page)))
	v.Set("limit", itoa(uint64(limit)))
	return e621BaseURL + "/posts.json?" + v.Encode()
}

func (e621Extractor) BuildPostURL(id uint64) string {
	return fmt.Sprintf("%s/posts/%d.json", e621BaseURL, id)
}

func (e e621Extractor) ParsePosts(body []byte) ([]model.Post, error) {
	var raw e621PostsResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: e621 posts: %v", model.ErrApiShape, err)
	}
	out := make([]model.Post, 0, len(raw.Posts))
	for _, r := range raw.Posts {
		out = append(out, e.toPost(r))
	}
	return out, nil
}

func (e e621Extractor) ParsePost(body []byte) (model.Post, error) {
	var raw e621PostResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return model.Post{}, fmt.Errorf("%w: e621 post: %v", model.ErrApiShape, err)
	}
	return e.toPost(raw.Post), nil
}

func (e621Extractor) toPost(r e621Post) model.Post {
	p := model.NewPost(r.ID, model.SiteE621, normalizeTags(r.Tags.flatten()))
	p.MD5 = r.File.MD5
	p.URL = absolutize(e621BaseURL, r.File.URL)
	ext := r.File.Ext
	if ext == "" {
		ext = extFromURL(r.File.URL)
	}
	p.Extension = ext
	p.Rating = model.ParseRating(r.Rating)
	p.PostURL = fmt.Sprintf("%s/posts/%d", e621BaseURL, r.ID)
	return p
}
