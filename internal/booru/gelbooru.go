package booru

import (
	"encoding/json"
	"fmt"
	"net/url"

	"booru-dl/internal/model"
)

// gelbooruPost mirrors the Gelbooru dapi post shape shared by every site
// running the same engine (Gelbooru, Rule34, Realbooru). Tags is a JSON
// array here, not a whitespace string, per spec.md §4.1; file_url may be
// relative, per the same paragraph.
type gelbooruPost struct {
	ID      uint64   `json:"id"`
	MD5     string   `json:"md5"`
	FileURL string   `json:"file_url"`
	Image   string   `json:"image"`
	Rating  string   `json:"rating"`
	Tags    []string `json:"tags"`
	Source  string   `json:"source"`
}

type gelbooruResponse struct {
	Post []gelbooruPost `json:"post"`
}

// gelbooruEngine implements the dapi (page=dapi&s=post&q=index) protocol
// shared by Gelbooru, Rule34 and Realbooru. Each site registers its own
// instance with its own base URL and Site value.
type gelbooruEngine struct {
	site    model.Site
	baseURL string
}

func (e gelbooruEngine) Site() model.Site { return e.site }

func (gelbooruEngine) PageSize() int { return PageSize }

// RequiresAuthForTagCount: the dapi engine has no anonymous tag-count limit.
func (gelbooruEngine) RequiresAuthForTagCount(int) bool { return false }

func (e gelbooruEngine) BuildSearchURL(tags []string, page, limit int) string {
	v := url.Values{}
	v.Set("page", "dapi")
	v.Set("s", "post")
	v.Set("q", "index")
	v.Set("json", "1")
	v.Set("tags", joinTagsPlus(tags))
	v.Set("pid", itoa(uint64(page-1)))
	v.Set("limit", itoa(uint64(limit)))
	return e.baseURL + "/index.php?" + v.Encode()
}

func (e gelbooruEngine) BuildPostURL(id uint64) string {
	v := url.Values{}
	v.Set("page", "dapi")
	v.Set("s", "post")
	v.Set("q", "index")
	v.Set("json", "1")
	v.Set("id", itoa(id))
	return e.baseURL + "/index.php?" + v.Encode()
}

func (e gelbooruEngine) ParsePosts(body []byte) ([]model.Post, error) {
	var raw gelbooruResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s posts: %v", model.ErrApiShape, e.site, err)
	}
	out := make([]model.Post, 0, len(raw.Post))
	for _, r := range raw.Post {
		out = append(out, e.toPost(r))
	}
	return out, nil
}

func (e gelbooruEngine) ParsePost(body []byte) (model.Post, error) {
	posts, err := e.ParsePosts(body)
	if err != nil {
		return model.Post{}, err
	}
	if len(posts) == 0 {
		return model.Post{}, fmt.Errorf("%w: %s post not found", model.ErrNotFound, e.site)
	}
	return posts[0], nil
}

func (e gelbooruEngine) toPost(r gelbooruPost) model.Post {
	mediaURL := r.FileURL
	if mediaURL == "" {
		mediaURL = r.Image
	}
	p := model.NewPost(r.ID, e.site, normalizeTags(r.Tags))
	p.MD5 = r.MD5
	p.URL = absolutize(e.baseURL, mediaURL)
	p.Extension = extFromURL(mediaURL)
	p.Rating = model.ParseRating(r.Rating)
	p.PostURL = fmt.Sprintf("%s/index.php?page=post&s=view&id=%d", e.baseURL, r.ID)
	return p
}

const gelbooruBaseURL = "https://gelbooru.com"

func init() { Register(gelbooruEngine{site: model.SiteGelbooru, baseURL: gelbooruBaseURL}) }
