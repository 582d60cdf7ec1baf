package booru

import (
	"encoding/json"
	"fmt"
	"net/url"

	"booru-dl/internal/model"
)

const konachanBaseURL = "https://konachan.com"

// konachanPost mirrors Konachan's Moebooru-engine post.json shape: tags is
// a single whitespace-joined string, like Danbooru.
type konachanPost struct {
	ID      uint64 `json:"id"`
	MD5     string `json:"md5"`
	FileURL string `json:"file_url"`
	JPEGURL string `json:"jpeg_url"`
	Rating  string `json:"rating"`
	Tags    string `json:"tags"`
	Source  string `json:"source"`
}

type konachanExtractor struct{}

func init() { Register(konachanExtractor{}) }

func (konachanExtractor) Site() model.Site { return model.SiteKonachan }

func (konachanExtractor) PageSize() int { return PageSize }

// RequiresAuthForTagCount: Konachan shares Danbooru's two-tag anonymous cap.
func (konachanExtractor) RequiresAuthForTagCount(tagCount int) bool {
	return tagCount > 2
}

func (konachanExtractor) BuildSearchURL(tags []string, page, limit int) string {
	v := url.Values{}
	v.Set("tags", joinTagsPlus(tags))
	v.Set("page", itoa(uint64(page)))
	v.Set("limit", itoa(uint64(limit)))
	return konachanBaseURL + "/post.json?" + v.Encode()
}

func (konachanExtractor) BuildPostURL(id uint64) string {
	v := url.Values{}
	v.Set("tags", fmt.Sprintf("id:%d", id))
	return konachanBaseURL + "/post.json?" + v.Encode()
}

func (k konachanExtractor) ParsePosts(body []byte) ([]model.Post, error) {
	var raw []konachanPost
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: konachan posts: %v", model.ErrApiShape, err)
	}
	out := make([]model.Post, 0, len(raw))
	for _, r := range raw {
		out = append(out, k.toPost(r))
	}
	return out, nil
}

// ParsePost: Konachan has no single-post endpoint distinct from the
// tag-search one, so the post ingest mode queries tags=id:<id> and takes
// the first (only) result.
func (k konachanExtractor) ParsePost(body []byte) (model.Post, error) {
	posts, err := k.ParsePosts(body)
	if err != nil {
		return model.Post{}, err
	}
	if len(posts) == 0 {
		return model.Post{}, fmt.Errorf("%w: konachan post not found", model.ErrNotFound)
	}
	return posts[0], nil
}

func (konachanExtractor) toPost(r konachanPost) model.Post {
	mediaURL := r.FileURL
	if mediaURL == "" {
		mediaURL = r.JPEGURL
	}
	p := model.NewPost(r.ID, model.SiteKonachan, splitTags(r.Tags))
	p.MD5 = r.MD5
	p.URL = absolutize(konachanBaseURL, mediaURL)
	p.Extension = extFromURL(mediaURL)
	p.Rating = model.ParseRating(r.Rating)
	p.PostURL = fmt.Sprintf("%s/post/show/%d", konachanBaseURL, r.ID)
	return p
}
