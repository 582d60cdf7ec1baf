package booru

import (
	"encoding/json"
	"fmt"
	"net/url"

	"booru-dl/internal/model"
)

const danbooruBaseURL = "https://danbooru.donmai.us"

// danbooruPost mirrors the fields Danbooru's posts.json endpoint returns.
// tag_string is whitespace-joined, per spec.md §4.1.
type danbooruPost struct {
	ID           uint64 `json:"id"`
	MD5          string `json:"md5"`
	FileURL      string `json:"file_url"`
	LargeFileURL string `json:"large_file_url"`
	FileExt      string `json:"file_ext"`
	Rating       string `json:"rating"`
	TagString    string `json:"tag_string"`
	Source       string `json:"source"`
}

type danbooruExtractor struct{}

func init() { Register(danbooruExtractor{}) }

func (danbooruExtractor) Site() model.Site { return model.SiteDanbooru }

func (danbooruExtractor) PageSize() int { return PageSize }

// RequiresAuthForTagCount: Danbooru limits anonymous searches to two tags.
func (danbooruExtractor) RequiresAuthForTagCount(tagCount int) bool {
	return tagCount > 2
}

func (danbooruExtractor) BuildSearchURL(tags []string, page, limit int) string {
	v := url.Values{}
	v.Set("tags", joinTagsPlus(tags))
	v.Set("page", itoa(uint64(page)))
	v.Set("limit", itoa(uint64(limit)))
	return danbooruBaseURL + "/posts.json?" + v.Encode()
}

func (danbooruExtractor) BuildPostURL(id uint64) string {
	return fmt.Sprintf("%s/posts/%d.json", danbooruBaseURL, id)
}

func (d danbooruExtractor) ParsePosts(body []byte) ([]model.Post, error) {
	var raw []danbooruPost
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: danbooru posts: %v", model.ErrApiShape, err)
	}
	out := make([]model.Post, 0, len(raw))
	for _, r := range raw {
		out = append(out, d.toPost(r))
	}
	return out, nil
}

func (d danbooruExtractor) ParsePost(body []byte) (model.Post, error) {
	var raw danbooruPost
	if err := json.Unmarshal(body, &raw); err != nil {
		return model.Post{}, fmt.Errorf("%w: danbooru post: %v", model.ErrApiShape, err)
	}
	return d.toPost(raw), nil
}

func (danbooruExtractor) toPost(r danbooruPost) model.Post {
	mediaURL := r.FileURL
	if mediaURL == "" {
		mediaURL = r.LargeFileURL
	}
	ext := r.FileExt
	if ext == "" {
		ext = extFromURL(mediaURL)
	}
	p := model.NewPost(r.ID, model.SiteDanbooru, splitTags(r.TagString))
	p.MD5 = r.MD5
	p.URL = absolutize(danbooruBaseURL, mediaURL)
	p.Extension = ext
	p.Rating = model.ParseRating(r.Rating)
	p.PostURL = fmt.Sprintf("%s/posts/%d", danbooruBaseURL, r.ID)
	return p
}
