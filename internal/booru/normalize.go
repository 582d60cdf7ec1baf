package booru

import (
	"net/url"
	"path"
	"strconv"
	"strings"
)

// absolutize resolves ref against base when ref is relative, matching
// Gelbooru's relative-URL quirk spec.md §4.1 calls out.
func absolutize(base, ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if u.IsAbs() {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return b.ResolveReference(u).String()
}

// extFromURL derives a lowercase extension from a media URL, stripping
// any query string first.
func extFromURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	p := raw
	if err == nil {
		p = u.Path
	}
	ext := path.Ext(p)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// splitTags turns a whitespace-joined tag string (Danbooru, Konachan)
// into a normalized slice: lowercase, single spaces collapsed.
func splitTags(s string) []string {
	fields := strings.Fields(s)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, strings.ToLower(f))
	}
	return out
}

// normalizeTags lowercases an already-split tag slice (Gelbooru, Rule34,
// Realbooru array form).
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, strings.ToLower(strings.TrimSpace(t)))
	}
	return out
}

// joinTagsPlus renders a tag query the way every variant's search URL
// expects: space-joined then "+"-encoded by url.Values.
func joinTagsPlus(tags []string) string {
	return strings.Join(tags, " ")
}

func itoa(n uint64) string {
	return strconv.FormatUint(n, 10)
}
