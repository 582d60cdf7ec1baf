// Package model holds the value types shared by every layer of the
// extract-filter-fetch pipeline: the normalized Post, the Rating enum,
// queue items, blacklists, credentials and the download checkpoint.
package model

import "regexp"

// Site identifies a supported imageboard.
type Site uint8

const (
	SiteDanbooru Site = iota
	SiteE621
	SiteGelbooru
	SiteRule34
	SiteKonachan
	SiteRealbooru
)

var siteNames = map[Site]string{
	SiteDanbooru:  "danbooru",
	SiteE621:      "e621",
	SiteGelbooru:  "gelbooru",
	SiteRule34:    "rule34",
	SiteKonachan:  "konachan",
	SiteRealbooru: "realbooru",
}

var namesToSite = func() map[string]Site {
	m := make(map[string]Site, len(siteNames))
	for s, n := range siteNames {
		m[n] = s
	}
	return m
}()

// String returns the canonical lowercase name used in config files,
// directory paths and CLI flags.
func (s Site) String() string {
	if n, ok := siteNames[s]; ok {
		return n
	}
	return "unknown"
}

// ParseSite maps a lowercase site name to its Site value.
func ParseSite(name string) (Site, bool) {
	s, ok := namesToSite[name]
	return s, ok
}

// Rating is the content classification of a Post.
type Rating uint8

const (
	RatingUnknown Rating = iota
	RatingSafe
	RatingQuestionable
	RatingExplicit
)

// String returns the exact label form sinks group by, per spec: "Safe",
// "Questionable", "Explicit", "Unknown".
func (r Rating) String() string {
	switch r {
	case RatingSafe:
		return "Safe"
	case RatingQuestionable:
		return "Questionable"
	case RatingExplicit:
		return "Explicit"
	default:
		return "Unknown"
	}
}

// ParseRating normalizes a site-specific rating token (e.g. Danbooru's
// "s"/"q"/"e", e621's "safe"/"questionable"/"explicit") into a Rating.
func ParseRating(token string) Rating {
	switch token {
	case "s", "safe", "Safe":
		return RatingSafe
	case "q", "questionable", "Questionable":
		return RatingQuestionable
	case "e", "explicit", "Explicit":
		return RatingExplicit
	default:
		return RatingUnknown
	}
}

var md5Pattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

// ValidMD5 reports whether s is empty (unknown) or a well-formed lowercase
// hex MD5 digest, per the Post.md5 invariant.
func ValidMD5(s string) bool {
	return s == "" || md5Pattern.MatchString(s)
}

// Post is a normalized record of one media entry on a booru.
type Post struct {
	ID        uint64
	Site      Site
	MD5       string
	URL       string
	Extension string
	Rating    Rating
	Tags      map[string]struct{}
	PostURL   string
}

// NewPost builds a Post from a tag slice, deduplicating into the set.
func NewPost(id uint64, site Site, tags []string) Post {
	p := Post{ID: id, Site: site, Tags: make(map[string]struct{}, len(tags))}
	for _, t := range tags {
		p.Tags[t] = struct{}{}
	}
	return p
}

// HasTag reports whether the post carries the given tag.
func (p Post) HasTag(tag string) bool {
	_, ok := p.Tags[tag]
	return ok
}

// Intersects reports whether the post's tag set intersects other.
func (p Post) Intersects(other map[string]struct{}) bool {
	// Iterate the smaller set for efficiency.
	small, big := p.Tags, other
	if len(other) < len(p.Tags) {
		small, big = other, p.Tags
	}
	for t := range small {
		if _, ok := big[t]; ok {
			return true
		}
	}
	return false
}

// TagSlice returns the tags as a sorted-free slice (order unspecified).
func (p Post) TagSlice() []string {
	out := make([]string, 0, len(p.Tags))
	for t := range p.Tags {
		out = append(out, t)
	}
	return out
}

// Valid reports whether the Post satisfies the data-model invariants:
// non-empty URL and a well-formed (or empty) MD5.
func (p Post) Valid() bool {
	return p.URL != "" && ValidMD5(p.MD5)
}

// QueueItem travels through the Post Queue: either a Post or the
// end-of-stream terminator.
type QueueItem struct {
	Post       Post
	Terminator bool
}

// DownloadSummary is the persisted checkpoint describing a completed run.
type DownloadSummary struct {
	Site             Site
	Tags             []string
	HighestID        uint64
	Timestamp        uint64
	DownloadedCount  uint64
}

// Blacklist maps a site to its excluded-tag set, plus a distinguished
// global set that excludes a post on every site.
type Blacklist struct {
	Global map[string]struct{}
	Sites  map[Site]map[string]struct{}
}

// NewBlacklist builds an empty Blacklist ready for population.
func NewBlacklist() Blacklist {
	return Blacklist{
		Global: make(map[string]struct{}),
		Sites:  make(map[Site]map[string]struct{}),
	}
}

// Excludes reports whether the post is excluded by the global set or by
// the set specific to its site.
func (b Blacklist) Excludes(p Post) bool {
	if p.Intersects(b.Global) {
		return true
	}
	if siteSet, ok := b.Sites[p.Site]; ok {
		return p.Intersects(siteSet)
	}
	return false
}

// Credential is a per-site login/api-key pair. Empty strings mean
// anonymous access.
type Credential struct {
	Site   Site
	Login  string
	APIKey string
}

// Anonymous reports whether the credential carries no login material.
func (c Credential) Anonymous() bool {
	return c.Login == "" && c.APIKey == ""
}
