package booru

import "booru-dl/internal/model"

// FilterOptions parametrizes the filter chain applied to every post the
// Extractor parses, in the fixed order spec.md §4.1 specifies: first
// rejection wins.
type FilterOptions struct {
	SafeMode         bool
	Blacklist        model.Blacklist
	HighestIDPrev    uint64
	HasHighestIDPrev bool
}

// Accept applies the five-rule filter chain and reports whether p should
// be enqueued for download.
func (o FilterOptions) Accept(p model.Post) bool {
	if o.SafeMode && p.Rating != model.RatingSafe {
		return false
	}
	if o.Blacklist.Excludes(p) {
		return false
	}
	if o.HasHighestIDPrev && p.ID <= o.HighestIDPrev {
		return false
	}
	if p.URL == "" {
		return false
	}
	return true
}
