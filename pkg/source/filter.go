package source

import (
	"strings"

	"github.com/elonfeng/hotboard/pkg/normalize"
)

// Filter drops raw items whose title contains an excluded keyword.
type Filter struct {
	exclude []string
}

// NewFilter creates a filter from exclude keywords. Matching is
// case-insensitive; blank keywords are ignored.
func NewFilter(excludeKeywords []string) *Filter {
	var exclude []string
	for _, kw := range excludeKeywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			exclude = append(exclude, kw)
		}
	}
	return &Filter{exclude: exclude}
}

// Excluded reports whether text contains any excluded keyword.
func (f *Filter) Excluded(text string) bool {
	if f == nil {
		return false
	}
	lower := strings.ToLower(text)
	for _, ex := range f.exclude {
		if strings.Contains(lower, ex) {
			return true
		}
	}
	return false
}

// Apply returns the items whose title is not excluded, preserving order.
func (f *Filter) Apply(items []normalize.Item) []normalize.Item {
	if f == nil || len(f.exclude) == 0 {
		return items
	}
	kept := items[:0:0]
	for _, it := range items {
		title, _ := it["title"].(string)
		if f.Excluded(title) {
			continue
		}
		kept = append(kept, it)
	}
	return kept
}
