// Package listing derives the visible view of a content list: search, status
// and category filtering followed by a stable, comparator-based sort.
package listing

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"newsdesk/internal/models"
)

// All is the sentinel filter value that matches every item.
const All = "all"

// Criteria holds the ephemeral filter state of a list view.
type Criteria struct {
	SearchTerm string `json:"search_term"`
	Status     string `json:"status"`
	Category   string `json:"category"`
}

// SortKey selects the comparator applied after filtering.
type SortKey string

const (
	SortNewest        SortKey = "newest"
	SortOldest        SortKey = "oldest"
	SortMostViewed    SortKey = "most-viewed"
	SortMostCommented SortKey = "most-commented"
	// SortManual orders by the manual order index.
	SortManual SortKey = "manual"
)

// ParseSortKey validates a raw sort key. An empty string means newest.
func ParseSortKey(raw string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(raw))); k {
	case "":
		return SortNewest, nil
	case SortNewest, SortOldest, SortMostViewed, SortMostCommented, SortManual:
		return k, nil
	default:
		return "", fmt.Errorf("unknown sort key %q", raw)
	}
}

// Apply filters then sorts items. The input slice is never modified.
func Apply(items []models.ContentItem, c Criteria, key SortKey) []models.ContentItem {
	return Sort(Filter(items, c), key)
}

// Filter returns the items matching c, in input order, as a new slice.
func Filter(items []models.ContentItem, c Criteria) []models.ContentItem {
	term := strings.ToLower(strings.TrimSpace(c.SearchTerm))
	out := make([]models.ContentItem, 0, len(items))
	for _, it := range items {
		if !matchesSearch(it, term) {
			continue
		}
		if !matchesExact(string(it.Status), c.Status) {
			continue
		}
		if !matchesExact(it.Category, c.Category) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func matchesSearch(it models.ContentItem, term string) bool {
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(it.Title), term) ||
		strings.Contains(strings.ToLower(it.Content), term) ||
		strings.Contains(strings.ToLower(it.AuthorName), term)
}

func matchesExact(value, want string) bool {
	if want == "" || want == All {
		return true
	}
	return value == want
}

// Sort returns a stably sorted copy of items.
func Sort(items []models.ContentItem, key SortKey) []models.ContentItem {
	out := models.CloneItems(items)
	if out == nil {
		out = []models.ContentItem{}
	}
	slices.SortStableFunc(out, Comparator(key))
	return out
}

// Comparator returns the ordering function for key. Unknown keys sort newest first.
func Comparator(key SortKey) func(a, b models.ContentItem) int {
	switch key {
	case SortOldest:
		return func(a, b models.ContentItem) int { return a.CreatedAt.Compare(b.CreatedAt) }
	case SortMostViewed:
		return func(a, b models.ContentItem) int { return cmp.Compare(b.Views, a.Views) }
	case SortMostCommented:
		return func(a, b models.ContentItem) int { return cmp.Compare(b.Comments, a.Comments) }
	case SortManual:
		return func(a, b models.ContentItem) int { return cmp.Compare(a.Order, b.Order) }
	default:
		return func(a, b models.ContentItem) int { return b.CreatedAt.Compare(a.CreatedAt) }
	}
}

// Paginate returns at most limit items starting at offset. A non-positive
// limit returns everything from offset on.
func Paginate(items []models.ContentItem, offset, limit int) []models.ContentItem {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []models.ContentItem{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return models.CloneItems(items[offset:end])
}

// Counts tallies items per status, plus the grand total under All.
func Counts(items []models.ContentItem) map[string]int {
	out := map[string]int{All: len(items)}
	for _, it := range items {
		out[string(it.Status)]++
	}
	return out
}
