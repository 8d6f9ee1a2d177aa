// Package viewmodel derives the template list presentation from the raw
// collection: search filtering and sorting. All functions are pure and
// never mutate their input.
package viewmodel

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/templar-app/templar/internal/backend"
)

// SortKey selects the list ordering.
type SortKey string

const (
	// SortByDate orders newest-first by creation time. This is the default.
	SortByDate SortKey = "date"
	// SortByName orders by display name using locale-aware collation.
	SortByName SortKey = "name"
)

// ParseSortKey maps a raw query value to a sort key, falling back to the
// date ordering for anything unrecognized.
func ParseSortKey(raw string) SortKey {
	switch SortKey(strings.ToLower(strings.TrimSpace(raw))) {
	case SortByName:
		return SortByName
	default:
		return SortByDate
	}
}

// Filter returns the templates whose display name contains the query,
// case-insensitive. An empty or whitespace-only query matches everything.
func Filter(templates []backend.Template, query string) []backend.Template {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return append([]backend.Template(nil), templates...)
	}
	out := make([]backend.Template, 0, len(templates))
	for _, t := range templates {
		if strings.Contains(strings.ToLower(t.DisplayName), query) {
			out = append(out, t)
		}
	}
	return out
}

// Sort returns a sorted copy of the templates. Name ordering uses the
// case-insensitive English collator, so "alpha" and "Alpha" interleave
// naturally instead of grouping by case.
func Sort(templates []backend.Template, key SortKey) []backend.Template {
	out := append([]backend.Template(nil), templates...)
	switch key {
	case SortByName:
		c := collate.New(language.English, collate.IgnoreCase)
		sort.SliceStable(out, func(i, j int) bool {
			return c.CompareString(out[i].DisplayName, out[j].DisplayName) < 0
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}
	return out
}

// Derive applies filter then sort, producing the list as presented.
func Derive(templates []backend.Template, query string, key SortKey) []backend.Template {
	return Sort(Filter(templates, query), key)
}
