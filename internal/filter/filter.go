package filter

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Item is the view of a content entity the filter engine works on.
// LiveChannel, Movie and Series implement it.
type Item interface {
	ItemID() string
	ItemName() string
	ItemDescription() string
	ItemGenre() string
	ItemCategory() string
	ItemLanguage() string
	ItemRating() float64
	ItemIsNew() bool
}

// SortBy selects the output ordering
type SortBy string

const (
	SortNone   SortBy = ""
	SortAZ     SortBy = "az"
	SortNew    SortBy = "new"
	SortRating SortBy = "rating"
)

// ParseSortBy validates a sort key. The empty string keeps input order.
func ParseSortBy(s string) (SortBy, error) {
	switch v := SortBy(strings.ToLower(strings.TrimSpace(s))); v {
	case SortNone, SortAZ, SortNew, SortRating:
		return v, nil
	default:
		return SortNone, fmt.Errorf("unknown sort order %q (want az, new or rating)", s)
	}
}

// Options selects and orders a collection. Zero values disable a stage.
type Options struct {
	SearchTerm    string
	Category      string
	Language      string
	FavoritesOnly bool
	Favorites     []string
	SortBy        SortBy

	// Locale drives the az collation, e.g. "en" or "fr". Defaults to English.
	Locale string
}

// Apply runs search, category, language, favorites and sort, in that order,
// and returns a new slice. The input is never modified.
func Apply[T Item](items []T, opts Options) []T {
	out := make([]T, 0, len(items))

	term := strings.ToLower(strings.TrimSpace(opts.SearchTerm))

	var favorites map[string]struct{}
	if opts.FavoritesOnly {
		favorites = make(map[string]struct{}, len(opts.Favorites))
		for _, id := range opts.Favorites {
			favorites[id] = struct{}{}
		}
	}

	for _, item := range items {
		if term != "" && !matchesSearch(item, term) {
			continue
		}
		if opts.Category != "" && item.ItemCategory() != opts.Category {
			continue
		}
		if opts.Language != "" && !strings.EqualFold(item.ItemLanguage(), opts.Language) {
			continue
		}
		if opts.FavoritesOnly {
			if _, ok := favorites[item.ItemID()]; !ok {
				continue
			}
		}
		out = append(out, item)
	}

	switch opts.SortBy {
	case SortAZ:
		col := newCollator(opts.Locale)
		sort.SliceStable(out, func(i, j int) bool {
			return col.CompareString(out[i].ItemName(), out[j].ItemName()) < 0
		})
	case SortNew:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].ItemIsNew() && !out[j].ItemIsNew()
		})
	case SortRating:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].ItemRating() > out[j].ItemRating()
		})
	}

	return out
}

// Categories returns the distinct non-empty categories of items, sorted
// ascending
func Categories[T Item](items []T) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, item := range items {
		c := item.ItemCategory()
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func matchesSearch(item Item, term string) bool {
	return strings.Contains(strings.ToLower(item.ItemName()), term) ||
		strings.Contains(strings.ToLower(item.ItemDescription()), term) ||
		strings.Contains(strings.ToLower(item.ItemGenre()), term)
}

// newCollator builds a collator for locale, falling back to English when
// the tag does not parse. Collators are not safe for concurrent use.
func newCollator(locale string) *collate.Collator {
	tag := language.English
	if locale != "" {
		if parsed, err := language.Parse(locale); err == nil {
			tag = parsed
		}
	}
	return collate.New(tag)
}

// Compare orders two names the way SortAZ does
func Compare(locale, a, b string) int {
	return newCollator(locale).CompareString(a, b)
}
