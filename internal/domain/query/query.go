package query

import (
	"fmt"
	"strconv"
	"strings"
)

// tokenTrim is stripped from both ends of a token before the digit check ("100000," → "100000").
const tokenTrim = ".,!?;:()\"'"

// Filters are the hard filters and boosts derived from a query.
type Filters struct {
	MaxPrice *float64
	Location string // lower-case; empty means unset
}

// HasMaxPrice reports whether a price ceiling is set.
func (f Filters) HasMaxPrice() bool { return f.MaxPrice != nil }

// HasLocation reports whether a location filter is set.
func (f Filters) HasLocation() bool { return f.Location != "" }

// String renders the filter tuple deterministically (used in cache keys).
func (f Filters) String() string {
	price := "none"
	if f.MaxPrice != nil {
		price = strconv.FormatFloat(*f.MaxPrice, 'f', -1, 64)
	}
	loc := "none"
	if f.Location != "" {
		loc = f.Location
	}
	return "max_price=" + price + "|location=" + loc
}

// Query is a parsed natural-language question.
type Query struct {
	raw        string
	normalized string
	filters    Filters
}

// Parse normalizes raw text and extracts filters.
// A token consisting solely of digits becomes the price ceiling (the last such token wins).
// The first known location (in the given order) found as a substring sets the location filter.
func Parse(raw string, locations []string) Query {
	normalized := Normalize(raw)
	return Query{
		raw:        raw,
		normalized: normalized,
		filters:    extractFilters(normalized, locations),
	}
}

// Normalize trims and lower-cases query text.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Raw returns the original text.
func (q Query) Raw() string { return q.raw }

// Normalized returns the trimmed, lower-cased text.
func (q Query) Normalized() string { return q.normalized }

// Filters returns the extracted filters.
func (q Query) Filters() Filters { return q.filters }

// IsEmpty reports whether the normalized text is empty.
func (q Query) IsEmpty() bool { return q.normalized == "" }

// CacheKey builds the deterministic cache key for this query under the given namespace and top-k.
// Same text under different filters never collides.
func (q Query) CacheKey(namespace string, topK int) string {
	return fmt.Sprintf("%s:%s|%s|k=%d", namespace, q.normalized, q.filters.String(), topK)
}

func extractFilters(normalized string, locations []string) Filters {
	var f Filters

	for _, tok := range strings.Fields(normalized) {
		tok = strings.Trim(tok, tokenTrim)
		if !isDigits(tok) {
			continue
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			continue
		}
		f.MaxPrice = &v
	}

	for _, loc := range locations {
		loc = Normalize(loc)
		if loc != "" && strings.Contains(normalized, loc) {
			f.Location = loc
			break
		}
	}

	return f
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
