package ranking

import (
	"strings"

	"github.com/kailas-cloud/herdask/internal/domain/listing"
	"github.com/kailas-cloud/herdask/internal/domain/query"
)

// Boost applied per matching filter.
const metadataBoost = 0.15

// MetadataScore returns the additive filter-match bonus: 0, 0.15 or 0.30.
// Unset filters never boost, whatever the listing carries.
func MetadataScore(l *listing.Listing, f query.Filters) float64 {
	score := 0.0

	if f.HasMaxPrice() {
		if price, ok := l.Price(); ok && price <= *f.MaxPrice {
			score += metadataBoost
		}
	}

	if f.HasLocation() {
		if loc, ok := l.Location(); ok && strings.Contains(loc, strings.ToLower(f.Location)) {
			score += metadataBoost
		}
	}

	return score
}

// passesHardFilters excludes listings over the price ceiling or outside the location.
// Absence is not failure: a listing without a price (or location) is never
// excluded by the price (or location) filter.
func passesHardFilters(l *listing.Listing, f query.Filters) bool {
	if f.HasMaxPrice() {
		if price, ok := l.Price(); ok && price > *f.MaxPrice {
			return false
		}
	}
	if f.HasLocation() {
		if loc, ok := l.Location(); ok && !strings.Contains(loc, strings.ToLower(f.Location)) {
			return false
		}
	}
	return true
}
