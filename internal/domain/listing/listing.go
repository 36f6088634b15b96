package listing

import (
	"fmt"
	"strings"
)

// Listing is a livestock listing (immutable value object).
type Listing struct {
	animalID   string
	collection string
	animalType string
	breed      string
	price      *float64
	location   *string
	embedding  []float32
}

// New validates and creates a Listing.
// animalID is required; location is lower-cased; an empty embedding is stored as absent.
func New(
	animalID, collection, animalType, breed string,
	price *float64, location *string, embedding []float32,
) (Listing, error) {
	if animalID == "" {
		return Listing{}, fmt.Errorf("animal ID is required")
	}
	if price != nil && *price < 0 {
		return Listing{}, fmt.Errorf("price must be non-negative, got %v", *price)
	}
	return Reconstruct(animalID, collection, animalType, breed, price, location, embedding), nil
}

// Reconstruct creates a Listing without validation (storage hydration).
// Location normalization still applies so comparisons stay case-insensitive;
// a blank location is stored as absent.
func Reconstruct(
	animalID, collection, animalType, breed string,
	price *float64, location *string, embedding []float32,
) Listing {
	l := Listing{
		animalID:   animalID,
		collection: collection,
		animalType: animalType,
		breed:      breed,
	}
	if price != nil {
		p := *price
		l.price = &p
	}
	if location != nil {
		if loc := strings.ToLower(strings.TrimSpace(*location)); loc != "" {
			l.location = &loc
		}
	}
	if len(embedding) > 0 {
		l.embedding = embedding
	}
	return l
}

// AnimalID returns the stable listing identifier.
func (l Listing) AnimalID() string { return l.animalID }

// Collection returns the repository collection the listing belongs to.
func (l Listing) Collection() string { return l.collection }

// Type returns the free-text animal type.
func (l Listing) Type() string { return l.animalType }

// Breed returns the free-text breed.
func (l Listing) Breed() string { return l.breed }

// Price returns the asking price and whether it is present.
func (l Listing) Price() (float64, bool) {
	if l.price == nil {
		return 0, false
	}
	return *l.price, true
}

// Location returns the lower-cased seller location and whether it is present.
func (l Listing) Location() (string, bool) {
	if l.location == nil {
		return "", false
	}
	return *l.location, true
}

// Embedding returns the precomputed embedding (nil when absent).
func (l Listing) Embedding() []float32 { return l.embedding }

// HasUsableEmbedding reports whether the embedding is present and has exactly dim elements.
// A non-positive dim accepts any non-empty embedding.
func (l Listing) HasUsableEmbedding(dim int) bool {
	if len(l.embedding) == 0 {
		return false
	}
	return dim <= 0 || len(l.embedding) == dim
}
