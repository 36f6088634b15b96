package listing

import (
	"encoding/binary"
	"math"
	"strconv"

	domlisting "github.com/kailas-cloud/herdask/internal/domain/listing"
)

// Hash field names of a stored listing.
const (
	fieldAnimalID  = "animal_id"
	fieldType      = "type"
	fieldBreed     = "breed"
	fieldPrice     = "price_npr"
	fieldLocation  = "location"
	fieldEmbedding = "embedding"
)

// parseHashFields converts a stored hash into a Listing.
// An unparseable price is treated as absent; the animal ID falls back to the key suffix.
func parseHashFields(collection, keyID string, m map[string]string) domlisting.Listing {
	id := m[fieldAnimalID]
	if id == "" {
		id = keyID
	}

	var price *float64
	if raw, ok := m[fieldPrice]; ok && raw != "" {
		if p, err := strconv.ParseFloat(raw, 64); err == nil {
			price = &p
		}
	}

	var location *string
	if loc, ok := m[fieldLocation]; ok {
		location = &loc
	}

	return domlisting.Reconstruct(
		id, collection, m[fieldType], m[fieldBreed],
		price, location, bytesToVector(m[fieldEmbedding]),
	)
}

// bytesToVector decodes little-endian float32s. A length not divisible by 4 yields nil.
func bytesToVector(s string) []float32 {
	if len(s) == 0 || len(s)%4 != 0 {
		return nil
	}
	b := []byte(s)
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
