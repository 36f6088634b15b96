package ranking

import "github.com/kailas-cloud/herdask/internal/domain/listing"

// Score weights of the hybrid formula.
const (
	VectorWeight   = 0.8
	MetadataWeight = 0.2
)

// ScoredListing is a ranked listing produced per search call (never persisted).
type ScoredListing struct {
	listing       listing.Listing
	vectorScore   float64
	metadataBonus float64
	finalScore    float64
}

// New creates a ScoredListing. vectorScore is clamped to [0,1];
// finalScore = 0.8*vectorScore + 0.2*metadataBonus.
func New(l listing.Listing, vectorScore, metadataBonus float64) ScoredListing {
	vs := clamp01(vectorScore)
	return ScoredListing{
		listing:       l,
		vectorScore:   vs,
		metadataBonus: metadataBonus,
		finalScore:    VectorWeight*vs + MetadataWeight*metadataBonus,
	}
}

// Reconstruct creates a ScoredListing from stored scores without recomputation (cache hydration).
func Reconstruct(l listing.Listing, vectorScore, metadataBonus, finalScore float64) ScoredListing {
	return ScoredListing{
		listing:       l,
		vectorScore:   vectorScore,
		metadataBonus: metadataBonus,
		finalScore:    finalScore,
	}
}

// Listing returns the ranked listing.
func (s *ScoredListing) Listing() listing.Listing { return s.listing }

// VectorScore returns the clamped cosine similarity.
func (s *ScoredListing) VectorScore() float64 { return s.vectorScore }

// MetadataBonus returns the filter-match bonus in [0, 0.3].
func (s *ScoredListing) MetadataBonus() float64 { return s.metadataBonus }

// FinalScore returns the hybrid score.
func (s *ScoredListing) FinalScore() float64 { return s.finalScore }

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
