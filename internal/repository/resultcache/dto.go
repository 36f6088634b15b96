package resultcache

import (
	"github.com/kailas-cloud/herdask/internal/domain/answer"
	"github.com/kailas-cloud/herdask/internal/domain/listing"
	"github.com/kailas-cloud/herdask/internal/domain/ranking"
)

// answerDTO is the JSON form of a cached answer. Embeddings are not stored.
type answerDTO struct {
	Reply   string      `json:"reply"`
	Results []resultDTO `json:"results"`
}

type resultDTO struct {
	AnimalID      string   `json:"animal_id"`
	Collection    string   `json:"collection"`
	Type          string   `json:"type"`
	Breed         string   `json:"breed"`
	Price         *float64 `json:"price,omitempty"`
	Location      *string  `json:"location,omitempty"`
	VectorScore   float64  `json:"vector_score"`
	MetadataBonus float64  `json:"metadata_bonus"`
	FinalScore    float64  `json:"final_score"`
}

func toDTO(a answer.Answer) answerDTO {
	out := answerDTO{Reply: a.Reply, Results: make([]resultDTO, len(a.Results))}
	for i := range a.Results {
		sl := &a.Results[i]
		l := sl.Listing()
		r := resultDTO{
			AnimalID:      l.AnimalID(),
			Collection:    l.Collection(),
			Type:          l.Type(),
			Breed:         l.Breed(),
			VectorScore:   sl.VectorScore(),
			MetadataBonus: sl.MetadataBonus(),
			FinalScore:    sl.FinalScore(),
		}
		if p, ok := l.Price(); ok {
			r.Price = &p
		}
		if loc, ok := l.Location(); ok {
			r.Location = &loc
		}
		out.Results[i] = r
	}
	return out
}

func fromDTO(d answerDTO) answer.Answer {
	results := make([]ranking.ScoredListing, len(d.Results))
	for i, r := range d.Results {
		l := listing.Reconstruct(r.AnimalID, r.Collection, r.Type, r.Breed, r.Price, r.Location, nil)
		results[i] = ranking.Reconstruct(l, r.VectorScore, r.MetadataBonus, r.FinalScore)
	}
	return answer.Answer{Reply: d.Reply, Results: results}
}
