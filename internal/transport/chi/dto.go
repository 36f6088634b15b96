package chi

import (
	"time"

	"github.com/kailas-cloud/herdask/internal/domain/chat"
	"github.com/kailas-cloud/herdask/internal/domain/ranking"
)

// ErrorCode is the machine-readable code of an error response.
type ErrorCode string

// Error response codes.
const (
	CodeBadRequest              ErrorCode = "bad_request"
	CodeValidationFailed        ErrorCode = "validation_failed"
	CodeUnauthorized            ErrorCode = "unauthorized"
	CodeNotFound                ErrorCode = "not_found"
	CodeMethodNotAllowed        ErrorCode = "method_not_allowed"
	CodeBusy                    ErrorCode = "busy"
	CodeTimeout                 ErrorCode = "timeout"
	CodeEmbeddingProviderError  ErrorCode = "embedding_provider_error"
	CodeGenerationProviderError ErrorCode = "generation_provider_error"
	CodeRankingError            ErrorCode = "ranking_error"
	CodeInternalError           ErrorCode = "internal_error"
)

type errorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

type recommendRequest struct {
	Query string `json:"query"`
	TopK  *int   `json:"top_k,omitempty"`
}

type recommendItem struct {
	AnimalID   string   `json:"animal_id"`
	Collection string   `json:"collection"`
	Type       string   `json:"type"`
	Breed      string   `json:"breed"`
	Price      *float64 `json:"price"`
	Location   *string  `json:"location"`
	Score      float64  `json:"score"`
}

type recommendResponse struct {
	Results []recommendItem `json:"results"`
}

type historyItem struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

type historyResponse struct {
	Items []historyItem `json:"items"`
}

type healthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}

func recommendItemFromDomain(s *ranking.ScoredListing) recommendItem {
	l := s.Listing()
	item := recommendItem{
		AnimalID:   l.AnimalID(),
		Collection: l.Collection(),
		Type:       l.Type(),
		Breed:      l.Breed(),
		Score:      s.FinalScore(),
	}
	if p, ok := l.Price(); ok {
		item.Price = &p
	}
	if loc, ok := l.Location(); ok {
		item.Location = &loc
	}
	return item
}

func historyItemFromDomain(m *chat.Message) historyItem {
	return historyItem{
		ID:        m.ID,
		Message:   m.Message,
		Response:  m.Response,
		CreatedAt: m.CreatedAt.UTC(),
	}
}
