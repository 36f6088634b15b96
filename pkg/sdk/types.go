package herdask

import (
	"time"

	"github.com/kailas-cloud/herdask/internal/domain/chat"
	"github.com/kailas-cloud/herdask/internal/domain/ranking"
	assistantuc "github.com/kailas-cloud/herdask/internal/usecase/assistant"
)

// Outcome classifies how a question was handled.
type Outcome string

// Question outcomes.
const (
	OutcomeAnswered Outcome = Outcome(assistantuc.OutcomeAnswered)
	OutcomeCacheHit Outcome = Outcome(assistantuc.OutcomeCacheHit)
	OutcomeBusy     Outcome = Outcome(assistantuc.OutcomeBusy)
	OutcomeFailed   Outcome = Outcome(assistantuc.OutcomeFailed)
	OutcomeTimeout  Outcome = Outcome(assistantuc.OutcomeTimeout)
	OutcomeEmpty    Outcome = Outcome(assistantuc.OutcomeEmpty)
)

// Reply is the text shown to the caller. Failed and timed out questions
// carry a generic apology in Text and the cause in Err.
type Reply struct {
	Text    string
	Outcome Outcome
	Err     error
}

// Recommendation is one ranked listing.
type Recommendation struct {
	AnimalID   string
	Collection string
	Type       string
	Breed      string
	Price      *float64
	Location   *string
	Score      float64
}

// Message is one answered question from a caller's history.
type Message struct {
	ID        string
	Message   string
	Response  string
	CreatedAt time.Time
}

func replyFromUseCase(r assistantuc.Reply) Reply {
	return Reply{Text: r.Text, Outcome: Outcome(r.Outcome), Err: r.Err}
}

func recommendationFromDomain(s *ranking.ScoredListing) Recommendation {
	l := s.Listing()
	rec := Recommendation{
		AnimalID:   l.AnimalID(),
		Collection: l.Collection(),
		Type:       l.Type(),
		Breed:      l.Breed(),
		Score:      s.FinalScore(),
	}
	if price, ok := l.Price(); ok {
		rec.Price = &price
	}
	if loc, ok := l.Location(); ok {
		rec.Location = &loc
	}
	return rec
}

func messageFromDomain(m chat.Message) Message {
	return Message{
		ID:        m.ID,
		Message:   m.Message,
		Response:  m.Response,
		CreatedAt: m.CreatedAt,
	}
}
