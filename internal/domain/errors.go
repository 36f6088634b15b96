package domain

import "errors"

var (
	// ErrUnauthenticated signals a request without a caller identity.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrBusy signals that the caller already has a question in flight.
	ErrBusy = errors.New("busy")
	// ErrMalformedRequest signals an unparseable or invalid request.
	ErrMalformedRequest = errors.New("malformed request")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProvider signals an embedding provider failure.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrRanking signals that the listing repository could not be scanned.
	ErrRanking = errors.New("ranking error")
	// ErrGenerationProvider signals a generation provider failure.
	ErrGenerationProvider = errors.New("generation provider error")
	// ErrTimeout signals that a provider call exceeded its deadline.
	ErrTimeout = errors.New("timeout")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
)

// ErrorKind classifies an error by the sentinel it wraps. Used as a log and metric label.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrEmbeddingProvider):
		return "embedding_error"
	case errors.Is(err, ErrRanking):
		return "ranking_error"
	case errors.Is(err, ErrGenerationProvider):
		return "generation_error"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrMalformedRequest):
		return "malformed_request"
	case errors.Is(err, ErrBusy):
		return "busy"
	default:
		return "internal_error"
	}
}
