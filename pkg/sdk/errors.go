package herdask

import "github.com/kailas-cloud/herdask/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrUnauthenticated    = domain.ErrUnauthenticated
	ErrMalformedRequest   = domain.ErrMalformedRequest
	ErrVectorDimMismatch  = domain.ErrVectorDimMismatch
	ErrEmbeddingProvider  = domain.ErrEmbeddingProvider
	ErrGenerationProvider = domain.ErrGenerationProvider
	ErrRanking            = domain.ErrRanking
	ErrTimeout            = domain.ErrTimeout
)
