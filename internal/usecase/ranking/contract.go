package ranking

import (
	"context"
	"iter"

	"github.com/kailas-cloud/herdask/internal/domain/listing"
)

// Repository enumerates listings that carry an embedding.
// The sequence is lazy; iteration stops at the first yielded error.
type Repository interface {
	Scan(ctx context.Context, collection string) iter.Seq2[listing.Listing, error]
}
