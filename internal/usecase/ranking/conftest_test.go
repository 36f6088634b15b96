package ranking

import (
	"context"
	"iter"
	"sync"

	"github.com/kailas-cloud/herdask/internal/domain/listing"
)

// fakeRepo serves listings per collection from memory.
type fakeRepo struct {
	mu      sync.Mutex
	data    map[string][]listing.Listing
	errs    map[string]error
	scanned []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		data: make(map[string][]listing.Listing),
		errs: make(map[string]error),
	}
}

func (f *fakeRepo) add(collection string, ls ...listing.Listing) *fakeRepo {
	f.data[collection] = append(f.data[collection], ls...)
	return f
}

func (f *fakeRepo) Scan(_ context.Context, collection string) iter.Seq2[listing.Listing, error] {
	f.mu.Lock()
	f.scanned = append(f.scanned, collection)
	f.mu.Unlock()

	return func(yield func(listing.Listing, error) bool) {
		for _, l := range f.data[collection] {
			if !yield(l, nil) {
				return
			}
		}
		if err := f.errs[collection]; err != nil {
			yield(listing.Listing{}, err)
		}
	}
}

func ptr[T any](v T) *T { return &v }

func mkListing(id string, price *float64, location *string, emb ...float32) listing.Listing {
	return listing.Reconstruct(id, "buffaloes", "buffalo", "murrah", price, location, emb)
}
