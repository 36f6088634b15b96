package listing

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/kailas-cloud/herdask/internal/db"
	domlisting "github.com/kailas-cloud/herdask/internal/domain/listing"
)

// store is the consumer interface for listings (ISP).
type store interface {
	ScanPage(ctx context.Context, pattern string, cursor uint64) (db.ScanPage, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
}

// Repo reads listings stored as hashes under <prefix>listing:<collection>:<animal_id>.
type Repo struct {
	store     store
	keyPrefix string
}

// New creates a listing repository.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix + "listing:"}
}

// Scan lazily yields every listing in collection that carries an embedding.
// Each SCAN page is fetched with one pipelined HGETALL batch.
func (r *Repo) Scan(ctx context.Context, collection string) iter.Seq2[domlisting.Listing, error] {
	prefix := r.keyPrefix + collection + ":"

	return func(yield func(domlisting.Listing, error) bool) {
		// SCAN may return a key more than once while the keyspace is rehashed.
		seen := make(map[string]struct{})
		var cursor uint64
		for {
			page, err := r.store.ScanPage(ctx, prefix+"*", cursor)
			if err != nil {
				yield(domlisting.Listing{}, fmt.Errorf("scan %s: %w", collection, err))
				return
			}

			keys := page.Keys[:0:0]
			for _, k := range page.Keys {
				if _, dup := seen[k]; dup {
					continue
				}
				seen[k] = struct{}{}
				keys = append(keys, k)
			}

			if len(keys) > 0 {
				hashes, err := r.store.HGetAllMulti(ctx, keys)
				if err != nil {
					yield(domlisting.Listing{}, fmt.Errorf("load %s listings: %w", collection, err))
					return
				}
				for i, h := range hashes {
					if len(h) == 0 {
						continue
					}
					l := parseHashFields(collection, strings.TrimPrefix(keys[i], prefix), h)
					if l.Embedding() == nil {
						continue
					}
					if !yield(l, nil) {
						return
					}
				}
			}

			if page.Next == 0 {
				return
			}
			cursor = page.Next
		}
	}
}
