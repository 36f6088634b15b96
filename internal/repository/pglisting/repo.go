package pglisting

import (
	"context"
	"fmt"
	"iter"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	domlisting "github.com/kailas-cloud/herdask/internal/domain/listing"
)

const scanQuery = `
SELECT animal_id, type, breed, price_npr, location, embedding
FROM listings
WHERE collection = $1 AND embedding IS NOT NULL
ORDER BY animal_id`

// Repo reads listings from PostgreSQL with the pgvector extension.
type Repo struct {
	pool *pgxpool.Pool
}

// New ensures the listings table exists, then opens a pool to dsn that
// registers pgvector types on every connection.
func New(ctx context.Context, dsn string, dimensions int) (*Repo, error) {
	// The vector type must exist before RegisterTypes runs, so migrate on a plain connection first.
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pglisting: connect: %w", err)
	}
	err = Migrate(ctx, conn, dimensions)
	_ = conn.Close(ctx)
	if err != nil {
		return nil, fmt.Errorf("pglisting: migrate: %w", err)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pglisting: parse dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pglisting: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pglisting: ping: %w", err)
	}

	return &Repo{pool: pool}, nil
}

// Ping checks database connectivity.
func (r *Repo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close releases the pool.
func (r *Repo) Close() {
	r.pool.Close()
}

// Scan streams the embedded listings of collection ordered by animal ID.
func (r *Repo) Scan(ctx context.Context, collection string) iter.Seq2[domlisting.Listing, error] {
	return func(yield func(domlisting.Listing, error) bool) {
		rows, err := r.pool.Query(ctx, scanQuery, collection)
		if err != nil {
			yield(domlisting.Listing{}, fmt.Errorf("query %s: %w", collection, err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var (
				id, animalType, breed string
				price                 *float64
				location              *string
				vec                   pgvector.Vector
			)
			if err := rows.Scan(&id, &animalType, &breed, &price, &location, &vec); err != nil {
				yield(domlisting.Listing{}, fmt.Errorf("scan %s row: %w", collection, err))
				return
			}
			l := domlisting.Reconstruct(id, collection, animalType, breed, price, location, vec.Slice())
			if !yield(l, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(domlisting.Listing{}, fmt.Errorf("iterate %s: %w", collection, err))
		}
	}
}
