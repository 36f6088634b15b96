package pglisting

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// execer is satisfied by *pgx.Conn and *pgxpool.Pool.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Migrate creates the vector extension and the listings table if missing.
// dimensions fixes the embedding column width; changing it later needs a manual migration.
func Migrate(ctx context.Context, db execer, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("dimensions must be positive, got %d", dimensions)
	}

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS listings (
	collection TEXT NOT NULL,
	animal_id  TEXT NOT NULL,
	type       TEXT NOT NULL DEFAULT '',
	breed      TEXT NOT NULL DEFAULT '',
	price_npr  DOUBLE PRECISION,
	location   TEXT,
	embedding  vector(%d),
	PRIMARY KEY (collection, animal_id)
)`, dimensions),
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}
