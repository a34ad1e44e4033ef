// Package db provides PostgreSQL storage for tracked applications.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS applications (
		id BIGSERIAL PRIMARY KEY,
		company TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'discovered',
		resume_path TEXT NOT NULL DEFAULT '',
		cover_letter_path TEXT NOT NULL DEFAULT '',
		ats_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		keywords_matched TEXT[] NOT NULL DEFAULT '{}',
		keywords_missing TEXT[] NOT NULL DEFAULT '{}',
		notes TEXT NOT NULL DEFAULT '',
		date_discovered TIMESTAMPTZ,
		date_applied TIMESTAMPTZ,
		date_response TIMESTAMPTZ,
		date_interview TIMESTAMPTZ,
		follow_up_date TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_applications_status ON applications(status)`,
	`CREATE INDEX IF NOT EXISTS idx_applications_created ON applications(created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_applications_follow_up ON applications(follow_up_date) WHERE follow_up_date IS NOT NULL`,
}

// Migrate creates the schema if it does not exist.
func (db *DB) Migrate(ctx context.Context) error {
	for _, m := range migrations {
		if _, err := db.pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}
