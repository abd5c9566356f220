package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDB wraps the connection pool shared by jobs, logs, chat and the
// learning index.
type PostgresDB struct {
	Pool *pgxpool.Pool
}

func NewPostgresDB(ctx context.Context, databaseURL string) (*PostgresDB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresDB{Pool: pool}, nil
}

func (db *PostgresDB) Close() {
	db.Pool.Close()
}

// EnsureVectorExtension installs pgvector if it is missing.
func (db *PostgresDB) EnsureVectorExtension(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}
	return nil
}

// CreateEmbeddingsTable creates a learning index table if it doesn't exist.
func (db *PostgresDB) CreateEmbeddingsTable(ctx context.Context, tableName string, dimension int) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			content TEXT NOT NULL,
			metadata JSONB,
			embedding vector(%d),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`, pgx.Identifier{tableName}.Sanitize(), dimension)

	if _, err := db.Pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create table %s: %w", tableName, err)
	}

	// HNSW supports up to 2000 dimensions; larger vectors fall back to exact search.
	if dimension <= 2000 {
		indexQuery := fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s
			ON %s USING hnsw (embedding vector_cosine_ops)
		`, pgx.Identifier{tableName + "_embedding_idx"}.Sanitize(), pgx.Identifier{tableName}.Sanitize())

		if _, err := db.Pool.Exec(ctx, indexQuery); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", tableName, err)
		}
	}

	if _, err := db.Pool.Exec(ctx, fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s ON %s ((metadata->>'prospect_id'))",
		pgx.Identifier{tableName + "_prospect_idx"}.Sanitize(), pgx.Identifier{tableName}.Sanitize(),
	)); err != nil {
		return fmt.Errorf("failed to create prospect index on %s: %w", tableName, err)
	}

	return nil
}
