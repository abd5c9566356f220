package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// Document is one indexed learning.
type Document struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Metadata  Metadata  `json:"metadata"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// Metadata is stored as JSONB next to each vector.
type Metadata struct {
	ProspectID   string `json:"prospect_id"`
	ProspectName string `json:"prospect_name"`
	SessionID    string `json:"session_id"`
	LearningID   string `json:"learning_id"`
	Category     string `json:"category"`
	Confidence   string `json:"confidence"`
	Phase        string `json:"phase"`
	SourceTitle  string `json:"source_title,omitempty"`
	SourceURL    string `json:"source_url,omitempty"`
}

// Filter narrows a search. Zero fields match everything.
type Filter struct {
	ProspectID string
	SessionID  string
	Categories []string
	// MinConfidence keeps learnings at or above this level (low, medium, high).
	MinConfidence string
}

// PGVectorStore stores learnings in one pgvector table.
type PGVectorStore struct {
	pool      *pgxpool.Pool
	tableName string
}

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-zA-Z0-9_]{0,62}$`)

// isValidTableName only allows names that are safe to splice into SQL.
func isValidTableName(name string) bool {
	return tableNamePattern.MatchString(name)
}

func NewPGVectorStore(pool *pgxpool.Pool, tableName string) (*PGVectorStore, error) {
	if !isValidTableName(tableName) {
		return nil, fmt.Errorf("invalid table name %q: must contain only alphanumeric characters and underscores, start with a letter or underscore, and be 1-63 characters long", tableName)
	}
	return &PGVectorStore{
		pool:      pool,
		tableName: tableName,
	}, nil
}

func (vs *PGVectorStore) table() string {
	return pgx.Identifier{vs.tableName}.Sanitize()
}

// AddDocuments inserts documents in one batch.
func (vs *PGVectorStore) AddDocuments(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (content, metadata, embedding)
		VALUES ($1, $2, $3)
	`, vs.table())

	batch := &pgx.Batch{}
	for _, doc := range docs {
		metadataJSON, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		batch.Queue(query, doc.Content, metadataJSON, pgvector.NewVector(doc.Embedding))
	}

	br := vs.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range docs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert learning: %w", err)
		}
	}
	return nil
}

// DeleteSession removes everything indexed for a session so it can be
// indexed again.
func (vs *PGVectorStore) DeleteSession(ctx context.Context, sessionID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE metadata->>'session_id' = $1`, vs.table())
	if _, err := vs.pool.Exec(ctx, query, sessionID); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	return nil
}

// SimilaritySearchResult is a document with its cosine similarity.
type SimilaritySearchResult struct {
	Document Document
	Score    float64
}

func (vs *PGVectorStore) SimilaritySearch(ctx context.Context, queryEmbedding []float32, topK int, f Filter) ([]SimilaritySearchResult, error) {
	args := []any{pgvector.NewVector(queryEmbedding)}
	where := buildFilter(f, &args)
	args = append(args, topK)

	query := fmt.Sprintf(`
		SELECT id, content, metadata, 1 - (embedding <=> $1) as similarity
		FROM %s
		WHERE %s
		ORDER BY embedding <=> $1
		LIMIT $%d
	`, vs.table(), where, len(args))

	rows, err := vs.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute similarity search: %w", err)
	}
	defer rows.Close()

	var results []SimilaritySearchResult
	for rows.Next() {
		var doc Document
		var metadataJSON []byte
		var similarity float64

		if err := rows.Scan(&doc.ID, &doc.Content, &metadataJSON, &similarity); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
		results = append(results, SimilaritySearchResult{Document: doc, Score: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return results, nil
}

// List returns the learnings matching f, newest first.
func (vs *PGVectorStore) List(ctx context.Context, f Filter, limit int) ([]Document, error) {
	var args []any
	where := buildFilter(f, &args)
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT id, content, metadata
		FROM %s
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d
	`, vs.table(), where, len(args))

	rows, err := vs.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list learnings: %w", err)
	}
	defer rows.Close()

	var documents []Document
	for rows.Next() {
		var doc Document
		var metadataJSON []byte

		if err := rows.Scan(&doc.ID, &doc.Content, &metadataJSON); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
		documents = append(documents, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return documents, nil
}

var confidenceAtLeast = map[string][]string{
	"high":   {"high"},
	"medium": {"high", "medium"},
}

// buildFilter renders f as a WHERE clause. Placeholders continue after
// the arguments already in args.
func buildFilter(f Filter, args *[]any) string {
	var conditions []string

	exact := map[string]string{}
	if f.ProspectID != "" {
		exact["prospect_id"] = f.ProspectID
	}
	if f.SessionID != "" {
		exact["session_id"] = f.SessionID
	}
	if len(exact) > 0 {
		jsonBytes, _ := json.Marshal(exact)
		*args = append(*args, jsonBytes)
		conditions = append(conditions, fmt.Sprintf("metadata @> $%d", len(*args)))
	}

	if len(f.Categories) > 0 {
		*args = append(*args, f.Categories)
		conditions = append(conditions, fmt.Sprintf("metadata->>'category' = ANY($%d)", len(*args)))
	}

	if levels, ok := confidenceAtLeast[strings.ToLower(f.MinConfidence)]; ok {
		*args = append(*args, levels)
		conditions = append(conditions, fmt.Sprintf("metadata->>'confidence' = ANY($%d)", len(*args)))
	}

	if len(conditions) == 0 {
		return "TRUE"
	}
	return strings.Join(conditions, " AND ")
}
