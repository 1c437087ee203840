package store

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/xhad/webqa/internal/models"
	"github.com/xhad/webqa/internal/types"
	"github.com/xhad/webqa/pkg/llm"
)

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

type VectorStoreConfig struct {
	ConnString  string
	TableName   string
	VectorDim   int
	SearchLimit int
}

// VectorStore remembers researched pages so that later sessions can look
// them up by similarity to a query.
type VectorStore struct {
	config   VectorStoreConfig
	pool     *pgxpool.Pool
	embedder types.Embedder
}

func NewWithConfig(ctx context.Context, config VectorStoreConfig, embedder types.Embedder) (*VectorStore, error) {
	if config.TableName == "" {
		config.TableName = "pages"
	}
	if !tableNamePattern.MatchString(config.TableName) {
		return nil, fmt.Errorf("invalid table name %q", config.TableName)
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768 // nomic-embed-text
	}
	if config.SearchLimit == 0 {
		config.SearchLimit = 5
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	vs := &VectorStore{
		config:   config,
		pool:     pool,
		embedder: embedder,
	}

	if err := vs.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *VectorStore) initialize(ctx context.Context) error {
	// Enable pgvector extension
	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			session_id TEXT NOT NULL,
			url TEXT NOT NULL,
			title TEXT,
			summary TEXT,
			answer TEXT,
			embedding vector(%d),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, vs.config.TableName, vs.config.VectorDim)

	_, err = vs.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	// Create vector index
	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		vs.config.TableName, vs.config.TableName)

	_, err = vs.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// Remember stores a page with the embedding of its title and summary.
func (vs *VectorStore) Remember(ctx context.Context, sessionID string, page models.PageRecord) error {
	title := sanitizeUTF8(page.Title)
	summary := sanitizeUTF8(page.Summary)

	vector, err := vs.embed(ctx, title+"\n"+summary)
	if err != nil {
		return err
	}

	id := page.ID
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, session_id, url, title, summary, answer, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			summary = EXCLUDED.summary,
			answer = EXCLUDED.answer,
			embedding = EXCLUDED.embedding`,
		vs.config.TableName)

	_, err = vs.pool.Exec(ctx, stmt,
		id,
		sessionID,
		page.URL,
		title,
		summary,
		sanitizeUTF8(strings.Join(page.Answers, "\n\n")),
		vector,
	)
	if err != nil {
		return fmt.Errorf("failed to insert page: %w", err)
	}
	return nil
}

// Recall returns the remembered pages closest to query.
func (vs *VectorStore) Recall(ctx context.Context, query string, limit int) ([]models.PageRecord, error) {
	if limit == 0 {
		limit = vs.config.SearchLimit
	}

	vector, err := vs.embed(ctx, query)
	if err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`
		SELECT id::text, url, title, summary, answer
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, q, vector, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer rows.Close()

	var pages []models.PageRecord
	for rows.Next() {
		var (
			page   models.PageRecord
			answer string
		)
		if err := rows.Scan(&page.ID, &page.URL, &page.Title, &page.Summary, &answer); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if answer != "" {
			page.Answers = []string{answer}
		}
		pages = append(pages, page)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return pages, nil
}

func (vs *VectorStore) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	embeddings, err := vs.embedder.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return pgvector.Vector{}, err
	}
	flat := llm.FlattenEmbeddings(embeddings)
	if len(flat) != vs.config.VectorDim {
		return pgvector.Vector{}, fmt.Errorf("embedding has %d dimensions, table expects %d", len(flat), vs.config.VectorDim)
	}
	return pgvector.NewVector(flat), nil
}

func (vs *VectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

// sanitizeUTF8 drops invalid byte sequences, which postgres rejects.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "")
}
