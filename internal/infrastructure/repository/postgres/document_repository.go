package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/davidgpt/david-gpt/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	doc_type TEXT,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	persona_slug TEXT NOT NULL,
	source_url TEXT,
	tags JSONB NOT NULL DEFAULT '[]'::jsonb,
	summary TEXT,
	metadata JSONB,
	status TEXT NOT NULL,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_persona ON documents(persona_slug);
CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at DESC);

CREATE TABLE IF NOT EXISTS chunks (
	doc_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	chunk_index INT NOT NULL,
	persona_slug TEXT NOT NULL,
	section_path TEXT NOT NULL,
	text TEXT NOT NULL,
	token_count INT NOT NULL,
	text_search TSVECTOR GENERATED ALWAYS AS (to_tsvector('english', text)) STORED,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (doc_id, chunk_index)
);

CREATE INDEX IF NOT EXISTS idx_chunks_text_search ON chunks USING GIN (text_search);
CREATE INDEX IF NOT EXISTS idx_chunks_persona ON chunks(persona_slug);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	tagsJSON, err := json.Marshal(doc.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO documents (
	id, title, doc_type, filename, mime_type, storage_path, persona_slug, source_url, tags, summary, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
`,
		doc.ID, doc.Title, doc.DocType, doc.Filename, doc.MimeType, doc.StoragePath, doc.PersonaSlug,
		doc.SourceURL, tagsJSON, doc.Summary, string(doc.Status), doc.Error, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, title, doc_type, filename, mime_type, storage_path, persona_slug, source_url, tags, summary, status, error_message, created_at, updated_at
FROM documents
WHERE id = $1
`, id)

	var doc domain.Document
	var tagsRaw []byte
	var status string

	err := row.Scan(
		&doc.ID, &doc.Title, &doc.DocType, &doc.Filename, &doc.MimeType, &doc.StoragePath,
		&doc.PersonaSlug, &doc.SourceURL, &tagsRaw, &doc.Summary, &status, &doc.Error,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "postgres.GetByID", fmt.Errorf("document %s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}

	if err := json.Unmarshal(tagsRaw, &doc.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	doc.Status = domain.DocumentStatus(status)
	return &doc, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return requireRowAffected(res, "postgres.UpdateStatus", id)
}

func requireRowAffected(res sql.Result, op, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, op, fmt.Errorf("document %s", id))
	}
	return nil
}

// SaveMetadata stores the structured metadata blob and lifts the fields the
// document row mirrors for listing (type, tags, summary).
func (r *DocumentRepository) SaveMetadata(ctx context.Context, id string, meta domain.DocumentMetadata) error {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	tagsJSON, err := json.Marshal(meta.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET metadata = $2, doc_type = $3, tags = $4, summary = $5, updated_at = $6
WHERE id = $1
`, id, metaJSON, meta.DocType, tagsJSON, meta.Summary, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	return requireRowAffected(res, "postgres.SaveMetadata", id)
}

func (r *DocumentRepository) GetMetadata(ctx context.Context, id string) (*domain.DocumentMetadata, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT metadata FROM documents WHERE id = $1
`, id)

	var metaRaw []byte
	if err := row.Scan(&metaRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "postgres.GetMetadata", fmt.Errorf("document %s", id))
		}
		return nil, fmt.Errorf("scan metadata: %w", err)
	}
	if len(metaRaw) == 0 {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "postgres.GetMetadata", fmt.Errorf("no metadata for document %s", id))
	}

	var meta domain.DocumentMetadata
	if err := json.Unmarshal(metaRaw, &meta); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return &meta, nil
}
