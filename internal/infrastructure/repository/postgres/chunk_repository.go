package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/davidgpt/david-gpt/internal/core/domain"
)

func decodeTags(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil
	}
	return tags
}

// ChunkRepository persists chunk rows and serves the lexical retrieval leg
// over Postgres full-text search.
type ChunkRepository struct {
	db *sql.DB
}

func NewChunkRepository(db *sql.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// ReplaceDocumentChunks replaces all chunk rows for the document in one
// transaction so readers never observe a half-ingested document.
func (r *ChunkRepository) ReplaceDocumentChunks(
	ctx context.Context,
	doc *domain.Document,
	chunks []domain.Chunk,
	indices []int,
) error {
	if len(chunks) != len(indices) {
		return fmt.Errorf("chunks/indices length mismatch: %d/%d", len(chunks), len(indices))
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin chunk tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE doc_id = $1`, doc.ID); err != nil {
		return fmt.Errorf("delete previous chunks: %w", err)
	}

	now := time.Now().UTC()
	for i, chunk := range chunks {
		_, err := tx.ExecContext(ctx, `
INSERT INTO chunks (doc_id, chunk_index, persona_slug, section_path, text, token_count, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, doc.ID, indices[i], doc.PersonaSlug, chunk.SectionPath, chunk.Text, chunk.TokenCount, now)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", indices[i], err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chunk tx: %w", err)
	}
	return nil
}

// LexicalLeg ranks chunks with websearch-style full-text queries. Scores are
// ts_rank values; they are only comparable within one result list, which is
// all rank fusion needs.
type LexicalLeg struct {
	db *sql.DB
}

func NewLexicalLeg(db *sql.DB) *LexicalLeg {
	return &LexicalLeg{db: db}
}

func (l *LexicalLeg) Name() string { return "bm25" }

func (l *LexicalLeg) Retrieve(ctx context.Context, query domain.LegQuery) ([]domain.Candidate, error) {
	rows, err := l.db.QueryContext(ctx, `
SELECT c.doc_id, c.chunk_index, c.section_path, c.text,
       ts_rank(c.text_search, websearch_to_tsquery('english', $1)) AS score,
       d.title, d.doc_type, d.source_url, d.tags
FROM chunks c
JOIN documents d ON d.id = c.doc_id
WHERE c.persona_slug = $2
  AND c.text_search @@ websearch_to_tsquery('english', $1)
  AND ts_rank(c.text_search, websearch_to_tsquery('english', $1)) >= $3
ORDER BY score DESC, c.doc_id ASC, c.chunk_index ASC
LIMIT $4
`, query.Text, query.PersonaSlug, query.MinScore, query.Limit)
	if err != nil {
		return nil, domain.WrapError(domain.ErrLegUnavailable, "lexical leg", err)
	}
	defer rows.Close()

	var out []domain.Candidate
	for rows.Next() {
		var (
			docID      string
			chunkIndex int
			cand       domain.Candidate
			tagsRaw    []byte
		)
		err := rows.Scan(
			&docID, &chunkIndex, &cand.SectionPath, &cand.Text, &cand.Score,
			&cand.DocTitle, &cand.DocType, &cand.SourceURL, &tagsRaw,
		)
		if err != nil {
			return nil, fmt.Errorf("scan lexical candidate: %w", err)
		}
		cand.ChunkID = domain.ChunkID(docID, chunkIndex)
		cand.DocID = docID
		cand.DocTags = decodeTags(tagsRaw)
		out = append(out, cand)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lexical candidates: %w", err)
	}
	return out, nil
}
