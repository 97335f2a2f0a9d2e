package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/davidgpt/david-gpt/internal/core/domain"
	"github.com/davidgpt/david-gpt/internal/core/ports"
)

// ProcessDocumentUseCase runs one document through the ingestion pipeline:
// extract, sectionize, chunk, embed, index. A failure marks only that
// document failed; other documents in the batch are unaffected.
type ProcessDocumentUseCase struct {
	repo        ports.DocumentRepository
	extractor   ports.TextExtractor
	sectionizer ports.Sectionizer
	chunker     ports.Chunker
	embedder    ports.Embedder
	vectorIndex ports.VectorIndex
	chunkStore  ports.ChunkStore
	chunkCfg    domain.ChunkConfig
	linker      ports.EntityLinker
	logger      *slog.Logger
}

type ProcessOption func(*ProcessDocumentUseCase)

func WithProcessLogger(logger *slog.Logger) ProcessOption {
	return func(uc *ProcessDocumentUseCase) {
		if logger != nil {
			uc.logger = logger
		}
	}
}

// WithEntityLinker records metadata actors and key terms as entity mentions
// in the knowledge graph after a document is indexed.
func WithEntityLinker(linker ports.EntityLinker) ProcessOption {
	return func(uc *ProcessDocumentUseCase) { uc.linker = linker }
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	extractor ports.TextExtractor,
	sectionizer ports.Sectionizer,
	chunker ports.Chunker,
	embedder ports.Embedder,
	vectorIndex ports.VectorIndex,
	chunkStore ports.ChunkStore,
	chunkCfg domain.ChunkConfig,
	opts ...ProcessOption,
) *ProcessDocumentUseCase {
	uc := &ProcessDocumentUseCase{
		repo:        repo,
		extractor:   extractor,
		sectionizer: sectionizer,
		chunker:     chunker,
		embedder:    embedder,
		vectorIndex: vectorIndex,
		chunkStore:  chunkStore,
		chunkCfg:    chunkCfg,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	if err := uc.processPipeline(ctx, documentID); err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, documentID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) processPipeline(ctx context.Context, documentID string) error {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	text, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}
	if text == "" {
		return fmt.Errorf("document %s produced no text", doc.ID)
	}

	sections := uc.sectionizer.Sectionize(text)

	// Metadata is optional; a document without it simply gets no metadata
	// chunk.
	meta, err := uc.repo.GetMetadata(ctx, doc.ID)
	if err != nil && !domain.IsKind(err, domain.ErrDocumentNotFound) {
		return fmt.Errorf("load document metadata: %w", err)
	}

	chunks, err := uc.chunker.ChunkDocument(sections, uc.chunkCfg, meta)
	if err != nil {
		return fmt.Errorf("chunk document: %w", err)
	}
	if len(chunks) == 0 {
		return fmt.Errorf("document %s produced no chunks", doc.ID)
	}

	report := domain.ValidateChunks(chunks)
	if len(report.Warnings) > 0 {
		uc.logger.Warn("chunk_quality_warnings",
			"document_id", doc.ID,
			"chunks", report.Count,
			"avg_tokens", report.AvgTokens,
			"warnings", len(report.Warnings),
		)
	}

	indices := chunkIndices(chunks, meta != nil)

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	if err := uc.chunkStore.ReplaceDocumentChunks(ctx, doc, chunks, indices); err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}
	if err := uc.vectorIndex.DeleteDocument(ctx, doc.ID); err != nil {
		return fmt.Errorf("supersede vector index entries: %w", err)
	}
	if err := uc.vectorIndex.IndexChunks(ctx, doc, chunks, indices, vectors); err != nil {
		return fmt.Errorf("index chunk vectors: %w", err)
	}

	if uc.linker != nil && meta != nil {
		uc.linkMetadataEntities(ctx, doc.ID, meta)
	}
	return nil
}

// linkMetadataEntities upserts mention edges for the metadata's actors and
// key terms. Graph failures are logged, not fatal: the graph only enriches
// search, the document is already indexed.
func (uc *ProcessDocumentUseCase) linkMetadataEntities(ctx context.Context, docID string, meta *domain.DocumentMetadata) {
	link := func(entity domain.Entity) {
		if err := uc.linker.LinkEntityMention(ctx, entity, docID); err != nil {
			uc.logger.Warn("entity_link_failed", "document_id", docID, "entity", entity.Name, "error", err)
		}
	}
	for _, actor := range meta.Actors {
		if strings.TrimSpace(actor.Name) == "" {
			continue
		}
		link(domain.Entity{ID: entitySlug(actor.Name), Name: actor.Name, Kind: actor.Role})
	}
	for _, term := range meta.KeyTerms {
		if strings.TrimSpace(term) == "" {
			continue
		}
		link(domain.Entity{ID: entitySlug(term), Name: term, Kind: "term"})
	}
}

// entitySlug derives a stable graph id from a name so repeat ingestions merge
// into the same node.
func entitySlug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "-") {
				b.WriteRune('-')
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// chunkIndices assigns the persisted chunk index per chunk. The metadata
// chunk, when present, is always first and takes the reserved index so it
// never collides with content indices.
func chunkIndices(chunks []domain.Chunk, hasMetadata bool) []int {
	indices := make([]int, len(chunks))
	next := 0
	for i := range chunks {
		if hasMetadata && i == 0 {
			indices[i] = domain.MetadataChunkIndex
			continue
		}
		indices[i] = next
		next++
	}
	return indices
}
