package ports

import (
	"context"
	"io"

	"github.com/davidgpt/david-gpt/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SaveMetadata(ctx context.Context, id string, meta domain.DocumentMetadata) error
	GetMetadata(ctx context.Context, id string) (*domain.DocumentMetadata, error)
}

// ChunkStore persists chunk rows keyed by (docID, chunkIndex) and serves the
// lexical retrieval leg. ReplaceDocumentChunks supersedes any previous
// ingestion run for the document.
type ChunkStore interface {
	ReplaceDocumentChunks(ctx context.Context, doc *domain.Document, chunks []domain.Chunk, indices []int) error
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts normalised text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// Sectionizer splits normalised text into heading-delimited sections.
type Sectionizer interface {
	Sectionize(text string) []domain.Section
}

// Chunker turns sectioned text plus optional metadata into retrieval chunks.
type Chunker interface {
	ChunkDocument(sections []domain.Section, cfg domain.ChunkConfig, meta *domain.DocumentMetadata) ([]domain.Chunk, error)
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// RetrievalLeg is one independent candidate source for hybrid search. The
// vector and lexical legs both implement it so the fuser stays agnostic to
// how either is backed.
type RetrievalLeg interface {
	Name() string
	Retrieve(ctx context.Context, query domain.LegQuery) ([]domain.Candidate, error)
}

// VectorIndex stores chunk embeddings scoped by persona.
type VectorIndex interface {
	IndexChunks(ctx context.Context, doc *domain.Document, chunks []domain.Chunk, indices []int, vectors [][]float32) error
	DeleteDocument(ctx context.Context, docID string) error
}

// EntityStore resolves entity mentions and reports authority co-occurrence,
// for the optional query expansion layer.
type EntityStore interface {
	ResolveMentions(ctx context.Context, mentions []string) ([]domain.Entity, error)
	HighAuthorityDocs(ctx context.Context, docIDs []string) (map[string]float64, error)
}

// EntityLinker records entity-to-document mention edges discovered during
// ingestion, feeding the graph the EntityStore reads.
type EntityLinker interface {
	LinkEntityMention(ctx context.Context, entity domain.Entity, docID string) error
}
