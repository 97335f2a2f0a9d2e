package ports

import (
	"context"
	"io"

	"github.com/davidgpt/david-gpt/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, upload DocumentUpload, body io.Reader) (*domain.Document, error)
}

// DocumentUpload describes one incoming document. Metadata, when supplied,
// is persisted alongside the document and later rendered into the synthetic
// metadata chunk.
type DocumentUpload struct {
	Filename    string
	MimeType    string
	Title       string
	PersonaSlug string
	SourceURL   string
	Tags        []string
	Metadata    *domain.DocumentMetadata
}

// DocumentProcessor is the inbound contract for asynchronous document
// processing (extract, sectionize, chunk, embed, index).
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// Searcher is the inbound contract for hybrid corpus search.
type Searcher interface {
	Search(ctx context.Context, query domain.SearchQuery) (*domain.SearchResponse, error)
}
