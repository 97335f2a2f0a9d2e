package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/davidgpt/david-gpt/internal/core/domain"
	"github.com/davidgpt/david-gpt/internal/core/ports"
)

type IngestDocumentUseCase struct {
	repo    ports.DocumentRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewIngestDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *IngestDocumentUseCase {
	return &IngestDocumentUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

func (uc *IngestDocumentUseCase) Upload(
	ctx context.Context,
	upload ports.DocumentUpload,
	body io.Reader,
) (*domain.Document, error) {
	if strings.TrimSpace(upload.PersonaSlug) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", fmt.Errorf("persona slug is required"))
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(upload.Filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	title := strings.TrimSpace(upload.Title)
	if title == "" {
		title = upload.Filename
	}

	doc := &domain.Document{
		ID:          id,
		Title:       title,
		Filename:    upload.Filename,
		MimeType:    upload.MimeType,
		StoragePath: storageKey,
		PersonaSlug: upload.PersonaSlug,
		SourceURL:   upload.SourceURL,
		Tags:        append([]string{}, upload.Tags...),
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document record: %w", err)
	}

	if upload.Metadata != nil {
		meta := *upload.Metadata
		meta.ID = doc.ID
		if meta.Title == "" {
			meta.Title = doc.Title
		}
		if err := uc.repo.SaveMetadata(ctx, doc.ID, meta); err != nil {
			return nil, fmt.Errorf("save document metadata: %w", err)
		}
	}

	if err := uc.queue.PublishDocumentIngested(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("publish ingestion event: %w", err)
	}

	return doc, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}
