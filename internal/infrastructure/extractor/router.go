// Package extractor routes documents to a format-specific text extractor by
// MIME type, falling back to file extension.
package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/davidgpt/david-gpt/internal/core/domain"
	"github.com/davidgpt/david-gpt/internal/core/ports"
)

type Router struct {
	plain       ports.TextExtractor
	pdf         ports.TextExtractor
	spreadsheet ports.TextExtractor
}

func NewRouter(plain, pdf, spreadsheet ports.TextExtractor) *Router {
	return &Router{plain: plain, pdf: pdf, spreadsheet: spreadsheet}
}

func (r *Router) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	ext := strings.ToLower(filepath.Ext(doc.Filename))
	mime := strings.ToLower(doc.MimeType)
	if idx := strings.Index(mime, ";"); idx >= 0 {
		mime = strings.TrimSpace(mime[:idx])
	}

	switch {
	case mime == "application/pdf" || ext == ".pdf":
		return r.pdf.Extract(ctx, doc)
	case mime == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" || ext == ".xlsx":
		return r.spreadsheet.Extract(ctx, doc)
	case strings.HasPrefix(mime, "text/") || mime == "application/json" || ext == ".md" || ext == ".txt":
		return r.plain.Extract(ctx, doc)
	case mime == "" && ext == "":
		return r.plain.Extract(ctx, doc)
	default:
		return "", domain.WrapError(domain.ErrInvalidInput, "extractor", fmt.Errorf("unsupported document format: mime=%q filename=%q", doc.MimeType, doc.Filename))
	}
}
