package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/davidgpt/david-gpt/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*DocumentRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &DocumentRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, title, doc_type, filename").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDScansTagsAndStatus(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	columns := []string{
		"id", "title", "doc_type", "filename", "mime_type", "storage_path",
		"persona_slug", "source_url", "tags", "summary", "status", "error_message",
		"created_at", "updated_at",
	}
	mock.ExpectQuery("SELECT id, title, doc_type, filename").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			"doc-1", "Pump Guide", "manual", "pump.pdf", "application/pdf", "doc-1_pump.pdf",
			"david", "https://example.com/pump.pdf", []byte(`["pumps","maintenance"]`), "A guide.",
			"ready", "", time.Now().UTC(), time.Now().UTC(),
		))

	doc, err := repo.GetByID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if doc.Status != domain.StatusReady {
		t.Errorf("status = %q, want ready", doc.Status)
	}
	if len(doc.Tags) != 2 || doc.Tags[0] != "pumps" {
		t.Errorf("tags = %v", doc.Tags)
	}
	if doc.PersonaSlug != "david" {
		t.Errorf("persona = %q", doc.PersonaSlug)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateStatusReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WithArgs("missing", string(domain.StatusProcessing), "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", domain.StatusProcessing, "")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveMetadataReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WithArgs("missing", sqlmock.AnyArg(), "manual", sqlmock.AnyArg(), "sum", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SaveMetadata(context.Background(), "missing", domain.DocumentMetadata{
		DocType: "manual",
		Tags:    []string{"pumps"},
		Summary: "sum",
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetMetadataMissingBlobIsNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT metadata FROM documents").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"metadata"}).AddRow(nil))

	_, err := repo.GetMetadata(context.Background(), "doc-1")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
