package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

type Document struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	DocType     string         `json:"doc_type,omitempty"`
	Filename    string         `json:"filename"`
	MimeType    string         `json:"mime_type"`
	StoragePath string         `json:"storage_path"`
	PersonaSlug string         `json:"persona_slug"`
	SourceURL   string         `json:"source_url,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Summary     string         `json:"summary,omitempty"`
	Status      DocumentStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Actor is a named party attached to a document (inventor, author, assignee).
type Actor struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// DocumentMetadata carries the structured fields of a document that are
// rendered into the synthetic metadata chunk. Open-ended identifier and date
// maps keep patent numbers, DOIs, filing dates and similar searchable without
// schema churn; Extra is the escape hatch for anything else.
type DocumentMetadata struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	DocType     string            `json:"doc_type,omitempty"`
	Date        string            `json:"date,omitempty"`
	Summary     string            `json:"summary,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	KeyTerms    []string          `json:"key_terms,omitempty"`
	Aliases     []string          `json:"aliases,omitempty"`
	Identifiers map[string]string `json:"identifiers,omitempty"`
	Dates       map[string]string `json:"dates,omitempty"`
	Actors      []Actor           `json:"actors,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// Section is one heading-delimited region of normalised document text, as
// produced by the sectionizer. Depth 1 is a top-level heading.
type Section struct {
	Depth     int    `json:"depth"`
	Heading   string `json:"heading"`
	Content   string `json:"content"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}
