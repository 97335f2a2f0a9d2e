package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/davidgpt/david-gpt/internal/config"
	"github.com/davidgpt/david-gpt/internal/core/domain"
	"github.com/davidgpt/david-gpt/internal/core/ports"
	"github.com/davidgpt/david-gpt/internal/observability/metrics"
)

const serviceName = "api"

type Router struct {
	ingestor ports.DocumentIngestor
	searcher ports.Searcher
	repo     ports.DocumentRepository
	personas *config.PersonaRegistry
	metrics  *metrics.HTTPServerMetrics

	rateLimitRPS   float64
	rateLimitBurst int

	expandEntitiesDefault bool
}

type RouterOption func(*Router)

func WithRateLimit(rps float64, burst int) RouterOption {
	return func(rt *Router) {
		rt.rateLimitRPS = rps
		rt.rateLimitBurst = burst
	}
}

// WithExpandEntitiesDefault turns entity expansion on for every persona that
// does not opt in itself. Requests can still disable it explicitly.
func WithExpandEntitiesDefault(enabled bool) RouterOption {
	return func(rt *Router) { rt.expandEntitiesDefault = enabled }
}

func NewRouter(
	ingestor ports.DocumentIngestor,
	searcher ports.Searcher,
	repo ports.DocumentRepository,
	personas *config.PersonaRegistry,
	httpMetrics *metrics.HTTPServerMetrics,
	opts ...RouterOption,
) *Router {
	rt := &Router{
		ingestor: ingestor,
		searcher: searcher,
		repo:     repo,
		personas: personas,
		metrics:  httpMetrics,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/api/search", rt.search)
	mux.HandleFunc("/api/documents", rt.uploadDocument)
	mux.HandleFunc("/api/documents/", rt.getDocumentByID)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.rateLimitRPS > 0 {
		handler = rateLimitMiddleware(rt.rateLimitRPS, rt.rateLimitBurst, handler)
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type searchRequest struct {
	Query          string `json:"query"`
	PersonaSlug    string `json:"persona_slug"`
	Limit          int    `json:"limit"`
	ExpandEntities *bool  `json:"expand_entities,omitempty"`
	AuthorityBoost *bool  `json:"authority_boost,omitempty"`
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	persona, ok := rt.personas.Get(strings.TrimSpace(req.PersonaSlug))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown persona"})
		return
	}

	expand := persona.ExpandEntities || rt.expandEntitiesDefault
	query := domain.SearchQuery{
		Query:          req.Query,
		PersonaSlug:    persona.Slug,
		Limit:          req.Limit,
		ExpandEntities: expand,
		AuthorityBoost: expand,
	}
	if persona.TagBoost > 0 {
		query.TagBoostMultiplier = persona.TagBoost
	}
	if req.ExpandEntities != nil {
		query.ExpandEntities = *req.ExpandEntities
	}
	if req.AuthorityBoost != nil {
		query.AuthorityBoost = *req.AuthorityBoost
	}

	start := time.Now()
	response, err := rt.searcher.Search(r.Context(), query)
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordSearch(serviceName, persona.Slug, len(response.Results), response.DegradedLegs, response.Expanded, time.Since(start))
	}
	writeJSON(w, http.StatusOK, response)
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	personaSlug := strings.TrimSpace(r.FormValue("persona_slug"))
	if _, ok := rt.personas.Get(personaSlug); !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown persona"})
		return
	}

	var meta *domain.DocumentMetadata
	if raw := strings.TrimSpace(r.FormValue("metadata")); raw != "" {
		meta = &domain.DocumentMetadata{}
		if err := json.Unmarshal([]byte(raw), meta); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid metadata json"})
			return
		}
	}

	doc, err := rt.ingestor.Upload(r.Context(), ports.DocumentUpload{
		Filename:    fileHeader.Filename,
		MimeType:    fileHeader.Header.Get("Content-Type"),
		Title:       strings.TrimSpace(r.FormValue("title")),
		PersonaSlug: personaSlug,
		SourceURL:   strings.TrimSpace(r.FormValue("source_url")),
		Tags:        splitTags(r.FormValue("tags")),
		Metadata:    meta,
	}, file)
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordDocumentUpload(serviceName, personaSlug)
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/documents/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.repo.GetByID(r.Context(), id)
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
