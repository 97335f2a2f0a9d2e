package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultSearchLimit     = 10
	DefaultVectorLimit     = 30
	DefaultBM25Limit       = 30
	DefaultRRFK            = 60
	DefaultTagBoost        = 1.075
	DefaultMaxChunksPerDoc = 3

	// MaxAuthorityBoost caps the authority re-weighting at +20%.
	MaxAuthorityBoost = 0.20
)

// SearchQuery scopes one hybrid search. The per-leg limits are intentionally
// independent of Limit so fusion has enough candidates to re-rank before
// truncation.
type SearchQuery struct {
	Query       string `json:"query"`
	PersonaSlug string `json:"persona_slug"`

	Limit           int     `json:"limit,omitempty"`
	VectorLimit     int     `json:"vector_limit,omitempty"`
	BM25Limit       int     `json:"bm25_limit,omitempty"`
	VectorThreshold float64 `json:"vector_threshold,omitempty"`
	BM25MinScore    float64 `json:"bm25_min_score,omitempty"`

	TagBoostMultiplier float64 `json:"tag_boost_multiplier,omitempty"`
	MaxChunksPerDoc    int     `json:"max_chunks_per_doc,omitempty"`
	RRFK               int     `json:"rrf_k,omitempty"`

	ExpandEntities bool `json:"expand_entities,omitempty"`
	AuthorityBoost bool `json:"authority_boost,omitempty"`
}

func (q SearchQuery) Validate() error {
	if strings.TrimSpace(q.Query) == "" {
		return WrapError(ErrInvalidInput, "search query", fmt.Errorf("query is required"))
	}
	if strings.TrimSpace(q.PersonaSlug) == "" {
		return WrapError(ErrInvalidInput, "search query", fmt.Errorf("persona slug is required"))
	}
	return nil
}

// WithDefaults fills unset knobs with the fixed defaults. Callers always get
// a fully specified copy; there is no ambient mutable default state.
func (q SearchQuery) WithDefaults() SearchQuery {
	out := q
	if out.Limit <= 0 {
		out.Limit = DefaultSearchLimit
	}
	if out.VectorLimit <= 0 {
		out.VectorLimit = DefaultVectorLimit
	}
	if out.BM25Limit <= 0 {
		out.BM25Limit = DefaultBM25Limit
	}
	if out.TagBoostMultiplier <= 1 {
		out.TagBoostMultiplier = DefaultTagBoost
	}
	if out.MaxChunksPerDoc <= 0 {
		out.MaxChunksPerDoc = DefaultMaxChunksPerDoc
	}
	if out.RRFK <= 0 {
		out.RRFK = DefaultRRFK
	}
	return out
}

// SearchResult is one fused, boosted hit. The component scores are kept for
// explainability next to the final fused score.
type SearchResult struct {
	ChunkID         string  `json:"chunk_id"`
	DocID           string  `json:"doc_id"`
	SectionPath     string  `json:"section_path"`
	Text            string  `json:"text"`
	Score           float64 `json:"score"`
	VectorScore     float64 `json:"vector_score"`
	BM25Score       float64 `json:"bm25_score"`
	TagBoostApplied bool    `json:"tag_boost_applied"`
	DocTitle        string  `json:"doc_title,omitempty"`
	DocType         string  `json:"doc_type,omitempty"`
	SourceURL       string  `json:"source_url,omitempty"`
}

// SearchResponse is the query output envelope. DegradedLegs names retrieval
// legs that failed or timed out while the other leg still answered.
type SearchResponse struct {
	Results      []SearchResult `json:"results"`
	TotalFound   int            `json:"total_found"`
	DegradedLegs []string       `json:"degraded_legs,omitempty"`
	Expanded     bool           `json:"expanded,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
	ElapsedMS    int64          `json:"elapsed_ms"`
}

// Candidate is one (chunk, score) pair returned by a retrieval leg.
type Candidate struct {
	ChunkID     string   `json:"chunk_id"`
	DocID       string   `json:"doc_id"`
	SectionPath string   `json:"section_path"`
	Text        string   `json:"text"`
	Score       float64  `json:"score"`
	DocTitle    string   `json:"doc_title,omitempty"`
	DocType     string   `json:"doc_type,omitempty"`
	SourceURL   string   `json:"source_url,omitempty"`
	DocTags     []string `json:"doc_tags,omitempty"`
}

// LegQuery is the leg-agnostic retrieval request: both the vector and the
// lexical leg answer it, scoped to one persona corpus.
type LegQuery struct {
	Text        string
	PersonaSlug string
	Limit       int
	MinScore    float64
}
