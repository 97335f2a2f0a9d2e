package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/davidgpt/david-gpt/internal/core/domain"
	"github.com/davidgpt/david-gpt/internal/core/ports"
)

const defaultLegTimeout = 5 * time.Second

// SearchUseCase is the hybrid rank-fusion engine: two independent retrieval
// legs fused by reciprocal rank, boosted, capped per document and truncated.
// A failed leg degrades the query to single-leg ranking instead of failing it.
type SearchUseCase struct {
	vectorLeg  ports.RetrievalLeg
	lexicalLeg ports.RetrievalLeg
	expander   *ExpansionLayer
	legTimeout time.Duration
	defaults   domain.SearchQuery
	logger     *slog.Logger
}

type SearchOption func(*SearchUseCase)

// WithExpansionLayer enables the optional query expansion / authority boost
// layer. The engine's contract is unchanged when it is absent.
func WithExpansionLayer(layer *ExpansionLayer) SearchOption {
	return func(uc *SearchUseCase) { uc.expander = layer }
}

func WithLegTimeout(timeout time.Duration) SearchOption {
	return func(uc *SearchUseCase) {
		if timeout > 0 {
			uc.legTimeout = timeout
		}
	}
}

// WithQueryDefaults sets deployment-level fallbacks for the ranking knobs.
// Only the non-zero fields of the template take effect; a knob set on the
// request itself always wins.
func WithQueryDefaults(defaults domain.SearchQuery) SearchOption {
	return func(uc *SearchUseCase) { uc.defaults = defaults }
}

func WithSearchLogger(logger *slog.Logger) SearchOption {
	return func(uc *SearchUseCase) {
		if logger != nil {
			uc.logger = logger
		}
	}
}

func NewSearchUseCase(vectorLeg, lexicalLeg ports.RetrievalLeg, opts ...SearchOption) *SearchUseCase {
	uc := &SearchUseCase{
		vectorLeg:  vectorLeg,
		lexicalLeg: lexicalLeg,
		legTimeout: defaultLegTimeout,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func applyQueryDefaults(query, defaults domain.SearchQuery) domain.SearchQuery {
	if query.Limit <= 0 {
		query.Limit = defaults.Limit
	}
	if query.VectorLimit <= 0 {
		query.VectorLimit = defaults.VectorLimit
	}
	if query.BM25Limit <= 0 {
		query.BM25Limit = defaults.BM25Limit
	}
	if query.VectorThreshold <= 0 {
		query.VectorThreshold = defaults.VectorThreshold
	}
	if query.BM25MinScore <= 0 {
		query.BM25MinScore = defaults.BM25MinScore
	}
	if query.TagBoostMultiplier <= 1 {
		query.TagBoostMultiplier = defaults.TagBoostMultiplier
	}
	if query.MaxChunksPerDoc <= 0 {
		query.MaxChunksPerDoc = defaults.MaxChunksPerDoc
	}
	if query.RRFK <= 0 {
		query.RRFK = defaults.RRFK
	}
	return query
}

type legOutcome struct {
	name       string
	candidates []domain.Candidate
	err        error
}

func (uc *SearchUseCase) Search(ctx context.Context, query domain.SearchQuery) (*domain.SearchResponse, error) {
	start := time.Now()

	if err := query.Validate(); err != nil {
		return nil, err
	}
	query = applyQueryDefaults(query, uc.defaults).WithDefaults()

	legText := query.Query
	expanded := false
	if uc.expander != nil && query.ExpandEntities {
		legText, expanded = uc.expander.ExpandQuery(ctx, query.Query)
	}

	vector, lexical, degraded, err := uc.retrieve(ctx, query, legText)
	if err != nil {
		return nil, err
	}

	fused := fuseRRF(vector, lexical, query.RRFK)
	// Boosting uses the original query terms, not the expanded text.
	applyTagBoost(fused, query.Query, query.TagBoostMultiplier)
	if uc.expander != nil && query.AuthorityBoost {
		uc.expander.BoostAuthority(ctx, fused)
	}
	sortCandidates(fused)

	fused = capPerDocument(fused, query.MaxChunksPerDoc)
	totalFound := len(fused)
	if len(fused) > query.Limit {
		fused = fused[:query.Limit]
	}

	results := make([]domain.SearchResult, len(fused))
	for i, c := range fused {
		results[i] = c.result
	}

	return &domain.SearchResponse{
		Results:      results,
		TotalFound:   totalFound,
		DegradedLegs: degraded,
		Expanded:     expanded,
		Timestamp:    time.Now().UTC(),
		ElapsedMS:    time.Since(start).Milliseconds(),
	}, nil
}

// retrieve runs both legs concurrently, each under its own timeout. One
// failed leg is logged and reported as degraded; two failed legs fail the
// query with a retryable error.
func (uc *SearchUseCase) retrieve(
	ctx context.Context,
	query domain.SearchQuery,
	legText string,
) (vector, lexical []domain.Candidate, degraded []string, err error) {
	outcomes := make(chan legOutcome, 2)

	run := func(leg ports.RetrievalLeg, legQuery domain.LegQuery) {
		legCtx, cancel := context.WithTimeout(ctx, uc.legTimeout)
		defer cancel()
		candidates, retrieveErr := leg.Retrieve(legCtx, legQuery)
		outcomes <- legOutcome{name: leg.Name(), candidates: candidates, err: retrieveErr}
	}

	go run(uc.vectorLeg, domain.LegQuery{
		Text:        legText,
		PersonaSlug: query.PersonaSlug,
		Limit:       query.VectorLimit,
		MinScore:    query.VectorThreshold,
	})
	go run(uc.lexicalLeg, domain.LegQuery{
		Text:        legText,
		PersonaSlug: query.PersonaSlug,
		Limit:       query.BM25Limit,
		MinScore:    query.BM25MinScore,
	})

	byName := make(map[string][]domain.Candidate, 2)
	var legErrs []error
	for i := 0; i < 2; i++ {
		outcome := <-outcomes
		if outcome.err != nil {
			uc.logger.Warn("retrieval_leg_degraded",
				"leg", outcome.name,
				"persona", query.PersonaSlug,
				"error", outcome.err,
			)
			degraded = append(degraded, outcome.name)
			legErrs = append(legErrs, outcome.err)
			continue
		}
		byName[outcome.name] = outcome.candidates
	}

	if len(legErrs) == 2 {
		return nil, nil, nil, domain.WrapError(domain.ErrSearchUnavailable, "hybrid search",
			fmt.Errorf("both legs failed: %v; %v", legErrs[0], legErrs[1]))
	}

	return byName[uc.vectorLeg.Name()], byName[uc.lexicalLeg.Name()], degraded, nil
}
