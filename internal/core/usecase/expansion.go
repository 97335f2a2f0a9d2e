package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/davidgpt/david-gpt/internal/core/domain"
	"github.com/davidgpt/david-gpt/internal/core/ports"
)

const (
	defaultEntityTimeout = 1 * time.Second

	// maxExpandedEntities bounds how many resolved entities contribute
	// aliases to the expanded query.
	maxExpandedEntities = 3
)

// ExpansionLayer is the optional enhancement around the hybrid engine:
// entity mentions in the query expand it with aliases before the legs run,
// and entity authority re-weights fused results afterward. Every failure
// path inside the layer falls back to the plain engine behaviour.
type ExpansionLayer struct {
	entities ports.EntityStore
	timeout  time.Duration
	logger   *slog.Logger
}

func NewExpansionLayer(entities ports.EntityStore, timeout time.Duration, logger *slog.Logger) *ExpansionLayer {
	if timeout <= 0 {
		timeout = defaultEntityTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExpansionLayer{entities: entities, timeout: timeout, logger: logger}
}

// ExpandQuery appends up to three resolved entities' canonical names and
// aliases as OR-terms. On resolver failure or timeout the original query is
// returned unchanged.
func (l *ExpansionLayer) ExpandQuery(ctx context.Context, query string) (string, bool) {
	mentions := detectEntityMentions(query)
	if len(mentions) == 0 {
		return query, false
	}

	resolveCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	entities, err := l.entities.ResolveMentions(resolveCtx, mentions)
	if err != nil {
		l.logger.Warn("entity_resolution_skipped", "mentions", mentions, "error", err)
		return query, false
	}
	if len(entities) > maxExpandedEntities {
		entities = entities[:maxExpandedEntities]
	}

	queryTokens := toTokenSet(query)
	var terms []string
	appendTerm := func(term string) {
		term = strings.TrimSpace(term)
		if term == "" {
			return
		}
		// Skip terms the query already contains.
		for token := range toTokenSet(term) {
			if _, ok := queryTokens[token]; !ok {
				terms = append(terms, term)
				return
			}
		}
	}
	for _, entity := range entities {
		appendTerm(entity.Name)
		for _, alias := range entity.Aliases {
			appendTerm(alias)
		}
	}
	if len(terms) == 0 {
		return query, false
	}

	return fmt.Sprintf("%s (%s)", query, strings.Join(terms, " OR ")), true
}

// BoostAuthority re-weights fused candidates whose documents co-occur with a
// high-authority entity. The boost is multiplicative, proportional to the
// authority score and capped at +20%. Lookup failure leaves scores untouched.
func (l *ExpansionLayer) BoostAuthority(ctx context.Context, candidates []fusedCandidate) {
	if len(candidates) == 0 {
		return
	}

	seen := make(map[string]struct{}, len(candidates))
	docIDs := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c.result.DocID]; ok {
			continue
		}
		seen[c.result.DocID] = struct{}{}
		docIDs = append(docIDs, c.result.DocID)
	}

	lookupCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	scores, err := l.entities.HighAuthorityDocs(lookupCtx, docIDs)
	if err != nil {
		l.logger.Warn("authority_boost_skipped", "error", err)
		return
	}

	for i := range candidates {
		authority, ok := scores[candidates[i].result.DocID]
		if !ok || authority <= domain.HighAuthorityThreshold {
			continue
		}
		boost := 1 + domain.MaxAuthorityBoost*authority
		if boost > 1+domain.MaxAuthorityBoost {
			boost = 1 + domain.MaxAuthorityBoost
		}
		candidates[i].result.Score *= boost
	}
}

// detectEntityMentions finds capitalized multi-word spans, the candidate
// entity names of the corpus (people, companies, technologies).
func detectEntityMentions(query string) []string {
	words := strings.Fields(query)

	var mentions []string
	var span []string
	flush := func() {
		if len(span) >= 2 {
			mentions = append(mentions, strings.Join(span, " "))
		}
		span = nil
	}

	for _, word := range words {
		cleaned := strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if cleaned == "" {
			flush()
			continue
		}
		first := []rune(cleaned)[0]
		if unicode.IsUpper(first) {
			span = append(span, cleaned)
			// Punctuation after the word ends the span.
			if strings.TrimRight(word, ".,;:!?") != word {
				flush()
			}
			continue
		}
		flush()
	}
	flush()
	return mentions
}
