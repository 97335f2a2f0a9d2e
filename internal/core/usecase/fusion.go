package usecase

import (
	"sort"
	"strings"
	"unicode"

	"github.com/davidgpt/david-gpt/internal/core/domain"
)

// fusedCandidate pairs a result under construction with the owning
// document's tags, which are needed for boosting but not returned.
type fusedCandidate struct {
	result  domain.SearchResult
	docTags []string
}

// fuseRRF combines the two legs' candidate lists by reciprocal rank:
// 1/(rank+k) per leg, summed. Rank-based fusion means the legs' incompatible
// score scales never need calibration against each other. Component scores
// are preserved on the result for explainability.
func fuseRRF(vector, lexical []domain.Candidate, rrfK int) []fusedCandidate {
	if rrfK <= 0 {
		rrfK = domain.DefaultRRFK
	}

	acc := make(map[string]*fusedCandidate, len(vector)+len(lexical))

	merge := func(c domain.Candidate) *fusedCandidate {
		entry, ok := acc[c.ChunkID]
		if !ok {
			entry = &fusedCandidate{}
			acc[c.ChunkID] = entry
		}
		fillCandidate(entry, c)
		return entry
	}

	for rank, c := range vector {
		entry := merge(c)
		entry.result.VectorScore = c.Score
		entry.result.Score += 1.0 / float64(rrfK+rank+1)
	}
	for rank, c := range lexical {
		entry := merge(c)
		entry.result.BM25Score = c.Score
		entry.result.Score += 1.0 / float64(rrfK+rank+1)
	}

	out := make([]fusedCandidate, 0, len(acc))
	for _, entry := range acc {
		out = append(out, *entry)
	}
	sortCandidates(out)
	return out
}

// fillCandidate copies candidate fields onto the entry, preferring whichever
// leg supplied a value first; legs may return sparser payloads than others.
func fillCandidate(entry *fusedCandidate, c domain.Candidate) {
	r := &entry.result
	if r.ChunkID == "" {
		r.ChunkID = c.ChunkID
	}
	if r.DocID == "" {
		r.DocID = c.DocID
	}
	if r.SectionPath == "" {
		r.SectionPath = c.SectionPath
	}
	if r.Text == "" {
		r.Text = c.Text
	}
	if r.DocTitle == "" {
		r.DocTitle = c.DocTitle
	}
	if r.DocType == "" {
		r.DocType = c.DocType
	}
	if r.SourceURL == "" {
		r.SourceURL = c.SourceURL
	}
	if len(entry.docTags) == 0 {
		entry.docTags = c.DocTags
	}
}

// sortCandidates orders by fused score with a total tie-break (higher vector
// score, then lower chunk id) so identical queries always produce identical
// orderings.
func sortCandidates(candidates []fusedCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i].result, candidates[j].result
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.VectorScore != b.VectorScore {
			return a.VectorScore > b.VectorScore
		}
		return a.ChunkID < b.ChunkID
	})
}

// applyTagBoost multiplies the fused score when the owning document's tags
// intersect the query terms (exact case-insensitive token match).
func applyTagBoost(candidates []fusedCandidate, query string, multiplier float64) {
	if multiplier <= 1 {
		return
	}
	queryTokens := toTokenSet(query)
	if len(queryTokens) == 0 {
		return
	}
	for i := range candidates {
		for _, tag := range candidates[i].docTags {
			if _, ok := queryTokens[strings.ToLower(tag)]; ok {
				candidates[i].result.Score *= multiplier
				candidates[i].result.TagBoostApplied = true
				break
			}
		}
	}
}

// capPerDocument greedily keeps at most maxPerDoc candidates per document,
// preserving relative order, so one chunk-rich document cannot crowd out the
// rest of the result window.
func capPerDocument(candidates []fusedCandidate, maxPerDoc int) []fusedCandidate {
	if maxPerDoc <= 0 {
		return candidates
	}
	perDoc := make(map[string]int, len(candidates))
	out := candidates[:0:0]
	for _, c := range candidates {
		if perDoc[c.result.DocID] >= maxPerDoc {
			continue
		}
		perDoc[c.result.DocID]++
		out = append(out, c)
	}
	return out
}

func toTokenSet(s string) map[string]struct{} {
	tokens := splitAlphaNumLower(s)
	out := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		out[token] = struct{}{}
	}
	return out
}

func splitAlphaNumLower(s string) []string {
	if s == "" {
		return nil
	}
	tokens := make([]string, 0, 16)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}
