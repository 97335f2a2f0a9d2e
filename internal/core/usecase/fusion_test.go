package usecase

import (
	"math"
	"testing"

	"github.com/davidgpt/david-gpt/internal/core/domain"
)

func TestFuseRRFKnownScores(t *testing.T) {
	// A: vector rank 1, lexical rank 2. B: vector rank 2, lexical rank 3.
	// C: vector rank 3, lexical rank 1.
	vector := []domain.Candidate{
		{ChunkID: "A", DocID: "d1", Score: 0.95},
		{ChunkID: "B", DocID: "d2", Score: 0.90},
		{ChunkID: "C", DocID: "d3", Score: 0.85},
	}
	lexical := []domain.Candidate{
		{ChunkID: "C", DocID: "d3", Score: 11.0},
		{ChunkID: "A", DocID: "d1", Score: 9.0},
		{ChunkID: "B", DocID: "d2", Score: 7.5},
	}

	fused := fuseRRF(vector, lexical, 60)
	if len(fused) != 3 {
		t.Fatalf("expected 3 fused candidates, got %d", len(fused))
	}

	scores := make(map[string]float64, 3)
	for _, c := range fused {
		scores[c.result.ChunkID] = c.result.Score
	}

	wantA := 1.0/61 + 1.0/62
	wantB := 1.0/62 + 1.0/63
	wantC := 1.0/63 + 1.0/61
	if math.Abs(scores["A"]-wantA) > 1e-9 {
		t.Fatalf("score(A) = %v, want %v", scores["A"], wantA)
	}
	if math.Abs(scores["B"]-wantB) > 1e-9 {
		t.Fatalf("score(B) = %v, want %v", scores["B"], wantB)
	}
	if math.Abs(scores["C"]-wantC) > 1e-9 {
		t.Fatalf("score(C) = %v, want %v", scores["C"], wantC)
	}
	// wantA > wantC > wantB.
	got := []string{fused[0].result.ChunkID, fused[1].result.ChunkID, fused[2].result.ChunkID}
	if got[0] != "A" || got[1] != "C" || got[2] != "B" {
		t.Fatalf("fused order = %v, want [A C B]", got)
	}
}

func TestFuseRRFPreservesComponentScores(t *testing.T) {
	vector := []domain.Candidate{{ChunkID: "A", DocID: "d1", Score: 0.91, Text: "vec text"}}
	lexical := []domain.Candidate{
		{ChunkID: "A", DocID: "d1", Score: 4.2},
		{ChunkID: "B", DocID: "d2", Score: 3.3, Text: "lex only"},
	}

	fused := fuseRRF(vector, lexical, 60)
	for _, c := range fused {
		switch c.result.ChunkID {
		case "A":
			if c.result.VectorScore != 0.91 || c.result.BM25Score != 4.2 {
				t.Fatalf("component scores lost: %+v", c.result)
			}
			if c.result.Text != "vec text" {
				t.Fatalf("expected text from first leg, got %q", c.result.Text)
			}
		case "B":
			if c.result.VectorScore != 0 {
				t.Fatalf("chunk absent from vector leg should have zero vector score, got %v", c.result.VectorScore)
			}
		}
	}
}

func TestFusionDeterministicTieBreak(t *testing.T) {
	// Same fused score for both; higher vector score wins, then lower chunk
	// id lexicographically.
	vector := []domain.Candidate{
		{ChunkID: "z-chunk", DocID: "d1", Score: 0.9},
	}
	lexical := []domain.Candidate{
		{ChunkID: "a-chunk", DocID: "d2", Score: 5.0},
	}

	for i := 0; i < 10; i++ {
		fused := fuseRRF(vector, lexical, 60)
		if len(fused) != 2 {
			t.Fatalf("expected 2 candidates, got %d", len(fused))
		}
		// Equal fused scores (both rank 1 in one leg): vector score decides.
		if fused[0].result.ChunkID != "z-chunk" {
			t.Fatalf("run %d: expected z-chunk first on vector score tie-break, got %s", i, fused[0].result.ChunkID)
		}
	}
}

func TestFusionTieBreakChunkIDWhenVectorEqual(t *testing.T) {
	candidates := []fusedCandidate{
		{result: domain.SearchResult{ChunkID: "b", Score: 0.5}},
		{result: domain.SearchResult{ChunkID: "a", Score: 0.5}},
	}
	sortCandidates(candidates)
	if candidates[0].result.ChunkID != "a" {
		t.Fatalf("expected lexicographic chunk id tie-break, got %s first", candidates[0].result.ChunkID)
	}
}

func TestApplyTagBoost(t *testing.T) {
	candidates := []fusedCandidate{
		{result: domain.SearchResult{ChunkID: "a", DocID: "d1", Score: 0.05}, docTags: []string{"holography"}},
		{result: domain.SearchResult{ChunkID: "b", DocID: "d2", Score: 0.05}, docTags: []string{"displays"}},
	}

	applyTagBoost(candidates, "glasses-free displays overview", 1.075)
	sortCandidates(candidates)

	if candidates[0].result.ChunkID != "b" {
		t.Fatalf("expected tagged chunk first, got %s", candidates[0].result.ChunkID)
	}
	if !candidates[0].result.TagBoostApplied {
		t.Fatalf("expected tag boost flag on boosted result")
	}
	if math.Abs(candidates[0].result.Score-0.05375) > 1e-9 {
		t.Fatalf("boosted score = %v, want 0.05375", candidates[0].result.Score)
	}
	if candidates[1].result.TagBoostApplied {
		t.Fatalf("unexpected tag boost on unmatched result")
	}
}

func TestApplyTagBoostCaseInsensitive(t *testing.T) {
	candidates := []fusedCandidate{
		{result: domain.SearchResult{ChunkID: "a", DocID: "d1", Score: 0.1}, docTags: []string{"Optics"}},
	}
	applyTagBoost(candidates, "latest OPTICS research", 1.2)
	if !candidates[0].result.TagBoostApplied {
		t.Fatalf("expected case-insensitive tag match")
	}
}

func TestCapPerDocument(t *testing.T) {
	candidates := []fusedCandidate{
		{result: domain.SearchResult{ChunkID: "a1", DocID: "d1", Score: 0.9}},
		{result: domain.SearchResult{ChunkID: "a2", DocID: "d1", Score: 0.8}},
		{result: domain.SearchResult{ChunkID: "b1", DocID: "d2", Score: 0.7}},
		{result: domain.SearchResult{ChunkID: "a3", DocID: "d1", Score: 0.6}},
		{result: domain.SearchResult{ChunkID: "a4", DocID: "d1", Score: 0.5}},
		{result: domain.SearchResult{ChunkID: "c1", DocID: "d3", Score: 0.4}},
	}

	capped := capPerDocument(candidates, 2)
	if len(capped) != 4 {
		t.Fatalf("expected 4 after cap, got %d", len(capped))
	}
	perDoc := map[string]int{}
	for i, c := range capped {
		perDoc[c.result.DocID]++
		if i > 0 && capped[i-1].result.Score < c.result.Score {
			t.Fatalf("cap broke relative order at %d", i)
		}
	}
	if perDoc["d1"] != 2 {
		t.Fatalf("doc d1 appears %d times, want 2", perDoc["d1"])
	}
}
