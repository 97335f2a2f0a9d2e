package usecase

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/davidgpt/david-gpt/internal/core/domain"
)

func TestDetectEntityMentions(t *testing.T) {
	cases := []struct {
		query string
		want  []string
	}{
		{"how does Diffractive Lightfield Backlighting work", []string{"Diffractive Lightfield Backlighting"}},
		{"compare Leia Inc and Sony Corporation panels", []string{"Leia Inc", "Sony Corporation"}},
		{"plain lowercase query", nil},
		{"Single capital word", nil},
		{"", nil},
	}
	for _, tc := range cases {
		got := detectEntityMentions(tc.query)
		if len(got) != len(tc.want) {
			t.Fatalf("detectEntityMentions(%q) = %v, want %v", tc.query, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("detectEntityMentions(%q) = %v, want %v", tc.query, got, tc.want)
			}
		}
	}
}

func TestExpandQueryAppendsAliases(t *testing.T) {
	store := &entityStoreFake{entities: []domain.Entity{
		{Name: "Leia Incorporated", Aliases: []string{"Leia Display Systems", "LDS"}},
	}}
	layer := NewExpansionLayer(store, 0, nil)

	expanded, ok := layer.ExpandQuery(context.Background(), "displays from David Fattal")
	if !ok {
		t.Fatalf("expected expansion")
	}
	if !strings.Contains(expanded, " OR ") {
		t.Fatalf("expected OR-terms in expanded query: %q", expanded)
	}
	if !strings.HasPrefix(expanded, "displays from David Fattal") {
		t.Fatalf("original query must be preserved: %q", expanded)
	}
}

func TestExpandQueryCapsEntities(t *testing.T) {
	store := &entityStoreFake{entities: []domain.Entity{
		{Name: "Alpha Systems"},
		{Name: "Beta Systems"},
		{Name: "Gamma Systems"},
		{Name: "Delta Systems"},
	}}
	layer := NewExpansionLayer(store, 0, nil)

	expanded, ok := layer.ExpandQuery(context.Background(), "about Quantum Photonics research")
	if !ok {
		t.Fatalf("expected expansion")
	}
	if strings.Contains(expanded, "Delta Systems") {
		t.Fatalf("expected at most 3 entities expanded: %q", expanded)
	}
}

func TestExpandQueryNoMentions(t *testing.T) {
	store := &entityStoreFake{}
	layer := NewExpansionLayer(store, 0, nil)

	expanded, ok := layer.ExpandQuery(context.Background(), "plain query text")
	if ok || expanded != "plain query text" {
		t.Fatalf("expected passthrough, got %q ok=%v", expanded, ok)
	}
	if store.gotMentions != nil {
		t.Fatalf("resolver should not be called without mentions")
	}
}

func TestBoostAuthorityAppliesCappedBoost(t *testing.T) {
	store := &entityStoreFake{authority: map[string]float64{
		"d-high": 0.95,
		"d-low":  0.5,
	}}
	layer := NewExpansionLayer(store, 0, nil)

	candidates := []fusedCandidate{
		{result: domain.SearchResult{ChunkID: "a", DocID: "d-high", Score: 0.10}},
		{result: domain.SearchResult{ChunkID: "b", DocID: "d-low", Score: 0.10}},
		{result: domain.SearchResult{ChunkID: "c", DocID: "d-none", Score: 0.10}},
	}
	layer.BoostAuthority(context.Background(), candidates)

	want := 0.10 * (1 + 0.20*0.95)
	if math.Abs(candidates[0].result.Score-want) > 1e-9 {
		t.Fatalf("high-authority score = %v, want %v", candidates[0].result.Score, want)
	}
	if candidates[0].result.Score > 0.10*1.2+1e-9 {
		t.Fatalf("boost exceeds +20%% cap: %v", candidates[0].result.Score)
	}
	if candidates[1].result.Score != 0.10 {
		t.Fatalf("sub-threshold authority must not boost, got %v", candidates[1].result.Score)
	}
	if candidates[2].result.Score != 0.10 {
		t.Fatalf("unknown doc must not boost, got %v", candidates[2].result.Score)
	}
}

func TestBoostAuthorityLookupFailureLeavesScores(t *testing.T) {
	store := &entityStoreFake{authorityErr: errors.New("graph down")}
	layer := NewExpansionLayer(store, 0, nil)

	candidates := []fusedCandidate{
		{result: domain.SearchResult{ChunkID: "a", DocID: "d1", Score: 0.3}},
	}
	layer.BoostAuthority(context.Background(), candidates)
	if candidates[0].result.Score != 0.3 {
		t.Fatalf("score changed despite lookup failure: %v", candidates[0].result.Score)
	}
}
