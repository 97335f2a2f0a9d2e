package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/davidgpt/david-gpt/internal/config"
	"github.com/davidgpt/david-gpt/internal/core/domain"
)

type searcherFake struct {
	lastQuery domain.SearchQuery
	response  *domain.SearchResponse
	err       error
}

func (f *searcherFake) Search(ctx context.Context, query domain.SearchQuery) (*domain.SearchResponse, error) {
	f.lastQuery = query
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func testPersonas(t *testing.T) *config.PersonaRegistry {
	t.Helper()
	registry, err := config.ParsePersonas([]byte(`
personas:
  - slug: david
    name: David
    description: Engineering corpus
`))
	if err != nil {
		t.Fatalf("ParsePersonas: %v", err)
	}
	return registry
}

func callRequest(name string, args map[string]any) mcplib.CallToolRequest {
	req := mcplib.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := result.Content[0].(mcplib.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", result.Content[0])
	}
	return text.Text
}

func TestSearchCorpusReturnsRankedResults(t *testing.T) {
	searcher := &searcherFake{response: &domain.SearchResponse{
		Results: []domain.SearchResult{
			{ChunkID: "doc-1:0", DocID: "doc-1", DocTitle: "Pump Guide", SectionPath: "Maintenance", Text: "Replace the seal.", Score: 0.032},
		},
		TotalFound: 1,
	}}
	server := NewServer(searcher, testPersonas(t))

	result, err := server.handleSearchCorpus(context.Background(), callRequest("search_corpus", map[string]any{
		"query":        "pump seal",
		"persona_slug": "david",
		"limit":        5,
	}))
	if err != nil {
		t.Fatalf("handleSearchCorpus: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", resultText(t, result))
	}

	var payload searchPayload
	if err := json.Unmarshal([]byte(resultText(t, result)), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.TotalFound != 1 || len(payload.Results) != 1 {
		t.Fatalf("payload = %+v", payload)
	}
	if payload.Results[0].ChunkID != "doc-1:0" {
		t.Errorf("chunk id = %q", payload.Results[0].ChunkID)
	}
	if searcher.lastQuery.Limit != 5 || searcher.lastQuery.PersonaSlug != "david" {
		t.Errorf("query = %+v", searcher.lastQuery)
	}
}

func TestSearchCorpusUnknownPersonaIsToolError(t *testing.T) {
	server := NewServer(&searcherFake{}, testPersonas(t))

	result, err := server.handleSearchCorpus(context.Background(), callRequest("search_corpus", map[string]any{
		"query":        "anything",
		"persona_slug": "nobody",
	}))
	if err != nil {
		t.Fatalf("handleSearchCorpus: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for unknown persona")
	}
}

func TestSearchCorpusMissingQueryIsToolError(t *testing.T) {
	server := NewServer(&searcherFake{}, testPersonas(t))

	result, err := server.handleSearchCorpus(context.Background(), callRequest("search_corpus", map[string]any{
		"persona_slug": "david",
	}))
	if err != nil {
		t.Fatalf("handleSearchCorpus: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for missing query")
	}
}

func TestListPersonas(t *testing.T) {
	server := NewServer(&searcherFake{}, testPersonas(t))

	result, err := server.handleListPersonas(context.Background(), callRequest("list_personas", nil))
	if err != nil {
		t.Fatalf("handleListPersonas: %v", err)
	}
	text := resultText(t, result)
	if !strings.Contains(text, `"slug":"david"`) {
		t.Errorf("payload missing persona: %s", text)
	}
}
