// Package mcp exposes the hybrid search corpus to MCP clients over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/davidgpt/david-gpt/internal/config"
	"github.com/davidgpt/david-gpt/internal/core/domain"
	"github.com/davidgpt/david-gpt/internal/core/ports"
)

const serverVersion = "0.1.0"

type Server struct {
	searcher ports.Searcher
	personas *config.PersonaRegistry
	mcp      *server.MCPServer
}

func NewServer(searcher ports.Searcher, personas *config.PersonaRegistry) *Server {
	s := &Server{
		searcher: searcher,
		personas: personas,
		mcp:      server.NewMCPServer("david-gpt", serverVersion, server.WithToolCapabilities(false)),
	}
	s.registerTools()
	return s
}

// ServeStdio blocks, serving MCP over stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	searchTool := mcp.NewTool("search_corpus",
		mcp.WithDescription("Hybrid semantic + keyword search over a persona's document corpus. Returns ranked chunks with source attribution."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural-language search query."),
		),
		mcp.WithString("persona_slug",
			mcp.Required(),
			mcp.Description("Which persona corpus to search."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default 10)."),
		),
	)
	s.mcp.AddTool(searchTool, s.handleSearchCorpus)

	personasTool := mcp.NewTool("list_personas",
		mcp.WithDescription("List the persona corpora available for searching."),
	)
	s.mcp.AddTool(personasTool, s.handleListPersonas)
}

type searchResultPayload struct {
	ChunkID     string  `json:"chunk_id"`
	DocID       string  `json:"doc_id"`
	DocTitle    string  `json:"doc_title"`
	SectionPath string  `json:"section_path"`
	Text        string  `json:"text"`
	Score       float64 `json:"score"`
	SourceURL   string  `json:"source_url,omitempty"`
}

type searchPayload struct {
	Results      []searchResultPayload `json:"results"`
	TotalFound   int                   `json:"total_found"`
	DegradedLegs []string              `json:"degraded_legs,omitempty"`
}

func (s *Server) handleSearchCorpus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	personaSlug, err := request.RequireString("persona_slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	persona, ok := s.personas.Get(personaSlug)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown persona %q", personaSlug)), nil
	}

	searchQuery := domain.SearchQuery{
		Query:          query,
		PersonaSlug:    persona.Slug,
		Limit:          request.GetInt("limit", 0),
		ExpandEntities: persona.ExpandEntities,
		AuthorityBoost: persona.ExpandEntities,
	}
	if persona.TagBoost > 0 {
		searchQuery.TagBoostMultiplier = persona.TagBoost
	}

	response, err := s.searcher.Search(ctx, searchQuery)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	payload := searchPayload{
		Results:      make([]searchResultPayload, 0, len(response.Results)),
		TotalFound:   response.TotalFound,
		DegradedLegs: response.DegradedLegs,
	}
	for _, result := range response.Results {
		payload.Results = append(payload.Results, searchResultPayload{
			ChunkID:     result.ChunkID,
			DocID:       result.DocID,
			DocTitle:    result.DocTitle,
			SectionPath: result.SectionPath,
			Text:        result.Text,
			Score:       result.Score,
			SourceURL:   result.SourceURL,
		})
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal search payload: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}

func (s *Server) handleListPersonas(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	type personaPayload struct {
		Slug        string `json:"slug"`
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
	}

	personas := make([]personaPayload, 0)
	for _, slug := range s.personas.Slugs() {
		p, _ := s.personas.Get(slug)
		personas = append(personas, personaPayload{
			Slug:        p.Slug,
			Name:        p.Name,
			Description: p.Description,
		})
	}

	raw, err := json.Marshal(map[string]any{"personas": personas})
	if err != nil {
		return nil, fmt.Errorf("marshal personas payload: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
