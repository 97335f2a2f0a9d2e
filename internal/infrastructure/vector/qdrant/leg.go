package qdrant

import (
	"context"
	"fmt"

	"github.com/davidgpt/david-gpt/internal/core/domain"
	"github.com/davidgpt/david-gpt/internal/core/ports"
)

// VectorLeg is the semantic retrieval leg: embed the query, search the
// persona's collection slice by cosine similarity.
type VectorLeg struct {
	client   *Client
	embedder ports.Embedder
}

func NewVectorLeg(client *Client, embedder ports.Embedder) *VectorLeg {
	return &VectorLeg{client: client, embedder: embedder}
}

func (l *VectorLeg) Name() string { return "vector" }

func (l *VectorLeg) Retrieve(ctx context.Context, query domain.LegQuery) ([]domain.Candidate, error) {
	vector, err := l.embedder.EmbedQuery(ctx, query.Text)
	if err != nil {
		return nil, domain.WrapError(domain.ErrLegUnavailable, "vector leg", fmt.Errorf("embed query: %w", err))
	}
	candidates, err := l.client.Search(ctx, vector, query.PersonaSlug, query.Limit, query.MinScore)
	if err != nil {
		return nil, domain.WrapError(domain.ErrLegUnavailable, "vector leg", err)
	}
	return candidates, nil
}
