// Package embedding batches chunk embedding across a bounded worker pool so
// large documents do not serialize on one backend call.
package embedding

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/davidgpt/david-gpt/internal/core/ports"
)

const defaultBatchSize = 16

// PooledEmbedder fans batches out over an ants pool and reassembles vectors
// in input order.
type PooledEmbedder struct {
	backend   ports.Embedder
	pool      *ants.Pool
	batchSize int
}

func NewPooledEmbedder(backend ports.Embedder, workers, batchSize int) (*PooledEmbedder, error) {
	if workers <= 0 {
		workers = 4
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create embedding pool: %w", err)
	}
	return &PooledEmbedder{backend: backend, pool: pool, batchSize: batchSize}, nil
}

func (p *PooledEmbedder) Release() {
	p.pool.Release()
}

func (p *PooledEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if len(texts) <= p.batchSize {
		return p.backend.Embed(ctx, texts)
	}

	type batch struct {
		start int
		texts []string
	}

	var batches []batch
	for start := 0; start < len(texts); start += p.batchSize {
		end := start + p.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batches = append(batches, batch{start: start, texts: texts[start:end]})
	}

	vectors := make([][]float32, len(texts))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, b := range batches {
		b := b
		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()

			mu.Lock()
			failed := firstErr != nil
			mu.Unlock()
			if failed || ctx.Err() != nil {
				return
			}

			batchVectors, err := p.backend.Embed(ctx, b.texts)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("embed batch at %d: %w", b.start, err)
				}
				mu.Unlock()
				return
			}
			for i, v := range batchVectors {
				vectors[b.start+i] = v
			}
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = fmt.Errorf("submit embed batch: %w", submitErr)
			}
			mu.Unlock()
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return vectors, nil
}

func (p *PooledEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return p.backend.EmbedQuery(ctx, text)
}
