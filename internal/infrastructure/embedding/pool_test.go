package embedding

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
)

// indexEmbedder encodes the numeric suffix of each text into its vector so
// ordering survives concurrent batching.
type indexEmbedder struct {
	calls atomic.Int64
	fail  bool
}

func (e *indexEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	if e.fail {
		return nil, errors.New("backend down")
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		n, err := strconv.Atoi(strings.TrimPrefix(text, "text-"))
		if err != nil {
			return nil, err
		}
		out[i] = []float32{float32(n)}
	}
	return out, nil
}

func (e *indexEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return []float32{42}, nil
}

func TestPooledEmbedPreservesOrder(t *testing.T) {
	backend := &indexEmbedder{}
	pooled, err := NewPooledEmbedder(backend, 4, 8)
	if err != nil {
		t.Fatalf("NewPooledEmbedder: %v", err)
	}
	defer pooled.Release()

	texts := make([]string, 50)
	for i := range texts {
		texts[i] = fmt.Sprintf("text-%d", i)
	}

	vectors, err := pooled.Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vectors) != 50 {
		t.Fatalf("vectors = %d, want 50", len(vectors))
	}
	for i, v := range vectors {
		if len(v) != 1 || v[0] != float32(i) {
			t.Fatalf("vectors[%d] = %v, want [%d]", i, v, i)
		}
	}
	if got := backend.calls.Load(); got != 7 {
		t.Errorf("backend calls = %d, want 7 batches of 8", got)
	}
}

func TestPooledEmbedSmallInputSkipsPool(t *testing.T) {
	backend := &indexEmbedder{}
	pooled, err := NewPooledEmbedder(backend, 4, 8)
	if err != nil {
		t.Fatalf("NewPooledEmbedder: %v", err)
	}
	defer pooled.Release()

	vectors, err := pooled.Embed(context.Background(), []string{"text-0", "text-1"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("vectors = %d, want 2", len(vectors))
	}
	if got := backend.calls.Load(); got != 1 {
		t.Errorf("backend calls = %d, want 1", got)
	}
}

func TestPooledEmbedPropagatesBackendError(t *testing.T) {
	backend := &indexEmbedder{fail: true}
	pooled, err := NewPooledEmbedder(backend, 2, 4)
	if err != nil {
		t.Fatalf("NewPooledEmbedder: %v", err)
	}
	defer pooled.Release()

	texts := make([]string, 20)
	for i := range texts {
		texts[i] = fmt.Sprintf("text-%d", i)
	}
	if _, err := pooled.Embed(context.Background(), texts); err == nil {
		t.Fatal("expected backend error")
	}
}

func TestPooledEmbedQueryDelegates(t *testing.T) {
	backend := &indexEmbedder{}
	pooled, err := NewPooledEmbedder(backend, 2, 4)
	if err != nil {
		t.Fatalf("NewPooledEmbedder: %v", err)
	}
	defer pooled.Release()

	vector, err := pooled.EmbedQuery(context.Background(), "pump seal")
	if err != nil {
		t.Fatalf("EmbedQuery: %v", err)
	}
	if len(vector) != 1 || vector[0] != 42 {
		t.Fatalf("vector = %v", vector)
	}
}
