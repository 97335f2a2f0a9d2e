package chunking

import (
	"github.com/pkoukk/tiktoken-go"

	"github.com/davidgpt/david-gpt/internal/core/domain"
)

// TokenCounter maps text to a token count under a fixed tokenization scheme.
// Implementations must be safe for concurrent use within a worker.
type TokenCounter interface {
	Count(text string) int
}

// TiktokenCounter wraps a tiktoken encoder. The encoder is expensive to
// construct; create one per worker and reuse it across documents.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTokenCounter builds a counter for the given model's encoding. Failure is
// fatal for chunking since token budgets cannot be evaluated without it.
func NewTokenCounter(model string) (*TiktokenCounter, error) {
	if model == "" {
		model = domain.DefaultTokenizerModel
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTokenizer, "init token counter", err)
	}
	return &TiktokenCounter{enc: enc}, nil
}

func (c *TiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.enc.Encode(text, nil, nil))
}
