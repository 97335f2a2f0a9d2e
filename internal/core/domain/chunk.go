package domain

import "fmt"

// MetadataChunkIndex is the reserved chunk index for the synthetic metadata
// chunk so it never collides with content chunk indices.
const MetadataChunkIndex = -1

// MetadataSectionPath labels the synthetic metadata chunk.
const MetadataSectionPath = "Metadata"

// ChunkID is the stable identity of a persisted chunk, shared by the vector
// index and the lexical store so fusion can match hits across legs.
func ChunkID(docID string, index int) string {
	return fmt.Sprintf("%s:%d", docID, index)
}

// Chunk is one retrieval-sized unit of document text. Chunks are built once
// per ingestion run and never mutated; re-ingestion supersedes them.
type Chunk struct {
	Text        string `json:"text"`
	SectionPath string `json:"section_path"`
	TokenCount  int    `json:"token_count"`
	StartLine   int    `json:"start_line"`
	EndLine     int    `json:"end_line"`
}

// ChunkConfig is the size policy for the semantic chunker. It is passed by
// value; concurrent ingestion workers never share mutable chunking state.
type ChunkConfig struct {
	TargetMinTokens int
	TargetMaxTokens int
	OverlapPercent  float64
	TokenizerModel  string
}

const (
	DefaultTargetMinTokens = 800
	DefaultTargetMaxTokens = 1200
	DefaultOverlapPercent  = 0.175
	DefaultTokenizerModel  = "text-embedding-3-small"
)

func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		TargetMinTokens: DefaultTargetMinTokens,
		TargetMaxTokens: DefaultTargetMaxTokens,
		OverlapPercent:  DefaultOverlapPercent,
		TokenizerModel:  DefaultTokenizerModel,
	}
}

func (c ChunkConfig) Validate() error {
	if c.TargetMinTokens <= 0 {
		return WrapError(ErrInvalidInput, "chunk config", fmt.Errorf("target min tokens must be positive, got %d", c.TargetMinTokens))
	}
	if c.TargetMaxTokens <= c.TargetMinTokens {
		return WrapError(ErrInvalidInput, "chunk config", fmt.Errorf("target max tokens (%d) must exceed target min tokens (%d)", c.TargetMaxTokens, c.TargetMinTokens))
	}
	if c.OverlapPercent < 0 || c.OverlapPercent >= 1 {
		return WrapError(ErrInvalidInput, "chunk config", fmt.Errorf("overlap percent must be in [0,1), got %g", c.OverlapPercent))
	}
	return nil
}

// OverlapTokenBudget is the target size of the sentence overlap carried
// between adjacent chunks of the same prose region.
func (c ChunkConfig) OverlapTokenBudget() int {
	return int(c.OverlapPercent * float64(c.TargetMaxTokens))
}
