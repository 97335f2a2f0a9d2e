package domain

import "fmt"

const (
	warnMinTokens = 100
	warnMaxTokens = 1500
)

type ChunkWarning struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// ChunkReport holds advisory findings and aggregate statistics for a chunk run.
type ChunkReport struct {
	Count       int            `json:"count"`
	TotalTokens int            `json:"total_tokens"`
	AvgTokens   float64        `json:"avg_tokens"`
	MinTokens   int            `json:"min_tokens"`
	MaxTokens   int            `json:"max_tokens"`
	Warnings    []ChunkWarning `json:"warnings,omitempty"`
}

// ValidateChunks reports quality warnings without failing: very small or very
// large chunks and missing section paths are worth surfacing, not rejecting.
func ValidateChunks(chunks []Chunk) ChunkReport {
	report := ChunkReport{Count: len(chunks)}
	if len(chunks) == 0 {
		return report
	}

	report.MinTokens = chunks[0].TokenCount
	for i, chunk := range chunks {
		report.TotalTokens += chunk.TokenCount
		if chunk.TokenCount < report.MinTokens {
			report.MinTokens = chunk.TokenCount
		}
		if chunk.TokenCount > report.MaxTokens {
			report.MaxTokens = chunk.TokenCount
		}

		if chunk.TokenCount < warnMinTokens {
			report.Warnings = append(report.Warnings, ChunkWarning{
				Index:  i,
				Reason: fmt.Sprintf("chunk has %d tokens, below %d", chunk.TokenCount, warnMinTokens),
			})
		}
		if chunk.TokenCount > warnMaxTokens {
			report.Warnings = append(report.Warnings, ChunkWarning{
				Index:  i,
				Reason: fmt.Sprintf("chunk has %d tokens, above %d", chunk.TokenCount, warnMaxTokens),
			})
		}
		if chunk.SectionPath == "" {
			report.Warnings = append(report.Warnings, ChunkWarning{
				Index:  i,
				Reason: "chunk has empty section path",
			})
		}
	}
	report.AvgTokens = float64(report.TotalTokens) / float64(len(chunks))
	return report
}
