package chunking

import (
	"strings"
	"unicode"
)

type sentence struct {
	text      string
	tokens    int
	startLine int
	endLine   int
}

// splitSentences breaks text into sentences on terminal punctuation (. ! ?)
// followed by whitespace. Line numbers are 1-based offsets from baseLine.
// Sentences are trimmed; interior newlines are preserved so line accounting
// stays honest.
func splitSentences(text string, baseLine int, counter TokenCounter) []sentence {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	out := make([]sentence, 0, 16)
	line := baseLine
	segStart := 0
	segStartLine := baseLine

	flush := func(end int, endLine int) {
		raw := string(runes[segStart:end])
		trimmed := strings.TrimSpace(raw)
		if trimmed != "" {
			out = append(out, sentence{
				text:      trimmed,
				tokens:    counter.Count(trimmed),
				startLine: segStartLine,
				endLine:   endLine,
			})
		}
		segStart = end
		segStartLine = endLine
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\n' {
			line++
			continue
		}
		if isTerminal(r) && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			flush(i+1, line)
		}
	}
	flush(len(runes), line)

	return out
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func joinSentences(sentences []sentence) string {
	parts := make([]string, len(sentences))
	for i, s := range sentences {
		parts[i] = s.text
	}
	return strings.Join(parts, " ")
}

func sumTokens(sentences []sentence) int {
	total := 0
	for _, s := range sentences {
		total += s.tokens
	}
	return total
}

// overlapTail walks backward through whole sentences of the previous chunk
// until the token budget is met or a single sentence is taken. A lone
// oversized sentence is accepted as-is rather than split.
func overlapTail(prev []sentence, budget int) []sentence {
	if budget <= 0 || len(prev) == 0 {
		return nil
	}
	taken := 0
	start := len(prev)
	for start > 0 {
		next := prev[start-1].tokens
		if taken > 0 && taken+next > budget {
			break
		}
		start--
		taken += next
		if taken >= budget {
			break
		}
	}
	tail := make([]sentence, len(prev)-start)
	copy(tail, prev[start:])
	return tail
}
