package chunking

import (
	"fmt"
	"strings"
)

type codeBlock struct {
	lang      string
	text      string
	startLine int
	endLine   int
}

const codePlaceholder = "[code block]"

// contextSnippetLimit bounds the prose context carried into a code chunk.
const contextSnippetLimit = 200

// extractCodeBlocks excises fenced code blocks from section content,
// replacing each with a placeholder so prose chunking never walks through
// code. Line numbers are 1-based offsets from baseLine.
func extractCodeBlocks(content string, baseLine int) (prose string, blocks []codeBlock) {
	lines := strings.Split(content, "\n")
	var proseLines []string
	var current []string
	var currentLang string
	var currentStart int
	inFence := false

	for i, raw := range lines {
		trimmed := strings.TrimSpace(raw)
		if strings.HasPrefix(trimmed, "```") {
			if inFence {
				blocks = append(blocks, codeBlock{
					lang:      currentLang,
					text:      strings.Join(current, "\n"),
					startLine: currentStart,
					endLine:   baseLine + i,
				})
				current = nil
				inFence = false
				proseLines = append(proseLines, codePlaceholder)
				continue
			}
			inFence = true
			currentLang = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
			currentStart = baseLine + i
			continue
		}
		if inFence {
			current = append(current, raw)
			continue
		}
		proseLines = append(proseLines, raw)
	}

	// Unterminated fence: treat the remainder as code rather than dropping it.
	if inFence && len(current) > 0 {
		blocks = append(blocks, codeBlock{
			lang:      currentLang,
			text:      strings.Join(current, "\n"),
			startLine: currentStart,
			endLine:   baseLine + len(lines) - 1,
		})
		proseLines = append(proseLines, codePlaceholder)
	}

	return strings.Join(proseLines, "\n"), blocks
}

// codeSectionPath suffixes the owning section path with a language marker so
// code chunks are identifiable downstream.
func codeSectionPath(sectionPath, lang string) string {
	if lang == "" {
		lang = "code"
	}
	return fmt.Sprintf("%s > [%s reference]", sectionPath, lang)
}

// contextSnippet returns up to limit characters from the start of the owning
// section's prose, cut at a word boundary.
func contextSnippet(prose string, limit int) string {
	trimmed := strings.TrimSpace(strings.ReplaceAll(prose, codePlaceholder, ""))
	if trimmed == "" {
		return ""
	}
	runes := []rune(trimmed)
	if len(runes) <= limit {
		return trimmed
	}
	cut := string(runes[:limit])
	if idx := strings.LastIndexAny(cut, " \n\t"); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut)
}
