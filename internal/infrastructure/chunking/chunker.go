// Package chunking turns sectioned document text into token-budgeted
// retrieval chunks. Chunk boundaries respect sentence boundaries, adjacent
// chunks of the same prose region share a sentence overlap, and fenced code
// blocks are isolated into their own reference chunks.
package chunking

import (
	"strings"

	"github.com/davidgpt/david-gpt/internal/core/domain"
)

type SemanticChunker struct {
	counter TokenCounter
}

func NewSemanticChunker(counter TokenCounter) *SemanticChunker {
	return &SemanticChunker{counter: counter}
}

// logicalSection is one chunkable region after small-section merging: a
// heading trail, prose sentences, and any code blocks excised from it.
type logicalSection struct {
	path      string
	prose     string
	sentences []sentence
	code      []codeBlock
	startLine int
	endLine   int
}

// ChunkDocument produces the ordered chunk sequence for one document. When
// metadata is supplied the synthetic metadata chunk comes first. The final
// chunk of a region may fall under the minimum budget; code chunks always
// may.
func (c *SemanticChunker) ChunkDocument(
	sections []domain.Section,
	cfg domain.ChunkConfig,
	meta *domain.DocumentMetadata,
) ([]domain.Chunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var out []domain.Chunk
	if meta != nil {
		out = append(out, RenderMetadataChunk(c.counter, *meta))
	}

	for _, section := range c.mergeSections(sections, cfg) {
		out = append(out, c.chunkSection(section, cfg)...)
	}
	return out, nil
}

// mergeSections greedily folds runs of adjacent small sections (cumulative
// tokens under the minimum budget) into one logical section under the
// shallowest heading, so short-sectioned documents do not explode into
// sub-minimum chunks.
func (c *SemanticChunker) mergeSections(sections []domain.Section, cfg domain.ChunkConfig) []logicalSection {
	paths := sectionPaths(sections)

	var merged []logicalSection
	var pending *logicalSection
	pendingTokens := 0
	pendingDepth := 0

	flush := func() {
		if pending != nil {
			merged = append(merged, *pending)
			pending = nil
			pendingTokens = 0
		}
	}

	for i, section := range sections {
		prose, code := extractCodeBlocks(section.Content, section.StartLine)
		sentences := splitSentences(prose, section.StartLine, c.counter)
		tokens := sumTokens(sentences)

		if pending == nil {
			pending = &logicalSection{
				path:      paths[i],
				prose:     prose,
				sentences: sentences,
				code:      code,
				startLine: section.StartLine,
				endLine:   section.EndLine,
			}
			pendingTokens = tokens
			pendingDepth = section.Depth
		} else {
			if section.Depth < pendingDepth {
				pending.path = paths[i]
				pendingDepth = section.Depth
			}
			pending.prose += "\n\n" + prose
			pending.sentences = append(pending.sentences, sentences...)
			pending.code = append(pending.code, code...)
			pending.endLine = section.EndLine
			pendingTokens += tokens
		}

		if pendingTokens >= cfg.TargetMinTokens {
			flush()
		}
	}
	flush()
	return merged
}

// chunkSection packs one logical section's sentences into token windows,
// then emits its code blocks as standalone reference chunks.
func (c *SemanticChunker) chunkSection(section logicalSection, cfg domain.ChunkConfig) []domain.Chunk {
	var out []domain.Chunk

	var window []sentence
	windowTokens := 0
	var prevWindow []sentence

	emit := func() {
		if len(window) == 0 {
			return
		}
		out = append(out, c.buildChunk(window, section.path))
		prevWindow = window
		window = nil
		windowTokens = 0
	}

	for _, s := range section.sentences {
		// A sentence that alone exceeds the max budget becomes its own
		// oversized chunk; splitting mid-sentence is worse than overflowing.
		if s.tokens > cfg.TargetMaxTokens && len(window) == 0 {
			window = c.seedOverlap(prevWindow, cfg)
			window = append(window, s)
			emit()
			continue
		}

		if windowTokens+s.tokens > cfg.TargetMaxTokens && len(window) > 0 {
			emit()
		}
		if len(window) == 0 {
			window = c.seedOverlap(prevWindow, cfg)
			windowTokens = sumTokens(window)
			// Overlap is a courtesy, the max budget is the contract: shed
			// seeded sentences until the incoming one fits beside them.
			for len(window) > 0 && windowTokens+s.tokens > cfg.TargetMaxTokens {
				windowTokens -= window[0].tokens
				window = window[1:]
			}
		}
		window = append(window, s)
		windowTokens += s.tokens
	}
	emit()

	for _, block := range section.code {
		out = append(out, c.buildCodeChunk(block, section))
	}
	return out
}

// seedOverlap copies the trailing sentences of the previous chunk into a new
// window so adjacent chunks of the same prose region share context.
func (c *SemanticChunker) seedOverlap(prev []sentence, cfg domain.ChunkConfig) []sentence {
	return overlapTail(prev, cfg.OverlapTokenBudget())
}

func (c *SemanticChunker) buildChunk(sentences []sentence, path string) domain.Chunk {
	text := joinSentences(sentences)
	start := sentences[0].startLine
	end := sentences[0].endLine
	for _, s := range sentences[1:] {
		if s.startLine < start {
			start = s.startLine
		}
		if s.endLine > end {
			end = s.endLine
		}
	}
	return domain.Chunk{
		Text:        text,
		SectionPath: path,
		TokenCount:  c.counter.Count(text),
		StartLine:   start,
		EndLine:     end,
	}
}

func (c *SemanticChunker) buildCodeChunk(block codeBlock, section logicalSection) domain.Chunk {
	var b strings.Builder
	if snippet := contextSnippet(section.prose, contextSnippetLimit); snippet != "" {
		b.WriteString(snippet)
		b.WriteString("\n\n")
	}
	b.WriteString(block.text)
	text := b.String()

	return domain.Chunk{
		Text:        text,
		SectionPath: codeSectionPath(section.path, block.lang),
		TokenCount:  c.counter.Count(text),
		StartLine:   block.startLine,
		EndLine:     block.endLine,
	}
}

// sectionPaths builds the ">"-joined ancestor heading trail for every
// section by tracking the heading stack across depths.
func sectionPaths(sections []domain.Section) []string {
	paths := make([]string, len(sections))
	type level struct {
		depth   int
		heading string
	}
	var stack []level

	for i, section := range sections {
		// Depth-0 sections (preamble, heading-less documents) stand alone,
		// they never become ancestors of real headings.
		if section.Depth == 0 {
			paths[i] = strings.TrimSpace(section.Heading)
			stack = stack[:0]
			continue
		}

		for len(stack) > 0 && stack[len(stack)-1].depth >= section.Depth {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, level{depth: section.Depth, heading: strings.TrimSpace(section.Heading)})

		parts := make([]string, 0, len(stack))
		for _, l := range stack {
			if l.heading != "" {
				parts = append(parts, l.heading)
			}
		}
		paths[i] = strings.Join(parts, " > ")
	}
	return paths
}
