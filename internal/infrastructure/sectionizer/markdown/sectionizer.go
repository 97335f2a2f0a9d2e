// Package markdown splits normalised document text into heading-delimited
// sections. Headings are located via the goldmark AST, so hash marks inside
// fenced code blocks are never mistaken for structure.
package markdown

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"

	"github.com/davidgpt/david-gpt/internal/core/domain"
)

// preambleHeading labels text that has no heading of its own (a document
// without headings, or a preamble before the first one), so every content
// chunk downstream carries a non-empty section path.
const preambleHeading = "Introduction"

type Sectionizer struct {
	md goldmark.Markdown
}

func New() *Sectionizer {
	return &Sectionizer{md: goldmark.New()}
}

type headingMark struct {
	depth int
	text  string
	line  int
}

func (s *Sectionizer) Sectionize(text string) []domain.Section {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	source := []byte(text)
	doc := s.md.Parser().Parse(gmtext.NewReader(source))
	lineStarts := buildLineStarts(source)
	lines := strings.Split(text, "\n")

	var marks []headingMark
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		if heading.Lines().Len() == 0 {
			return ast.WalkSkipChildren, nil
		}
		segment := heading.Lines().At(0)
		marks = append(marks, headingMark{
			depth: heading.Level,
			text:  headingText(heading, source),
			line:  offsetToLine(lineStarts, segment.Start),
		})
		return ast.WalkSkipChildren, nil
	})

	if len(marks) == 0 {
		return []domain.Section{{
			Depth:     0,
			Heading:   preambleHeading,
			Content:   strings.TrimRight(text, "\n"),
			StartLine: 1,
			EndLine:   len(lines),
		}}
	}

	var sections []domain.Section

	// Preamble before the first heading.
	if marks[0].line > 1 {
		content := joinTrimmed(lines[:marks[0].line-1])
		if content != "" {
			sections = append(sections, domain.Section{
				Depth:     0,
				Heading:   preambleHeading,
				Content:   content,
				StartLine: 1,
				EndLine:   marks[0].line - 1,
			})
		}
	}

	for i, mark := range marks {
		contentStart := mark.line + 1
		contentEnd := len(lines)
		if i+1 < len(marks) {
			contentEnd = marks[i+1].line - 1
		}

		var content string
		if contentStart <= contentEnd {
			content = joinTrimmed(lines[contentStart-1 : contentEnd])
		}
		sections = append(sections, domain.Section{
			Depth:     mark.depth,
			Heading:   mark.text,
			Content:   content,
			StartLine: mark.line,
			EndLine:   contentEnd,
		})
	}
	return sections
}

func headingText(heading *ast.Heading, source []byte) string {
	var sb strings.Builder
	for child := heading.FirstChild(); child != nil; child = child.NextSibling() {
		if textNode, ok := child.(*ast.Text); ok {
			sb.Write(textNode.Segment.Value(source))
		}
	}
	return strings.TrimSpace(sb.String())
}

// buildLineStarts returns the byte offset of each line start, for mapping
// goldmark segments back to 1-based line numbers.
func buildLineStarts(source []byte) []int {
	starts := []int{0}
	for i, b := range source {
		if b == '\n' && i+1 < len(source) {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func offsetToLine(lineStarts []int, offset int) int {
	lo, hi := 0, len(lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo + 1
}

func joinTrimmed(lines []string) string {
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
