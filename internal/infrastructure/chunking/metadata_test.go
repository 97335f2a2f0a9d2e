package chunking

import (
	"strings"
	"testing"

	"github.com/davidgpt/david-gpt/internal/core/domain"
)

func fullMetadata() domain.DocumentMetadata {
	return domain.DocumentMetadata{
		ID:      "doc-42",
		Title:   "Multiview Display Backlight",
		DocType: "patent",
		Date:    "2019-03-14",
		Summary: "A diffractive backlight for glasses-free 3D displays.",
		Tags:    []string{"displays", "optics"},
		KeyTerms: []string{
			"diffractive lightfield backlighting",
			"multiview",
		},
		Aliases: []string{"DLB patent"},
		Identifiers: map[string]string{
			"patent_number":      "US10830939",
			"application_number": "15/902,384",
		},
		Dates: map[string]string{
			"filed":   "2018-02-22",
			"granted": "2020-11-10",
		},
		Actors: []domain.Actor{
			{Name: "D. Fattal", Role: "inventor"},
			{Name: "LEIA Inc", Role: "assignee"},
		},
	}
}

func TestRenderMetadataChunkDeterministic(t *testing.T) {
	meta := fullMetadata()
	first := RenderMetadataChunk(wordCounter{}, meta)
	second := RenderMetadataChunk(wordCounter{}, meta)
	if first.Text != second.Text {
		t.Fatalf("metadata render is not byte-stable:\n%q\n%q", first.Text, second.Text)
	}
	if first.SectionPath != domain.MetadataSectionPath {
		t.Fatalf("unexpected section path %q", first.SectionPath)
	}
	if first.TokenCount != (wordCounter{}).Count(first.Text) {
		t.Fatalf("token count %d does not match counter", first.TokenCount)
	}
}

func TestRenderMetadataChunkFieldOrder(t *testing.T) {
	text := RenderMetadataChunk(wordCounter{}, fullMetadata()).Text

	order := []string{
		"Document ID: doc-42",
		"Title: Multiview Display Backlight",
		"Type: patent",
		"Date: 2019-03-14",
		"Identifiers:",
		"- application_number: 15/902,384",
		"- patent_number: US10830939",
		"Dates:",
		"- filed: 2018-02-22",
		"- granted: 2020-11-10",
		"Actors:",
		"- D. Fattal (inventor)",
		"- LEIA Inc (assignee)",
		"Also known as: DLB patent",
		"Key terms: diffractive lightfield backlighting, multiview",
		"Tags: displays, optics",
		"Summary: A diffractive backlight",
	}
	pos := -1
	for _, marker := range order {
		idx := strings.Index(text, marker)
		if idx < 0 {
			t.Fatalf("missing %q in rendered metadata:\n%s", marker, text)
		}
		if idx < pos {
			t.Fatalf("%q out of order in rendered metadata:\n%s", marker, text)
		}
		pos = idx
	}
}

func TestRenderMetadataChunkOmitsAbsentFields(t *testing.T) {
	text := RenderMetadataChunk(wordCounter{}, domain.DocumentMetadata{
		ID:    "doc-7",
		Title: "Short Note",
	}).Text

	for _, label := range []string{"Type:", "Date:", "Identifiers:", "Dates:", "Actors:", "Also known as:", "Key terms:", "Tags:", "Summary:"} {
		if strings.Contains(text, label) {
			t.Fatalf("absent field rendered as %q:\n%s", label, text)
		}
	}
	if !strings.Contains(text, "Document ID: doc-7") || !strings.Contains(text, "Title: Short Note") {
		t.Fatalf("present fields missing:\n%s", text)
	}
}
