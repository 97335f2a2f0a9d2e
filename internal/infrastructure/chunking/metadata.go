package chunking

import (
	"fmt"
	"sort"
	"strings"

	"github.com/davidgpt/david-gpt/internal/core/domain"
)

// RenderMetadataChunk renders document metadata into one synthetic chunk so
// structured fields become text-searchable and embeddable. Field order is
// fixed and map keys are sorted: the same metadata value always renders to
// byte-identical text, which matters because this text is what gets embedded
// and indexed.
func RenderMetadataChunk(counter TokenCounter, meta domain.DocumentMetadata) domain.Chunk {
	text := renderMetadataText(meta)
	return domain.Chunk{
		Text:        text,
		SectionPath: domain.MetadataSectionPath,
		TokenCount:  counter.Count(text),
		StartLine:   0,
		EndLine:     0,
	}
}

func renderMetadataText(meta domain.DocumentMetadata) string {
	var b strings.Builder

	writeField := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		fmt.Fprintf(&b, "%s: %s\n", label, value)
	}
	writeMap := func(label string, m map[string]string) {
		if len(m) == 0 {
			return
		}
		fmt.Fprintf(&b, "%s:\n", label)
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, m[k])
		}
	}

	writeField("Document ID", meta.ID)
	writeField("Title", meta.Title)
	writeField("Type", meta.DocType)
	writeField("Date", meta.Date)
	writeMap("Identifiers", meta.Identifiers)
	writeMap("Dates", meta.Dates)

	if len(meta.Actors) > 0 {
		b.WriteString("Actors:\n")
		for _, actor := range meta.Actors {
			if actor.Role != "" {
				fmt.Fprintf(&b, "- %s (%s)\n", actor.Name, actor.Role)
			} else {
				fmt.Fprintf(&b, "- %s\n", actor.Name)
			}
		}
	}

	writeField("Also known as", strings.Join(meta.Aliases, ", "))
	writeField("Key terms", strings.Join(meta.KeyTerms, ", "))
	writeField("Tags", strings.Join(meta.Tags, ", "))
	writeMap("Additional", meta.Extra)
	writeField("Summary", meta.Summary)

	return strings.TrimRight(b.String(), "\n")
}
