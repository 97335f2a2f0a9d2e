package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/davidgpt/david-gpt/internal/core/domain"
)

type sectionizerFake struct{}

func (sectionizerFake) Sectionize(text string) []domain.Section {
	return []domain.Section{{Depth: 1, Heading: "Body", Content: text, StartLine: 1, EndLine: 1}}
}

type chunkerFake struct {
	chunks []domain.Chunk
	err    error
	meta   *domain.DocumentMetadata
}

func (f *chunkerFake) ChunkDocument(_ []domain.Section, _ domain.ChunkConfig, meta *domain.DocumentMetadata) ([]domain.Chunk, error) {
	f.meta = meta
	if f.err != nil {
		return nil, f.err
	}
	chunks := f.chunks
	if meta != nil {
		chunks = append([]domain.Chunk{{Text: "meta", SectionPath: domain.MetadataSectionPath}}, chunks...)
	}
	return chunks, nil
}

type embedderFake struct {
	err  error
	dims int
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, f.dims)
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

type vectorIndexFake struct {
	indexed  []domain.Chunk
	indices  []int
	deleted  []string
	indexErr error
}

func (f *vectorIndexFake) IndexChunks(_ context.Context, _ *domain.Document, chunks []domain.Chunk, indices []int, _ [][]float32) error {
	if f.indexErr != nil {
		return f.indexErr
	}
	f.indexed = chunks
	f.indices = indices
	return nil
}

func (f *vectorIndexFake) DeleteDocument(_ context.Context, docID string) error {
	f.deleted = append(f.deleted, docID)
	return nil
}

type chunkStoreFake struct {
	chunks  []domain.Chunk
	indices []int
	err     error
}

func (f *chunkStoreFake) ReplaceDocumentChunks(_ context.Context, _ *domain.Document, chunks []domain.Chunk, indices []int) error {
	if f.err != nil {
		return f.err
	}
	f.chunks = chunks
	f.indices = indices
	return nil
}

func readyDoc() *domain.Document {
	return &domain.Document{ID: "doc-1", Filename: "a.md", MimeType: "text/markdown", StoragePath: "k", PersonaSlug: "david"}
}

type extractorFake struct {
	text string
	err  error
}

func (f *extractorFake) Extract(context.Context, *domain.Document) (string, error) {
	return f.text, f.err
}

func newProcessFixture(repo *repoFake, chunker *chunkerFake) (*ProcessDocumentUseCase, *vectorIndexFake, *chunkStoreFake) {
	vectorIndex := &vectorIndexFake{}
	chunkStore := &chunkStoreFake{}
	uc := NewProcessDocumentUseCase(
		repo,
		&extractorFake{text: "Some body text."},
		sectionizerFake{},
		chunker,
		&embedderFake{dims: 4},
		vectorIndex,
		chunkStore,
		domain.DefaultChunkConfig(),
	)
	return uc, vectorIndex, chunkStore
}

func TestProcessByIDHappyPath(t *testing.T) {
	repo := &repoFake{doc: readyDoc()}
	chunker := &chunkerFake{chunks: []domain.Chunk{
		{Text: "one", SectionPath: "Body"},
		{Text: "two", SectionPath: "Body"},
	}}
	uc, vectorIndex, chunkStore := newProcessFixture(repo, chunker)

	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}

	wantStatuses := []domain.DocumentStatus{domain.StatusProcessing, domain.StatusReady}
	if len(repo.statuses) != 2 || repo.statuses[0] != wantStatuses[0] || repo.statuses[1] != wantStatuses[1] {
		t.Fatalf("statuses = %v, want %v", repo.statuses, wantStatuses)
	}
	if len(chunkStore.chunks) != 2 {
		t.Fatalf("expected 2 chunks stored, got %d", len(chunkStore.chunks))
	}
	if len(vectorIndex.indexed) != 2 {
		t.Fatalf("expected 2 chunks indexed, got %d", len(vectorIndex.indexed))
	}
	if len(vectorIndex.deleted) != 1 || vectorIndex.deleted[0] != "doc-1" {
		t.Fatalf("expected previous vectors superseded, got %v", vectorIndex.deleted)
	}
	if vectorIndex.indices[0] != 0 || vectorIndex.indices[1] != 1 {
		t.Fatalf("content chunk indices = %v, want [0 1]", vectorIndex.indices)
	}
}

func TestProcessByIDMetadataChunkReservedIndex(t *testing.T) {
	repo := &repoFake{doc: readyDoc(), meta: &domain.DocumentMetadata{ID: "doc-1", Title: "T"}}
	chunker := &chunkerFake{chunks: []domain.Chunk{{Text: "one", SectionPath: "Body"}}}
	uc, vectorIndex, _ := newProcessFixture(repo, chunker)

	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if chunker.meta == nil {
		t.Fatalf("metadata not passed to chunker")
	}
	if vectorIndex.indices[0] != domain.MetadataChunkIndex {
		t.Fatalf("metadata chunk index = %d, want %d", vectorIndex.indices[0], domain.MetadataChunkIndex)
	}
	if vectorIndex.indices[1] != 0 {
		t.Fatalf("first content chunk index = %d, want 0", vectorIndex.indices[1])
	}
}

type linkerFake struct {
	entities []domain.Entity
	docIDs   []string
	err      error
}

func (f *linkerFake) LinkEntityMention(_ context.Context, entity domain.Entity, docID string) error {
	if f.err != nil {
		return f.err
	}
	f.entities = append(f.entities, entity)
	f.docIDs = append(f.docIDs, docID)
	return nil
}

func TestProcessByIDLinksMetadataEntities(t *testing.T) {
	repo := &repoFake{doc: readyDoc(), meta: &domain.DocumentMetadata{
		ID:       "doc-1",
		Title:    "T",
		Actors:   []domain.Actor{{Name: "Jane Doe", Role: "inventor"}, {Name: "  "}},
		KeyTerms: []string{"diffractive waveguide"},
	}}
	chunker := &chunkerFake{chunks: []domain.Chunk{{Text: "one", SectionPath: "Body"}}}
	linker := &linkerFake{}

	uc := NewProcessDocumentUseCase(
		repo,
		&extractorFake{text: "Some body text."},
		sectionizerFake{},
		chunker,
		&embedderFake{dims: 4},
		&vectorIndexFake{},
		&chunkStoreFake{},
		domain.DefaultChunkConfig(),
		WithEntityLinker(linker),
	)

	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if len(linker.entities) != 2 {
		t.Fatalf("expected 2 linked entities (blank actor skipped), got %d: %+v", len(linker.entities), linker.entities)
	}
	if linker.entities[0].Name != "Jane Doe" || linker.entities[0].Kind != "inventor" {
		t.Fatalf("actor entity = %+v", linker.entities[0])
	}
	if linker.entities[0].ID != "jane-doe" {
		t.Fatalf("actor entity id = %q, want jane-doe", linker.entities[0].ID)
	}
	if linker.entities[1].Name != "diffractive waveguide" || linker.entities[1].Kind != "term" {
		t.Fatalf("key term entity = %+v", linker.entities[1])
	}
	for _, docID := range linker.docIDs {
		if docID != "doc-1" {
			t.Fatalf("entity linked to %q, want doc-1", docID)
		}
	}
}

func TestProcessByIDLinkerFailureIsNotFatal(t *testing.T) {
	repo := &repoFake{doc: readyDoc(), meta: &domain.DocumentMetadata{
		ID:     "doc-1",
		Actors: []domain.Actor{{Name: "Jane Doe"}},
	}}
	chunker := &chunkerFake{chunks: []domain.Chunk{{Text: "one", SectionPath: "Body"}}}

	uc := NewProcessDocumentUseCase(
		repo,
		&extractorFake{text: "Some body text."},
		sectionizerFake{},
		chunker,
		&embedderFake{dims: 4},
		&vectorIndexFake{},
		&chunkStoreFake{},
		domain.DefaultChunkConfig(),
		WithEntityLinker(&linkerFake{err: errors.New("graph down")}),
	)

	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("linker failure should not fail processing: %v", err)
	}
	if last := repo.statuses[len(repo.statuses)-1]; last != domain.StatusReady {
		t.Fatalf("last status = %s, want ready", last)
	}
}

func TestEntitySlug(t *testing.T) {
	cases := map[string]string{
		"Jane Doe":      "jane-doe",
		"  Waveguide  ": "waveguide",
		"LG Display (Korea)": "lg-display-korea",
	}
	for in, want := range cases {
		if got := entitySlug(in); got != want {
			t.Fatalf("entitySlug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestProcessByIDFailureMarksDocumentFailed(t *testing.T) {
	repo := &repoFake{doc: readyDoc()}
	chunker := &chunkerFake{err: errors.New("chunking broke")}
	uc, _, _ := newProcessFixture(repo, chunker)

	err := uc.ProcessByID(context.Background(), "doc-1")
	if err == nil {
		t.Fatalf("expected error")
	}
	last := repo.statuses[len(repo.statuses)-1]
	if last != domain.StatusFailed {
		t.Fatalf("last status = %s, want failed", last)
	}
	if !strings.Contains(repo.errs[len(repo.errs)-1], "chunking broke") {
		t.Fatalf("failure message not persisted: %v", repo.errs)
	}
}

func TestProcessByIDMissingMetadataIsNotFatal(t *testing.T) {
	repo := &repoFake{doc: readyDoc()}
	chunker := &chunkerFake{chunks: []domain.Chunk{{Text: "one", SectionPath: "Body"}}}
	uc, _, _ := newProcessFixture(repo, chunker)

	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("missing metadata should not fail processing: %v", err)
	}
	if chunker.meta != nil {
		t.Fatalf("expected nil metadata passed to chunker")
	}
}
