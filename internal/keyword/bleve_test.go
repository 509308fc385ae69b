package keyword

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/curalog/curalog/internal/models"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex(filepath.Join(t.TempDir(), "chunks.bleve"))
	if err != nil {
		t.Fatalf("failed to create index: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func chunk(id, docID, section, text string) models.TextChunk {
	return models.TextChunk{
		ChunkID: id,
		Text:    text,
		Metadata: models.ChunkMetadata{
			DocumentID: docID, Section: section, ChunkType: models.ChunkTypeSection,
		},
	}
}

func TestSearchScopedToPatient(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.IndexChunk(ctx, "pt-a", chunk("ch-1", "doc-1", "subjective", "knee pain after running")); err != nil {
		t.Fatal(err)
	}
	if err := idx.IndexChunk(ctx, "pt-b", chunk("ch-2", "doc-2", "subjective", "knee pain after cycling")); err != nil {
		t.Fatal(err)
	}

	hits, err := idx.Search(ctx, "pt-a", "knee pain", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit for pt-a, got %d", len(hits))
	}
	if hits[0].ChunkID != "ch-1" {
		t.Errorf("wrong chunk matched: %s", hits[0].ChunkID)
	}
	if hits[0].Text == "" || hits[0].Section != "subjective" {
		t.Errorf("stored fields missing from hit: %+v", hits[0])
	}
}

func TestSearchNoMatches(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	_ = idx.IndexChunk(ctx, "pt-a", chunk("ch-1", "doc-1", "plan", "continue physiotherapy"))
	hits, err := idx.Search(ctx, "pt-a", "cardiology", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %d", len(hits))
	}
}

func TestDeletePatient(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	_ = idx.IndexChunk(ctx, "pt-a", chunk("ch-1", "doc-1", "plan", "shoulder rehabilitation exercises"))
	_ = idx.IndexChunk(ctx, "pt-a", chunk("ch-2", "doc-1", "assessment", "shoulder impingement"))
	_ = idx.IndexChunk(ctx, "pt-b", chunk("ch-3", "doc-2", "plan", "shoulder rest"))

	if err := idx.DeletePatient(ctx, "pt-a"); err != nil {
		t.Fatal(err)
	}

	hits, _ := idx.Search(ctx, "pt-a", "shoulder", 10)
	if len(hits) != 0 {
		t.Errorf("pt-a chunks should be gone, got %d", len(hits))
	}
	hits, _ = idx.Search(ctx, "pt-b", "shoulder", 10)
	if len(hits) != 1 {
		t.Errorf("pt-b chunks should survive, got %d", len(hits))
	}

	count, err := idx.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected 1 remaining chunk, got %d", count)
	}
}

func TestReindexSameChunkID(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	_ = idx.IndexChunk(ctx, "pt-a", chunk("ch-1", "doc-1", "plan", "initial text about ankle"))
	_ = idx.IndexChunk(ctx, "pt-a", chunk("ch-1", "doc-1", "plan", "updated text about wrist"))

	count, _ := idx.DocCount()
	if count != 1 {
		t.Errorf("reindex should replace, count = %d", count)
	}
	hits, _ := idx.Search(ctx, "pt-a", "ankle", 10)
	if len(hits) != 0 {
		t.Errorf("stale content still indexed")
	}
	hits, _ = idx.Search(ctx, "pt-a", "wrist", 10)
	if len(hits) != 1 {
		t.Errorf("updated content not found")
	}
}
