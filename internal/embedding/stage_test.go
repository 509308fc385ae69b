package embedding

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/curalog/curalog/internal/models"
)

type countingEmbedder struct {
	*MockEmbedder
	calls      int
	batchSizes []int
	failAfter  int // fail on call N (1-based), 0 = never
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls++
	c.batchSizes = append(c.batchSizes, len(texts))
	if c.failAfter > 0 && c.calls >= c.failAfter {
		return nil, errors.New("provider unavailable")
	}
	return c.MockEmbedder.EmbedBatch(ctx, texts)
}

func makeChunks(n int) []models.TextChunk {
	chunks := make([]models.TextChunk, n)
	for i := range chunks {
		chunks[i] = models.TextChunk{
			ChunkID: fmt.Sprintf("ch-%04d", i),
			Text:    fmt.Sprintf("chunk text %d", i),
			Metadata: models.ChunkMetadata{
				PatientID: "pt-x", DocumentID: "doc-1", Index: i,
			},
		}
	}
	return chunks
}

func TestEmbedChunksBatchingAndPairing(t *testing.T) {
	ce := &countingEmbedder{MockEmbedder: NewMockEmbedder(8)}
	stage := NewStage(ce, 0, nil)

	chunks := makeChunks(23)
	records, err := stage.EmbedChunks(context.Background(), chunks)
	if err != nil {
		t.Fatalf("EmbedChunks failed: %v", err)
	}
	if len(records) != 23 {
		t.Fatalf("expected 23 records, got %d", len(records))
	}
	if ce.calls != 3 {
		t.Errorf("expected 3 provider calls for 23 chunks, got %d", ce.calls)
	}
	want := []int{10, 10, 3}
	for i, size := range ce.batchSizes {
		if size != want[i] {
			t.Errorf("batch %d size = %d, want %d", i, size, want[i])
		}
	}
	for i, rec := range records {
		if rec.ChunkID != chunks[i].ChunkID {
			t.Errorf("record %d paired with wrong chunk: %s", i, rec.ChunkID)
		}
		if len(rec.Vector) != 8 {
			t.Errorf("record %d has %d dimensions", i, len(rec.Vector))
		}
		if rec.Metadata.Index != i {
			t.Errorf("record %d lost its metadata", i)
		}
	}
}

func TestEmbedChunksConfiguredBatchSize(t *testing.T) {
	ce := &countingEmbedder{MockEmbedder: NewMockEmbedder(8)}
	stage := NewStage(ce, 5, nil)

	records, err := stage.EmbedChunks(context.Background(), makeChunks(12))
	if err != nil {
		t.Fatalf("EmbedChunks failed: %v", err)
	}
	if len(records) != 12 {
		t.Fatalf("expected 12 records, got %d", len(records))
	}
	want := []int{5, 5, 2}
	if len(ce.batchSizes) != len(want) {
		t.Fatalf("expected %d provider calls, got %d", len(want), len(ce.batchSizes))
	}
	for i, size := range ce.batchSizes {
		if size != want[i] {
			t.Errorf("batch %d size = %d, want %d", i, size, want[i])
		}
	}
}

func TestEmbedChunksProviderFailureFailsStage(t *testing.T) {
	ce := &countingEmbedder{MockEmbedder: NewMockEmbedder(8), failAfter: 2}
	stage := NewStage(ce, 0, nil)

	records, err := stage.EmbedChunks(context.Background(), makeChunks(15))
	if err == nil {
		t.Fatal("expected stage failure when a batch fails")
	}
	if records != nil {
		t.Errorf("failed stage should return no records, got %d", len(records))
	}
}

func TestEmbedChunksEmpty(t *testing.T) {
	stage := NewStage(NewMockEmbedder(8), 0, nil)
	records, err := stage.EmbedChunks(context.Background(), nil)
	if err != nil {
		t.Fatalf("empty input should not fail: %v", err)
	}
	if records != nil {
		t.Errorf("expected no records, got %d", len(records))
	}
}
