package retrieval

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/curalog/curalog/internal/coordinator"
	"github.com/curalog/curalog/internal/embedding"
	"github.com/curalog/curalog/internal/identity"
	"github.com/curalog/curalog/internal/keyword"
	"github.com/curalog/curalog/internal/models"
	"github.com/curalog/curalog/internal/store/vector"
)

const dims = 16

func newFixture(t *testing.T) (*Engine, *identity.Manager, *vector.Store, *keyword.BleveIndex, *embedding.MockEmbedder) {
	t.Helper()
	ids := identity.NewManager("salt", map[string]string{
		coordinator.BackendKeyword: "kw-salt",
		coordinator.BackendVector:  "vec-salt",
	})
	vectors, err := vector.New(dims, "")
	if err != nil {
		t.Fatal(err)
	}
	chunks, err := keyword.NewBleveIndex(filepath.Join(t.TempDir(), "chunks.bleve"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = chunks.Close() })
	embedder := embedding.NewMockEmbedder(dims)
	engine := NewEngine(ids, vectors, chunks, embedder, nil)
	return engine, ids, vectors, chunks, embedder
}

// seed stores one chunk in both legs under the caller's rehashed keys, the
// way the coordinator does during processing.
func seed(t *testing.T, ids *identity.Manager, vectors *vector.Store, chunks *keyword.BleveIndex,
	embedder *embedding.MockEmbedder, callerID, chunkID, docID, text string) {
	t.Helper()
	ctx := context.Background()
	patientID, err := ids.DeriveID(callerID)
	if err != nil {
		t.Fatal(err)
	}
	chunk := models.TextChunk{
		ChunkID: chunkID,
		Text:    text,
		Metadata: models.ChunkMetadata{
			PatientID: patientID, DocumentID: docID,
			Section: "subjective", ChunkType: models.ChunkTypeSection,
		},
	}

	kwKey, err := ids.RehashForStore(patientID, coordinator.BackendKeyword)
	if err != nil {
		t.Fatal(err)
	}
	if err := chunks.IndexChunk(ctx, kwKey, chunk); err != nil {
		t.Fatal(err)
	}

	vecKey, err := ids.RehashForStore(patientID, coordinator.BackendVector)
	if err != nil {
		t.Fatal(err)
	}
	vec, err := embedder.Embed(ctx, text)
	if err != nil {
		t.Fatal(err)
	}
	if err := vectors.PutEmbeddings(ctx, vecKey, []models.EmbeddingRecord{
		{ChunkID: chunkID, Vector: vec, Metadata: chunk.Metadata},
	}); err != nil {
		t.Fatal(err)
	}
}

func TestHybridSearchFindsChunk(t *testing.T) {
	engine, ids, vectors, chunks, embedder := newFixture(t)
	seed(t, ids, vectors, chunks, embedder, "caller-1", "ch-1", "doc-1",
		"persistent knee pain after running")
	seed(t, ids, vectors, chunks, embedder, "caller-1", "ch-2", "doc-1",
		"blood pressure within normal range")

	resp, err := engine.Search(context.Background(), Query{
		CallerID: "caller-1",
		Text:     "persistent knee pain after running",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total == 0 {
		t.Fatal("expected hits")
	}
	top := resp.Hits[0]
	if top.ChunkID != "ch-1" {
		t.Errorf("top hit = %s", top.ChunkID)
	}
	if top.KeywordScore == 0 {
		t.Error("keyword leg should contribute")
	}
	if top.SemanticScore == 0 {
		t.Error("semantic leg should contribute")
	}
	if top.Text == "" || top.DocumentID != "doc-1" {
		t.Errorf("hit fields incomplete: %+v", top)
	}
}

func TestSearchIsolatedBetweenCallers(t *testing.T) {
	engine, ids, vectors, chunks, embedder := newFixture(t)
	seed(t, ids, vectors, chunks, embedder, "caller-1", "ch-1", "doc-1",
		"shoulder impingement noted")

	resp, err := engine.Search(context.Background(), Query{CallerID: "caller-2", Text: "shoulder"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 0 {
		t.Errorf("another caller must see nothing, got %d hits", resp.Total)
	}
}

func TestSearchKeywordOnlyWhenEmbedderFails(t *testing.T) {
	engine, ids, vectors, chunks, embedder := newFixture(t)
	seed(t, ids, vectors, chunks, embedder, "caller-1", "ch-1", "doc-1",
		"ankle sprain recovering well")

	engine.embedder = failingEmbedder{}
	resp, err := engine.Search(context.Background(), Query{CallerID: "caller-1", Text: "ankle sprain"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total == 0 {
		t.Fatal("keyword leg should still return results")
	}
	if resp.Hits[0].SemanticScore != 0 {
		t.Error("semantic score should be zero in degraded mode")
	}
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("provider down")
}

func TestSearchRequiresQueryText(t *testing.T) {
	engine, _, _, _, _ := newFixture(t)
	if _, err := engine.Search(context.Background(), Query{CallerID: "caller-1", Text: "  "}); err == nil {
		t.Error("blank query should fail")
	}
}

func TestSearchLimit(t *testing.T) {
	engine, ids, vectors, chunks, embedder := newFixture(t)
	for i := 0; i < 5; i++ {
		seed(t, ids, vectors, chunks, embedder, "caller-1",
			"ch-"+string(rune('a'+i)), "doc-1", "recurring back pain episode")
	}
	resp, err := engine.Search(context.Background(), Query{CallerID: "caller-1", Text: "back pain", Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Hits) > 2 {
		t.Errorf("limit not applied: %d hits", len(resp.Hits))
	}
}

func TestSearchConfiguredDefaultLimit(t *testing.T) {
	engine, ids, vectors, chunks, embedder := newFixture(t)
	WithDefaultLimit(2)(engine)
	for i := 0; i < 5; i++ {
		seed(t, ids, vectors, chunks, embedder, "caller-1",
			"ch-"+string(rune('a'+i)), "doc-1", "recurring back pain episode")
	}
	resp, err := engine.Search(context.Background(), Query{CallerID: "caller-1", Text: "back pain"})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Hits) > 2 {
		t.Errorf("configured default limit not applied: %d hits", len(resp.Hits))
	}
}

func TestSearchConfiguredWeights(t *testing.T) {
	engine, ids, vectors, chunks, embedder := newFixture(t)
	WithWeights(1.0, 0)(engine)
	text := "persistent knee pain after running"
	seed(t, ids, vectors, chunks, embedder, "caller-1", "ch-weights", "doc-1", text)

	resp, err := engine.Search(context.Background(), Query{CallerID: "caller-1", Text: text, Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Hits) == 0 {
		t.Fatal("expected a hit")
	}
	hit := resp.Hits[0]
	// The semantic leg still matches (same text, cosine 1) but a zero weight
	// means it contributes nothing to the fused score.
	if hit.Score != hit.KeywordScore {
		t.Errorf("fused score %f should equal keyword leg %f with weights 1/0",
			hit.Score, hit.KeywordScore)
	}
}
