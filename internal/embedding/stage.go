package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/curalog/curalog/internal/models"
	"github.com/curalog/curalog/pkg/utils"
)

// defaultBatchSize caps the number of chunks sent to the provider per call
// when no batch size is configured.
const defaultBatchSize = 10

// Stage turns text chunks into embedding records.
type Stage struct {
	embedder  Embedder
	batchSize int
	logger    *zap.Logger
}

// NewStage creates a chunk embedding stage. batchSize caps chunks per
// provider call; zero or negative selects the default.
func NewStage(embedder Embedder, batchSize int, logger *zap.Logger) *Stage {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stage{embedder: embedder, batchSize: batchSize, logger: logger}
}

// EmbedChunks embeds all chunks in batches and pairs each vector with its
// chunk by position. Any provider failure fails the whole stage; callers
// treat that as non-fatal for the document.
func (s *Stage) EmbedChunks(ctx context.Context, chunks []models.TextChunk) ([]models.EmbeddingRecord, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	records := make([]models.EmbeddingRecord, 0, len(chunks))
	for start := 0; start < len(chunks); start += s.batchSize {
		end := start + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		texts := make([]string, len(batch))
		for i, ch := range batch {
			texts[i] = ch.Text
		}
		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d-%d: %w", start, end, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embedding batch %d-%d: got %d vectors for %d chunks", start, end, len(vectors), len(batch))
		}
		for i, vec := range vectors {
			// Cosine search assumes unit vectors; not every provider
			// normalizes its output.
			utils.NormalizeL2(vec)
			records = append(records, models.EmbeddingRecord{
				ChunkID:  batch[i].ChunkID,
				Vector:   vec,
				Metadata: batch[i].Metadata,
			})
		}
	}
	s.logger.Debug("embedded chunks", zap.Int("chunks", len(chunks)), zap.Int("records", len(records)))
	return records, nil
}
