// Package keyword provides patient-scoped keyword search over text chunks.
package keyword

import (
	"context"

	"github.com/curalog/curalog/internal/models"
)

// ChunkIndex defines keyword indexing and search over chunks. Every search
// is scoped to one patient key; chunks of other patients never match.
type ChunkIndex interface {
	IndexChunk(ctx context.Context, patientKey string, chunk models.TextChunk) error
	Search(ctx context.Context, patientKey, query string, limit int) ([]*ChunkHit, error)
	DeletePatient(ctx context.Context, patientKey string) error
	DocCount() (uint64, error)
	Close() error
}

// ChunkHit is a single keyword search hit.
type ChunkHit struct {
	ChunkID    string
	DocumentID string
	Section    string
	Text       string
	Score      float64
}
