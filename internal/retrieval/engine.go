// Package retrieval provides patient-scoped hybrid search over stored
// chunks, combining keyword and semantic matching.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/curalog/curalog/internal/coordinator"
	"github.com/curalog/curalog/internal/identity"
	"github.com/curalog/curalog/internal/keyword"
	"github.com/curalog/curalog/internal/store"
)

// Default fusion weights. Keyword matches carry slightly more weight since
// clinical queries tend to name exact terms (body parts, drug names).
const (
	defaultKeywordWeight  = 0.6
	defaultSemanticWeight = 0.4
	defaultLimit          = 10
)

// QueryEmbedder embeds a single query string.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Query is one patient-scoped search request.
type Query struct {
	CallerID string `json:"caller_id"`
	Text     string `json:"query"`
	Limit    int    `json:"limit"`
}

// Response carries the fused hits for a query.
type Response struct {
	PatientID string      `json:"patient_id"`
	Hits      []*FusedHit `json:"hits"`
	Total     int         `json:"total"`
}

// Engine runs hybrid searches. The vector store and keyword index each see
// only their own rehashed patient key.
type Engine struct {
	identity       *identity.Manager
	vectors        store.VectorStore
	chunks         keyword.ChunkIndex
	embedder       QueryEmbedder
	keywordWeight  float64
	semanticWeight float64
	limit          int
	logger         *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithWeights sets the fusion weights for the keyword and semantic legs.
// Non-positive pairs are ignored.
func WithWeights(keywordWeight, semanticWeight float64) Option {
	return func(e *Engine) {
		if keywordWeight > 0 || semanticWeight > 0 {
			e.keywordWeight = keywordWeight
			e.semanticWeight = semanticWeight
		}
	}
}

// WithDefaultLimit sets the hit count used when a query does not carry one.
func WithDefaultLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.limit = n
		}
	}
}

// NewEngine creates a retrieval engine. embedder may be nil; searches then
// use keyword matching only.
func NewEngine(ids *identity.Manager, vectors store.VectorStore, chunks keyword.ChunkIndex,
	embedder QueryEmbedder, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		identity:       ids,
		vectors:        vectors,
		chunks:         chunks,
		embedder:       embedder,
		keywordWeight:  defaultKeywordWeight,
		semanticWeight: defaultSemanticWeight,
		limit:          defaultLimit,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search runs a hybrid search for one caller's patient. A failing semantic
// leg degrades to keyword-only results rather than failing the query.
func (e *Engine) Search(ctx context.Context, q Query) (*Response, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, fmt.Errorf("query text is required")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = e.limit
	}

	patientID, err := e.identity.DeriveID(q.CallerID)
	if err != nil {
		return nil, err
	}

	keywordHits, err := e.searchKeyword(ctx, patientID, q.Text, limit)
	if err != nil {
		return nil, err
	}
	semanticHits := e.searchSemantic(ctx, patientID, q.Text, limit)

	hits := fuse(keywordHits, semanticHits, e.keywordWeight, e.semanticWeight)
	if len(hits) > limit {
		hits = hits[:limit]
	}
	e.logger.Debug("hybrid search",
		zap.String("patient", identity.AnonymizeForLog(patientID)),
		zap.Int("keyword_hits", len(keywordHits)),
		zap.Int("semantic_hits", len(semanticHits)),
		zap.Int("fused", len(hits)))

	return &Response{PatientID: patientID, Hits: hits, Total: len(hits)}, nil
}

func (e *Engine) searchKeyword(ctx context.Context, patientID, query string, limit int) ([]*keyword.ChunkHit, error) {
	if e.chunks == nil {
		return nil, nil
	}
	key, err := e.identity.RehashForStore(patientID, coordinator.BackendKeyword)
	if err != nil {
		return nil, err
	}
	hits, err := e.chunks.Search(ctx, key, query, limit)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	return hits, nil
}

func (e *Engine) searchSemantic(ctx context.Context, patientID, query string, limit int) []store.ChunkMatch {
	if e.embedder == nil || e.vectors == nil {
		return nil
	}
	key, err := e.identity.RehashForStore(patientID, coordinator.BackendVector)
	if err != nil {
		e.logger.Warn("vector key rehash failed", zap.Error(err))
		return nil
	}
	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		e.logger.Warn("query embedding failed, keyword results only", zap.Error(err))
		return nil
	}
	matches, err := e.vectors.Search(ctx, key, vec, limit)
	if err != nil {
		e.logger.Warn("semantic search failed, keyword results only", zap.Error(err))
		return nil
	}
	return matches
}
