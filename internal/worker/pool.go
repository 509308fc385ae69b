// Package worker runs document processing on a bounded pool so many uploads
// can be in flight without unbounded resource growth.
package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/curalog/curalog/internal/models"
	"github.com/curalog/curalog/internal/store"
)

// DocumentProcessor runs one document through the processing stages.
type DocumentProcessor interface {
	Process(ctx context.Context, doc models.RawDocument) *models.ProcessingResult
}

// Pool schedules background document runs. Submit blocks once the pool is
// saturated, bounding concurrent in-flight documents.
type Pool struct {
	pool      *ants.Pool
	processor DocumentProcessor
	results   store.ResultStore
	timeout   time.Duration
	logger    *zap.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// Option configures a Pool.
type Option func(*Pool)

// WithTimeout bounds each document run. Zero means no per-run timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Pool) { p.timeout = d }
}

// WithLogger sets the pool logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a pool of the given size. size <= 0 defaults to half the CPUs.
// results may be nil; Status then only reports in-flight documents.
func New(size int, processor DocumentProcessor, results store.ResultStore, opts ...Option) (*Pool, error) {
	if processor == nil {
		return nil, errors.New("processor is required")
	}
	if size <= 0 {
		size = runtime.NumCPU() / 2
		if size < 1 {
			size = 1
		}
	}
	antsPool, err := ants.NewPool(size)
	if err != nil {
		return nil, err
	}
	p := &Pool{
		pool:      antsPool,
		processor: processor,
		results:   results,
		logger:    zap.NewNop(),
		inflight:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Submit schedules a document for background processing and returns its job
// ID (the document ID, generated when absent). Submit blocks while the pool
// is full and fails only if the pool is released.
func (p *Pool) Submit(doc models.RawDocument) (string, error) {
	if doc.DocumentID == "" {
		doc.DocumentID = uuid.NewString()
	}
	doc.Background = true

	p.mu.Lock()
	p.inflight[doc.DocumentID] = struct{}{}
	p.mu.Unlock()

	err := p.pool.Submit(func() {
		defer func() {
			p.mu.Lock()
			delete(p.inflight, doc.DocumentID)
			p.mu.Unlock()
		}()

		ctx := context.Background()
		if p.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, p.timeout)
			defer cancel()
		}
		result := p.processor.Process(ctx, doc)
		p.logger.Info("document processed",
			zap.String("document_id", doc.DocumentID),
			zap.String("status", result.Status()),
			zap.Int64("duration_ms", result.DurationMs))
	})
	if err != nil {
		p.mu.Lock()
		delete(p.inflight, doc.DocumentID)
		p.mu.Unlock()
		return "", err
	}
	return doc.DocumentID, nil
}

// Status reports a document's processing state. The result is non-nil only
// for finished runs.
func (p *Pool) Status(ctx context.Context, documentID string) (string, *models.ProcessingResult, error) {
	p.mu.Lock()
	_, running := p.inflight[documentID]
	p.mu.Unlock()
	if running {
		return models.StatusProcessing, nil, nil
	}

	if p.results == nil {
		return models.StatusNotFound, nil, nil
	}
	result, err := p.results.GetResult(ctx, documentID)
	if errors.Is(err, store.ErrNotFound) {
		return models.StatusNotFound, nil, nil
	}
	if err != nil {
		return "", nil, err
	}
	return result.Status(), result, nil
}

// Running returns the number of documents currently being processed.
func (p *Pool) Running() int {
	return p.pool.Running()
}

// Release drains the pool. Submitted jobs finish; new submissions fail.
func (p *Pool) Release() {
	p.pool.Release()
}
