// Package coordinator fans one document's outputs out to the independent
// storage backends. Backends never see each other's keys: every write uses
// a patient key rehashed for that backend.
package coordinator

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/curalog/curalog/internal/identity"
	"github.com/curalog/curalog/internal/keyword"
	"github.com/curalog/curalog/internal/models"
	"github.com/curalog/curalog/internal/store"
)

// Backend names, used for per-store key rehashing and outcome reporting.
const (
	BackendDocument = "document"
	BackendGraph    = "graph"
	BackendVector   = "vector"
	BackendProfile  = "profile"
	BackendKeyword  = "keyword"
)

// Backends lists the counted storage backends in reporting order.
var Backends = []string{BackendDocument, BackendGraph, BackendVector, BackendProfile}

// Outcome is the result of one backend's write.
type Outcome struct {
	Backend string `json:"backend"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Result summarizes a coordinated storage run.
type Result struct {
	RunID            string    `json:"run_id"`
	Outcomes         []Outcome `json:"outcomes"`
	Successful       int       `json:"successful"`
	Success          bool      `json:"success"`
	EmbeddingsStored int       `json:"embeddings_stored"`
}

// Coordinator writes to all backends concurrently and reports per-backend
// outcomes. The keyword index is supplemental and not counted toward
// storage success.
type Coordinator struct {
	identity *identity.Manager
	document store.DocumentStore
	graph    store.GraphStore
	vector   store.VectorStore
	profile  store.ProfileStore
	chunks   keyword.ChunkIndex
	logger   *zap.Logger
	audit    *zap.Logger
}

// New creates a coordinator. chunks may be nil when keyword search is
// disabled.
func New(ids *identity.Manager, document store.DocumentStore, graph store.GraphStore,
	vector store.VectorStore, profile store.ProfileStore, chunks keyword.ChunkIndex,
	logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		identity: ids,
		document: document,
		graph:    graph,
		vector:   vector,
		profile:  profile,
		chunks:   chunks,
		logger:   logger,
		audit:    logger.Named("audit"),
	}
}

// Store distributes one document's record, chunks and embeddings across the
// backends. Each backend write is independent; one failure never aborts the
// others. The run succeeds when at least one counted backend succeeded.
func (c *Coordinator) Store(ctx context.Context, record *models.ClinicalRecord,
	chunks []models.TextChunk, embeddings []models.EmbeddingRecord) (*Result, error) {

	keys, err := c.rehashKeys(record.PatientID)
	if err != nil {
		return nil, err
	}

	result := &Result{RunID: uuid.NewString()}
	outcomes := make([]Outcome, len(Backends))
	var wg sync.WaitGroup

	run := func(i int, backend string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome := Outcome{Backend: backend, Success: true}
			if err := fn(); err != nil {
				outcome.Success = false
				outcome.Error = err.Error()
			}
			outcomes[i] = outcome
		}()
	}

	run(0, BackendDocument, func() error {
		return c.document.PutRecord(ctx, keys[BackendDocument], record)
	})
	run(1, BackendGraph, func() error {
		return c.graph.PutEvents(ctx, keys[BackendGraph], record)
	})
	run(2, BackendVector, func() error {
		if len(embeddings) == 0 {
			return nil
		}
		return c.vector.PutEmbeddings(ctx, keys[BackendVector], embeddings)
	})
	run(3, BackendProfile, func() error {
		lifestyle := ScanLifestyle(record)
		return c.profile.MergeRecord(ctx, keys[BackendProfile], record, lifestyle)
	})
	wg.Wait()

	result.Outcomes = outcomes
	for _, o := range outcomes {
		if o.Success {
			result.Successful++
		}
	}
	result.Success = result.Successful > 0
	if c.vectorSucceeded(outcomes) {
		result.EmbeddingsStored = len(embeddings)
	}

	// Keyword indexing is best-effort and uncounted.
	if c.chunks != nil {
		key, err := c.identity.RehashForStore(record.PatientID, BackendKeyword)
		if err == nil {
			for _, ch := range chunks {
				if err := c.chunks.IndexChunk(ctx, key, ch); err != nil {
					c.logger.Warn("chunk indexing failed",
						zap.String("chunk_id", ch.ChunkID), zap.Error(err))
					break
				}
			}
		}
	}

	c.auditRun(record, result)
	return result, nil
}

// DeletePatient removes the patient's data from every backend, returning
// the per-backend outcomes. All backends are attempted.
func (c *Coordinator) DeletePatient(ctx context.Context, patientID string) ([]Outcome, error) {
	keys, err := c.rehashKeys(patientID)
	if err != nil {
		return nil, err
	}

	deletes := []struct {
		backend string
		fn      func(string) error
	}{
		{BackendDocument, func(k string) error { return c.document.DeletePatient(ctx, k) }},
		{BackendGraph, func(k string) error { return c.graph.DeletePatient(ctx, k) }},
		{BackendVector, func(k string) error { return c.vector.DeletePatient(ctx, k) }},
		{BackendProfile, func(k string) error { return c.profile.DeletePatient(ctx, k) }},
	}

	outcomes := make([]Outcome, 0, len(deletes)+1)
	for _, d := range deletes {
		outcome := Outcome{Backend: d.backend, Success: true}
		if err := d.fn(keys[d.backend]); err != nil {
			outcome.Success = false
			outcome.Error = err.Error()
		}
		outcomes = append(outcomes, outcome)
	}

	if c.chunks != nil {
		key, err := c.identity.RehashForStore(patientID, BackendKeyword)
		outcome := Outcome{Backend: BackendKeyword, Success: true}
		if err == nil {
			err = c.chunks.DeletePatient(ctx, key)
		}
		if err != nil {
			outcome.Success = false
			outcome.Error = err.Error()
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func (c *Coordinator) rehashKeys(patientID string) (map[string]string, error) {
	keys := make(map[string]string, len(Backends))
	for _, backend := range Backends {
		key, err := c.identity.RehashForStore(patientID, backend)
		if err != nil {
			return nil, fmt.Errorf("rehash for %s: %w", backend, err)
		}
		keys[backend] = key
	}
	return keys, nil
}

func (c *Coordinator) vectorSucceeded(outcomes []Outcome) bool {
	for _, o := range outcomes {
		if o.Backend == BackendVector {
			return o.Success
		}
	}
	return false
}

// auditRun emits one audit entry per storage run. Patient identifiers are
// anonymized; raw keys never reach the log.
func (c *Coordinator) auditRun(record *models.ClinicalRecord, result *Result) {
	fields := []zap.Field{
		zap.String("run_id", result.RunID),
		zap.String("patient", identity.AnonymizeForLog(record.PatientID)),
		zap.String("document_id", record.DocumentID),
		zap.Int("successful", result.Successful),
		zap.Bool("success", result.Success),
	}
	for _, o := range result.Outcomes {
		fields = append(fields, zap.Bool(o.Backend, o.Success))
	}
	c.audit.Info("storage run", fields...)
}
