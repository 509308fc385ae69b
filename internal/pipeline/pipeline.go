// Package pipeline sequences the per-document processing stages and applies
// the fail-fast and continue rules between them.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/curalog/curalog/internal/chunker"
	"github.com/curalog/curalog/internal/clinical"
	"github.com/curalog/curalog/internal/coordinator"
	"github.com/curalog/curalog/internal/identity"
	"github.com/curalog/curalog/internal/models"
	"github.com/curalog/curalog/internal/sections"
	"github.com/curalog/curalog/internal/store"
)

// Config holds the validation limits applied before a run starts.
type Config struct {
	// SupportedExtensions lists accepted file extensions, lowercase with dot.
	SupportedExtensions []string
	// MaxSyncFileSize caps synchronous uploads, in bytes.
	MaxSyncFileSize int64
	// MaxBackgroundFileSize caps background uploads, in bytes.
	MaxBackgroundFileSize int64
}

// ApplyDefaults fills unset limits.
func (c *Config) ApplyDefaults() {
	if len(c.SupportedExtensions) == 0 {
		c.SupportedExtensions = []string{".pdf"}
	}
	if c.MaxSyncFileSize <= 0 {
		c.MaxSyncFileSize = 10 << 20
	}
	if c.MaxBackgroundFileSize <= 0 {
		c.MaxBackgroundFileSize = 50 << 20
	}
}

// TextExtractor produces page text for a document file.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (*models.ExtractedText, error)
}

// ChunkEmbedder turns chunks into embedding records.
type ChunkEmbedder interface {
	EmbedChunks(ctx context.Context, chunks []models.TextChunk) ([]models.EmbeddingRecord, error)
}

// Storer distributes a document's outputs across the storage backends.
type Storer interface {
	Store(ctx context.Context, record *models.ClinicalRecord, chunks []models.TextChunk,
		embeddings []models.EmbeddingRecord) (*coordinator.Result, error)
}

// Pipeline runs one document through every stage. All dependencies are
// injected; the pipeline holds no global state.
type Pipeline struct {
	cfg         Config
	identity    *identity.Manager
	extractor   TextExtractor
	clinical    *clinical.Extractor
	chunker     *chunker.Chunker
	embedder    ChunkEmbedder
	coordinator Storer
	results     store.ResultStore
	logger      *zap.Logger
}

// New creates a pipeline. results may be nil when status polling is not
// needed (tests, one-shot CLI runs).
func New(cfg Config, ids *identity.Manager, extractor TextExtractor,
	clinicalExtractor *clinical.Extractor, ch *chunker.Chunker,
	embedder ChunkEmbedder, coord Storer,
	results store.ResultStore, logger *zap.Logger) *Pipeline {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		cfg:         cfg,
		identity:    ids,
		extractor:   extractor,
		clinical:    clinicalExtractor,
		chunker:     ch,
		embedder:    embedder,
		coordinator: coord,
		results:     results,
		logger:      logger,
	}
}

// Validate checks the document against the configured limits without
// starting a run. The transport layer calls this before accepting an upload.
func (p *Pipeline) Validate(doc models.RawDocument) error {
	ext := strings.ToLower(filepath.Ext(doc.FilePath))
	supported := false
	for _, s := range p.cfg.SupportedExtensions {
		if ext == s {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}

	info, err := os.Stat(doc.FilePath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFileMissing, err)
	}
	limit := p.cfg.MaxSyncFileSize
	if doc.Background {
		limit = p.cfg.MaxBackgroundFileSize
	}
	if info.Size() > limit {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, info.Size(), limit)
	}
	return nil
}

// Process runs the document through all stages and returns the result. The
// temporary file is removed whatever happens, and a panic anywhere below
// becomes a failed result rather than a crashed worker.
func (p *Pipeline) Process(ctx context.Context, doc models.RawDocument) (result *models.ProcessingResult) {
	started := time.Now()
	result = &models.ProcessingResult{
		DocumentID: doc.DocumentID,
		Stages:     make(map[string]models.StageResult),
	}

	defer func() {
		if err := os.Remove(doc.FilePath); err != nil && !os.IsNotExist(err) {
			p.logger.Warn("failed to remove temporary file",
				zap.String("document_id", doc.DocumentID), zap.Error(err))
		}
		if r := recover(); r != nil {
			p.logger.Error("panic during document processing",
				zap.String("document_id", doc.DocumentID), zap.Any("panic", r))
			result.Success = false
			result.Stages["internal"] = models.StageResult{
				Success: false, Error: "internal processing error",
			}
		}
		result.DurationMs = time.Since(started).Milliseconds()
		p.persist(ctx, result)
	}()

	p.run(ctx, doc, result)
	return result
}

func (p *Pipeline) run(ctx context.Context, doc models.RawDocument, result *models.ProcessingResult) {
	if err := p.Validate(doc); err != nil {
		result.Stages[models.StageValidation] = models.StageFailed(err)
		return
	}
	result.Stages[models.StageValidation] = models.StageOK()

	patientID, err := p.identity.DeriveID(doc.CallerID)
	if err != nil {
		result.Stages[models.StageIdentity] = models.StageFailed(err)
		return
	}
	result.Stages[models.StageIdentity] = models.StageOK()
	result.PatientID = patientID

	extracted, err := p.extractor.Extract(ctx, doc.FilePath)
	if err != nil {
		result.Stages[models.StageExtraction] = models.StageFailed(err)
		return
	}
	if strings.TrimSpace(extracted.FullText) == "" {
		result.Stages[models.StageExtraction] = models.StageFailed(ErrEmptyText)
		return
	}
	result.Stages[models.StageExtraction] = models.StageOK()
	result.Summary.TextLength = len(extracted.FullText)

	secs := sections.Parse(extracted.FullText)
	result.Stages[models.StageSections] = models.StageOK()

	record := models.NewClinicalRecord(patientID, doc.DocumentID)
	if title, ok := doc.Metadata["title"]; ok {
		record.DocumentTitle = title
	}
	p.clinical.Extract(record, extracted.FullText, secs)
	result.Stages[models.StageEntities] = models.StageOK()
	result.Summary.InjuryCount = len(record.Injuries)
	result.Summary.DiagnosisCount = len(record.Diagnoses)
	result.Summary.ProcedureCount = len(record.Procedures)
	result.Summary.MedicationCount = len(record.Medications)

	chunks := p.chunker.ChunkRecord(record, secs)
	result.Stages[models.StageChunking] = models.StageOK()

	// Embedding failure is not fatal; storage proceeds without vectors.
	var embeddings []models.EmbeddingRecord
	embeddings, err = p.embedder.EmbedChunks(ctx, chunks)
	if err != nil {
		result.Stages[models.StageEmbedding] = models.StageFailed(err)
		embeddings = nil
	} else {
		result.Stages[models.StageEmbedding] = models.StageOK()
	}

	stored, err := p.coordinator.Store(ctx, record, chunks, embeddings)
	if err != nil {
		result.Stages[models.StageStorage] = models.StageFailed(err)
		return
	}
	result.Summary.StoresUpdated = stored.Successful
	result.Summary.EmbeddingsStored = stored.EmbeddingsStored
	if !stored.Success {
		result.Stages[models.StageStorage] = models.StageFailed(
			fmt.Errorf("all storage backends failed"))
		return
	}
	result.Stages[models.StageStorage] = models.StageOK()
	result.Success = true
}

// persist saves the result for later status polling. Best effort: a result
// store failure is logged, never surfaced.
func (p *Pipeline) persist(ctx context.Context, result *models.ProcessingResult) {
	if p.results == nil {
		return
	}
	if err := p.results.PutResult(ctx, result); err != nil {
		p.logger.Warn("failed to persist processing result",
			zap.String("document_id", result.DocumentID), zap.Error(err))
	}
}
