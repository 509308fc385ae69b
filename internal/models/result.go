package models

// Stage names used as keys in ProcessingResult.Stages.
const (
	StageValidation = "validation"
	StageIdentity   = "identity"
	StageExtraction = "extraction"
	StageSections   = "sections"
	StageEntities   = "entities"
	StageChunking   = "chunking"
	StageEmbedding  = "embedding"
	StageStorage    = "storage"
)

// Run statuses reported to callers.
const (
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusProcessing = "processing"
	StatusNotFound   = "not_found"
)

// StageResult is the uniform outcome type returned by every pipeline stage.
// Stages communicate failure by value; they never panic across the stage
// boundary.
type StageResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// StageOK returns a successful stage result.
func StageOK() StageResult { return StageResult{Success: true} }

// StageFailed returns a failed stage result carrying the error text.
func StageFailed(err error) StageResult {
	if err == nil {
		return StageResult{Success: false}
	}
	return StageResult{Success: false, Error: err.Error()}
}

// RunSummary aggregates counts from every stage of one document run.
type RunSummary struct {
	TextLength       int `json:"text_length"`
	InjuryCount      int `json:"injury_count"`
	DiagnosisCount   int `json:"diagnosis_count"`
	ProcedureCount   int `json:"procedure_count"`
	MedicationCount  int `json:"medication_count"`
	EmbeddingsStored int `json:"embeddings_stored"`
	StoresUpdated    int `json:"stores_updated"`
}

// ProcessingResult is created once per document run and is immutable after
// the orchestrator finalizes it. Status endpoints read a persisted copy.
type ProcessingResult struct {
	DocumentID string                 `json:"document_id"`
	PatientID  string                 `json:"patient_id"`
	Success    bool                   `json:"success"`
	Stages     map[string]StageResult `json:"stages"`
	Summary    RunSummary             `json:"summary"`
	DurationMs int64                  `json:"duration_ms"`
}

// Status maps the result to the caller-visible status value.
func (r *ProcessingResult) Status() string {
	if r.Success {
		return StatusCompleted
	}
	return StatusFailed
}
