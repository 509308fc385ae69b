// Package store defines the persistence interfaces for the independent
// clinical storage backends. Every backend receives a patient key already
// rehashed for that backend, so keys are never comparable across stores.
package store

import (
	"context"
	"errors"

	"github.com/curalog/curalog/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// DocumentStore holds the authoritative structured clinical records.
type DocumentStore interface {
	PutRecord(ctx context.Context, patientKey string, record *models.ClinicalRecord) error
	GetRecord(ctx context.Context, patientKey, documentID string) (*models.ClinicalRecord, error)
	ListDocumentIDs(ctx context.Context, patientKey string) ([]string, error)
	DeletePatient(ctx context.Context, patientKey string) error
	Close() error
}

// GraphStore holds the per-patient anatomical event graph.
type GraphStore interface {
	PutEvents(ctx context.Context, patientKey string, record *models.ClinicalRecord) error
	GetGraph(ctx context.Context, patientKey string) (*PatientGraph, error)
	DeletePatient(ctx context.Context, patientKey string) error
	Close() error
}

// VectorStore holds chunk embeddings for semantic search.
type VectorStore interface {
	PutEmbeddings(ctx context.Context, patientKey string, records []models.EmbeddingRecord) error
	Search(ctx context.Context, patientKey string, query []float32, k int) ([]ChunkMatch, error)
	ListChunkIDs(ctx context.Context, patientKey string) ([]string, error)
	DeletePatient(ctx context.Context, patientKey string) error
	Close() error
}

// ProfileStore accumulates a longitudinal patient profile across documents.
type ProfileStore interface {
	MergeRecord(ctx context.Context, patientKey string, record *models.ClinicalRecord, lifestyle map[string]string) error
	GetProfile(ctx context.Context, patientKey string) (*PatientProfile, error)
	DeletePatient(ctx context.Context, patientKey string) error
	Close() error
}

// ResultStore persists processing results for status polling. Readers get
// a copy, never the object the pipeline is still mutating.
type ResultStore interface {
	PutResult(ctx context.Context, result *models.ProcessingResult) error
	GetResult(ctx context.Context, documentID string) (*models.ProcessingResult, error)
	Close() error
}

// ChunkMatch is a semantic search hit.
type ChunkMatch struct {
	ChunkID  string               `json:"chunk_id"`
	Score    float64              `json:"score"`
	Metadata models.ChunkMetadata `json:"metadata"`
}

// GraphNode is a node in a patient graph: the patient itself, an anatomical
// region, or a clinical event.
type GraphNode struct {
	ID         string            `json:"id"`
	Kind       string            `json:"kind"` // "patient", "region", "event"
	Label      string            `json:"label"`
	Properties map[string]string `json:"properties,omitempty"`
}

// GraphEdge is a typed directed edge between two graph nodes.
type GraphEdge struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Relation string `json:"relation"`
}

// PatientGraph is the stored graph view for one patient.
type PatientGraph struct {
	PatientKey string      `json:"patient_key"`
	Nodes      []GraphNode `json:"nodes"`
	Edges      []GraphEdge `json:"edges"`
	// RegionSeverity maps each anatomical region to the highest severity
	// recorded across the patient's documents.
	RegionSeverity map[string]string `json:"region_severity"`
}

// PatientProfile is the merged longitudinal view of one patient.
type PatientProfile struct {
	PatientKey        string            `json:"patient_key"`
	Lifestyle         map[string]string `json:"lifestyle"`
	ChronicConditions []string          `json:"chronic_conditions"`
	Diagnoses         []string          `json:"diagnoses"`
	DocumentCount     int               `json:"document_count"`
}
