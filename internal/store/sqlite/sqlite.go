// Package sqlite provides the SQLite-backed document and result stores.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/curalog/curalog/internal/models"
	"github.com/curalog/curalog/internal/store"
)

// Store implements store.DocumentStore and store.ResultStore over one
// SQLite database.
type Store struct {
	db *sql.DB
}

// New opens or creates a SQLite database at dbPath and initializes the
// schema. Parent directories are created if they do not exist.
func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS clinical_records (
		patient_key TEXT NOT NULL,
		document_id TEXT NOT NULL,
		record TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (patient_key, document_id)
	);

	CREATE INDEX IF NOT EXISTS idx_records_patient ON clinical_records(patient_key);

	CREATE TABLE IF NOT EXISTS processing_results (
		document_id TEXT PRIMARY KEY,
		result TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(schema)
	return err
}

// PutRecord inserts or replaces the record for (patientKey, documentID).
// Reprocessing the same document overwrites the previous version.
func (s *Store) PutRecord(ctx context.Context, patientKey string, record *models.ClinicalRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	now := time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO clinical_records (patient_key, document_id, record, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(patient_key, document_id)
		 DO UPDATE SET record = excluded.record, updated_at = excluded.updated_at`,
		patientKey, record.DocumentID, string(payload), now, now,
	)
	return err
}

// GetRecord returns the record for (patientKey, documentID).
func (s *Store) GetRecord(ctx context.Context, patientKey, documentID string) (*models.ClinicalRecord, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM clinical_records WHERE patient_key = ? AND document_id = ?`,
		patientKey, documentID,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var record models.ClinicalRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return &record, nil
}

// ListDocumentIDs returns all document IDs stored for a patient, newest first.
func (s *Store) ListDocumentIDs(ctx context.Context, patientKey string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT document_id FROM clinical_records WHERE patient_key = ? ORDER BY created_at DESC`,
		patientKey,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeletePatient removes every record stored for a patient.
func (s *Store) DeletePatient(ctx context.Context, patientKey string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM clinical_records WHERE patient_key = ?`, patientKey)
	return err
}

// PutResult inserts or replaces the processing result for a document.
func (s *Store) PutResult(ctx context.Context, result *models.ProcessingResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO processing_results (document_id, result, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(document_id)
		 DO UPDATE SET result = excluded.result, updated_at = excluded.updated_at`,
		result.DocumentID, string(payload), time.Now(),
	)
	return err
}

// GetResult returns a copy of the stored processing result for a document.
func (s *Store) GetResult(ctx context.Context, documentID string) (*models.ProcessingResult, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT result FROM processing_results WHERE document_id = ?`, documentID,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var result models.ProcessingResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return &result, nil
}

// CountRecords returns the total number of stored clinical records.
func (s *Store) CountRecords(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clinical_records`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
