// Package profile provides the Badger-backed longitudinal patient profile
// store. Profiles accumulate lifestyle attributes, chronic conditions and
// diagnosis names across every document processed for a patient.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"go.uber.org/zap"

	"github.com/curalog/curalog/internal/models"
	"github.com/curalog/curalog/internal/store"
)

const profileKeyPrefix = "profile:"

// Store implements store.ProfileStore over BadgerDB.
type Store struct {
	db                *badger.DB
	chronicConditions []string
	logger            *zap.Logger
}

// stored is the on-disk profile shape. The document list keeps merges
// idempotent when the same document is reprocessed.
type stored struct {
	Profile   store.PatientProfile `json:"profile"`
	Documents []string             `json:"documents"`
}

type badgerLogger struct {
	logger *zap.SugaredLogger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (b *badgerLogger) Errorf(msg string, args ...interface{})   { b.logger.Errorf(msg, args...) }
func (b *badgerLogger) Warningf(msg string, args ...interface{}) { b.logger.Warnf(msg, args...) }
func (b *badgerLogger) Infof(msg string, args ...interface{})    { b.logger.Debugf(msg, args...) }
func (b *badgerLogger) Debugf(msg string, args ...interface{})   { b.logger.Debugf(msg, args...) }

// New opens a profile store at dir. An empty dir opens an in-memory
// database. chronicConditions lists the keywords tracked across documents.
func New(dir string, chronicConditions []string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create profile directory: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = &badgerLogger{logger: logger.Sugar()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open profile database: %w", err)
	}
	return &Store{db: db, chronicConditions: chronicConditions, logger: logger}, nil
}

func profileKey(patientKey string) []byte {
	return []byte(profileKeyPrefix + patientKey)
}

// MergeRecord folds one document's facts into the patient profile.
// lifestyle carries attribute values detected in the document's narrative
// text; non-empty values overwrite previous ones (latest document wins).
func (s *Store) MergeRecord(ctx context.Context, patientKey string, record *models.ClinicalRecord, lifestyle map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		st, err := s.load(txn, patientKey)
		if err != nil {
			return err
		}
		if st == nil {
			st = &stored{
				Profile: store.PatientProfile{
					PatientKey: patientKey,
					Lifestyle:  make(map[string]string),
				},
			}
		}
		s.merge(st, record, lifestyle)

		payload, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("failed to marshal profile: %w", err)
		}
		return txn.Set(profileKey(patientKey), payload)
	})
}

// GetProfile returns the accumulated profile for a patient.
func (s *Store) GetProfile(ctx context.Context, patientKey string) (*store.PatientProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var st *stored
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		st, err = s.load(txn, patientKey)
		return err
	})
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, store.ErrNotFound
	}
	return &st.Profile, nil
}

// DeletePatient removes the patient's profile.
func (s *Store) DeletePatient(ctx context.Context, patientKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(profileKey(patientKey))
	})
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) load(txn *badger.Txn, patientKey string) (*stored, error) {
	item, err := txn.Get(profileKey(patientKey))
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var st stored
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &st)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	if st.Profile.Lifestyle == nil {
		st.Profile.Lifestyle = make(map[string]string)
	}
	return &st, nil
}

func (s *Store) merge(st *stored, record *models.ClinicalRecord, lifestyle map[string]string) {
	for attr, value := range lifestyle {
		if value != "" && value != models.NotAvailable {
			st.Profile.Lifestyle[attr] = value
		}
	}

	for _, d := range record.Diagnoses {
		st.Profile.Diagnoses = appendUnique(st.Profile.Diagnoses, d.Name)
	}
	for _, cond := range s.detectChronicConditions(record) {
		st.Profile.ChronicConditions = appendUnique(st.Profile.ChronicConditions, cond)
	}
	sort.Strings(st.Profile.ChronicConditions)

	seen := false
	for _, id := range st.Documents {
		if id == record.DocumentID {
			seen = true
			break
		}
	}
	if !seen {
		st.Documents = append(st.Documents, record.DocumentID)
	}
	st.Profile.DocumentCount = len(st.Documents)
}

// detectChronicConditions scans the record's section and narrative texts
// plus diagnosis names for the configured chronic condition keywords.
func (s *Store) detectChronicConditions(record *models.ClinicalRecord) []string {
	texts := []string{
		record.SectionTexts.Subjective, record.SectionTexts.Objective,
		record.SectionTexts.Assessment, record.SectionTexts.Plan,
		record.NarrativeTexts.Feedback, record.NarrativeTexts.RecoveryProgress,
		record.NarrativeTexts.History,
	}
	for _, d := range record.Diagnoses {
		texts = append(texts, d.Name)
	}

	var hits []string
	for _, cond := range s.chronicConditions {
		needle := strings.ToLower(cond)
		for _, text := range texts {
			if text == models.NotAvailable {
				continue
			}
			if strings.Contains(strings.ToLower(text), needle) {
				hits = append(hits, cond)
				break
			}
		}
	}
	return hits
}

func appendUnique(list []string, value string) []string {
	if value == "" || value == models.NotAvailable {
		return list
	}
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}
