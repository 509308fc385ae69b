// Package vector provides an in-memory patient-scoped vector store with
// brute-force cosine search and binary file persistence.
package vector

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/curalog/curalog/internal/models"
	"github.com/curalog/curalog/internal/store"
)

type entry struct {
	patientKey string
	record     models.EmbeddingRecord
}

// Store implements store.VectorStore with a brute-force index. Search only
// ever scans the requesting patient's vectors.
type Store struct {
	dimensions int
	path       string
	entries    []entry
	mu         sync.RWMutex
}

// New creates a vector store with the given dimension. If path is non-empty
// the store loads existing contents from it and persists after mutations.
func New(dimensions int, path string) (*Store, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	s := &Store{dimensions: dimensions, path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// PutEmbeddings adds embedding records for a patient. Records replace any
// stored entries with the same chunk ID.
func (s *Store) PutEmbeddings(ctx context.Context, patientKey string, records []models.EmbeddingRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	replace := make(map[string]bool, len(records))
	for _, rec := range records {
		if len(rec.Vector) != s.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(rec.Vector), s.dimensions)
		}
		replace[rec.ChunkID] = true
	}

	kept := s.entries[:0]
	for _, e := range s.entries {
		if !replace[e.record.ChunkID] {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	for _, rec := range records {
		vec := make([]float32, s.dimensions)
		copy(vec, rec.Vector)
		rec.Vector = vec
		s.entries = append(s.entries, entry{patientKey: patientKey, record: rec})
	}
	return s.persistLocked()
}

// Search returns the top-k matches for query among one patient's vectors.
func (s *Store) Search(ctx context.Context, patientKey string, query []float32, k int) ([]store.ChunkMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(query) != s.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), s.dimensions)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if k <= 0 {
		return nil, nil
	}

	var matches []store.ChunkMatch
	for _, e := range s.entries {
		if e.patientKey != patientKey {
			continue
		}
		matches = append(matches, store.ChunkMatch{
			ChunkID:  e.record.ChunkID,
			Score:    cosine(query, e.record.Vector),
			Metadata: e.record.Metadata,
		})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

// ListChunkIDs returns the chunk IDs stored for a patient.
func (s *Store) ListChunkIDs(ctx context.Context, patientKey string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, e := range s.entries {
		if e.patientKey == patientKey {
			ids = append(ids, e.record.ChunkID)
		}
	}
	return ids, nil
}

// DeletePatient removes every vector stored for a patient.
func (s *Store) DeletePatient(ctx context.Context, patientKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.patientKey != patientKey {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	return s.persistLocked()
}

// Size returns the total number of stored vectors.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close persists the index a final time.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked()
}

// persistLocked writes the index to disk. Format: dimensions (4), count (4),
// then per entry: patientKey length-prefixed, metadata JSON length-prefixed,
// vector (dimensions*4 bytes). Caller holds the write lock.
func (s *Store) persistLocked() error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()

	if err := binary.Write(f, binary.LittleEndian, uint32(s.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(s.entries))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for _, e := range s.entries {
		meta := struct {
			ChunkID  string               `json:"chunk_id"`
			Metadata models.ChunkMetadata `json:"metadata"`
		}{e.record.ChunkID, e.record.Metadata}
		metaBytes, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("marshal entry metadata: %w", err)
		}
		if err := writeBytes(f, []byte(e.patientKey)); err != nil {
			return err
		}
		if err := writeBytes(f, metaBytes); err != nil {
			return err
		}
		if _, err := f.Write(float32SliceToBytes(e.record.Vector)); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// load replaces the in-memory contents from disk. A missing file is not an
// error; the store starts empty.
func (s *Store) load() error {
	if s.path == "" {
		return nil
	}
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()

	var dim, n uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != s.dimensions {
		return fmt.Errorf("dimension mismatch: file has %d, store expects %d", dim, s.dimensions)
	}
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read count: %w", err)
	}
	s.entries = make([]entry, 0, n)
	buf := make([]byte, s.dimensions*4)
	for i := uint32(0); i < n; i++ {
		patientKey, err := readBytes(f)
		if err != nil {
			return fmt.Errorf("read patient key: %w", err)
		}
		metaBytes, err := readBytes(f)
		if err != nil {
			return fmt.Errorf("read entry metadata: %w", err)
		}
		var meta struct {
			ChunkID  string               `json:"chunk_id"`
			Metadata models.ChunkMetadata `json:"metadata"`
		}
		if err := json.Unmarshal(metaBytes, &meta); err != nil {
			return fmt.Errorf("unmarshal entry metadata: %w", err)
		}
		if _, err := io.ReadFull(f, buf); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		s.entries = append(s.entries, entry{
			patientKey: string(patientKey),
			record: models.EmbeddingRecord{
				ChunkID:  meta.ChunkID,
				Vector:   bytesToFloat32Slice(buf),
				Metadata: meta.Metadata,
			},
		})
	}
	return nil
}

func writeBytes(f *os.File, b []byte) error {
	if err := binary.Write(f, binary.LittleEndian, uint32(len(b))); err != nil {
		return fmt.Errorf("write length: %w", err)
	}
	if _, err := f.Write(b); err != nil {
		return fmt.Errorf("write bytes: %w", err)
	}
	return nil
}

func readBytes(f *os.File) ([]byte, error) {
	var n uint32
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(f, b); err != nil {
		return nil, err
	}
	return b, nil
}

// cosine returns the cosine similarity of two vectors, clamped to [0, 1].
func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i] * b[i])
		na += float64(a[i] * a[i])
		nb += float64(b[i] * b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return math.Max(0, math.Min(1, dot/(math.Sqrt(na)*math.Sqrt(nb))))
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
