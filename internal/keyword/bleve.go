package keyword

import (
	"context"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"

	"github.com/curalog/curalog/internal/models"
)

// chunkDoc is the shape indexed for each chunk.
type chunkDoc struct {
	PatientKey string `json:"patient_key"`
	DocumentID string `json:"document_id"`
	Section    string `json:"section"`
	Text       string `json:"text"`
}

// BleveIndex implements ChunkIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve chunk index at path. An existing
// index is reused; remove the directory to force a rebuild after mapping
// changes.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so clinical terms
	// match exactly as written.
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("text", textFieldMapping)

	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("patient_key", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("document_id", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("section", keywordFieldMapping)

	im.AddDocumentMapping("chunk", docMapping)
	im.DefaultType = "chunk"
	im.DefaultMapping = docMapping

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open chunk index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create chunk index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// IndexChunk indexes one chunk under the given patient key.
func (b *BleveIndex) IndexChunk(ctx context.Context, patientKey string, chunk models.TextChunk) error {
	return b.index.Index(chunk.ChunkID, chunkDoc{
		PatientKey: patientKey,
		DocumentID: chunk.Metadata.DocumentID,
		Section:    chunk.Metadata.Section,
		Text:       chunk.Text,
	})
}

// Search returns up to limit chunks of one patient matching the query.
// The patient key term is a required conjunct, so other patients' chunks
// cannot appear in the results.
func (b *BleveIndex) Search(ctx context.Context, patientKey, query string, limit int) ([]*ChunkHit, error) {
	match := bleve.NewMatchQuery(query)
	match.SetField("text")

	scope := bleve.NewTermQuery(patientKey)
	scope.SetField("patient_key")

	req := bleve.NewSearchRequest(bleve.NewConjunctionQuery(scope, match))
	req.Size = limit
	req.Fields = []string{"document_id", "section", "text"}

	results, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("chunk search failed: %w", err)
	}
	out := make([]*ChunkHit, 0, len(results.Hits))
	for _, hit := range results.Hits {
		h := &ChunkHit{ChunkID: hit.ID, Score: hit.Score}
		if v, ok := hit.Fields["document_id"].(string); ok {
			h.DocumentID = v
		}
		if v, ok := hit.Fields["section"].(string); ok {
			h.Section = v
		}
		if v, ok := hit.Fields["text"].(string); ok {
			h.Text = v
		}
		out = append(out, h)
	}
	return out, nil
}

// DeletePatient removes every chunk indexed for a patient.
func (b *BleveIndex) DeletePatient(ctx context.Context, patientKey string) error {
	scope := bleve.NewTermQuery(patientKey)
	scope.SetField("patient_key")
	req := bleve.NewSearchRequest(scope)
	req.Size = 10000

	for {
		results, err := b.index.Search(req)
		if err != nil {
			return fmt.Errorf("failed to list patient chunks: %w", err)
		}
		if len(results.Hits) == 0 {
			return nil
		}
		batch := b.index.NewBatch()
		for _, hit := range results.Hits {
			batch.Delete(hit.ID)
		}
		if err := b.index.Batch(batch); err != nil {
			return fmt.Errorf("failed to delete patient chunks: %w", err)
		}
		if uint64(len(results.Hits)) >= results.Total {
			return nil
		}
	}
}

// DocCount returns the total number of indexed chunks.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
