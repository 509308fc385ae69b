package models

// Chunk types.
const (
	ChunkTypeSection = "section" // sliced from section or narrative text
	ChunkTypeSummary = "summary" // synthesized summary of a fact category
)

// ChunkMetadata travels with every chunk into the vector and keyword indexes.
type ChunkMetadata struct {
	PatientID  string `json:"patient_id"`
	DocumentID string `json:"document_id"`
	Section    string `json:"section"`
	ChunkType  string `json:"chunk_type"`
	Index      int    `json:"index"`
}

// TextChunk is a bounded-size unit of text prepared for embedding.
type TextChunk struct {
	ChunkID  string        `json:"chunk_id"`
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

// EmbeddingRecord pairs a chunk with its vector. Produced 1:1 with chunks
// that were successfully embedded.
type EmbeddingRecord struct {
	ChunkID  string        `json:"chunk_id"`
	Vector   []float32     `json:"vector"`
	Metadata ChunkMetadata `json:"metadata"`
}
