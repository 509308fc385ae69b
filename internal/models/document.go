// Package models defines core data structures for documents, clinical records, chunks, and run results.
package models

// NotAvailable is the sentinel used for any fact field that could not be
// extracted. Records always carry the complete shape; absent values are
// explicit rather than omitted.
const NotAvailable = "not available"

// RawDocument is a validated document handed to the pipeline by the upload
// layer. FilePath points at a transient local copy that the pipeline removes
// after the run, regardless of outcome.
type RawDocument struct {
	FilePath   string            `json:"file_path"`
	DocumentID string            `json:"document_id"`
	CallerID   string            `json:"caller_id"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	// Background marks a document submitted through the queue rather than a
	// synchronous request; the larger background size ceiling applies.
	Background bool `json:"background,omitempty"`
}

// Extraction methods recorded per page.
const (
	MethodText = "text" // embedded text layer
	MethodOCR  = "ocr"  // optical recognition fallback
)

// PageRecord holds the text recovered from a single page and the method that
// produced it.
type PageRecord struct {
	Page   int    `json:"page"`
	Text   string `json:"text"`
	Method string `json:"method"`
}

// ExtractionMetadata summarizes how a document's text was obtained.
type ExtractionMetadata struct {
	PageCount     int    `json:"page_count"`
	HasNativeText bool   `json:"has_native_text"`
	Method        string `json:"method"` // "text", "ocr", or "mixed"
}

// ExtractedText is the output of the text extraction stage.
type ExtractedText struct {
	FullText string             `json:"full_text"`
	Pages    []PageRecord       `json:"pages"`
	Sections map[string]string  `json:"sections,omitempty"`
	Metadata ExtractionMetadata `json:"metadata"`
}
