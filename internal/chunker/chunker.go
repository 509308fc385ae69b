// Package chunker splits section and narrative text into bounded-size
// retrieval units and synthesizes summary chunks for structured facts.
package chunker

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/go-crypt/x/blake2b"

	"github.com/curalog/curalog/internal/models"
	"github.com/curalog/curalog/internal/sections"
)

// Chunker splits text by sentence up to a character budget, seeding each new
// chunk with the tail of the previous one for context continuity.
type Chunker struct {
	maxChunkSize int
	overlapSize  int
}

// New creates a chunker with the given size and overlap (in characters).
func New(maxChunkSize, overlapSize int) *Chunker {
	if maxChunkSize <= 0 {
		maxChunkSize = 300
	}
	if overlapSize < 0 {
		overlapSize = 0
	}
	return &Chunker{maxChunkSize: maxChunkSize, overlapSize: overlapSize}
}

// sectionOrder fixes the order chunks are produced in, so chunk IDs are
// stable across reprocessing of the same document.
var sectionOrder = []string{
	sections.Subjective, sections.Objective, sections.Assessment, sections.Plan,
	sections.History, sections.Feedback, sections.RecoveryProgress, sections.GeneralSection,
}

// ChunkRecord produces all chunks for one document: section/narrative text
// chunks plus one summary chunk per non-empty fact category. Pure function
// over its inputs; cannot fail.
func (c *Chunker) ChunkRecord(record *models.ClinicalRecord, secs map[string]string) []models.TextChunk {
	chunks := []models.TextChunk{}
	index := 0

	emit := func(section, chunkType, text string) {
		chunks = append(chunks, models.TextChunk{
			ChunkID: chunkID(record.PatientID, record.DocumentID, section, index, text),
			Text:    text,
			Metadata: models.ChunkMetadata{
				PatientID:  record.PatientID,
				DocumentID: record.DocumentID,
				Section:    section,
				ChunkType:  chunkType,
				Index:      index,
			},
		})
		index++
	}

	for _, name := range sectionOrder {
		text := strings.TrimSpace(secs[name])
		if text == "" {
			continue
		}
		for _, piece := range c.Split(text) {
			emit(name, models.ChunkTypeSection, piece)
		}
	}

	for _, s := range factSummaries(record) {
		emit(s.category, models.ChunkTypeSummary, s.text)
	}
	return chunks
}

// Split divides text into chunks of at most maxChunkSize characters, except
// that a single irreducible over-long sentence becomes its own chunk. Each
// chunk after the first is seeded with the trailing overlapSize characters of
// its predecessor; the seed is dropped when keeping it would push the chunk
// past maxChunkSize+overlapSize.
func (c *Chunker) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= c.maxChunkSize {
		return []string{text}
	}

	var out []string
	var cur strings.Builder
	seedLen := 0
	flush := func() {
		chunk := strings.TrimSpace(cur.String())
		if chunk != "" {
			out = append(out, chunk)
		}
		cur.Reset()
		seedLen = 0
		if len(out) > 0 && c.overlapSize > 0 {
			prev := out[len(out)-1]
			seed := prev
			if len(seed) > c.overlapSize {
				seed = seed[len(seed)-c.overlapSize:]
			}
			cur.WriteString(seed)
			seedLen = cur.Len()
		}
	}

	joined := func(sent string) int {
		n := cur.Len() + len(sent)
		if cur.Len() > 0 {
			n++
		}
		return n
	}
	for _, sent := range splitSentences(text) {
		if joined(sent) > c.maxChunkSize && cur.Len() > seedLen {
			flush()
		}
		// A sentence the seed cannot join within the size bound is emitted
		// without the seed.
		if cur.Len() == seedLen && joined(sent) > c.maxChunkSize+c.overlapSize {
			cur.Reset()
			seedLen = 0
		}
		if cur.Len() > 0 {
			cur.WriteString(" ")
		}
		cur.WriteString(sent)
	}
	if strings.TrimSpace(cur.String()) != "" {
		chunk := strings.TrimSpace(cur.String())
		out = append(out, chunk)
	}
	return out
}

// splitSentences splits on sentence-ending punctuation followed by
// whitespace, keeping the punctuation with its sentence.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '.' || c == '!' || c == '?' {
			end := i + 1
			if end >= len(text) || text[end] == ' ' || text[end] == '\n' || text[end] == '\t' {
				s := strings.TrimSpace(text[start:end])
				if s != "" {
					sentences = append(sentences, s)
				}
				start = end
			}
		}
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

// chunkID derives a deterministic chunk identifier from the chunk's identity
// and content, so reprocessing the same document yields the same IDs.
func chunkID(patientID, documentID, section string, index int, text string) string {
	h, _ := blake2b.New(8, nil)
	fmt.Fprintf(h, "%s|%s|%s|%d|%s", patientID, documentID, section, index, text)
	return "ch-" + hex.EncodeToString(h.Sum(nil))
}
