// Package clinical derives structured medical facts from extracted note text
// using independent rule-based sub-extractors. The aggregate extraction never
// fails: absence of matches yields empty slices, not errors.
package clinical

import (
	"regexp"
	"strings"

	"github.com/curalog/curalog/internal/models"
	"github.com/curalog/curalog/internal/sections"
)

// Entry caps per category.
const (
	maxInjuries    = 10
	maxDiagnoses   = 5
	maxProcedures  = 5
	maxMedications = 10
	maxTimeline    = 10
)

// datePattern matches common clinical date tokens: 01/02/2023, 2023-01-02,
// 3 Jan 2024, Jan 3, 2024.
var datePattern = regexp.MustCompile(`(?i)\b(?:\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|\d{4}-\d{2}-\d{2}|(?:\d{1,2}\s+)?(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2}?(?:,?\s+\d{4})?)\b`)

// Extractor runs every sub-extractor over the full text and sections of one
// document. BodyParts is the fixed anatomical vocabulary from configuration.
type Extractor struct {
	bodyParts []string
}

// NewExtractor creates an extractor for the given body-part vocabulary.
func NewExtractor(bodyParts []string) *Extractor {
	return &Extractor{bodyParts: bodyParts}
}

// Extract populates record with every fact category derived from fullText
// and the parsed sections. Sub-extractors are independent; no failure mode.
func (e *Extractor) Extract(record *models.ClinicalRecord, fullText string, secs map[string]string) {
	record.Injuries = ExtractInjuries(fullText, e.bodyParts)
	record.Diagnoses = ExtractDiagnoses(fullText)
	record.Procedures = ExtractProcedures(fullText)
	record.Medications = ExtractMedications(fullText)
	record.Timeline = ExtractTimeline(fullText)
	record.MedicalCodes = ExtractMedicalCodes(fullText)
	record.Clinician = ExtractClinician(fullText)

	if len(record.Timeline) > 0 {
		record.DocumentDate = record.Timeline[0].Date
	}

	record.SectionTexts = models.SectionTexts{
		Subjective: sectionOrSentinel(secs, sections.Subjective),
		Objective:  sectionOrSentinel(secs, sections.Objective),
		Assessment: sectionOrSentinel(secs, sections.Assessment),
		Plan:       sectionOrSentinel(secs, sections.Plan),
	}
	record.NarrativeTexts = models.NarrativeTexts{
		Feedback:         sectionOrSentinel(secs, sections.Feedback),
		RecoveryProgress: sectionOrSentinel(secs, sections.RecoveryProgress),
		History:          sectionOrSentinel(secs, sections.History),
	}
}

func sectionOrSentinel(secs map[string]string, name string) string {
	if text, ok := secs[name]; ok && strings.TrimSpace(text) != "" {
		return text
	}
	return models.NotAvailable
}

// contextWindow returns up to radius characters on each side of [start, end).
func contextWindow(text string, start, end, radius int) string {
	from := start - radius
	if from < 0 {
		from = 0
	}
	to := end + radius
	if to > len(text) {
		to = len(text)
	}
	return strings.TrimSpace(text[from:to])
}

// dateNear returns the first date token inside window, or the sentinel.
func dateNear(window string) string {
	if m := datePattern.FindString(window); m != "" {
		return strings.TrimSpace(m)
	}
	return models.NotAvailable
}

// sentenceAround returns the sentence of text containing offset, where
// sentences end at '.', '!', '?', or a newline.
func sentenceAround(text string, offset int) string {
	start := offset
	for start > 0 {
		c := text[start-1]
		if c == '.' || c == '!' || c == '?' || c == '\n' {
			break
		}
		start--
	}
	end := offset
	for end < len(text) {
		c := text[end]
		if c == '.' || c == '!' || c == '?' || c == '\n' {
			end++
			break
		}
		end++
	}
	return strings.TrimSpace(text[start:end])
}
