package clinical

import (
	"regexp"
	"strings"

	"github.com/curalog/curalog/internal/models"
)

var (
	medicationLine = regexp.MustCompile(`(?im)^\s*(?:medications?|prescriptions?|drugs)\s*:\s*(.+)$`)
	entrySplitter  = regexp.MustCompile(`[,;]`)
	dosagePattern  = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s?(?:mg|ml|mcg|g|units?)\b`)
	freqPattern    = regexp.MustCompile(`(?i)\b(?:daily|bid|tid|qid|nightly|weekly|as needed|prn|\d+\s*times?\s*(?:per|a)\s*day|every\s*\d+\s*hours?)\b`)
)

// ExtractMedications matches medication list lines, splits them on commas and
// semicolons, and pulls dosage and frequency tokens out of each entry.
// Capped at 10 entries total.
func ExtractMedications(text string) []models.Medication {
	medications := []models.Medication{}
	for _, m := range medicationLine.FindAllStringSubmatchIndex(text, -1) {
		body := text[m[2]:m[3]]
		for _, entry := range entrySplitter.Split(body, -1) {
			if len(medications) >= maxMedications {
				return medications
			}
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			dosage := models.NotAvailable
			if d := dosagePattern.FindString(entry); d != "" {
				dosage = d
			}
			frequency := models.NotAvailable
			if f := freqPattern.FindString(entry); f != "" {
				frequency = strings.ToLower(f)
			}
			name := strings.TrimSpace(dosagePattern.ReplaceAllString(freqPattern.ReplaceAllString(entry, ""), ""))
			name = strings.Join(strings.Fields(name), " ")
			if name == "" {
				name = entry
			}
			medications = append(medications, models.Medication{
				Name:      name,
				Dosage:    dosage,
				Frequency: frequency,
				Source:    models.Source{Offset: m[2], Context: entry},
			})
		}
	}
	return medications
}
