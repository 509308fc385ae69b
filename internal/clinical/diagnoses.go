package clinical

import (
	"regexp"
	"strings"

	"github.com/curalog/curalog/internal/models"
)

var (
	diagnosisLine = regexp.MustCompile(`(?im)^\s*(?:diagnosis|impression|assessment|icd[^:\n]*)\s*:\s*(.+)$`)
	diagnosisCode = regexp.MustCompile(`\b\d{3}(?:\.\d+)?\b`)
	nameCleaner   = regexp.MustCompile(`[\d.,;:()\[\]]+`)
)

// ExtractDiagnoses matches diagnosis/impression/assessment/ICD lines,
// pulling out a numeric code token when present and stripping digits and
// punctuation from the remaining text to form the name. Capped at 5 entries.
func ExtractDiagnoses(text string) []models.Diagnosis {
	diagnoses := []models.Diagnosis{}
	for _, m := range diagnosisLine.FindAllStringSubmatchIndex(text, -1) {
		if len(diagnoses) >= maxDiagnoses {
			break
		}
		body := text[m[2]:m[3]]
		code := models.NotAvailable
		if c := diagnosisCode.FindString(body); c != "" {
			code = c
		}
		name := strings.TrimSpace(nameCleaner.ReplaceAllString(body, " "))
		name = strings.Join(strings.Fields(name), " ")
		if name == "" {
			name = models.NotAvailable
		}
		diagnoses = append(diagnoses, models.Diagnosis{
			Name:   name,
			Code:   code,
			Source: models.Source{Offset: m[0], Context: contextWindow(text, m[0], m[1], 40)},
		})
	}
	return diagnoses
}
