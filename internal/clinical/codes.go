package clinical

import (
	"regexp"

	"github.com/curalog/curalog/internal/models"
)

const (
	CodeSystemICD = "icd"
	CodeSystemCPT = "cpt"
)

var (
	// icdPattern covers ICD-10 (letter + digits + optional decimal) and
	// ICD-9 style (three digits with a decimal part).
	icdPattern = regexp.MustCompile(`\b(?:[A-TV-Z]\d{2}(?:\.\d{1,4})?|\d{3}\.\d{1,2})\b`)
	// cptPattern matches five-digit procedure codes.
	cptPattern = regexp.MustCompile(`\b\d{5}\b`)
)

// ExtractMedicalCodes separately matches ICD-style and CPT-style code tokens.
func ExtractMedicalCodes(text string) []models.MedicalCode {
	codes := []models.MedicalCode{}
	seen := make(map[string]bool)
	for _, m := range icdPattern.FindAllStringIndex(text, -1) {
		code := text[m[0]:m[1]]
		if seen[CodeSystemICD+code] {
			continue
		}
		seen[CodeSystemICD+code] = true
		codes = append(codes, models.MedicalCode{
			System: CodeSystemICD,
			Code:   code,
			Source: models.Source{Offset: m[0], Context: contextWindow(text, m[0], m[1], 30)},
		})
	}
	for _, m := range cptPattern.FindAllStringIndex(text, -1) {
		code := text[m[0]:m[1]]
		if seen[CodeSystemCPT+code] {
			continue
		}
		seen[CodeSystemCPT+code] = true
		codes = append(codes, models.MedicalCode{
			System: CodeSystemCPT,
			Code:   code,
			Source: models.Source{Offset: m[0], Context: contextWindow(text, m[0], m[1], 30)},
		})
	}
	return codes
}

var clinicianPattern = regexp.MustCompile(`(?i)\b(?:dr\.?|doctor)\s+([A-Z][a-zA-Z'-]+(?:\s+[A-Z][a-zA-Z'-]+)?)`)

var rolePattern = regexp.MustCompile(`(?i)\b(physiotherapist|physician|surgeon|general practitioner|gp|nurse|chiropractor|radiologist)\b`)

// ExtractClinician finds the first clinician name and role mentioned in the
// text. Missing values carry the sentinel.
func ExtractClinician(text string) models.Clinician {
	clinician := models.Clinician{Name: models.NotAvailable, Role: models.NotAvailable}
	if m := clinicianPattern.FindStringSubmatch(text); m != nil {
		clinician.Name = m[1]
	}
	if m := rolePattern.FindString(text); m != "" {
		clinician.Role = m
	}
	return clinician
}
