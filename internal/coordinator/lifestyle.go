package coordinator

import (
	"regexp"
	"strings"

	"github.com/curalog/curalog/internal/models"
)

// Lifestyle attribute names recorded in the patient profile.
const (
	LifestyleSmoking  = "smoking"
	LifestyleAlcohol  = "alcohol"
	LifestyleExercise = "exercise"
)

var lifestylePatterns = map[string]*regexp.Regexp{
	LifestyleSmoking:  regexp.MustCompile(`(?i)\b(?:non-?smoker|ex-?smoker|quit smoking|smokes?\s+\d+[^.\n]*|current smoker|denies smoking)\b`),
	LifestyleAlcohol:  regexp.MustCompile(`(?i)\b(?:denies alcohol|no alcohol(?:\s+use)?|social drinker|alcohol\s+(?:use|consumption|intake)[^.\n]*|drinks\s+\d+[^.\n]*)\b`),
	LifestyleExercise: regexp.MustCompile(`(?i)\b(?:sedentary(?:\s+lifestyle)?|physically active|active lifestyle|exercises?\s+\d+[^.\n]*|regular exercise|attends?\s+(?:the\s+)?gym[^.\n]*)\b`),
}

// ScanLifestyle looks for lifestyle signals in the record's narrative and
// section texts. The matched phrase becomes the attribute value. Attributes
// without a match are absent from the result.
func ScanLifestyle(record *models.ClinicalRecord) map[string]string {
	texts := []string{
		record.NarrativeTexts.History,
		record.NarrativeTexts.Feedback,
		record.NarrativeTexts.RecoveryProgress,
		record.SectionTexts.Subjective,
		record.SectionTexts.Assessment,
	}

	found := make(map[string]string)
	for attr, pattern := range lifestylePatterns {
		for _, text := range texts {
			if text == models.NotAvailable || text == "" {
				continue
			}
			if m := pattern.FindString(text); m != "" {
				found[attr] = strings.ToLower(strings.TrimSpace(m))
				break
			}
		}
	}
	return found
}
