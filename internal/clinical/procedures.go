package clinical

import (
	"regexp"
	"strings"

	"github.com/curalog/curalog/internal/models"
)

// procedurePattern matches a procedure keyword followed by free text up to
// the end of the sentence or line.
var procedurePattern = regexp.MustCompile(`(?i)\b(surgery|procedure|treatment|injection|scan|x-ray|mri|ct|ultrasound|arthroscopy|physiotherapy|operation)\b[:\s]*([^.\n]*)`)

// ExtractProcedures matches the fixed procedure keyword list followed by free
// text, with a date token when one appears nearby. Capped at 5 entries.
func ExtractProcedures(text string) []models.Procedure {
	procedures := []models.Procedure{}
	seen := make(map[string]bool)
	for _, m := range procedurePattern.FindAllStringSubmatchIndex(text, -1) {
		if len(procedures) >= maxProcedures {
			break
		}
		keyword := text[m[2]:m[3]]
		rest := strings.TrimSpace(text[m[4]:m[5]])
		name := strings.TrimSpace(keyword)
		if rest != "" {
			name = name + " " + rest
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		window := contextWindow(text, m[0], m[1], 40)
		procedures = append(procedures, models.Procedure{
			Name:   name,
			Date:   dateNear(window),
			Source: models.Source{Offset: m[0], Context: window},
		})
	}
	return procedures
}
