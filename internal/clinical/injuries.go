package clinical

import (
	"strings"

	"github.com/curalog/curalog/internal/models"
)

// injuryKeywords are the event words that, near a body-part mention, indicate
// an injury.
var injuryKeywords = []string{
	"injury", "injuries", "fracture", "sprain", "strain", "tear", "torn",
	"bruising", "bruise", "contusion", "laceration", "dislocation",
	"concussion", "trauma", "wound", "rupture",
}

var (
	severeMarkers = []string{"severe", "critical", "major"}
	mildMarkers   = []string{"mild", "minor", "slight"}
)

// proximity window, in characters, between a body part and an injury keyword.
const injuryProximity = 60

// ExtractInjuries matches each (body part, injury keyword) pair by proximity
// in text, infers severity from marker keywords in the surrounding window,
// and deduplicates on (bodyPart, severity). Output is capped at 10 entries.
func ExtractInjuries(text string, bodyParts []string) []models.Injury {
	lower := strings.ToLower(text)
	injuries := []models.Injury{}
	seen := make(map[string]bool)

	for _, part := range bodyParts {
		partLower := strings.ToLower(part)
		partPos := indexAll(lower, partLower)
		if len(partPos) == 0 {
			continue
		}
		for _, keyword := range injuryKeywords {
			for _, kwPos := range indexAll(lower, keyword) {
				near := -1
				for _, pp := range partPos {
					if abs(pp-kwPos) <= injuryProximity {
						near = pp
						break
					}
				}
				if near < 0 {
					continue
				}
				start := min(near, kwPos)
				end := max(near+len(partLower), kwPos+len(keyword))
				window := contextWindow(text, start, end, injuryProximity)
				severity := inferSeverity(strings.ToLower(window))
				key := partLower + "|" + severity
				if seen[key] {
					continue
				}
				seen[key] = true
				injuries = append(injuries, models.Injury{
					BodyPart: part,
					Severity: severity,
					Date:     dateNear(window),
					Source:   models.Source{Offset: start, Context: window},
				})
				if len(injuries) >= maxInjuries {
					return injuries
				}
			}
		}
	}
	return injuries
}

func inferSeverity(window string) string {
	for _, m := range severeMarkers {
		if strings.Contains(window, m) {
			return models.SeveritySevere
		}
	}
	for _, m := range mildMarkers {
		if strings.Contains(window, m) {
			return models.SeverityMild
		}
	}
	return models.SeverityModerate
}

// indexAll returns every occurrence position of sub in s.
func indexAll(s, sub string) []int {
	var positions []int
	offset := 0
	for {
		i := strings.Index(s[offset:], sub)
		if i < 0 {
			return positions
		}
		positions = append(positions, offset+i)
		offset += i + len(sub)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
