// Package sections splits extracted note text into named clinical sections
// using trigger-phrase matching.
package sections

import (
	"sort"
	"strings"
)

// GeneralSection is the key used when no trigger phrase is found anywhere.
const GeneralSection = "general"

// Section names.
const (
	Subjective       = "subjective"
	Objective        = "objective"
	Assessment       = "assessment"
	Plan             = "plan"
	History          = "history"
	Feedback         = "feedback"
	RecoveryProgress = "recovery_progress"
)

// triggers maps each section to its ordered trigger phrases. The first
// case-insensitive occurrence of any phrase marks where the section starts.
var triggers = map[string][]string{
	Subjective:       {"subjective:", "chief complaint:", "patient states:", "presenting complaint:"},
	Objective:        {"objective:", "examination:", "physical exam:", "findings:", "vitals:"},
	Assessment:       {"assessment:", "impression:", "diagnosis:", "clinical assessment:"},
	Plan:             {"plan:", "treatment plan:", "recommendations:", "follow up:", "follow-up:"},
	History:          {"history:", "medical history:", "past medical history:", "hx:"},
	Feedback:         {"feedback:", "patient feedback:", "patient reported:"},
	RecoveryProgress: {"recovery:", "progress:", "recovery progress:", "rehabilitation progress:"},
}

type hit struct {
	pos     int
	section string
}

// Parse splits fullText into named sections. Text between consecutive trigger
// hits belongs to the earlier hit's section; the last hit runs to the end of
// the text. When no trigger matches at all, the entire text is stored under
// GeneralSection. Pure function; cannot fail.
func Parse(fullText string) map[string]string {
	result := make(map[string]string)
	if strings.TrimSpace(fullText) == "" {
		return result
	}
	lower := strings.ToLower(fullText)

	var hits []hit
	for section, phrases := range triggers {
		for _, phrase := range phrases {
			if pos := strings.Index(lower, phrase); pos >= 0 {
				hits = append(hits, hit{pos: pos, section: section})
				break
			}
		}
	}
	if len(hits) == 0 {
		result[GeneralSection] = strings.TrimSpace(fullText)
		return result
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	for i, h := range hits {
		end := len(fullText)
		if i+1 < len(hits) {
			end = hits[i+1].pos
		}
		text := strings.TrimSpace(fullText[h.pos:end])
		// Two triggers for different sections can collide at the same
		// position; the earlier hit wins.
		if _, exists := result[h.section]; !exists && text != "" {
			result[h.section] = text
		}
	}
	return result
}
