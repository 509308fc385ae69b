package clinical

import (
	"sort"
	"strings"

	"github.com/curalog/curalog/internal/models"
)

// ExtractTimeline finds every date token and takes the containing sentence as
// the event description. Events are sorted ascending by the literal matched
// date string; this lexical order is intentional, not calendar order.
// Capped at 10 entries.
func ExtractTimeline(text string) []models.TimelineEvent {
	events := []models.TimelineEvent{}
	seen := make(map[string]bool)
	for _, m := range datePattern.FindAllStringIndex(text, -1) {
		date := strings.TrimSpace(text[m[0]:m[1]])
		sentence := sentenceAround(text, m[0])
		key := date + "|" + sentence
		if seen[key] {
			continue
		}
		seen[key] = true
		events = append(events, models.TimelineEvent{
			Date:        date,
			Description: sentence,
			Source:      models.Source{Offset: m[0], Context: sentence},
		})
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Date < events[j].Date })
	if len(events) > maxTimeline {
		events = events[:maxTimeline]
	}
	return events
}
