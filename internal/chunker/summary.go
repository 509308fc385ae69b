package chunker

import (
	"fmt"
	"strings"

	"github.com/curalog/curalog/internal/models"
)

type summary struct {
	category string
	text     string
}

// factSummaries renders one natural-language summary per non-empty fact
// category, so structured facts stay reachable through semantic search.
func factSummaries(record *models.ClinicalRecord) []summary {
	var out []summary

	if len(record.Injuries) > 0 {
		parts := make([]string, 0, len(record.Injuries))
		for _, inj := range record.Injuries {
			p := fmt.Sprintf("%s %s injury", inj.Severity, inj.BodyPart)
			if inj.Date != models.NotAvailable && inj.Date != "" {
				p += " on " + inj.Date
			}
			parts = append(parts, p)
		}
		out = append(out, summary{"injuries", "Documented injuries: " + strings.Join(parts, "; ") + "."})
	}

	if len(record.Diagnoses) > 0 {
		parts := make([]string, 0, len(record.Diagnoses))
		for _, d := range record.Diagnoses {
			p := d.Name
			if d.Code != models.NotAvailable && d.Code != "" {
				p += " (" + d.Code + ")"
			}
			parts = append(parts, p)
		}
		out = append(out, summary{"diagnoses", "Recorded diagnoses: " + strings.Join(parts, "; ") + "."})
	}

	if len(record.Procedures) > 0 {
		parts := make([]string, 0, len(record.Procedures))
		for _, pr := range record.Procedures {
			p := pr.Name
			if pr.Date != models.NotAvailable && pr.Date != "" {
				p += " on " + pr.Date
			}
			parts = append(parts, p)
		}
		out = append(out, summary{"procedures", "Procedures performed: " + strings.Join(parts, "; ") + "."})
	}

	if len(record.Medications) > 0 {
		parts := make([]string, 0, len(record.Medications))
		for _, m := range record.Medications {
			p := m.Name
			if m.Dosage != models.NotAvailable && m.Dosage != "" {
				p += " " + m.Dosage
			}
			if m.Frequency != models.NotAvailable && m.Frequency != "" {
				p += " " + m.Frequency
			}
			parts = append(parts, strings.TrimSpace(p))
		}
		out = append(out, summary{"medications", "Prescribed medications: " + strings.Join(parts, "; ") + "."})
	}

	if len(record.Timeline) > 0 {
		parts := make([]string, 0, len(record.Timeline))
		for _, ev := range record.Timeline {
			parts = append(parts, fmt.Sprintf("%s: %s", ev.Date, ev.Description))
		}
		out = append(out, summary{"timeline", "Clinical timeline: " + strings.Join(parts, "; ")})
	}

	return out
}
