// Package cli provides CLI output formatting for Curalog.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/curalog/curalog/internal/models"
	"github.com/curalog/curalog/internal/retrieval"
	"github.com/curalog/curalog/pkg/utils"
)

// OutputFormat is the format for CLI output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat maps a flag value to an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	switch s {
	case "", "text":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// WriteProcessingResult writes one document run's result to w.
func WriteProcessingResult(w io.Writer, result *models.ProcessingResult, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	fmt.Fprintf(w, "document:  %s\n", result.DocumentID)
	fmt.Fprintf(w, "status:    %s\n", result.Status())
	fmt.Fprintf(w, "duration:  %dms\n", result.DurationMs)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "stages:")
	for _, name := range stageOrder(result.Stages) {
		stage := result.Stages[name]
		mark := "ok"
		if !stage.Success {
			mark = "FAILED"
		}
		fmt.Fprintf(w, "  %-12s %s", name, mark)
		if stage.Error != "" {
			fmt.Fprintf(w, "  (%s)", stage.Error)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)
	s := result.Summary
	fmt.Fprintf(w, "text_length:        %d\n", s.TextLength)
	fmt.Fprintf(w, "injuries:           %d\n", s.InjuryCount)
	fmt.Fprintf(w, "diagnoses:          %d\n", s.DiagnosisCount)
	fmt.Fprintf(w, "procedures:         %d\n", s.ProcedureCount)
	fmt.Fprintf(w, "medications:        %d\n", s.MedicationCount)
	fmt.Fprintf(w, "embeddings_stored:  %d\n", s.EmbeddingsStored)
	fmt.Fprintf(w, "stores_updated:     %d of 4\n", s.StoresUpdated)
	return nil
}

// stageOrder returns the run's stage names in pipeline order; unknown names
// go last, alphabetically.
func stageOrder(stages map[string]models.StageResult) []string {
	known := []string{
		models.StageValidation, models.StageIdentity, models.StageExtraction,
		models.StageSections, models.StageEntities, models.StageChunking,
		models.StageEmbedding, models.StageStorage,
	}
	ordered := make([]string, 0, len(stages))
	seen := make(map[string]bool, len(stages))
	for _, name := range known {
		if _, ok := stages[name]; ok {
			ordered = append(ordered, name)
			seen[name] = true
		}
	}
	var rest []string
	for name := range stages {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(ordered, rest...)
}

// WriteSearchHits writes retrieval hits to w in the given format.
func WriteSearchHits(w io.Writer, hits []*retrieval.FusedHit, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	}
	if len(hits) == 0 {
		fmt.Fprintln(w, "no matches")
		return nil
	}
	for i, hit := range hits {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f (Keyword: %.4f, Semantic: %.4f)\n",
			i+1, hit.Score, hit.KeywordScore, hit.SemanticScore)
		fmt.Fprintf(w, "Document: %s | Section: %s\n", hit.DocumentID, hit.Section)
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(hit.Text, 200))
	}
	return nil
}
