package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/curalog/curalog/internal/models"
	"github.com/curalog/curalog/internal/retrieval"
)

func sampleResult() *models.ProcessingResult {
	return &models.ProcessingResult{
		DocumentID: "doc-1",
		Success:    true,
		Stages: map[string]models.StageResult{
			models.StageValidation: models.StageOK(),
			models.StageExtraction: models.StageOK(),
			models.StageStorage:    models.StageOK(),
		},
		Summary: models.RunSummary{
			TextLength:    1200,
			InjuryCount:   2,
			StoresUpdated: 4,
		},
		DurationMs: 85,
	}
}

func TestWriteProcessingResultText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteProcessingResult(&buf, sampleResult(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"doc-1", "completed", "validation", "storage", "4 of 4"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	// validation runs before storage
	if strings.Index(out, "validation") > strings.Index(out, "storage") {
		t.Error("stages not in pipeline order")
	}
}

func TestWriteProcessingResultFailedStage(t *testing.T) {
	result := sampleResult()
	result.Success = false
	result.Stages[models.StageExtraction] = models.StageResult{Success: false, Error: "document unreadable"}

	var buf bytes.Buffer
	if err := WriteProcessingResult(&buf, result, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "FAILED") || !strings.Contains(out, "document unreadable") {
		t.Errorf("failure not rendered:\n%s", out)
	}
	if !strings.Contains(out, "failed") {
		t.Errorf("status not rendered:\n%s", out)
	}
}

func TestWriteProcessingResultJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteProcessingResult(&buf, sampleResult(), OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.ProcessingResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.DocumentID != "doc-1" || !decoded.Success {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteSearchHits(t *testing.T) {
	hits := []*retrieval.FusedHit{
		{ChunkID: "ch-1", DocumentID: "doc-1", Section: "subjective",
			Text: "knee pain for two weeks", Score: 0.8, KeywordScore: 1.0},
	}
	var buf bytes.Buffer
	if err := WriteSearchHits(&buf, hits, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "doc-1") || !strings.Contains(out, "knee pain") {
		t.Errorf("output:\n%s", out)
	}

	buf.Reset()
	if err := WriteSearchHits(&buf, nil, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "no matches") {
		t.Errorf("empty output: %q", buf.String())
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(""); err != nil || f != OutputText {
		t.Errorf("default: %v %v", f, err)
	}
	if f, err := ParseFormat("json"); err != nil || f != OutputJSON {
		t.Errorf("json: %v %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("xml should be rejected")
	}
}
