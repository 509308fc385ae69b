package sections

import (
	"strings"
	"testing"
)

func TestParse_SOAPNote(t *testing.T) {
	text := "Subjective: Patient reports knee pain.\n" +
		"Objective: Swelling observed on the left knee.\n" +
		"Assessment: Ligament strain.\n" +
		"Plan: Rest and physiotherapy for two weeks."
	got := Parse(text)

	if !strings.Contains(got[Subjective], "knee pain") {
		t.Errorf("subjective = %q", got[Subjective])
	}
	if !strings.Contains(got[Objective], "Swelling observed") {
		t.Errorf("objective = %q", got[Objective])
	}
	if !strings.Contains(got[Assessment], "Ligament strain") {
		t.Errorf("assessment = %q", got[Assessment])
	}
	if !strings.Contains(got[Plan], "physiotherapy") {
		t.Errorf("plan = %q", got[Plan])
	}
	// Each section stops at the next trigger.
	if strings.Contains(got[Subjective], "Swelling") {
		t.Error("subjective bleeds into objective")
	}
}

func TestParse_CaseInsensitive(t *testing.T) {
	got := Parse("CHIEF COMPLAINT: back pain since Monday")
	if !strings.Contains(got[Subjective], "back pain") {
		t.Errorf("subjective = %q", got[Subjective])
	}
}

func TestParse_NoTriggers(t *testing.T) {
	text := "Free-form narrative with no recognizable headers at all."
	got := Parse(text)
	if got[GeneralSection] != text {
		t.Errorf("general = %q", got[GeneralSection])
	}
	if len(got) != 1 {
		t.Errorf("expected only the general section, got %d", len(got))
	}
}

func TestParse_Empty(t *testing.T) {
	if got := Parse("   \n "); len(got) != 0 {
		t.Errorf("expected no sections, got %v", got)
	}
}

func TestParse_LastSectionRunsToEnd(t *testing.T) {
	got := Parse("Plan: follow up in six weeks and continue exercises")
	if !strings.Contains(got[Plan], "continue exercises") {
		t.Errorf("plan = %q", got[Plan])
	}
}
