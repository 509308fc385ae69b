package fileid

import (
	"strings"
	"testing"
)

func TestDocumentIDDeterministic(t *testing.T) {
	a := DocumentID("/intake/caller-1/visit.pdf")
	b := DocumentID("/intake/caller-1/visit.pdf")
	if a != b {
		t.Errorf("same path should yield same ID: %s vs %s", a, b)
	}
}

func TestDocumentIDNormalizesPath(t *testing.T) {
	a := DocumentID("/intake/caller-1/visit.pdf")
	b := DocumentID("/intake/caller-1/../caller-1/visit.pdf")
	if a != b {
		t.Errorf("cleaned paths should match: %s vs %s", a, b)
	}
}

func TestDocumentIDDistinctPaths(t *testing.T) {
	a := DocumentID("/intake/caller-1/visit.pdf")
	b := DocumentID("/intake/caller-2/visit.pdf")
	if a == b {
		t.Error("different paths must yield different IDs")
	}
}

func TestDocumentIDShape(t *testing.T) {
	id := DocumentID("/intake/caller-1/visit.pdf")
	if !strings.HasPrefix(id, "doc-") {
		t.Errorf("missing prefix: %s", id)
	}
	if len(id) != len("doc-")+16 {
		t.Errorf("unexpected length: %s", id)
	}
}
