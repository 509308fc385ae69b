package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curalog/curalog/internal/models"
	"github.com/curalog/curalog/internal/store"
)

var testRegions = []string{"Knee", "Shoulder", "Back"}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New("", testRegions, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func injuryRecord(docID, bodyPart, severity string) *models.ClinicalRecord {
	record := models.NewClinicalRecord("pt-g", docID)
	record.Injuries = append(record.Injuries, models.Injury{
		BodyPart: bodyPart, Severity: severity, Date: "2023-01-15",
	})
	return record
}

func TestPutEventsBuildsGraph(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	record := injuryRecord("doc-1", "Knee", models.SeverityModerate)
	record.Diagnoses = append(record.Diagnoses, models.Diagnosis{Name: "Sprain", Code: "845.0"})
	record.Procedures = append(record.Procedures, models.Procedure{Name: "MRI", Date: "2023-01-20"})
	require.NoError(t, s.PutEvents(ctx, "pt-g", record))

	graph, err := s.GetGraph(ctx, "pt-g")
	require.NoError(t, err)

	var patients, regions, events int
	for _, n := range graph.Nodes {
		switch n.Kind {
		case "patient":
			patients++
		case "region":
			regions++
		case "event":
			events++
		}
	}
	assert.Equal(t, 1, patients)
	assert.Equal(t, len(testRegions), regions, "fixed regions seeded")
	assert.Equal(t, 3, events, "injury, diagnosis, procedure")
	assert.Equal(t, models.SeverityModerate, graph.RegionSeverity["Knee"])

	var affects int
	for _, e := range graph.Edges {
		if e.Relation == "affects" {
			affects++
		}
	}
	assert.Equal(t, 1, affects, "only the injury links to a region")
}

func TestRemergeReplacesDocumentEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutEvents(ctx, "pt-g", injuryRecord("doc-1", "Knee", models.SeveritySevere)))
	require.NoError(t, s.PutEvents(ctx, "pt-g", injuryRecord("doc-1", "Shoulder", models.SeverityMild)))

	graph, err := s.GetGraph(ctx, "pt-g")
	require.NoError(t, err)

	var events int
	for _, n := range graph.Nodes {
		if n.Kind == "event" {
			events++
		}
	}
	assert.Equal(t, 1, events, "reprocessing a document replaces its events")
	assert.Empty(t, graph.RegionSeverity["Knee"], "stale severity cleared on remerge")
	assert.Equal(t, models.SeverityMild, graph.RegionSeverity["Shoulder"])
}

func TestSeverityAcrossDocuments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutEvents(ctx, "pt-g", injuryRecord("doc-1", "Knee", models.SeverityMild)))
	require.NoError(t, s.PutEvents(ctx, "pt-g", injuryRecord("doc-2", "Knee", models.SeveritySevere)))
	require.NoError(t, s.PutEvents(ctx, "pt-g", injuryRecord("doc-3", "Knee", models.SeverityModerate)))

	graph, err := s.GetGraph(ctx, "pt-g")
	require.NoError(t, err)
	assert.Equal(t, models.SeveritySevere, graph.RegionSeverity["Knee"], "highest severity wins")
}

func TestUnknownRegionAdded(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutEvents(ctx, "pt-g", injuryRecord("doc-1", "Elbow", models.SeverityMild)))
	graph, err := s.GetGraph(ctx, "pt-g")
	require.NoError(t, err)

	found := false
	for _, n := range graph.Nodes {
		if n.Kind == "region" && n.Label == "Elbow" {
			found = true
		}
	}
	assert.True(t, found, "regions outside the fixed set are added on demand")
}

func TestGetGraphNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetGraph(context.Background(), "pt-missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeletePatientIsolated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutEvents(ctx, "pt-a", injuryRecord("doc-1", "Knee", models.SeverityMild)))
	other := models.NewClinicalRecord("pt-b", "doc-2")
	other.Injuries = append(other.Injuries, models.Injury{BodyPart: "Back", Severity: models.SeveritySevere})
	require.NoError(t, s.PutEvents(ctx, "pt-b", other))

	require.NoError(t, s.DeletePatient(ctx, "pt-a"))
	_, err := s.GetGraph(ctx, "pt-a")
	assert.ErrorIs(t, err, store.ErrNotFound)

	graph, err := s.GetGraph(ctx, "pt-b")
	require.NoError(t, err)
	assert.Equal(t, models.SeveritySevere, graph.RegionSeverity["Back"])
}
