// Package graph provides the Badger-backed patient event graph store.
// Each patient's graph links clinical events (injuries, diagnoses,
// procedures) to anatomical region nodes.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"go.uber.org/zap"

	"github.com/curalog/curalog/internal/models"
	"github.com/curalog/curalog/internal/store"
)

const graphKeyPrefix = "graph:"

// severityRank orders severities for the per-region recalculation pass.
var severityRank = map[string]int{
	models.SeverityMild:     1,
	models.SeverityModerate: 2,
	models.SeveritySevere:   3,
}

// Store implements store.GraphStore over BadgerDB.
type Store struct {
	db      *badger.DB
	regions []string
	logger  *zap.Logger
}

// badgerLogger adapts zap to the badger.Logger interface.
type badgerLogger struct {
	logger *zap.SugaredLogger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (b *badgerLogger) Errorf(msg string, args ...interface{})   { b.logger.Errorf(msg, args...) }
func (b *badgerLogger) Warningf(msg string, args ...interface{}) { b.logger.Warnf(msg, args...) }
func (b *badgerLogger) Infof(msg string, args ...interface{})    { b.logger.Debugf(msg, args...) }
func (b *badgerLogger) Debugf(msg string, args ...interface{})   { b.logger.Debugf(msg, args...) }

// New opens a graph store at dir. An empty dir opens an in-memory database.
// regions lists the anatomical regions every patient graph starts with.
func New(dir string, regions []string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create graph directory: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = &badgerLogger{logger: logger.Sugar()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph database: %w", err)
	}
	return &Store{db: db, regions: regions, logger: logger}, nil
}

func graphKey(patientKey string) []byte {
	return []byte(graphKeyPrefix + patientKey)
}

// PutEvents merges one document's events into the patient graph and
// recalculates per-region severity across all stored events.
func (s *Store) PutEvents(ctx context.Context, patientKey string, record *models.ClinicalRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		graph, err := s.loadGraph(txn, patientKey)
		if err != nil {
			return err
		}
		if graph == nil {
			graph = s.newGraph(patientKey)
		}
		mergeRecord(graph, record)
		recalcSeverity(graph)

		payload, err := json.Marshal(graph)
		if err != nil {
			return fmt.Errorf("failed to marshal graph: %w", err)
		}
		return txn.Set(graphKey(patientKey), payload)
	})
}

// GetGraph returns the stored graph for a patient.
func (s *Store) GetGraph(ctx context.Context, patientKey string) (*store.PatientGraph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var graph *store.PatientGraph
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		graph, err = s.loadGraph(txn, patientKey)
		return err
	})
	if err != nil {
		return nil, err
	}
	if graph == nil {
		return nil, store.ErrNotFound
	}
	return graph, nil
}

// DeletePatient removes the patient's entire graph.
func (s *Store) DeletePatient(ctx context.Context, patientKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(graphKey(patientKey))
	})
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) loadGraph(txn *badger.Txn, patientKey string) (*store.PatientGraph, error) {
	item, err := txn.Get(graphKey(patientKey))
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var graph store.PatientGraph
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &graph)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal graph: %w", err)
	}
	return &graph, nil
}

// newGraph seeds a patient graph with the patient node and the fixed
// anatomical region nodes.
func (s *Store) newGraph(patientKey string) *store.PatientGraph {
	graph := &store.PatientGraph{
		PatientKey:     patientKey,
		RegionSeverity: make(map[string]string),
	}
	graph.Nodes = append(graph.Nodes, store.GraphNode{
		ID: "patient:" + patientKey, Kind: "patient", Label: patientKey,
	})
	for _, region := range s.regions {
		addRegion(graph, region)
	}
	return graph
}

func regionID(region string) string {
	return "region:" + strings.ToLower(region)
}

func addRegion(graph *store.PatientGraph, region string) string {
	id := regionID(region)
	for _, n := range graph.Nodes {
		if n.ID == id {
			return id
		}
	}
	graph.Nodes = append(graph.Nodes, store.GraphNode{
		ID: id, Kind: "region", Label: region,
	})
	return id
}

// mergeRecord adds one document's event nodes and edges. Re-merging the
// same document replaces its previous events.
func mergeRecord(graph *store.PatientGraph, record *models.ClinicalRecord) {
	removeDocument(graph, record.DocumentID)
	patientNode := "patient:" + graph.PatientKey
	docPrefix := "event:" + record.DocumentID + ":"

	for i, inj := range record.Injuries {
		id := fmt.Sprintf("%sinjury:%d", docPrefix, i)
		graph.Nodes = append(graph.Nodes, store.GraphNode{
			ID: id, Kind: "event", Label: inj.BodyPart + " injury",
			Properties: map[string]string{
				"type": "injury", "severity": inj.Severity, "date": inj.Date,
				"document_id": record.DocumentID,
			},
		})
		graph.Edges = append(graph.Edges, store.GraphEdge{From: patientNode, To: id, Relation: "has_event"})
		region := addRegion(graph, inj.BodyPart)
		graph.Edges = append(graph.Edges, store.GraphEdge{From: id, To: region, Relation: "affects"})
	}

	for i, d := range record.Diagnoses {
		id := fmt.Sprintf("%sdiagnosis:%d", docPrefix, i)
		graph.Nodes = append(graph.Nodes, store.GraphNode{
			ID: id, Kind: "event", Label: d.Name,
			Properties: map[string]string{
				"type": "diagnosis", "code": d.Code, "document_id": record.DocumentID,
			},
		})
		graph.Edges = append(graph.Edges, store.GraphEdge{From: patientNode, To: id, Relation: "has_event"})
	}

	for i, p := range record.Procedures {
		id := fmt.Sprintf("%sprocedure:%d", docPrefix, i)
		graph.Nodes = append(graph.Nodes, store.GraphNode{
			ID: id, Kind: "event", Label: p.Name,
			Properties: map[string]string{
				"type": "procedure", "date": p.Date, "document_id": record.DocumentID,
			},
		})
		graph.Edges = append(graph.Edges, store.GraphEdge{From: patientNode, To: id, Relation: "has_event"})
	}
}

// removeDocument drops all event nodes and edges previously merged from a
// document.
func removeDocument(graph *store.PatientGraph, documentID string) {
	docPrefix := "event:" + documentID + ":"
	nodes := graph.Nodes[:0]
	removed := make(map[string]bool)
	for _, n := range graph.Nodes {
		if n.Kind == "event" && strings.HasPrefix(n.ID, docPrefix) {
			removed[n.ID] = true
			continue
		}
		nodes = append(nodes, n)
	}
	graph.Nodes = nodes

	edges := graph.Edges[:0]
	for _, e := range graph.Edges {
		if removed[e.From] || removed[e.To] {
			continue
		}
		edges = append(edges, e)
	}
	graph.Edges = edges
}

// recalcSeverity rebuilds the per-region severity map from all injury
// events currently in the graph, keeping the highest severity per region.
func recalcSeverity(graph *store.PatientGraph) {
	severity := make(map[string]string)
	byID := make(map[string]store.GraphNode, len(graph.Nodes))
	for _, n := range graph.Nodes {
		byID[n.ID] = n
	}
	for _, e := range graph.Edges {
		if e.Relation != "affects" {
			continue
		}
		event, ok := byID[e.From]
		if !ok || event.Properties["type"] != "injury" {
			continue
		}
		region, ok := byID[e.To]
		if !ok {
			continue
		}
		sev := event.Properties["severity"]
		if severityRank[sev] > severityRank[severity[region.Label]] {
			severity[region.Label] = sev
		}
	}
	graph.RegionSeverity = severity
}
