// Package server provides the HTTP API for Curalog.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/curalog/curalog/internal/coordinator"
	"github.com/curalog/curalog/internal/identity"
	"github.com/curalog/curalog/internal/models"
	"github.com/curalog/curalog/internal/retrieval"
)

// Processor runs one document through the pipeline synchronously.
type Processor interface {
	Validate(doc models.RawDocument) error
	Process(ctx context.Context, doc models.RawDocument) *models.ProcessingResult
}

// Queue accepts documents for background processing and answers status
// queries for past and in-flight runs.
type Queue interface {
	Submit(doc models.RawDocument) (string, error)
	Status(ctx context.Context, documentID string) (string, *models.ProcessingResult, error)
	Running() int
}

// Searcher answers patient-scoped retrieval queries.
type Searcher interface {
	Search(ctx context.Context, q retrieval.Query) (*retrieval.Response, error)
}

// Eraser removes a patient's data from every backend.
type Eraser interface {
	DeletePatient(ctx context.Context, patientID string) ([]coordinator.Outcome, error)
}

// Stats exposes the counters shown by the status endpoint. Any field may be
// nil; the endpoint reports what it can reach.
type Stats struct {
	CountRecords func(ctx context.Context) (int64, error)
	VectorSize   func() int
	ChunkCount   func() (uint64, error)
}

// Config holds the listen address and request timeout for the API server.
type Config struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Server is the HTTP server for the Curalog API.
type Server struct {
	processor Processor
	queue     Queue
	engine    Searcher
	eraser    Eraser
	ids       *identity.Manager
	stats     Stats
	config    Config
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies. engine and eraser
// may be nil; the corresponding endpoints then return 501.
func NewServer(
	processor Processor,
	queue Queue,
	engine Searcher,
	eraser Eraser,
	ids *identity.Manager,
	stats Stats,
	cfg Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 60
	}
	return &Server{
		processor: processor,
		queue:     queue,
		engine:    engine,
		eraser:    eraser,
		ids:       ids,
		stats:     stats,
		config:    cfg,
		logger:    logger,
	}
}

// Router builds the chi router with all routes and middleware attached.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Duration(s.config.TimeoutSeconds) * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/documents", s.handleSubmitDocument)
	r.Get("/api/v1/documents/{documentID}/result", s.handleDocumentResult)
	r.Post("/api/v1/patients/search", s.handlePatientSearch)
	r.Delete("/api/v1/patients", s.handleDeletePatient)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
