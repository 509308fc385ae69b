// Package main is the Curalog CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/curalog/curalog/internal/chunker"
	"github.com/curalog/curalog/internal/cli"
	"github.com/curalog/curalog/internal/clinical"
	"github.com/curalog/curalog/internal/config"
	"github.com/curalog/curalog/internal/coordinator"
	"github.com/curalog/curalog/internal/embedding"
	"github.com/curalog/curalog/internal/extract"
	"github.com/curalog/curalog/internal/identity"
	"github.com/curalog/curalog/internal/keyword"
	"github.com/curalog/curalog/internal/models"
	"github.com/curalog/curalog/internal/ocr"
	"github.com/curalog/curalog/internal/pipeline"
	"github.com/curalog/curalog/internal/retrieval"
	"github.com/curalog/curalog/internal/server"
	"github.com/curalog/curalog/internal/store/graph"
	"github.com/curalog/curalog/internal/store/profile"
	"github.com/curalog/curalog/internal/store/sqlite"
	"github.com/curalog/curalog/internal/store/vector"
	"github.com/curalog/curalog/internal/watcher"
	"github.com/curalog/curalog/internal/worker"
	"github.com/curalog/curalog/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/curalog/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "process":
		runProcess()
	case "result":
		runResult()
	case "search":
		runSearch()
	case "status":
		runStatus()
	case "config":
		runConfigInit()
	case "version", "--version", "-v":
		fmt.Printf("curalog version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (intake events, stage outcomes, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	pool, err := worker.New(cfg.Worker.PoolSize, components.Pipeline, components.Documents,
		worker.WithTimeout(time.Duration(cfg.Worker.TimeoutSeconds)*time.Second),
		worker.WithLogger(logger),
	)
	if err != nil {
		logger.Fatal("Failed to start worker pool", zap.Error(err))
	}
	defer pool.Release()

	intake := watcher.New(cfg.Intake.Directory, cfg.Intake.StagingDir, cfg.Intake.Extensions, pool,
		watcher.WithDebounce(time.Duration(cfg.Intake.DebounceMs)*time.Millisecond),
		watcher.WithLogger(logger),
	)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := intake.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start intake watcher", zap.Error(err))
	}
	defer intake.Stop()

	srv := server.NewServer(
		components.Pipeline,
		pool,
		components.Engine,
		components.Coordinator,
		components.Identity,
		server.Stats{
			CountRecords: components.Documents.CountRecords,
			VectorSize:   components.Vectors.Size,
			ChunkCount:   components.Chunks.DocCount,
		},
		server.Config{
			Host:           cfg.Server.Host,
			Port:           cfg.Server.Port,
			TimeoutSeconds: cfg.Server.TimeoutSeconds,
		},
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runProcess() {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	callerID := fs.String("caller", "", "caller identifier the document belongs to (required)")
	title := fs.String("title", "", "document title (default: file name)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 || *callerID == "" {
		fmt.Println("Usage: curalog process --caller <caller-id> [flags] <file>")
		os.Exit(1)
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	// The pipeline removes its input file after the run, so hand it a
	// staged copy rather than the caller's original.
	staged, err := stageCopy(path, cfg.Intake.StagingDir)
	if err != nil {
		fmt.Printf("Failed to stage file: %v\n", err)
		os.Exit(1)
	}

	docTitle := *title
	if docTitle == "" {
		docTitle = filepath.Base(path)
	}
	doc := models.RawDocument{
		FilePath: staged,
		CallerID: *callerID,
		Metadata: map[string]string{"title": docTitle},
	}
	if err := components.Pipeline.Validate(doc); err != nil {
		_ = os.Remove(staged)
		fmt.Printf("Document rejected: %v\n", err)
		os.Exit(1)
	}

	result := components.Pipeline.Process(context.Background(), doc)
	if err := cli.WriteProcessingResult(os.Stdout, result, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
	if !result.Success {
		os.Exit(1)
	}
}

// stageCopy copies path into stagingDir and returns the copy's path.
func stageCopy(path, stagingDir string) (string, error) {
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return "", err
	}
	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()
	staged := filepath.Join(stagingDir, fmt.Sprintf("cli-%d%s", time.Now().UnixNano(), filepath.Ext(path)))
	dst, err := os.Create(staged)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(staged)
		return "", err
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(staged)
		return "", err
	}
	return staged, nil
}

func runResult() {
	fs := flag.NewFlagSet("result", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: curalog result [flags] <document-id>")
		os.Exit(1)
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	documentID := fs.Arg(0)

	resp, err := http.Get(*serverURL + "/api/v1/documents/" + documentID + "/result")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	var envelope struct {
		DocumentID string                   `json:"document_id"`
		Status     string                   `json:"status"`
		Message    string                   `json:"message,omitempty"`
		Result     *models.ProcessingResult `json:"result,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		fmt.Fprintf(os.Stderr, "Decode response failed: %v\n", err)
		os.Exit(1)
	}
	if envelope.Result == nil {
		fmt.Printf("document:  %s\nstatus:    %s\n", envelope.DocumentID, envelope.Status)
		if envelope.Message != "" {
			fmt.Printf("message:   %s\n", envelope.Message)
		}
		if resp.StatusCode == http.StatusNotFound {
			os.Exit(1)
		}
		return
	}
	if err := cli.WriteProcessingResult(os.Stdout, envelope.Result, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	callerID := fs.String("caller", "", "caller identifier to search within (required)")
	limit := fs.Int("limit", 10, "number of results")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 || *callerID == "" {
		fmt.Println("Usage: curalog search --caller <caller-id> [flags] <query>")
		os.Exit(1)
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	query := strings.TrimSpace(strings.Join(fs.Args(), " "))

	body, err := json.Marshal(map[string]interface{}{
		"caller_id": *callerID,
		"query":     query,
		"limit":     *limit,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Encode request failed: %v\n", err)
		os.Exit(1)
	}
	resp, err := http.Post(*serverURL+"/api/v1/patients/search", "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Search failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var searchResp struct {
		Hits  []*retrieval.FusedHit `json:"hits"`
		Total int                   `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		fmt.Fprintf(os.Stderr, "Decode response failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchHits(os.Stdout, searchResp.Hits, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Status failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var status struct {
		ClinicalRecords int64  `json:"clinical_records"`
		IndexedChunks   uint64 `json:"indexed_chunks"`
		VectorIndexSize int    `json:"vector_index_size"`
		WorkersRunning  int    `json:"workers_running"`
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Read response failed: %v\n", err)
		os.Exit(1)
	}
	if err := json.Unmarshal(raw, &status); err != nil {
		fmt.Fprintf(os.Stderr, "Decode response failed: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		os.Stdout.Write(raw)
		fmt.Println()
	case "text":
		fmt.Printf("clinical_records:   %d   # stored structured records\n", status.ClinicalRecords)
		fmt.Printf("indexed_chunks:     %d   # chunks in keyword index\n", status.IndexedChunks)
		fmt.Printf("vector_index_size:  %d   # embeddings in semantic index\n", status.VectorIndexSize)
		fmt.Printf("workers_running:    %d   # in-flight background runs\n", status.WorkersRunning)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Identity    *identity.Manager
	Documents   *sqlite.Store
	Graph       *graph.Store
	Profile     *profile.Store
	Vectors     *vector.Store
	Chunks      *keyword.BleveIndex
	Embedder    embedding.Embedder
	Coordinator *coordinator.Coordinator
	Pipeline    *pipeline.Pipeline
	Engine      *retrieval.Engine
}

func (c *Components) Close() {
	if c.Chunks != nil {
		_ = c.Chunks.Close()
	}
	if c.Vectors != nil {
		_ = c.Vectors.Close()
	}
	if c.Graph != nil {
		_ = c.Graph.Close()
	}
	if c.Profile != nil {
		_ = c.Profile.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Documents != nil {
		_ = c.Documents.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	ids := identity.NewManager(cfg.Identity.Salt, cfg.Identity.StoreSalts)

	documents, err := sqlite.New(cfg.Stores.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize document store: %w", err)
	}
	graphStore, err := graph.New(cfg.Stores.GraphDir, cfg.Clinical.BodyRegions, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize graph store: %w", err)
	}
	profileStore, err := profile.New(cfg.Stores.ProfileDir, cfg.Clinical.ChronicConditions, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize profile store: %w", err)
	}
	vectors, err := vector.New(cfg.Embedding.Dimensions, cfg.Stores.VectorIndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	chunks, err := keyword.NewBleveIndex(cfg.Stores.BleveIndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chunk index: %w", err)
	}

	var embedder embedding.Embedder
	if cfg.Embedding.BaseURL == "" && cfg.Embedding.APIKey == "" {
		logger.Warn("no embedding provider configured, using mock embedder")
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	} else {
		openaiEmbedder, err := embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
			BaseURL:           cfg.Embedding.BaseURL,
			APIKey:            cfg.Embedding.APIKey,
			Model:             cfg.Embedding.Model,
			Dimensions:        cfg.Embedding.Dimensions,
			CacheSize:         cfg.Embedding.CacheSize,
			RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
		}, logger)
		if err != nil {
			logger.Warn("embedding provider unavailable, using mock embedder", zap.Error(err))
			embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
		} else {
			embedder = openaiEmbedder
		}
	}

	var recognizer ocr.Recognizer
	if cfg.OCR.Endpoint != "" {
		recognizer = ocr.NewHTTPClient(&ocr.Config{
			Endpoint: cfg.OCR.Endpoint,
			APIToken: cfg.OCR.APIToken,
			Timeout:  time.Duration(cfg.OCR.TimeoutSeconds) * time.Second,
		})
	}
	extractOpts := []extract.Option{}
	if debug {
		extractOpts = append(extractOpts, extract.WithLogger(logger))
	}
	textExtractor := extract.NewExtractor(recognizer, extractOpts...)

	clinicalExtractor := clinical.NewExtractor(cfg.Clinical.BodyParts)
	textChunker := chunker.New(cfg.Chunking.MaxChunkSize, cfg.Chunking.Overlap)
	embedStage := embedding.NewStage(embedder, cfg.Embedding.BatchSize, logger)

	coord := coordinator.New(ids, documents, graphStore, vectors, profileStore, chunks, logger)

	pipe := pipeline.New(pipeline.Config{
		SupportedExtensions:   cfg.Intake.Extensions,
		MaxSyncFileSize:       cfg.Intake.MaxSyncFileSize,
		MaxBackgroundFileSize: cfg.Intake.MaxBackgroundFileSize,
	}, ids, textExtractor, clinicalExtractor, textChunker, embedStage, coord, documents, logger)

	engine := retrieval.NewEngine(ids, vectors, chunks, embedder, logger,
		retrieval.WithWeights(cfg.Retrieval.KeywordWeight, cfg.Retrieval.SemanticWeight),
		retrieval.WithDefaultLimit(cfg.Retrieval.DefaultLimit))

	return &Components{
		Identity:    ids,
		Documents:   documents,
		Graph:       graphStore,
		Profile:     profileStore,
		Vectors:     vectors,
		Chunks:      chunks,
		Embedder:    embedder,
		Coordinator: coord,
		Pipeline:    pipe,
		Engine:      engine,
	}, nil
}

// runConfigInit writes a config file populated with the defaults, as a
// starting point for a new deployment.
func runConfigInit() {
	if len(os.Args) < 3 || os.Args[2] != "init" {
		fmt.Println("Usage: curalog config init [flags]")
		os.Exit(1)
	}
	fs := flag.NewFlagSet("config init", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	force := fs.Bool("force", false, "overwrite an existing config file")
	_ = fs.Parse(os.Args[3:])

	if err := writeDefaultConfig(*configPath, *force); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote default config to %s\n", *configPath)
}

// writeDefaultConfig saves a config populated with the defaults to path.
// An existing file is only replaced when force is set.
func writeDefaultConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
	}
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return config.Save(path, cfg)
}

func printUsage() {
	fmt.Println(`curalog - Clinical document ingestion and retrieval service

Usage:
  curalog server [flags]                       Start the HTTP server and intake watcher
  curalog process --caller <id> [flags] <file>  Process one document synchronously
  curalog result [flags] <document-id>         Fetch a document's processing result
  curalog search --caller <id> [flags] <query>  Search a caller's documents
  curalog status [flags]                       Show store and worker status
  curalog config init [flags]                  Write a default config file
  curalog version                              Show version
  curalog help                                 Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/curalog/config.yaml)
  --debug            Enable debug logging (intake events, stage outcomes, etc.)

Process Flags:
  --config string    Config file path
  --caller string    Caller identifier the document belongs to (required)
  --title string     Document title (default: file name)
  --output string    Output format: text or json (default: text)

Result / Search / Status Flags:
  --server string    Server URL (default: http://localhost:8080)
  --output string    Output format: text or json (default: text)
  --caller string    Caller identifier (search only, required)
  --limit int        Number of results (search only, default: 10)

Examples:
  curalog server
  curalog process --caller clinic-42 visit-notes.pdf
  curalog result doc-1a2b3c4d5e6f7a8b
  curalog search --caller clinic-42 "knee pain"
  curalog status --output json`)
}
