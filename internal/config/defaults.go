package config

import "github.com/curalog/curalog/internal/coordinator"

// ApplyDefaults sets default values for any zero values in cfg.
// The identity salts default to development values; production deployments
// override them via the config file or environment.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.TimeoutSeconds == 0 {
		cfg.Server.TimeoutSeconds = 60
	}

	if cfg.Intake.Directory == "" {
		cfg.Intake.Directory = "/usr/local/var/curalog/intake"
	}
	if cfg.Intake.StagingDir == "" {
		cfg.Intake.StagingDir = "/usr/local/var/curalog/staging"
	}
	if cfg.Intake.Extensions == nil {
		cfg.Intake.Extensions = []string{".pdf"}
	}
	if cfg.Intake.DebounceMs == 0 {
		cfg.Intake.DebounceMs = 400
	}
	if cfg.Intake.MaxSyncFileSize == 0 {
		cfg.Intake.MaxSyncFileSize = 10 << 20
	}
	if cfg.Intake.MaxBackgroundFileSize == 0 {
		cfg.Intake.MaxBackgroundFileSize = 50 << 20
	}

	if cfg.Identity.Salt == "" {
		cfg.Identity.Salt = "curalog-dev-salt"
	}
	if cfg.Identity.StoreSalts == nil {
		cfg.Identity.StoreSalts = map[string]string{}
	}
	for _, backend := range append([]string{coordinator.BackendKeyword}, coordinator.Backends...) {
		if cfg.Identity.StoreSalts[backend] == "" {
			cfg.Identity.StoreSalts[backend] = "curalog-dev-salt-" + backend
		}
	}

	if cfg.OCR.TimeoutSeconds == 0 {
		cfg.OCR.TimeoutSeconds = 30
	}

	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 1536
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1024
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 10
	}
	if cfg.Embedding.RequestsPerSecond == 0 {
		cfg.Embedding.RequestsPerSecond = 5
	}

	if cfg.Chunking.MaxChunkSize == 0 {
		cfg.Chunking.MaxChunkSize = 300
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = 50
	}

	if cfg.Worker.PoolSize == 0 {
		cfg.Worker.PoolSize = 4
	}
	if cfg.Worker.TimeoutSeconds == 0 {
		cfg.Worker.TimeoutSeconds = 300
	}

	if cfg.Stores.DatabasePath == "" {
		cfg.Stores.DatabasePath = "/usr/local/var/curalog/data/records.db"
	}
	if cfg.Stores.GraphDir == "" {
		cfg.Stores.GraphDir = "/usr/local/var/curalog/data/graph"
	}
	if cfg.Stores.ProfileDir == "" {
		cfg.Stores.ProfileDir = "/usr/local/var/curalog/data/profiles"
	}
	if cfg.Stores.VectorIndexPath == "" {
		cfg.Stores.VectorIndexPath = "/usr/local/var/curalog/data/vectors.idx"
	}
	if cfg.Stores.BleveIndexPath == "" {
		cfg.Stores.BleveIndexPath = "/usr/local/var/curalog/data/chunks.bleve"
	}

	if cfg.Retrieval.DefaultLimit == 0 {
		cfg.Retrieval.DefaultLimit = 10
	}
	if cfg.Retrieval.KeywordWeight == 0 && cfg.Retrieval.SemanticWeight == 0 {
		cfg.Retrieval.KeywordWeight = 0.6
		cfg.Retrieval.SemanticWeight = 0.4
	}

	if cfg.Clinical.BodyParts == nil {
		cfg.Clinical.BodyParts = []string{
			"Knee", "Shoulder", "Ankle", "Hip", "Elbow", "Wrist",
			"Back", "Neck", "Head", "Spine", "Hand", "Foot",
		}
	}
	if cfg.Clinical.BodyRegions == nil {
		cfg.Clinical.BodyRegions = []string{
			"Knee", "Shoulder", "Ankle", "Hip", "Elbow", "Wrist",
			"Back", "Neck", "Head", "Spine", "Hand", "Foot",
		}
	}
	if cfg.Clinical.ChronicConditions == nil {
		cfg.Clinical.ChronicConditions = []string{
			"diabetes", "hypertension", "asthma", "arthritis",
			"osteoporosis", "copd", "chronic pain",
		}
	}
}
