package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port             int              `json:"port"`
	Database         DatabaseConfig   `json:"database"`
	LogConfig        logger.LogConfig `json:"log_config"`
	AI               AIConfig         `json:"ai"`
	Chunking         ChunkingConfig   `json:"chunking"`
	Build            BuildConfig      `json:"build"`
	Retrieval        RetrievalConfig  `json:"retrieval"`
	CORSAllowOrigins []string         `json:"cors_allow_origins"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type AIConfig struct {
	Provider          string `json:"provider"`
	EmbedModel        string `json:"embed_model"`
	EmbedDim          int    `json:"embed_dim"`
	BatchSize         int    `json:"batch_size"`
	MaxAttempts       int    `json:"max_attempts"`
	TimeoutSeconds    int    `json:"timeout_seconds"`
	RequestsPerMinute int    `json:"requests_per_minute"`
}

type ChunkingConfig struct {
	ChunkSize int `json:"chunk_size"`
	Overlap   int `json:"overlap"`
}

type BuildConfig struct {
	Workers          int `json:"workers"`
	QueueSize        int `json:"queue_size"`
	EmbedConcurrency int `json:"embed_concurrency"`
	StaleAfterMin    int `json:"stale_after_minutes"`
}

type RetrievalConfig struct {
	TopK           int `json:"top_k"`
	NeighborRadius int `json:"neighbor_radius"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "gemini"
	}
	if cfg.AI.EmbedModel == "" {
		cfg.AI.EmbedModel = "text-embedding-004"
	}
	if cfg.AI.EmbedDim == 0 {
		cfg.AI.EmbedDim = 768
	}
	if cfg.AI.BatchSize == 0 {
		cfg.AI.BatchSize = 20
	}
	if cfg.AI.MaxAttempts == 0 {
		cfg.AI.MaxAttempts = 4
	}
	if cfg.AI.TimeoutSeconds == 0 {
		cfg.AI.TimeoutSeconds = 30
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = 200
	}
	if cfg.Chunking.ChunkSize < 0 {
		return nil, fmt.Errorf("chunking.chunk_size must be positive")
	}
	if cfg.Chunking.Overlap < 0 || cfg.Chunking.Overlap >= cfg.Chunking.ChunkSize {
		return nil, fmt.Errorf("chunking.overlap must be in [0, chunk_size)")
	}
	if cfg.Build.Workers == 0 {
		cfg.Build.Workers = 2
	}
	if cfg.Build.QueueSize == 0 {
		cfg.Build.QueueSize = 16
	}
	if cfg.Build.EmbedConcurrency == 0 {
		cfg.Build.EmbedConcurrency = 4
	}
	if cfg.Build.StaleAfterMin == 0 {
		cfg.Build.StaleAfterMin = 30
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.NeighborRadius == 0 {
		cfg.Retrieval.NeighborRadius = 2
	}
	return &cfg, nil
}
