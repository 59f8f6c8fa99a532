package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed models.yaml
var modelsYAML []byte

type Config struct {
	Embedding EmbeddingConfig
	Matching  MatchingConfig
	Database  DatabaseConfig
	MariaDB   MariaDBConfig
	Web       WebConfig
	Models    ModelsConfig
}

type EmbeddingConfig struct {
	URL     string // defaults to http://localhost:8000
	Model   string // defaults to arcface-r100
	Dim     int    // defaults from the model registry, 512 if the model is unknown
	MaxEdge int    // longest image edge sent to the embedding service (default 1024)
}

type MatchingConfig struct {
	Threshold float64 // minimum cosine similarity to accept a match (default 0.85)
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type MariaDBConfig struct {
	DSN string // MariaDB DSN (e.g. emr:emr@tcp(mariadb:3306)/emr?parseTime=true)
}

type WebConfig struct {
	Host string // defaults to 0.0.0.0
	Port int    // defaults to 8080
}

type ModelsConfig struct {
	Models map[string]ModelInfo `yaml:"models"`
}

type ModelInfo struct {
	Dim         int    `yaml:"dim"`
	Description string `yaml:"description"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var models ModelsConfig
	if err := yaml.Unmarshal(modelsYAML, &models); err != nil {
		// Embedded file, so this can only fail if the file is broken at build time
		panic("failed to unmarshal embedded models.yaml: " + err.Error())
	}

	model := envString("EMBEDDING_MODEL", "arcface-r100")
	dim := 512
	if info, ok := models.Models[model]; ok {
		dim = info.Dim
	}

	return &Config{
		Embedding: EmbeddingConfig{
			URL:     envString("EMBEDDING_URL", "http://localhost:8000"),
			Model:   model,
			Dim:     envInt("EMBEDDING_DIM", dim),
			MaxEdge: envInt("EMBEDDING_MAX_EDGE", 1024),
		},
		Matching: MatchingConfig{
			Threshold: envFloat("MATCH_THRESHOLD", 0.85),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		MariaDB: MariaDBConfig{
			DSN: os.Getenv("MARIADB_DSN"),
		},
		Web: WebConfig{
			Host: envString("WEB_HOST", "0.0.0.0"),
			Port: envInt("WEB_PORT", 8080),
		},
		Models: models,
	}
}

// ModelDim returns the embedding dimensionality of a known model.
func (c *Config) ModelDim(model string) (int, error) {
	info, ok := c.Models.Models[model]
	if !ok {
		return 0, fmt.Errorf("unknown embedding model %q", model)
	}
	return info.Dim, nil
}
