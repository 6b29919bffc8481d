package config

import (
	_ "embed"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed models.yaml
var modelsYAML []byte

// DefaultDimension is used when the configured model is not listed in models.yaml.
const DefaultDimension = 512

type Config struct {
	Face   FaceConfig
	Index  IndexConfig
	Engine EngineConfig
	Server ServerConfig
	Models ModelsConfig
}

// FaceConfig configures the face embedding server client.
type FaceConfig struct {
	URL      string        // face server base URL (defaults to http://localhost:8000)
	Model    string        // embedding model identifier (defaults to Facenet512)
	Detector string        // detector backend identifier (defaults to opencv)
	MinScore float64       // minimum detector confidence for a face to count
	Timeout  time.Duration // extraction timeout, 0 disables the deadline
}

// IndexConfig configures the similarity index backend.
type IndexConfig struct {
	Mode         string // "local" (file-backed HNSW) or "remote" (Postgres/pgvector)
	LocalPath    string // index file path for local mode
	DatabaseURL  string // PostgreSQL connection URL for remote mode
	MaxOpenConns int
	MaxIdleConns int
}

// EngineConfig holds matching defaults applied when a request omits them.
type EngineConfig struct {
	TopK                int
	SimilarityThreshold float64
	MaxExtractions      int // concurrent embedding extractions
}

type ServerConfig struct {
	APIKey string // bearer token required on all API routes except health
}

type ModelsConfig struct {
	Models map[string]int `yaml:"models"`
}

// IsLocalMode returns true when the index runs against a local file.
func (c *IndexConfig) IsLocalMode() bool {
	return c.Mode != "remote"
}

// Dimension returns the embedding dimension for the configured model.
func (c *Config) Dimension() int {
	if dim, ok := c.Models.Models[c.Face.Model]; ok {
		return dim
	}
	return DefaultDimension
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

// envString reads an environment variable with a fallback default.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var models ModelsConfig
	if err := yaml.Unmarshal(modelsYAML, &models); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded models.yaml: " + err.Error())
	}

	return &Config{
		Face: FaceConfig{
			URL:      os.Getenv("FACE_SERVER_URL"),
			Model:    envString("FACE_MODEL", "Facenet512"),
			Detector: envString("FACE_DETECTOR", "opencv"),
			MinScore: envFloat("FACE_MIN_SCORE", 0.5),
			Timeout:  time.Duration(envInt("FACE_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Index: IndexConfig{
			Mode:         envString("INDEX_MODE", "local"),
			LocalPath:    envString("INDEX_LOCAL_PATH", "data/faces.index"),
			DatabaseURL:  os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Engine: EngineConfig{
			TopK:                envInt("TOP_K_RESULTS", 5),
			SimilarityThreshold: envFloat("SIMILARITY_THRESHOLD", 0.5),
			MaxExtractions:      envInt("MAX_EXTRACTIONS", 4),
		},
		Server: ServerConfig{
			APIKey: os.Getenv("API_KEY"),
		},
		Models: models,
	}
}
