package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	Host        string
	Port        string
	Environment string
	GinMode     string

	// Database
	DatabaseURL string

	// Ollama (local inference, no API keys)
	OllamaBaseURL        string
	OllamaModel          string
	OllamaEmbeddingModel string
	GenerateTimeout      time.Duration
	EmbedTimeout         time.Duration
	ProbeTimeout         time.Duration

	// Embeddings
	EmbeddingDimensions int
	EmbedConcurrency    int

	// RAG
	RAGEnabled         bool
	MaxContextChunks   int
	RelevanceThreshold float64
	ChunkSize          int
	ChunkOverlap       int

	// File Storage
	UploadDir         string
	MaxUploadSize     int64
	AllowedExtensions []string
}

func Load() *Config {
	return &Config{
		Host:        getEnv("HOST", "0.0.0.0"),
		Port:        getEnv("PORT", "8000"),
		Environment: getEnv("ENVIRONMENT", "development"),
		GinMode:     getEnv("GIN_MODE", "debug"),

		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/biasdetector?sslmode=disable"),

		OllamaBaseURL:        getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:          getEnv("OLLAMA_MODEL", "llama3.2"),
		OllamaEmbeddingModel: getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
		GenerateTimeout:      getEnvDuration("OLLAMA_GENERATE_TIMEOUT", 120*time.Second),
		EmbedTimeout:         getEnvDuration("OLLAMA_EMBED_TIMEOUT", 60*time.Second),
		ProbeTimeout:         getEnvDuration("OLLAMA_PROBE_TIMEOUT", 5*time.Second),

		// nomic-embed-text produces 768-dim vectors
		EmbeddingDimensions: int(getEnvInt64("EMBEDDING_DIMENSIONS", 768)),
		EmbedConcurrency:    int(getEnvInt64("EMBED_CONCURRENCY", 4)),

		RAGEnabled:       getEnvBool("RAG_ENABLED", true),
		MaxContextChunks: int(getEnvInt64("RAG_MAX_CONTEXT_CHUNKS", 5)),
		// Tuned for similarity scores from small local embedding models; a
		// hosted embedding backend would want something closer to 0.7.
		RelevanceThreshold: getEnvFloat("RAG_RELEVANCE_THRESHOLD", 0.3),
		ChunkSize:          int(getEnvInt64("CHUNK_SIZE", 1000)),
		ChunkOverlap:       int(getEnvInt64("CHUNK_OVERLAP", 200)),

		UploadDir:         getEnv("UPLOAD_DIR", "./uploads"),
		MaxUploadSize:     getEnvInt64("MAX_UPLOAD_SIZE", 10*1024*1024), // 10MB
		AllowedExtensions: getEnvList("ALLOWED_EXTENSIONS", []string{"pdf", "txt", "docx"}),
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) ExtensionAllowed(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, allowed := range c.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, strings.ToLower(p))
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
