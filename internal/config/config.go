// Package config collects the environment configuration shared by the API
// server and the worker.
package config

import (
	"fmt"
	"os"
)

// Config holds all recognized environment options with their defaults applied.
type Config struct {
	// HTTP
	Port string

	// Qdrant
	QdrantHost string
	QdrantPort int
	Collection string

	// NATS
	NATSURL string

	// Worker
	Concurrency  int
	ChunkSize    int
	ChunkOverlap int
	UploadDir    string
	WatchUploads bool

	// Retrieval
	RetrievalK int

	// Generation backend: "openai", "ollama" or "gemini"
	Backend      string
	OpenAIModel  string
	OllamaURL    string
	OllamaModel  string
	GeminiAPIKey string
	GeminiModel  string
}

// Load reads configuration from the environment, applying defaults.
// API credentials (OPENAI_API_KEY, UNIDOC_LICENSE_KEY) are read by the
// packages that need them, matching how the clients initialize themselves.
func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8080"),
		QdrantHost:   getEnv("QDRANT_HOST", "localhost"),
		QdrantPort:   getEnvInt("QDRANT_PORT", 6334),
		Collection:   getEnv("QDRANT_COLLECTION", "documents"),
		NATSURL:      getEnv("NATS_URL", "nats://localhost:4222"),
		Concurrency:  getEnvInt("WORKER_CONCURRENCY", 5),
		ChunkSize:    getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 200),
		UploadDir:    getEnv("UPLOAD_DIR", "uploads"),
		WatchUploads: getEnv("WATCH_UPLOADS", "false") == "true",
		RetrievalK:   getEnvInt("RETRIEVAL_K", 3),
		Backend:      getEnv("LLM_BACKEND", "openai"),
		OpenAIModel:  getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
		OllamaURL:    getEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:  getEnv("OLLAMA_MODEL", "llama3"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}
