package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Ai       AIConfig
	Crag     CragConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	GoogleGemini   string
	JWTSecret      string
	EmbedDocsTopic string // async chunk embedding topic
}

type AIConfig struct {
	EmbeddingProvider string // "gemini" or "ollama"
	OllamaBaseURL     string
	OllamaModel       string
	LLMProvider       string // "ollama" or "gemini"
	LLMModel          string // e.g. "llama3", "gemini-2.0-flash"
	StreamChunkSize   int    // delta size for providers without native streaming
}

// CragConfig tunes the ask pipeline. Defaults match the documented
// behavior; override via env only when recalibrating against a new
// embedding model.
type CragConfig struct {
	NotFoundThreshold float64
	TopK              int
	RerankTopN        int
	MaxMemoryTurns    int
	HighThreshold     float64
	MediumThreshold   float64
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			GoogleGemini:   getEnv("GOOGLE_GEMINI_API_KEY", ""),
			JWTSecret:      getEnv("JWT_SECRET", ""),
			EmbedDocsTopic: getEnv("EMBED_DOCUMENT_TOPIC_NAME", "EMBED_DOCUMENT_CHUNKS"),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "gemini"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			StreamChunkSize:   getEnvAsInt("LLM_STREAM_CHUNK_SIZE", 64),
		},
		Crag: CragConfig{
			NotFoundThreshold: getEnvAsFloat("CRAG_NOT_FOUND_THRESHOLD", 0.35),
			TopK:              getEnvAsInt("CRAG_TOP_K", 8),
			RerankTopN:        getEnvAsInt("CRAG_RERANK_TOP_N", 5),
			MaxMemoryTurns:    getEnvAsInt("CRAG_MAX_MEMORY_TURNS", 20),
			HighThreshold:     getEnvAsFloat("CRAG_HIGH_CONFIDENCE_THRESHOLD", 0.85),
			MediumThreshold:   getEnvAsFloat("CRAG_MEDIUM_CONFIDENCE_THRESHOLD", 0.65),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}
