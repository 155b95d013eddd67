package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// defaultAnchorPhrase is the fixed reference text whose embedding defines the
// in-domain semantic center for the relevance check.
const defaultAnchorPhrase = "Lock Chun Chinese Cuisine food dishes prices hours location ordering reservations menu items restaurant greetings lunch specials family dinners"

type Config struct {
	GeminiAPIKey string
	GeminiTier   string
	RedisURL     string

	RedisIndexName        string
	LLMModel              string
	EmbeddingModel        string
	RelevanceThreshold    float64
	RetrieverK            int
	RelevanceAnchorPhrase string

	Port        string
	GinMode     string
	CORSOrigins []string

	RateLimitReqs   int
	RateLimitWindow int

	MenuFile string

	TracingEnabled bool
	OTLPEndpoint   string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiTier:   getEnv("GEMINI_TIER", "free"),
		RedisURL:     getEnv("REDIS_URL", ""),

		RedisIndexName:        getEnv("REDIS_INDEX_NAME", "lockchun-menu-index"),
		LLMModel:              getEnv("LLM_MODEL", "gemini-1.5-flash"),
		EmbeddingModel:        getEnv("EMBEDDING_MODEL", "text-embedding-004"),
		RelevanceThreshold:    getEnvFloat64("RELEVANCE_THRESHOLD", 0.4),
		RetrieverK:            getEnvInt("RETRIEVER_K", 14),
		RelevanceAnchorPhrase: getEnv("RELEVANCE_ANCHOR_PHRASE", defaultAnchorPhrase),

		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		MenuFile: getEnv("MENU_FILE", "./data/menu.json"),

		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", "localhost:4317"),
	}

	// Validate required fields
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required - set it in .env file")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
