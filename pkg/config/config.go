package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	GoogleApiKey     string
	PerplexityApiKey string
	DatabaseURL      string
	ReasoningModel   string
	FastModel        string
	Port             string

	SearchModel             string
	SearchTimeout           time.Duration
	SearchRequestsPerSecond float64

	EmbeddingModel string
	LearningsTable string

	// MaxAttempts bounds retries of model answers that could not be parsed.
	MaxAttempts int
}

func Load() *Config {
	return &Config{
		GoogleApiKey:            getEnv("GOOGLE_API_KEY", ""),
		PerplexityApiKey:        getEnv("PERPLEXITY_API_KEY", ""),
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		ReasoningModel:          getEnv("REASONING_MODEL", "gemini-3-pro-preview"),
		FastModel:               getEnv("FAST_MODEL", "gemini-3-flash-preview"),
		Port:                    getEnv("PORT", "8081"),
		SearchModel:             getEnv("SEARCH_MODEL", "sonar"),
		SearchTimeout:           time.Duration(getEnvAsInt("SEARCH_TIMEOUT_SECONDS", 30)) * time.Second,
		SearchRequestsPerSecond: getEnvAsFloat("SEARCH_REQUESTS_PER_SECOND", 2),
		EmbeddingModel:          getEnv("EMBEDDING_MODEL", "gemini-embedding-001"),
		LearningsTable:          getEnv("LEARNINGS_TABLE", "prospect_learnings"),
		MaxAttempts:             getEnvAsInt("LLM_MAX_ATTEMPTS", 2),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
