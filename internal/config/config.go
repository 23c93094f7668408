package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries every tunable the server reads from the environment.
type Config struct {
	Port         string
	DatabasePath string
	RedisURL     string

	// Gemini oracle
	GeminiAPIKeys         []string
	GeminiModel           string
	GeminiTemperature     float32
	GeminiTopK            float32
	GeminiTopP            float32
	GeminiMaxOutputTokens int
	GeminiTimeout         time.Duration
	GeminiKeyCooldown     time.Duration

	// Pipeline
	FallbackProbability float64 // chance the canned-reply stage answers
	ContextWindow       int     // oracle conversation turns
	SnippetLimit        int     // product/site snippets per prompt
	ThinkingDelay       time.Duration

	// Sessions
	SessionLimit  int
	TitleMaxRunes int

	// Site fetch
	SitePages    []string
	SiteCacheTTL time.Duration

	// Admin rate limiting
	AdminRateLimit  int
	AdminRateWindow time.Duration
}

// Load reads the environment and fills in defaults for everything unset.
func Load() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "shopassist.db"),
		RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379/0"),

		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiTemperature:     float32(getEnvFloat("GEMINI_TEMPERATURE", 0.7)),
		GeminiTopK:            float32(getEnvFloat("GEMINI_TOP_K", 40)),
		GeminiTopP:            float32(getEnvFloat("GEMINI_TOP_P", 0.95)),
		GeminiMaxOutputTokens: getEnvInt("GEMINI_MAX_OUTPUT_TOKENS", 1024),
		GeminiTimeout:         getEnvDuration("GEMINI_TIMEOUT", 30*time.Second),
		GeminiKeyCooldown:     getEnvDuration("GEMINI_KEY_COOLDOWN", time.Hour),

		FallbackProbability: getEnvFloat("FALLBACK_PROBABILITY", 0.7),
		ContextWindow:       getEnvInt("CONTEXT_WINDOW", 10),
		SnippetLimit:        getEnvInt("SNIPPET_LIMIT", 5),
		ThinkingDelay:       getEnvDuration("THINKING_DELAY", 800*time.Millisecond),

		SessionLimit:  getEnvInt("SESSION_LIMIT", 4),
		TitleMaxRunes: getEnvInt("TITLE_MAX_RUNES", 30),

		SiteCacheTTL: getEnvDuration("SITE_CACHE_TTL", 5*time.Minute),

		AdminRateLimit:  getEnvInt("ADMIN_RATE_LIMIT", 30),
		AdminRateWindow: getEnvDuration("ADMIN_RATE_WINDOW", time.Minute),
	}

	if keys := os.Getenv("GEMINI_API_KEYS"); keys != "" {
		for _, k := range strings.Split(keys, ",") {
			if k = strings.TrimSpace(k); k != "" {
				cfg.GeminiAPIKeys = append(cfg.GeminiAPIKeys, k)
			}
		}
	}

	if pages := os.Getenv("SITE_PAGES"); pages != "" {
		for _, p := range strings.Split(pages, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.SitePages = append(cfg.SitePages, p)
			}
		}
	}

	if cfg.FallbackProbability < 0 || cfg.FallbackProbability > 1 {
		return nil, fmt.Errorf("FALLBACK_PROBABILITY must be within [0,1], got %v", cfg.FallbackProbability)
	}
	if cfg.SessionLimit < 1 {
		return nil, fmt.Errorf("SESSION_LIMIT must be at least 1, got %d", cfg.SessionLimit)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
