// Package config holds runtime settings for the gateway. Everything is
// configurable via environment variables or programmatically; profiles
// bundle the common tuning presets.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds global settings for the ClearGate gateway.
type Config struct {
	// === Server ===
	ListenAddr string // Address the HTTP server binds (default: ":8080")

	// === Decision thresholds (0.0 - 1.0) ===
	// Tune these to balance safety vs. usability.
	LowConfidenceThreshold  float64 // Below this the evaluator fails closed (default: 0.40)
	HighConfidenceThreshold float64 // Below this the decision is flagged ambiguous (default: 0.60)
	ElevatedRiskThreshold   float64 // Aggregate risk at or above this blocks (default: 0.70)

	// === Ensemble weights ===
	ZeroShotWeight float64 // Share of the zero-shot classifier (default: 0.6)
	SemanticWeight float64 // Share of the semantic matcher (default: 0.3)
	BoosterWeight  float64 // Share of the lexical booster (default: 0.1)

	// === Model backends ===
	ZeroShotModel   string // Zero-shot model name (HuggingFace identifier)
	ZeroShotPath    string // Local directory for the zero-shot model
	EmbeddingModel  string // Embedding model name
	EmbeddingPath   string // Local directory for the embedding model
	OnnxLibraryPath string // Path to libonnxruntime; empty selects the pure-Go backend

	// Remote embedding fallback (OpenAI-compatible /embeddings endpoint).
	EmbeddingURL    string
	EmbeddingAPIKey string

	// === Role scopes and patterns ===
	ScopeFile   string // YAML role scope overrides; empty uses compiled-in defaults
	BoosterFile string // YAML booster rules added to the compiled-in set

	// === Cache & rate limiting ===
	RedisAddr     string        // Redis address; unreachable Redis degrades to in-memory
	CacheCapacity int           // In-memory fallback cache bound (default: 1024)
	CacheTTL      time.Duration // Decision cache TTL (default: 5m)
	RateLimit     int           // Requests per window per client (default: 60)
	RateWindow    time.Duration // Fixed rate-limit window (default: 1m)
	RateLimitOn   bool          // Enable the rate-limit middleware (default: true)
	CacheEnabled  bool          // Enable the decision cache (default: true)

	// === Audit ===
	DatabaseURL string // Postgres DSN for decision audit rows; empty disables auditing
}

// NewDefaultConfig creates a Config with production defaults. All settings
// can be overridden via environment variables.
func NewDefaultConfig() *Config {
	return &Config{
		ListenAddr: GetEnv("CLEARGATE_LISTEN_ADDR", ":8080"),

		LowConfidenceThreshold:  GetEnvFloat("CLEARGATE_LOW_CONFIDENCE", 0.40),
		HighConfidenceThreshold: GetEnvFloat("CLEARGATE_HIGH_CONFIDENCE", 0.60),
		ElevatedRiskThreshold:   GetEnvFloat("CLEARGATE_ELEVATED_RISK", 0.70),

		ZeroShotWeight: GetEnvFloat("CLEARGATE_WEIGHT_ZEROSHOT", 0.6),
		SemanticWeight: GetEnvFloat("CLEARGATE_WEIGHT_SEMANTIC", 0.3),
		BoosterWeight:  GetEnvFloat("CLEARGATE_WEIGHT_BOOSTER", 0.1),

		ZeroShotModel:   GetEnv("CLEARGATE_ZEROSHOT_MODEL", "KnightsAnalytics/deberta-v3-base-zeroshot-v1"),
		ZeroShotPath:    GetEnv("CLEARGATE_ZEROSHOT_PATH", "./models/zeroshot"),
		EmbeddingModel:  GetEnv("CLEARGATE_EMBEDDING_MODEL", "sentence-transformers/all-MiniLM-L6-v2"),
		EmbeddingPath:   GetEnv("CLEARGATE_EMBEDDING_PATH", "./models/minilm"),
		OnnxLibraryPath: GetEnv("CLEARGATE_ONNX_LIBRARY", ""),
		EmbeddingURL:    GetEnv("CLEARGATE_EMBEDDING_URL", ""),
		EmbeddingAPIKey: GetEnv("CLEARGATE_EMBEDDING_API_KEY", ""),

		ScopeFile:   GetEnv("CLEARGATE_SCOPE_FILE", ""),
		BoosterFile: GetEnv("CLEARGATE_BOOSTER_FILE", ""),

		RedisAddr:     GetEnv("REDIS_ADDR", "localhost:6379"),
		CacheCapacity: clampInt(GetEnvInt("CLEARGATE_CACHE_CAPACITY", 1024), 1, 1<<20),
		CacheTTL:      time.Duration(GetEnvInt("CLEARGATE_CACHE_TTL_SECONDS", 300)) * time.Second,
		RateLimit:     GetEnvInt("CLEARGATE_RATE_LIMIT", 60),
		RateWindow:    time.Duration(GetEnvInt("CLEARGATE_RATE_WINDOW_SECONDS", 60)) * time.Second,
		RateLimitOn:   GetEnvBool("CLEARGATE_RATE_LIMIT_ENABLED", true),
		CacheEnabled:  GetEnvBool("CLEARGATE_CACHE_ENABLED", true),

		DatabaseURL: GetEnv("DATABASE_URL", ""),
	}
}

// NewStrictConfig creates a Config for maximum safety (more false positives).
func NewStrictConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.LowConfidenceThreshold = 0.50
	cfg.HighConfidenceThreshold = 0.70
	cfg.ElevatedRiskThreshold = 0.60
	return cfg
}

// NewPermissiveConfig creates a Config that minimizes false positives.
func NewPermissiveConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.LowConfidenceThreshold = 0.30
	cfg.HighConfidenceThreshold = 0.50
	cfg.ElevatedRiskThreshold = 0.80
	return cfg
}

// Validate checks threshold ordering and weight bounds.
func (c *Config) Validate() error {
	if c.LowConfidenceThreshold >= c.HighConfidenceThreshold {
		return fmt.Errorf("low confidence threshold %.2f must be below high threshold %.2f",
			c.LowConfidenceThreshold, c.HighConfidenceThreshold)
	}
	for name, v := range map[string]float64{
		"low_confidence":  c.LowConfidenceThreshold,
		"high_confidence": c.HighConfidenceThreshold,
		"elevated_risk":   c.ElevatedRiskThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("threshold %s = %.2f outside [0,1]", name, v)
		}
	}
	sum := c.ZeroShotWeight + c.SemanticWeight + c.BoosterWeight
	if sum > 1.0 {
		return fmt.Errorf("ensemble weights sum to %.2f, must be <= 1.0", sum)
	}
	if c.ZeroShotWeight < 0 || c.SemanticWeight < 0 || c.BoosterWeight < 0 {
		return fmt.Errorf("ensemble weights must be non-negative")
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("rate limit must be positive, got %d", c.RateLimit)
	}
	return nil
}

// MustValidate calls Validate and fatally exits if validation fails.
// Call this at startup before starting the server.
func (c *Config) MustValidate() {
	if err := c.Validate(); err != nil {
		log.Fatalf("[STARTUP] FATAL: Configuration validation failed: %v", err)
	}
	log.Println("[STARTUP] Configuration validated successfully")
}

// clampInt ensures a value is within bounds
func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// Helper functions for environment variable parsing.
// These are exported for use by other packages.

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool returns the boolean value of an environment variable or a default value.
func GetEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvFloat returns the float64 value of an environment variable or a default value.
func GetEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}

// GetEnvInt returns the integer value of an environment variable or a default value.
func GetEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

// GetEnvSlice returns a comma-separated list from an environment variable or a default value.
func GetEnvSlice(key string, defaultValue []string) []string {
	if v := os.Getenv(key); v != "" {
		var parts []string
		for _, p := range strings.Split(v, ",") {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		if len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}
