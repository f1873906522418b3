package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

type Config struct {
	Mode Mode

	Port string

	GCPProjectID string
	GCPLocation  string
	ModelName    string

	SessionBackend  string // "memory" o "firestore"
	ActivityBackend string // "memory", "sqlite" o "firestore"
	SQLitePath      string

	EventsBackend string // "memory" o "redis"
	RedisAddr     string
	RedisPassword string

	UseMockLLM    bool          // true = use mock even on GCP
	ModelTimeout  time.Duration // per model call; timeout counts as model failure
	RiskThreshold float64
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if v == "1" || v == "true" || v == "TRUE" {
		return true
	}
	return false
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("invalid duration for %s: %q, using default", key, v)
		return def
	}
	return d
}

func getFloatEnv(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("invalid number for %s: %q, using default", key, v)
		return def
	}
	return f
}

// Load reads all env vars and builds the config
func Load() *Config {
	modeStr := getEnv("HALCYON_MODE", "local")
	var mode Mode
	switch modeStr {
	case "gcp":
		mode = ModeGCP
	default:
		mode = ModeLocal
	}

	cfg := &Config{
		Mode: mode,

		Port: getEnv("HALCYON_PORT", "8080"),

		GCPProjectID: getEnv("HALCYON_GCP_PROJECT", ""),
		GCPLocation:  getEnv("HALCYON_GCP_LOCATION", "us-central1"),
		ModelName:    getEnv("HALCYON_MODEL_NAME", "gemini-2.0-flash"),

		SessionBackend:  getEnv("HALCYON_SESSION_BACKEND", "memory"),
		ActivityBackend: getEnv("HALCYON_ACTIVITY_BACKEND", "memory"),
		SQLitePath:      getEnv("HALCYON_SQLITE_PATH", "data/halcyon.db"),

		EventsBackend: getEnv("HALCYON_EVENTS_BACKEND", "memory"),
		RedisAddr:     getEnv("HALCYON_REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("HALCYON_REDIS_PASSWORD", ""),

		UseMockLLM:    getBoolEnv("HALCYON_USE_MOCK_LLM", mode == ModeLocal),
		ModelTimeout:  getDurationEnv("HALCYON_MODEL_TIMEOUT", 30*time.Second),
		RiskThreshold: getFloatEnv("HALCYON_RISK_THRESHOLD", 4),
	}

	// Minimal validation in GCP mode
	if cfg.Mode == ModeGCP && cfg.GCPProjectID == "" {
		log.Fatal("HALCYON_GCP_PROJECT must be set in gcp mode")
	}

	return cfg
}
