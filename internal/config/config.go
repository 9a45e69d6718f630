package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Auth. When empty, /api is open.
	APIKey string

	// Parse cache
	CacheCapacity int
	CacheMinBlock int

	// Request limits
	MaxBodyBytes int64

	// Streaming sessions
	SessionTTL  time.Duration
	MaxSessions int

	// Optional YAML rule table loaded into every parser.
	RulesFile string

	OpenLinksInNewTab bool

	// PDF
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("MDSCHEMA_API_KEY"),

		CacheCapacity: envInt("CACHE_CAPACITY", 100),
		CacheMinBlock: envInt("CACHE_MIN_BLOCK", 100),

		MaxBodyBytes: envInt64("MAX_BODY_BYTES", 8<<20),

		SessionTTL:  envDuration("SESSION_TTL", 30*time.Minute),
		MaxSessions: envInt("MAX_SESSIONS", 1000),

		RulesFile: os.Getenv("RULES_FILE"),

		OpenLinksInNewTab: envBool("OPEN_LINKS_IN_NEW_TAB", false),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.CacheCapacity <= 0 {
		cfg.CacheCapacity = 100
	}
	if cfg.CacheMinBlock <= 0 {
		cfg.CacheMinBlock = 100
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 8 << 20
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 1000
	}

	return cfg
}

func (c Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be numeric, got %q", c.Port)
	}
	if c.RulesFile != "" {
		if _, err := os.Stat(c.RulesFile); err != nil {
			return fmt.Errorf("RULES_FILE: %w", err)
		}
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
