// Package config loads the gateway's runtime settings from the environment
// (optionally seeded from .env) plus a YAML venues file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds environment-driven settings for the execution gateway.
type Config struct {
	Port string

	// Engine sizing.
	OrderPoolSize     int
	ReportPoolSize    int
	FillPoolSize      int
	ProcessedCapacity int
	PendingCapacity   int
	QueueCapacity     int
	IntakeBuffer      int

	IdleBackoff        time.Duration
	ProcessedRetention time.Duration
	StatsInterval      time.Duration

	// Venues.
	VenuesFile string
	Venues     []VenueConfig
	Paper      bool
	PaperFee   float64

	// Journal.
	JournalEnabled bool
	JournalPath    string

	// Auth.
	JWTSecret     string
	AdminPassHash string

	// Logging.
	LogLevel  string
	LogPretty bool
}

// VenueConfig describes one venue entry from the venues YAML file.
// Credentials themselves come from the environment, keyed by name.
type VenueConfig struct {
	Name    string `yaml:"name"`
	Kind    string `yaml:"kind"` // "paper" is built in
	Testnet bool   `yaml:"testnet"`
}

type venuesDoc struct {
	Venues []VenueConfig `yaml:"venues"`
}

// Load reads environment variables (optionally via .env) into Config and
// parses the venues file when one is configured.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		OrderPoolSize:      getEnvInt("ORDER_POOL_SIZE", 8192),
		ReportPoolSize:     getEnvInt("REPORT_POOL_SIZE", 4096),
		FillPoolSize:       getEnvInt("FILL_POOL_SIZE", 4096),
		ProcessedCapacity:  getEnvInt("PROCESSED_CAPACITY", 65536),
		PendingCapacity:    getEnvInt("PENDING_CAPACITY", 8192),
		QueueCapacity:      getEnvInt("QUEUE_CAPACITY", 8192),
		IntakeBuffer:       getEnvInt("INTAKE_BUFFER", 4096),
		IdleBackoff:        getEnvDuration("IDLE_BACKOFF", time.Millisecond),
		ProcessedRetention: getEnvDuration("PROCESSED_RETENTION", 10*time.Minute),
		StatsInterval:      getEnvDuration("STATS_INTERVAL", 30*time.Second),
		VenuesFile:         getEnv("VENUES_FILE", ""),
		Paper:              getEnv("PAPER_TRADING", "true") == "true",
		PaperFee:           getEnvFloat("PAPER_FEE_RATE", 0.0004),
		JournalEnabled:     getEnv("JOURNAL_ENABLED", "true") == "true",
		JournalPath:        getEnv("JOURNAL_PATH", "./data/exec_journal.db"),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		AdminPassHash:      os.Getenv("ADMIN_PASSWORD_HASH"),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogPretty:          getEnv("LOG_PRETTY", "false") == "true",
	}

	if cfg.VenuesFile != "" {
		venues, err := loadVenuesFile(cfg.VenuesFile)
		if err != nil {
			return nil, err
		}
		cfg.Venues = venues
	}
	if len(cfg.Venues) == 0 && cfg.Paper {
		cfg.Venues = []VenueConfig{{Name: "paper", Kind: "paper"}}
	}

	return cfg, nil
}

func loadVenuesFile(path string) ([]VenueConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read venues file: %w", err)
	}
	var doc venuesDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("config: parse venues file: %w", err)
	}
	for i := range doc.Venues {
		if doc.Venues[i].Name == "" {
			return nil, fmt.Errorf("config: venue %d has no name", i)
		}
		if doc.Venues[i].Kind == "" {
			doc.Venues[i].Kind = doc.Venues[i].Name
		}
	}
	return doc.Venues, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
