package config

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the voxlog server.
// Precedence: CLI flags > env vars > defaults.
type Config struct {
	DataDir        string
	HTTPPort       int
	DatabaseURL    string // PostgreSQL DSN; empty means embedded SQLite in DataDir
	WebhookSecret  string // shared bearer secret for inbound webhooks
	VapiAPIKey     string // platform API key for the summary enrichment call
	VapiBaseURL    string // platform API base URL
	EnrichSummary  bool   // whether to call the platform for missing summaries
	LogLevel       string
	LogFormat      string // log output format: "text" or "json"
	CORSOrigins    string
	RateLimitRPS   float64
	RateLimitBurst int
}

// defaults
const (
	defaultDataDir        = "./data"
	defaultHTTPPort       = 8080
	defaultVapiBaseURL    = "https://api.vapi.ai"
	defaultLogLevel       = "info"
	defaultLogFormat      = "text"
	defaultRateLimitRPS   = 20
	defaultRateLimitBurst = 40
)

// envPrefix is the prefix for all voxlog environment variables.
const envPrefix = "VOXLOG_"

// Load parses configuration from a .env file (if present), CLI flags and
// environment variables. Precedence: CLI flags > env vars > defaults.
func Load() (*Config, error) {
	// Best-effort .env loading; already-set environment variables win.
	_ = godotenv.Load()

	cfg := &Config{}

	fs := flag.NewFlagSet("voxlog", flag.ContinueOnError)

	fs.StringVar(&cfg.DataDir, "data-dir", defaultDataDir, "data directory for the embedded database")
	fs.IntVar(&cfg.HTTPPort, "http-port", defaultHTTPPort, "HTTP server listen port")
	fs.StringVar(&cfg.DatabaseURL, "database-url", "", "PostgreSQL DSN; if empty, an embedded SQLite database is used")
	fs.StringVar(&cfg.WebhookSecret, "webhook-secret", "", "shared bearer secret required on inbound webhook requests")
	fs.StringVar(&cfg.VapiAPIKey, "vapi-api-key", "", "platform API key for fetching call summaries")
	fs.StringVar(&cfg.VapiBaseURL, "vapi-base-url", defaultVapiBaseURL, "platform API base URL")
	fs.BoolVar(&cfg.EnrichSummary, "enrich-summary", true, "fetch missing call summaries from the platform API")
	fs.StringVar(&cfg.LogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", defaultLogFormat, "log output format (text, json)")
	fs.StringVar(&cfg.CORSOrigins, "cors-origins", "", "comma-separated list of allowed CORS origins (use * for all)")
	fs.Float64Var(&cfg.RateLimitRPS, "rate-limit-rps", defaultRateLimitRPS, "per-IP request rate limit (requests/second)")
	fs.IntVar(&cfg.RateLimitBurst, "rate-limit-burst", defaultRateLimitBurst, "per-IP rate limit burst size")

	if err := fs.Parse(os.Args[1:]); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	// Apply env var overrides for any flags not explicitly set on the command
	// line. CLI flags take precedence over env vars.
	applyEnvOverrides(fs, cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides checks environment variables for any flag that was not
// explicitly provided on the command line. This preserves the precedence:
// CLI flags > env vars > defaults.
func applyEnvOverrides(fs *flag.FlagSet, cfg *Config) {
	// Track which flags were explicitly set via CLI.
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})

	// Map of flag name to env var name.
	envMap := map[string]string{
		"data-dir":         envPrefix + "DATA_DIR",
		"http-port":        envPrefix + "HTTP_PORT",
		"database-url":     envPrefix + "DATABASE_URL",
		"webhook-secret":   envPrefix + "WEBHOOK_SECRET",
		"vapi-api-key":     envPrefix + "VAPI_API_KEY",
		"vapi-base-url":    envPrefix + "VAPI_BASE_URL",
		"enrich-summary":   envPrefix + "ENRICH_SUMMARY",
		"log-level":        envPrefix + "LOG_LEVEL",
		"log-format":       envPrefix + "LOG_FORMAT",
		"cors-origins":     envPrefix + "CORS_ORIGINS",
		"rate-limit-rps":   envPrefix + "RATE_LIMIT_RPS",
		"rate-limit-burst": envPrefix + "RATE_LIMIT_BURST",
	}

	for flagName, envVar := range envMap {
		if set[flagName] {
			continue
		}
		val, ok := os.LookupEnv(envVar)
		if !ok || val == "" {
			continue
		}
		switch flagName {
		case "data-dir":
			cfg.DataDir = val
		case "http-port":
			if v, err := strconv.Atoi(val); err == nil {
				cfg.HTTPPort = v
			}
		case "database-url":
			cfg.DatabaseURL = val
		case "webhook-secret":
			cfg.WebhookSecret = val
		case "vapi-api-key":
			cfg.VapiAPIKey = val
		case "vapi-base-url":
			cfg.VapiBaseURL = val
		case "enrich-summary":
			if v, err := strconv.ParseBool(val); err == nil {
				cfg.EnrichSummary = v
			}
		case "log-level":
			cfg.LogLevel = val
		case "log-format":
			cfg.LogFormat = val
		case "cors-origins":
			cfg.CORSOrigins = val
		case "rate-limit-rps":
			if v, err := strconv.ParseFloat(val, 64); err == nil {
				cfg.RateLimitRPS = v
			}
		case "rate-limit-burst":
			if v, err := strconv.Atoi(val); err == nil {
				cfg.RateLimitBurst = v
			}
		}
	}
}

// validate checks that the config values are sane.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("http-port must be between 1 and 65535, got %d", c.HTTPPort)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("log-level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	c.LogLevel = strings.ToLower(c.LogLevel)

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.LogFormat)] {
		return fmt.Errorf("log-format must be one of text, json; got %q", c.LogFormat)
	}
	c.LogFormat = strings.ToLower(c.LogFormat)

	if c.VapiBaseURL == "" {
		return fmt.Errorf("vapi-base-url must not be empty")
	}
	c.VapiBaseURL = strings.TrimRight(c.VapiBaseURL, "/")

	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("rate-limit-rps must be positive, got %v", c.RateLimitRPS)
	}
	if c.RateLimitBurst < 1 {
		return fmt.Errorf("rate-limit-burst must be at least 1, got %d", c.RateLimitBurst)
	}

	return nil
}

// SlogHandler returns a slog.Handler configured with the appropriate format
// (text or json) and log level.
func (c *Config) SlogHandler(w *os.File) slog.Handler {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.LogFormat == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// SlogLevel returns the slog.Level corresponding to the configured log level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
