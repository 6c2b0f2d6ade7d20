// Package config loads application settings from TRAVEL_* environment
// variables (optionally from a .env file) and validates them per run mode.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ValidationMode selects which settings are required.
type ValidationMode int

const (
	// ServerMode requires everything the webhook server needs.
	ServerMode ValidationMode = iota
	// RichMenuMode only needs the channel access token.
	RichMenuMode
)

// State backends.
const (
	StateBackendSQLite = "sqlite"
	StateBackendRedis  = "redis"
)

// Answer provider names accepted in TRAVEL_ANSWER_PROVIDERS.
const (
	ProviderGemini   = "gemini"
	ProviderGroq     = "groq"
	ProviderCerebras = "cerebras"
	ProviderHTTP     = "http"
)

// Config holds all application configuration
type Config struct {
	// LINE Bot Configuration
	LineChannelToken  string
	LineChannelSecret string

	// Server Configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration
	ServerName      string

	// Data Configuration
	DataDir          string
	HistoryRetention time.Duration // history rows older than this are deleted (0 = keep forever)
	StateBackend     string        // "sqlite" or "redis"
	RedisURL         string
	StateTTL         time.Duration // conversation expiry for the redis backend (0 = none)

	// Places Configuration
	PlacesAPIKey   string
	PlacesBaseURL  string
	PlacesLanguage string
	PlacesTimeout  time.Duration

	// Answer Configuration
	AnswerProviders []string // tried in order, each once
	AnswerTimeout   time.Duration
	AnswerMaxTokens int
	GeminiAPIKey    string
	GeminiModel     string
	GroqAPIKey      string
	GroqModel       string
	CerebrasAPIKey  string
	CerebrasModel   string
	AnswerHTTPURL   string
	AnswerHTTPKey   string
	AnswerHTTPAuth  string // "bearer", "apikey", or "" to pick by host

	// R2 Backup Configuration
	R2Enabled         bool
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2Endpoint        string // overrides the account endpoint, mainly for tests
	R2BackupPrefix    string
	R2BackupInterval  time.Duration

	// Sentry Configuration
	SentryEnabled          bool
	SentryDSN              string
	SentryEnvironment      string
	SentryRelease          string
	SentrySampleRate       float64
	SentryTracesSampleRate float64

	// Better Stack Configuration
	BetterStackEnabled  bool
	BetterStackToken    string
	BetterStackEndpoint string

	// Metrics Authentication
	MetricsAuthEnabled bool
	MetricsUsername    string
	MetricsPassword    string

	Bot BotConfig
}

// Load reads configuration for the webhook server.
func Load() (*Config, error) {
	return LoadForMode(ServerMode)
}

// LoadForMode reads configuration from the environment and validates it
// for the given mode. A missing .env file is not an error.
func LoadForMode(mode ValidationMode) (*Config, error) {
	_ = godotenv.Load()

	bot := DefaultBotConfig()
	bot.WebhookTimeout = getDurationEnv(EnvWebhookTimeout, bot.WebhookTimeout)
	bot.AnswerMaxLength = getIntEnv(EnvAnswerMaxLength, bot.AnswerMaxLength)

	cfg := &Config{
		LineChannelToken:  getEnv(EnvLineChannelAccessToken, ""),
		LineChannelSecret: getEnv(EnvLineChannelSecret, ""),

		Port:            getEnv(EnvPort, "10000"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, GracefulShutdown),
		ServerName:      getEnv(EnvServerName, ""),

		DataDir:          getEnv(EnvDataDir, getDefaultDataDir()),
		HistoryRetention: getDurationEnv(EnvHistoryRetention, 0),
		StateBackend:     strings.ToLower(getEnv(EnvStateBackend, StateBackendSQLite)),
		RedisURL:         getEnv(EnvRedisURL, ""),
		StateTTL:         getDurationEnv(EnvStateTTL, 24*time.Hour),

		PlacesAPIKey:   getEnv(EnvPlacesAPIKey, ""),
		PlacesBaseURL:  strings.TrimRight(getEnv(EnvPlacesBaseURL, "https://maps.googleapis.com/maps/api/place"), "/"),
		PlacesLanguage: getEnv(EnvPlacesLanguage, "th"),
		PlacesTimeout:  getDurationEnv(EnvPlacesTimeout, PlacesRequest),

		AnswerTimeout:   getDurationEnv(EnvAnswerTimeout, AnswerRequest),
		AnswerMaxTokens: getIntEnv(EnvAnswerMaxTokens, 300),
		GeminiAPIKey:    getEnv(EnvGeminiAPIKey, ""),
		GeminiModel:     getEnv(EnvGeminiModel, "gemini-2.5-flash"),
		GroqAPIKey:      getEnv(EnvGroqAPIKey, ""),
		GroqModel:       getEnv(EnvGroqModel, "llama-3.3-70b-versatile"),
		CerebrasAPIKey:  getEnv(EnvCerebrasAPIKey, ""),
		CerebrasModel:   getEnv(EnvCerebrasModel, "llama-3.3-70b"),
		AnswerHTTPURL:   getEnv(EnvAnswerHTTPURL, ""),
		AnswerHTTPKey:   getEnv(EnvAnswerHTTPKey, ""),
		AnswerHTTPAuth:  strings.ToLower(getEnv(EnvAnswerHTTPAuth, "")),

		R2Enabled:         getBoolEnv(EnvR2Enabled, false),
		R2AccountID:       getEnv(EnvR2AccountID, ""),
		R2AccessKeyID:     getEnv(EnvR2AccessKeyID, ""),
		R2SecretAccessKey: getEnv(EnvR2SecretAccessKey, ""),
		R2BucketName:      getEnv(EnvR2BucketName, ""),
		R2Endpoint:        getEnv(EnvR2Endpoint, ""),
		R2BackupPrefix:    strings.Trim(getEnv(EnvR2BackupPrefix, "backups"), "/"),
		R2BackupInterval:  getDurationEnv(EnvR2BackupInterval, 6*time.Hour),

		SentryEnabled:          getBoolEnv(EnvSentryEnabled, false),
		SentryDSN:              getEnv(EnvSentryDSN, ""),
		SentryEnvironment:      getEnv(EnvSentryEnvironment, "production"),
		SentryRelease:          getEnv(EnvSentryRelease, ""),
		SentrySampleRate:       getFloatEnv(EnvSentrySampleRate, 1.0),
		SentryTracesSampleRate: getFloatEnv(EnvSentryTracesSampleRate, 0.0),

		BetterStackEnabled:  getBoolEnv(EnvBetterStackEnabled, false),
		BetterStackToken:    getEnv(EnvBetterStackToken, ""),
		BetterStackEndpoint: getEnv(EnvBetterStackEndpoint, ""),

		MetricsAuthEnabled: getBoolEnv(EnvMetricsAuthEnabled, false),
		MetricsUsername:    getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword:    getEnv(EnvMetricsPassword, ""),

		Bot: bot,
	}
	cfg.AnswerProviders = parseProviders(getEnv(EnvAnswerProviders, ""), cfg)

	if err := cfg.ValidateForMode(mode); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// parseProviders reads an explicit comma-separated list, or derives the
// order gemini, groq, cerebras, http from whichever credentials are set.
func parseProviders(raw string, cfg *Config) []string {
	var out []string
	seen := map[string]bool{}
	if raw != "" {
		for _, p := range strings.Split(raw, ",") {
			p = strings.ToLower(strings.TrimSpace(p))
			if p != "" && !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
		return out
	}
	if cfg.GeminiAPIKey != "" {
		out = append(out, ProviderGemini)
	}
	if cfg.GroqAPIKey != "" {
		out = append(out, ProviderGroq)
	}
	if cfg.CerebrasAPIKey != "" {
		out = append(out, ProviderCerebras)
	}
	if cfg.AnswerHTTPURL != "" {
		out = append(out, ProviderHTTP)
	}
	return out
}

// Validate checks the configuration for server mode.
func (c *Config) Validate() error {
	return c.ValidateForMode(ServerMode)
}

// ValidateForMode checks the configuration and joins every problem found.
func (c *Config) ValidateForMode(mode ValidationMode) error {
	var errs []error

	if c.LineChannelToken == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvLineChannelAccessToken))
	}
	if mode == RichMenuMode {
		return errors.Join(errs...)
	}

	if c.LineChannelSecret == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvLineChannelSecret))
	}
	if c.Port == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvPort))
	}
	if c.DataDir == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvDataDir))
	}
	if c.HistoryRetention < 0 {
		errs = append(errs, fmt.Errorf("%s cannot be negative, got %v", EnvHistoryRetention, c.HistoryRetention))
	}
	switch c.StateBackend {
	case StateBackendSQLite:
	case StateBackendRedis:
		if c.RedisURL == "" {
			errs = append(errs, fmt.Errorf("%s is required when %s=redis", EnvRedisURL, EnvStateBackend))
		}
	default:
		errs = append(errs, fmt.Errorf("%s must be sqlite or redis, got %q", EnvStateBackend, c.StateBackend))
	}
	if c.PlacesTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvPlacesTimeout, c.PlacesTimeout))
	}
	if c.AnswerTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvAnswerTimeout, c.AnswerTimeout))
	}
	errs = append(errs, c.validateProviders()...)

	if c.R2Enabled {
		if c.R2AccountID == "" && c.R2Endpoint == "" {
			errs = append(errs, fmt.Errorf("%s or %s is required when R2 is enabled", EnvR2AccountID, EnvR2Endpoint))
		}
		if c.R2AccessKeyID == "" || c.R2SecretAccessKey == "" {
			errs = append(errs, errors.New("R2 access key id and secret are required when R2 is enabled"))
		}
		if c.R2BucketName == "" {
			errs = append(errs, fmt.Errorf("%s is required when R2 is enabled", EnvR2BucketName))
		}
		if c.R2BackupInterval <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvR2BackupInterval, c.R2BackupInterval))
		}
	}
	if c.SentryEnabled && c.SentryDSN == "" {
		errs = append(errs, fmt.Errorf("%s is required when Sentry is enabled", EnvSentryDSN))
	}
	if c.BetterStackEnabled && c.BetterStackToken == "" {
		errs = append(errs, fmt.Errorf("%s is required when Better Stack is enabled", EnvBetterStackToken))
	}
	if c.MetricsAuthEnabled && c.MetricsPassword == "" {
		errs = append(errs, fmt.Errorf("%s is required when metrics auth is enabled", EnvMetricsPassword))
	}
	if err := c.Bot.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("bot config: %w", err))
	}

	return errors.Join(errs...)
}

func (c *Config) validateProviders() []error {
	var errs []error
	for _, p := range c.AnswerProviders {
		switch p {
		case ProviderGemini:
			if c.GeminiAPIKey == "" {
				errs = append(errs, fmt.Errorf("%s is required for provider %q", EnvGeminiAPIKey, p))
			}
		case ProviderGroq:
			if c.GroqAPIKey == "" {
				errs = append(errs, fmt.Errorf("%s is required for provider %q", EnvGroqAPIKey, p))
			}
		case ProviderCerebras:
			if c.CerebrasAPIKey == "" {
				errs = append(errs, fmt.Errorf("%s is required for provider %q", EnvCerebrasAPIKey, p))
			}
		case ProviderHTTP:
			if c.AnswerHTTPURL == "" {
				errs = append(errs, fmt.Errorf("%s is required for provider %q", EnvAnswerHTTPURL, p))
			}
			if c.AnswerHTTPAuth != "" && c.AnswerHTTPAuth != "bearer" && c.AnswerHTTPAuth != "apikey" {
				errs = append(errs, fmt.Errorf("%s must be empty, bearer or apikey, got %q", EnvAnswerHTTPAuth, c.AnswerHTTPAuth))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown answer provider %q", p))
		}
	}
	return errs
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getBoolEnv accepts anything strconv.ParseBool does.
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getDefaultDataDir returns platform-specific default data directory
func getDefaultDataDir() string {
	if runtime.GOOS == "windows" {
		return "./data"
	}
	return "/data"
}

// SQLitePath returns the full path to the SQLite database file
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "travel.db")
}

// HasAnswerProvider reports whether at least one answer provider is configured.
func (c *Config) HasAnswerProvider() bool {
	return len(c.AnswerProviders) > 0
}

// R2AccountEndpoint returns the S3 endpoint used for backups.
func (c *Config) R2AccountEndpoint() string {
	if c.R2Endpoint != "" {
		return c.R2Endpoint
	}
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.R2AccountID)
}
