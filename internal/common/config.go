package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Logging     LoggingConfig   `toml:"logging"`
	Storage     StorageConfig   `toml:"storage"`
	LLM         LLMConfig       `toml:"llm"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Claude      ClaudeConfig    `toml:"claude"`
	OpenAI      OpenAIConfig    `toml:"openai"`
	Session     SessionConfig   `toml:"session"`
	Ticker      TickerConfig    `toml:"ticker"`
	Trends      TrendsConfig    `toml:"trends"`
	News        NewsConfig      `toml:"news"`
	Prices      PricesConfig    `toml:"prices"`
	Warehouse   WarehouseConfig `toml:"warehouse"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	LLMProviderGemini LLMProvider = "gemini"
	LLMProviderClaude LLMProvider = "claude"
	LLMProviderOpenAI LLMProvider = "openai"
)

// LLMConfig contains settings shared by all generative providers
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // "gemini", "claude" or "openai"
	Timeout         string      `toml:"timeout"`          // Per-call timeout (default: "2m")
	MaxRetries      int         `toml:"max_retries"`      // Retries on rate limit / transient errors
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`       // default: "gemini-2.5-pro"
	Temperature float32 `toml:"temperature"` // default: 0.7
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
}

// OpenAIConfig contains OpenAI API configuration
type OpenAIConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
}

// SessionConfig controls conversation sessions
type SessionConfig struct {
	MaxHistoryTurns int    `toml:"max_history_turns"` // Turns replayed to the model per call (0 = all)
	Persist         bool   `toml:"persist"`           // Persist sessions to Badger
	MaxLive         int    `toml:"max_live"`          // Sessions kept in memory; least recently used are evicted (0 = unbounded)
	IdleTTL         string `toml:"idle_ttl"`          // Sessions idle longer are purged by the sweep ("" disables)
	SweepSchedule   string `toml:"sweep_schedule"`    // Cron with seconds field for the idle sweep; empty disables it
}

// TickerConfig controls ticker resolution
type TickerConfig struct {
	ExchangeSuffixes []string `toml:"exchange_suffixes"` // Suffix variants tried after the bare symbol
}

// ProviderLimits is the rate and retry policy for one external data provider
type ProviderLimits struct {
	RateLimit      string `toml:"rate_limit"`      // Minimum interval between calls, e.g. "5s"
	Burst          int    `toml:"burst"`           // Token bucket burst
	MaxRetries     int    `toml:"max_retries"`     // Retries on transient errors
	InitialBackoff string `toml:"initial_backoff"` // First retry delay
	MaxBackoff     string `toml:"max_backoff"`     // Cap on retry delay
}

// TrendsConfig contains search-interest provider configuration
type TrendsConfig struct {
	ProviderLimits
	Timeframe string `toml:"timeframe"` // e.g. "today 3-m"
	Geo       string `toml:"geo"`       // e.g. "US"
	Language  string `toml:"language"`  // e.g. "EN"
}

// NewsConfig contains news provider configuration
type NewsConfig struct {
	ProviderLimits
	Provider string `toml:"provider"` // "gnews" or "finnhub"
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
	Language string `toml:"language"`
	Country  string `toml:"country"`
	Max      int    `toml:"max"` // Articles per keyword
}

// PricesConfig contains price provider configuration
type PricesConfig struct {
	ProviderLimits
	Provider string `toml:"provider"` // "yahoo" or "eodhd"
	APIKey   string `toml:"api_key"`  // EODHD only
	BaseURL  string `toml:"base_url"` // EODHD only
	Period   string `toml:"period"`   // History window, e.g. "7d", "3mo"
}

// WarehouseConfig contains the analytics warehouse (BigQuery) configuration
type WarehouseConfig struct {
	Enabled         bool   `toml:"enabled"`
	ProjectID       string `toml:"project_id"`
	CredentialsFile string `toml:"credentials_file"` // Service account JSON; GCP_* env vars used when empty
	Table           string `toml:"table"`
	LookbackDays    int    `toml:"lookback_days"`
	MaxRank         int    `toml:"max_rank"`
	RefreshSchedule string `toml:"refresh_schedule"` // Cron with seconds field; empty disables refresh
	Timeout         string `toml:"timeout"`
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
			Timeout:         "2m",
			MaxRetries:      3,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.5-pro",
			Temperature: 0.7,
		},
		Claude: ClaudeConfig{
			Model:       "claude-sonnet-4-20250514",
			MaxTokens:   8192,
			Temperature: 0.7,
		},
		OpenAI: OpenAIConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
		},
		Session: SessionConfig{
			MaxHistoryTurns: 40,
			Persist:         true,
			MaxLive:         500,
			IdleTTL:         "168h",
			SweepSchedule:   "0 0 * * * *", // Hourly
		},
		Ticker: TickerConfig{
			ExchangeSuffixes: []string{".L", ".HK", ".SI", ".NS", ".AX", ".PA", ".DE"},
		},
		Trends: TrendsConfig{
			ProviderLimits: ProviderLimits{
				RateLimit:      "5s", // Google Trends rejects bursts
				Burst:          1,
				MaxRetries:     2,
				InitialBackoff: "10s",
				MaxBackoff:     "60s",
			},
			Timeframe: "today 3-m",
			Geo:       "US",
			Language:  "EN",
		},
		News: NewsConfig{
			ProviderLimits: ProviderLimits{
				RateLimit:      "300ms",
				Burst:          1,
				MaxRetries:     2,
				InitialBackoff: "1s",
				MaxBackoff:     "10s",
			},
			Provider: "gnews",
			BaseURL:  "https://gnews.io/api/v4",
			Language: "en",
			Country:  "us",
			Max:      5,
		},
		Prices: PricesConfig{
			ProviderLimits: ProviderLimits{
				RateLimit:      "200ms",
				Burst:          2,
				MaxRetries:     2,
				InitialBackoff: "1s",
				MaxBackoff:     "10s",
			},
			Provider: "yahoo",
			BaseURL:  "https://eodhd.com/api",
			Period:   "7d",
		},
		Warehouse: WarehouseConfig{
			Enabled:         false,
			Table:           "bigquery-public-data.google_trends.top_terms",
			LookbackDays:    14,
			MaxRank:         25,
			RefreshSchedule: "0 0 6 * * *", // Daily at 06:00
			Timeout:         "60s",
		},
	}
}

// LoadFromFiles loads configuration with priority: default -> file1 -> file2 -> ... -> .env -> env
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// .env never overrides variables already present in the process environment
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("MARKETLENS_ENV"); env != "" {
		config.Environment = env
	}

	// Server
	if port := os.Getenv("MARKETLENS_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("MARKETLENS_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Logging
	if level := os.Getenv("MARKETLENS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("MARKETLENS_LOG_OUTPUT"); output != "" {
		if outputs := splitList(output); len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Storage
	if badgerPath := os.Getenv("MARKETLENS_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// LLM
	if provider := os.Getenv("MARKETLENS_LLM_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(strings.ToLower(provider))
	}
	if model := os.Getenv("MARKETLENS_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if model := os.Getenv("MARKETLENS_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}
	if model := os.Getenv("MARKETLENS_OPENAI_MODEL"); model != "" {
		config.OpenAI.Model = model
	}

	// API keys: project-prefixed name first, then the vendor's conventional name
	config.Gemini.APIKey = firstEnv(config.Gemini.APIKey, "MARKETLENS_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY")
	config.Claude.APIKey = firstEnv(config.Claude.APIKey, "MARKETLENS_CLAUDE_API_KEY", "ANTHROPIC_API_KEY")
	config.OpenAI.APIKey = firstEnv(config.OpenAI.APIKey, "MARKETLENS_OPENAI_API_KEY", "OPENAI_API_KEY")
	config.Prices.APIKey = firstEnv(config.Prices.APIKey, "MARKETLENS_EODHD_API_KEY", "EODHD_API_KEY")

	// News
	if provider := os.Getenv("MARKETLENS_NEWS_PROVIDER"); provider != "" {
		config.News.Provider = strings.ToLower(provider)
	}
	switch config.News.Provider {
	case "finnhub":
		config.News.APIKey = firstEnv(config.News.APIKey, "MARKETLENS_NEWS_API_KEY", "FINNHUB_API_KEY")
	default:
		config.News.APIKey = firstEnv(config.News.APIKey, "MARKETLENS_NEWS_API_KEY", "GNEWS_API_KEY")
	}

	// Prices
	if provider := os.Getenv("MARKETLENS_PRICES_PROVIDER"); provider != "" {
		config.Prices.Provider = strings.ToLower(provider)
	}

	// Warehouse
	if enabled := os.Getenv("MARKETLENS_WAREHOUSE_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.Warehouse.Enabled = b
		}
	}
	config.Warehouse.ProjectID = firstEnv(config.Warehouse.ProjectID, "MARKETLENS_WAREHOUSE_PROJECT_ID", "GCP_PROJECT_ID")
	if creds := os.Getenv("MARKETLENS_WAREHOUSE_CREDENTIALS_FILE"); creds != "" {
		config.Warehouse.CredentialsFile = creds
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks values that would otherwise fail late at first use
func (c *Config) Validate() error {
	switch c.LLM.DefaultProvider {
	case LLMProviderGemini, LLMProviderClaude, LLMProviderOpenAI:
	default:
		return fmt.Errorf("invalid llm.default_provider '%s': must be gemini, claude or openai", c.LLM.DefaultProvider)
	}

	switch c.News.Provider {
	case "gnews", "finnhub":
	default:
		return fmt.Errorf("invalid news.provider '%s': must be gnews or finnhub", c.News.Provider)
	}

	switch c.Prices.Provider {
	case "yahoo", "eodhd":
	default:
		return fmt.Errorf("invalid prices.provider '%s': must be yahoo or eodhd", c.Prices.Provider)
	}

	if _, err := time.ParseDuration(c.LLM.Timeout); err != nil {
		return fmt.Errorf("invalid llm.timeout '%s': %w", c.LLM.Timeout, err)
	}

	for name, limits := range map[string]ProviderLimits{
		"trends": c.Trends.ProviderLimits,
		"news":   c.News.ProviderLimits,
		"prices": c.Prices.ProviderLimits,
	} {
		for field, value := range map[string]string{
			"rate_limit":      limits.RateLimit,
			"initial_backoff": limits.InitialBackoff,
			"max_backoff":     limits.MaxBackoff,
		} {
			if value == "" {
				continue
			}
			if _, err := time.ParseDuration(value); err != nil {
				return fmt.Errorf("invalid %s.%s '%s': %w", name, field, value, err)
			}
		}
	}

	if c.Session.MaxLive < 0 {
		return fmt.Errorf("invalid session.max_live %d: must not be negative", c.Session.MaxLive)
	}
	if c.Session.IdleTTL != "" {
		if ttl, err := time.ParseDuration(c.Session.IdleTTL); err != nil || ttl <= 0 {
			return fmt.Errorf("invalid session.idle_ttl '%s': must be a positive duration", c.Session.IdleTTL)
		}
	}
	if c.Session.SweepSchedule != "" {
		if err := ValidateSchedule(c.Session.SweepSchedule); err != nil {
			return fmt.Errorf("invalid session.sweep_schedule: %w", err)
		}
	}

	if c.Warehouse.Enabled && c.Warehouse.RefreshSchedule != "" {
		if err := ValidateSchedule(c.Warehouse.RefreshSchedule); err != nil {
			return fmt.Errorf("invalid warehouse.refresh_schedule: %w", err)
		}
	}

	return nil
}

// ValidateSchedule validates a six-field cron expression (seconds first)
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", schedule, err)
	}
	return nil
}

// IsProduction returns true when running in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// ParseDurationOr parses a duration string, returning fallback when empty or invalid
func ParseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func firstEnv(current string, names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return current
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
