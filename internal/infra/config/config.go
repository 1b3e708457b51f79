package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Fetcher implementations selectable through dashboard.fetcher.
const (
	FetcherSimulated = "simulated"
	FetcherWAQI      = "waqi"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Profile   ProfileConfig   `yaml:"profile"`
	WAQI      WAQIConfig      `yaml:"waqi"`
	LLM       LLMConfig       `yaml:"llm"`
	Forecast  ForecastConfig  `yaml:"forecast"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Valkey    ValkeyConfig    `yaml:"valkey"`
	Archive   ArchiveConfig   `yaml:"archive"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address         string          `yaml:"address"`
	ReadTimeout     time.Duration   `yaml:"readTimeout"`
	WriteTimeout    time.Duration   `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration   `yaml:"shutdownTimeout"`
	AllowedOrigins  []string        `yaml:"allowedOrigins"`
	RateLimit       RateLimitConfig `yaml:"rateLimit"`
	Retry           RetryConfig     `yaml:"retry"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// RetryConfig configures best-effort retries for POST requests.
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
	Exclude     []string      `yaml:"exclude"`
}

// DashboardConfig controls the current-reading state and its refresh path.
type DashboardConfig struct {
	InitialLocation string        `yaml:"initialLocation"`
	Fetcher         string        `yaml:"fetcher"`
	SimulatedDelay  time.Duration `yaml:"simulatedDelay"`
	CacheTTL        time.Duration `yaml:"cacheTtl"`
	AlertTTL        time.Duration `yaml:"alertTtl"`
}

// ProfileConfig is the session health profile. When UserID is set the
// profile is loaded from user_profiles instead.
type ProfileConfig struct {
	UserID            string `yaml:"userId"`
	HasAsthma         bool   `yaml:"hasAsthma"`
	HasHeartCondition bool   `yaml:"hasHeartCondition"`
	Age               int    `yaml:"age"`
	SensitivityLevel  string `yaml:"sensitivityLevel"`
}

// WAQIConfig holds World Air Quality Index API settings.
type WAQIConfig struct {
	BaseURL string        `yaml:"baseUrl"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// LLMConfig contains ChatGPT/OpenAI settings.
type LLMConfig struct {
	APIKey      string        `yaml:"apiKey"`
	BaseURL     string        `yaml:"baseUrl"`
	Model       string        `yaml:"model"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ForecastConfig controls the AQI forecaster.
type ForecastConfig struct {
	Enabled               bool    `yaml:"enabled"`
	Prompt                string  `yaml:"prompt"`
	PersistenceConfidence float64 `yaml:"persistenceConfidence"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// ValkeyConfig contains connection information for the reading cache.
type ValkeyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Prefix  string `yaml:"prefix"`
}

// ArchiveConfig points at the S3-compatible bucket for raw payloads.
type ArchiveConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Prefix    string `yaml:"prefix"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("HTTP_RETRY_ENABLED"); v != "" {
		cfg.HTTP.Retry.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RETRY_MAX_ATTEMPTS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.Retry.MaxAttempts = parsed
		}
	}
	if v := os.Getenv("HTTP_RETRY_BASE_BACKOFF"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.Retry.BaseBackoff = parsed
		}
	}
	if v := os.Getenv("DASHBOARD_INITIAL_LOCATION"); v != "" {
		cfg.Dashboard.InitialLocation = v
	}
	if v := os.Getenv("DASHBOARD_FETCHER"); v != "" {
		cfg.Dashboard.Fetcher = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("DASHBOARD_SIMULATED_DELAY"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Dashboard.SimulatedDelay = parsed
		}
	}
	if v := os.Getenv("DASHBOARD_CACHE_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Dashboard.CacheTTL = parsed
		}
	}
	if v := os.Getenv("DASHBOARD_ALERT_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Dashboard.AlertTTL = parsed
		}
	}
	if v := os.Getenv("PROFILE_USER_ID"); v != "" {
		cfg.Profile.UserID = v
	}
	if v := os.Getenv("PROFILE_HAS_ASTHMA"); v != "" {
		cfg.Profile.HasAsthma = parseBool(v)
	}
	if v := os.Getenv("PROFILE_HAS_HEART_CONDITION"); v != "" {
		cfg.Profile.HasHeartCondition = parseBool(v)
	}
	if v := os.Getenv("PROFILE_AGE"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Profile.Age = parsed
		}
	}
	if v := os.Getenv("PROFILE_SENSITIVITY_LEVEL"); v != "" {
		cfg.Profile.SensitivityLevel = v
	}
	if v := os.Getenv("WAQI_BASE_URL"); v != "" {
		cfg.WAQI.BaseURL = v
	}
	if v := os.Getenv("WAQI_TOKEN"); v != "" {
		cfg.WAQI.Token = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(parsed)
		}
	}
	if v := os.Getenv("FORECAST_ENABLED"); v != "" {
		cfg.Forecast.Enabled = parseBool(v)
	}
	if v := os.Getenv("FORECAST_PROMPT"); v != "" {
		cfg.Forecast.Prompt = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("POSTGRES_MIN_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.MinConns = int32(parsed)
		}
	}
	if v := os.Getenv("VALKEY_ENABLED"); v != "" {
		cfg.Valkey.Enabled = parseBool(v)
	}
	if v := os.Getenv("VALKEY_ADDR"); v != "" {
		cfg.Valkey.Addr = v
	}
	if v := os.Getenv("ARCHIVE_ENABLED"); v != "" {
		cfg.Archive.Enabled = parseBool(v)
	}
	if v := os.Getenv("ARCHIVE_ENDPOINT"); v != "" {
		cfg.Archive.Endpoint = v
	}
	if v := os.Getenv("ARCHIVE_ACCESS_KEY"); v != "" {
		cfg.Archive.AccessKey = v
	}
	if v := os.Getenv("ARCHIVE_SECRET_KEY"); v != "" {
		cfg.Archive.SecretKey = v
	}
	if v := os.Getenv("ARCHIVE_BUCKET"); v != "" {
		cfg.Archive.Bucket = v
	}
	if v := os.Getenv("ARCHIVE_REGION"); v != "" {
		cfg.Archive.Region = v
	}
}

func parseBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:         ":8080",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
			Retry: RetryConfig{
				Enabled:     true,
				MaxAttempts: 3,
				BaseBackoff: 150 * time.Millisecond,
			},
		},
		Dashboard: DashboardConfig{
			InitialLocation: "New York, NY",
			Fetcher:         FetcherSimulated,
			SimulatedDelay:  1500 * time.Millisecond,
			CacheTTL:        10 * time.Minute,
			AlertTTL:        6 * time.Hour,
		},
		Profile: ProfileConfig{
			HasAsthma:        true,
			Age:              35,
			SensitivityLevel: "medium",
		},
		WAQI: WAQIConfig{
			BaseURL: "https://api.waqi.info",
			Timeout: 10 * time.Second,
		},
		LLM: LLMConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.2,
			Timeout:     30 * time.Second,
		},
		Forecast: ForecastConfig{
			Enabled:               true,
			Prompt:                "You are an air quality forecaster. Predict the US EPA AQI for the location in the reading using its pollutants and weather.",
			PersistenceConfidence: 0.5,
		},
		Postgres: PostgresConfig{
			MaxConns: 4,
		},
		Valkey: ValkeyConfig{
			Prefix: "airguard",
		},
		Archive: ArchiveConfig{
			Prefix: "readings",
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if strings.TrimSpace(c.Dashboard.InitialLocation) == "" {
		return errors.New("dashboard.initialLocation cannot be empty")
	}
	switch c.Dashboard.Fetcher {
	case FetcherSimulated:
	case FetcherWAQI:
		if strings.TrimSpace(c.WAQI.Token) == "" {
			return errors.New("waqi.token cannot be empty when dashboard.fetcher is waqi")
		}
	default:
		return fmt.Errorf("dashboard.fetcher must be %q or %q", FetcherSimulated, FetcherWAQI)
	}
	if c.Dashboard.SimulatedDelay < 0 {
		return errors.New("dashboard.simulatedDelay cannot be negative")
	}
	if c.Dashboard.CacheTTL < 0 {
		return errors.New("dashboard.cacheTtl cannot be negative")
	}
	if c.Dashboard.AlertTTL < 0 {
		return errors.New("dashboard.alertTtl cannot be negative")
	}
	if c.Profile.Age < 0 {
		return errors.New("profile.age cannot be negative")
	}
	switch strings.ToLower(strings.TrimSpace(c.Profile.SensitivityLevel)) {
	case "low", "medium", "high":
	default:
		return errors.New("profile.sensitivityLevel must be low, medium or high")
	}
	if c.Forecast.PersistenceConfidence < 0 || c.Forecast.PersistenceConfidence > 1 {
		return errors.New("forecast.persistenceConfidence must be between 0 and 1")
	}
	if c.Valkey.Enabled && strings.TrimSpace(c.Valkey.Addr) == "" {
		return errors.New("valkey.addr cannot be empty when valkey cache is enabled")
	}
	if c.Archive.Enabled {
		if strings.TrimSpace(c.Archive.Endpoint) == "" || strings.TrimSpace(c.Archive.Bucket) == "" {
			return errors.New("archive.endpoint and archive.bucket are required when archive is enabled")
		}
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.HTTP.Retry.Enabled {
		if c.HTTP.Retry.MaxAttempts <= 0 {
			return errors.New("http.retry.maxAttempts must be positive")
		}
		if c.HTTP.Retry.BaseBackoff <= 0 {
			return errors.New("http.retry.baseBackoff must be positive")
		}
	}
	return nil
}
