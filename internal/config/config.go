// Package config provides configuration loading and management for the application.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	// HTTP server port
	Port string `yaml:"port"`

	// Deployment environment, "production" redacts internal error details
	Environment string `yaml:"environment"`

	// Version reported by the health endpoints
	Version string `yaml:"version"`

	// Directory holding the single-page app, empty disables the fallback
	StaticDir string `yaml:"static_dir"`

	// Origins accepted by the CORS middleware
	AllowedOrigins []string `yaml:"allowed_origins"`

	Odds      OddsConfig      `yaml:"odds"`
	Cache     CacheConfig     `yaml:"cache"`
	Breaker   BreakerConfig   `yaml:"breaker"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Briefing  BriefingConfig  `yaml:"briefing"`

	// OpenTelemetry endpoint for tracing, empty disables export
	OtelEndpoint string `yaml:"otel_endpoint"`

	EnableMetrics bool `yaml:"enable_metrics"`
}

// OddsConfig configures the upstream odds provider
type OddsConfig struct {
	APIKey     string        `yaml:"api_key"`
	BaseURL    string        `yaml:"base_url"`
	Sport      string        `yaml:"sport"`
	Regions    string        `yaml:"regions"`
	Markets    string        `yaml:"markets"`
	OddsFormat string        `yaml:"odds_format"`
	Timeout    time.Duration `yaml:"timeout"`
}

// CacheConfig configures the response cache
type CacheConfig struct {
	TTLSeconds int  `yaml:"ttl_seconds"`
	Enabled    bool `yaml:"enabled"`
}

// TTL returns the cache window as a duration
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// BreakerConfig configures the upstream circuit breaker
type BreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	FailureThreshold int           `yaml:"failure_threshold"`
	Cooldown         time.Duration `yaml:"cooldown"`
}

// RateLimitConfig configures the API token bucket
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled"`
	RPS     float64 `yaml:"rps"`
	Burst   int     `yaml:"burst"`
}

// BriefingConfig configures the text-generation collaborator
type BriefingConfig struct {
	APIURL  string        `yaml:"api_url"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// Defaults returns the configuration used when nothing overrides it
func Defaults() Config {
	return Config{
		Port:           "8080",
		Environment:    "development",
		Version:        "1.0.0",
		AllowedOrigins: []string{"http://localhost:3000"},
		Odds: OddsConfig{
			BaseURL:    "https://api.the-odds-api.com/v4",
			Sport:      "basketball_nba",
			Regions:    "us",
			Markets:    "h2h",
			OddsFormat: "american",
			Timeout:    10 * time.Second,
		},
		Cache: CacheConfig{
			TTLSeconds: 60,
			Enabled:    true,
		},
		Breaker: BreakerConfig{
			Enabled:          true,
			FailureThreshold: 5,
			Cooldown:         30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RPS:   10,
			Burst: 20,
		},
		Briefing: BriefingConfig{
			APIURL:  "https://api.openai.com/v1/chat/completions",
			Model:   "gpt-4o-mini",
			Timeout: 20 * time.Second,
		},
		EnableMetrics: true,
	}
}

// Load builds the configuration from defaults, an optional YAML file named
// by CONFIG_FILE, a .env file and finally the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, relying on environment variables")
	}

	cfg := Defaults()
	if path, ok := GetEnv("CONFIG_FILE"); ok && path != "" {
		if err := cfg.loadFile(path); err != nil {
			return cfg, err
		}
	}

	cfg.applyEnv()
	return cfg, cfg.Validate()
}

// loadFile overlays the YAML document at path onto the config
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides fields with any environment variables that are set
func (c *Config) applyEnv() {
	c.Port = GetEnvOrDefault("PORT", c.Port)
	c.Environment = strings.ToLower(GetEnvOrDefault("ENVIRONMENT", c.Environment))
	c.Version = GetEnvOrDefault("APP_VERSION", c.Version)
	c.StaticDir = GetEnvOrDefault("STATIC_DIR", c.StaticDir)
	if raw, ok := GetEnv("ALLOWED_ORIGINS"); ok {
		c.AllowedOrigins = splitList(raw)
	}

	c.Odds.APIKey = GetEnvOrDefault("ODDS_API_KEY", c.Odds.APIKey)
	c.Odds.BaseURL = GetEnvOrDefault("ODDS_API_BASE_URL", c.Odds.BaseURL)
	c.Odds.Sport = GetEnvOrDefault("ODDS_SPORT", c.Odds.Sport)
	c.Odds.Regions = GetEnvOrDefault("ODDS_REGIONS", c.Odds.Regions)
	c.Odds.Markets = GetEnvOrDefault("ODDS_MARKETS", c.Odds.Markets)
	c.Odds.OddsFormat = GetEnvOrDefault("ODDS_FORMAT", c.Odds.OddsFormat)
	c.Odds.Timeout = GetEnvAsDuration("ODDS_API_TIMEOUT", c.Odds.Timeout)

	c.Cache.TTLSeconds = GetEnvAsInt("CACHE_TTL_SECONDS", c.Cache.TTLSeconds)
	c.Cache.Enabled = GetEnvAsBool("ENABLE_CACHE", c.Cache.Enabled)

	c.Breaker.Enabled = GetEnvAsBool("ENABLE_CIRCUIT_BREAKER", c.Breaker.Enabled)
	c.Breaker.FailureThreshold = GetEnvAsInt("BREAKER_FAILURE_THRESHOLD", c.Breaker.FailureThreshold)
	c.Breaker.Cooldown = GetEnvAsDuration("BREAKER_COOLDOWN", c.Breaker.Cooldown)

	c.RateLimit.Enabled = GetEnvAsBool("RATE_LIMIT_ENABLED", c.RateLimit.Enabled)
	c.RateLimit.RPS = GetEnvAsFloat("RATE_LIMIT_RPS", c.RateLimit.RPS)
	c.RateLimit.Burst = GetEnvAsInt("RATE_LIMIT_BURST", c.RateLimit.Burst)

	c.Briefing.APIURL = GetEnvOrDefault("BRIEFING_API_URL", c.Briefing.APIURL)
	c.Briefing.APIKey = GetEnvOrDefault("BRIEFING_API_KEY", c.Briefing.APIKey)
	c.Briefing.Model = GetEnvOrDefault("BRIEFING_MODEL", c.Briefing.Model)
	c.Briefing.Timeout = GetEnvAsDuration("BRIEFING_TIMEOUT", c.Briefing.Timeout)

	c.OtelEndpoint = GetEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", c.OtelEndpoint)
	c.EnableMetrics = GetEnvAsBool("ENABLE_METRICS", c.EnableMetrics)
}

// Validate rejects settings the server cannot start with.
// A missing odds API key is not rejected here: it is reported per request.
func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port must not be empty")
	}
	if c.Odds.Timeout <= 0 {
		return fmt.Errorf("odds timeout must be positive, got %v", c.Odds.Timeout)
	}
	if c.Cache.TTLSeconds < 0 {
		return fmt.Errorf("cache ttl must not be negative, got %d", c.Cache.TTLSeconds)
	}
	if c.Breaker.Enabled && c.Breaker.FailureThreshold <= 0 {
		return fmt.Errorf("breaker failure threshold must be positive, got %d", c.Breaker.FailureThreshold)
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit requires positive rps and burst")
	}
	return nil
}

// IsProduction reports whether internal error details must be hidden
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// GetEnv retrieves an environment variable and whether it exists
func GetEnv(key string) (string, bool) {
	value, exists := os.LookupEnv(key)
	return value, exists
}

// GetEnvOrDefault retrieves an environment variable or returns the default value if not set
func GetEnvOrDefault(key, defaultValue string) string {
	if value, exists := GetEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvAsInt retrieves an environment variable as an integer with a default value
func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := GetEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		logrus.Warnf("Invalid integer in %s, using %d", key, defaultValue)
	}
	return defaultValue
}

// GetEnvAsFloat retrieves an environment variable as a float with a default value
func GetEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := GetEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
		logrus.Warnf("Invalid float in %s, using %v", key, defaultValue)
	}
	return defaultValue
}

// GetEnvAsBool retrieves an environment variable as a boolean with a default value
func GetEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := GetEnv(key); exists {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
		logrus.Warnf("Invalid boolean in %s, using %v", key, defaultValue)
	}
	return defaultValue
}

// GetEnvAsDuration retrieves an environment variable as a duration with a default value
func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := GetEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		logrus.Warnf("Invalid duration in %s, using %v", key, defaultValue)
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
