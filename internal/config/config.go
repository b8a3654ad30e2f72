package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	Environment string `toml:"environment"`
	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`
	// storage
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresUser   string `toml:"postgres_user"`
	PostgresDBName string `toml:"postgres_db_name"`
	RedisHost      string `toml:"redis_host"`
	RedisPort      string `toml:"redis_port"`
	// telemetry
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`
	// http
	CorsAllowedOrigins     []string `toml:"cors_allowed_origins"`
	RebuildRateLimitPerMin int      `toml:"rebuild_rate_limit_per_min"`
	RebuildLockTTL         Duration `toml:"rebuild_lock_ttl"`
	RecentLoadCacheSizeMB  int      `toml:"recent_load_cache_size_mb"`
	// activity source
	StravaAPIURL   string `toml:"strava_api_url"`
	StravaAuthURL  string `toml:"strava_auth_url"`
	StravaTokenURL string `toml:"strava_token_url"`
	StravaPageSize int    `toml:"strava_page_size"`

	Load LoadConfig `toml:"load"`
}

// LoadConfig holds the training-load model constants.
type LoadConfig struct {
	CTLTimeConstant   float64 `toml:"ctl_time_constant"`
	ATLTimeConstant   float64 `toml:"atl_time_constant"`
	FallbackIFCycling float64 `toml:"fallback_if_cycling"`
	FallbackIFRunning float64 `toml:"fallback_if_running"`
	FallbackIFOther   float64 `toml:"fallback_if_other"`
}

// Duration decodes TOML strings such as "5m" or "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("no config section for env: %s", env)
	}
	return cfg, nil
}

// Load reads the config file at path and returns the section for env with
// defaults applied to every key left unset.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}
	return fromToml(&t, env)
}

// Parse is Load for an in-memory TOML document.
func Parse(env, doc string) (*Config, error) {
	var t Toml
	if _, err := toml.Decode(doc, &t); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return fromToml(&t, env)
}

func fromToml(t *Toml, env string) (*Config, error) {
	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid %s config: %w", env, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 9000
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.PostgresHost == "" {
		c.PostgresHost = "localhost"
	}
	if c.PostgresPort == "" {
		c.PostgresPort = "5432"
	}
	if c.PostgresUser == "" {
		c.PostgresUser = "postgres"
	}
	if c.PostgresDBName == "" {
		c.PostgresDBName = "trainingload"
	}
	if c.RedisHost == "" {
		c.RedisHost = "localhost"
	}
	if c.RedisPort == "" {
		c.RedisPort = "6379"
	}
	if c.PrometheusMetricsHost == "" {
		c.PrometheusMetricsHost = "localhost"
	}
	if c.PrometheusMetricsPort == "" {
		c.PrometheusMetricsPort = "2112"
	}
	if c.RebuildRateLimitPerMin == 0 {
		c.RebuildRateLimitPerMin = 10
	}
	if c.RebuildLockTTL.Duration == 0 {
		c.RebuildLockTTL.Duration = 5 * time.Minute
	}
	if c.RecentLoadCacheSizeMB == 0 {
		c.RecentLoadCacheSizeMB = 10
	}
	if c.StravaAPIURL == "" {
		c.StravaAPIURL = "https://www.strava.com/api/v3"
	}
	if c.StravaAuthURL == "" {
		c.StravaAuthURL = "https://www.strava.com/oauth/authorize"
	}
	if c.StravaTokenURL == "" {
		c.StravaTokenURL = "https://www.strava.com/oauth/token"
	}
	if c.StravaPageSize == 0 {
		c.StravaPageSize = 100
	}

	if c.Load.CTLTimeConstant == 0 {
		c.Load.CTLTimeConstant = 42
	}
	if c.Load.ATLTimeConstant == 0 {
		c.Load.ATLTimeConstant = 7
	}
	if c.Load.FallbackIFCycling == 0 {
		c.Load.FallbackIFCycling = 0.60
	}
	if c.Load.FallbackIFRunning == 0 {
		c.Load.FallbackIFRunning = 0.55
	}
	if c.Load.FallbackIFOther == 0 {
		c.Load.FallbackIFOther = 0.50
	}
}

func (c *Config) validate() error {
	if c.Load.CTLTimeConstant < 1 || c.Load.ATLTimeConstant < 1 {
		return fmt.Errorf("load time constants must be >= 1, got ctl=%v atl=%v", c.Load.CTLTimeConstant, c.Load.ATLTimeConstant)
	}
	if c.StravaPageSize < 1 || c.StravaPageSize > 200 {
		return fmt.Errorf("strava page size must be within [1, 200], got %d", c.StravaPageSize)
	}
	return nil
}
