// Package config loads rentmap settings from config.yaml, .env files and
// RENTMAP_* environment variables.
package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Supabase SupabaseConfig `yaml:"supabase" mapstructure:"supabase"`
	Grid     GridConfig     `yaml:"grid" mapstructure:"grid"`
	Scale    ScaleConfig    `yaml:"scale" mapstructure:"scale"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig selects where listings come from.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // postgres, sqlite, supabase, synthetic
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// SupabaseConfig configures the PostgREST listing source.
type SupabaseConfig struct {
	URL       string  `yaml:"url" mapstructure:"url"`
	Key       string  `yaml:"key" mapstructure:"key"`
	Table     string  `yaml:"table" mapstructure:"table"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second
	Burst     int     `yaml:"burst" mapstructure:"burst"`
}

// GridConfig overrides the city profile's lattice settings. Zero values keep
// the profile's own.
type GridConfig struct {
	Profile        string  `yaml:"profile" mapstructure:"profile"` // path to a city YAML; empty = Manhattan
	CellSize       float64 `yaml:"cell_size" mapstructure:"cell_size"`
	Overlap        float64 `yaml:"overlap" mapstructure:"overlap"`
	Workers        int     `yaml:"workers" mapstructure:"workers"`
	Seed           uint64  `yaml:"seed" mapstructure:"seed"` // 0 = unseeded
	FallbackOnMiss bool    `yaml:"fallback_on_miss" mapstructure:"fallback_on_miss"`
}

// ScaleConfig picks the color regime.
type ScaleConfig struct {
	Mode string `yaml:"mode" mapstructure:"mode"` // discrete, continuous
}

// FetchConfig controls retries and the circuit breaker around sources.
type FetchConfig struct {
	MaxAttempts         int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs    int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	TimeoutSecs         int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	BreakerThreshold    int `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerCooldownSecs int `yaml:"breaker_cooldown_secs" mapstructure:"breaker_cooldown_secs"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port             int      `yaml:"port" mapstructure:"port"`
	CacheSize        int      `yaml:"cache_size" mapstructure:"cache_size"`
	CacheTTLSecs     int      `yaml:"cache_ttl_secs" mapstructure:"cache_ttl_secs"`
	AllowedOrigins   []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	DefaultBedrooms  int      `yaml:"default_bedrooms" mapstructure:"default_bedrooms"`
	BuildTimeoutSecs int      `yaml:"build_timeout_secs" mapstructure:"build_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("RENTMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Every key needs a default so AutomaticEnv can see it on Unmarshal.
	v.SetDefault("store.driver", "synthetic")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.sqlite_path", "rentmap.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("supabase.url", "")
	v.SetDefault("supabase.key", "")
	v.SetDefault("supabase.table", "rentals")
	v.SetDefault("supabase.rate_limit", 5.0)
	v.SetDefault("supabase.burst", 2)
	v.SetDefault("grid.profile", "")
	v.SetDefault("grid.cell_size", 0.0)
	v.SetDefault("grid.overlap", 0.0)
	v.SetDefault("grid.workers", 4)
	v.SetDefault("grid.seed", 0)
	v.SetDefault("grid.fallback_on_miss", false)
	v.SetDefault("scale.mode", "discrete")
	v.SetDefault("fetch.max_attempts", 3)
	v.SetDefault("fetch.initial_backoff_ms", 250)
	v.SetDefault("fetch.timeout_secs", 15)
	v.SetDefault("fetch.breaker_threshold", 5)
	v.SetDefault("fetch.breaker_cooldown_secs", 30)
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.cache_size", 64)
	v.SetDefault("server.cache_ttl_secs", 300)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.default_bedrooms", 0)
	v.SetDefault("server.build_timeout_secs", 60)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	return &cfg, nil
}

// LoadDotEnv loads .env files into the process environment. Missing files
// are skipped; variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return eris.Wrapf(err, "config: load %s", f)
		}
	}
	return nil
}

var (
	validDrivers = map[string]bool{"postgres": true, "sqlite": true, "supabase": true, "synthetic": true}
	validScales  = map[string]bool{"discrete": true, "continuous": true}
)

// Validate checks the settings a command needs. mode is one of grid,
// aggregate, serve or import.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "grid":
	case "aggregate", "serve":
		errs = append(errs, c.validateSource()...)
	case "import":
		if c.Store.Driver != "postgres" && c.Store.Driver != "sqlite" {
			errs = append(errs, "store.driver must be postgres or sqlite to import")
		}
		errs = append(errs, c.validateSource()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if mode == "serve" {
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.CacheSize <= 0 {
			errs = append(errs, "server.cache_size must be > 0")
		}
	}

	if !validScales[c.Scale.Mode] {
		errs = append(errs, "scale.mode must be discrete or continuous")
	}
	if c.Grid.CellSize < 0 {
		errs = append(errs, "grid.cell_size must be >= 0")
	}
	if c.Grid.Overlap < 0 {
		errs = append(errs, "grid.overlap must be >= 0")
	}
	if c.Grid.Workers < 0 || c.Grid.Workers > 64 {
		errs = append(errs, "grid.workers must be between 0 and 64")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateSource() []string {
	var errs []string
	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			errs = append(errs, "store.sqlite_path is required")
		}
	case "supabase":
		if c.Supabase.URL == "" {
			errs = append(errs, "supabase.url is required")
		}
		if c.Supabase.Key == "" {
			errs = append(errs, "supabase.key is required")
		}
		if c.Supabase.RateLimit <= 0 {
			errs = append(errs, "supabase.rate_limit must be > 0")
		}
	}
	if !validDrivers[c.Store.Driver] {
		errs = append(errs, "store.driver must be postgres, sqlite, supabase or synthetic")
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)
	return nil
}
