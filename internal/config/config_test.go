package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "synthetic", cfg.Store.Driver)
	assert.Equal(t, "rentmap.db", cfg.Store.SQLitePath)
	assert.Equal(t, "rentals", cfg.Supabase.Table)
	assert.InDelta(t, 5.0, cfg.Supabase.RateLimit, 0.001)
	assert.Equal(t, 4, cfg.Grid.Workers)
	assert.Zero(t, cfg.Grid.CellSize)
	assert.Equal(t, "discrete", cfg.Scale.Mode)
	assert.Equal(t, 3, cfg.Fetch.MaxAttempts)
	assert.Equal(t, 250, cfg.Fetch.InitialBackoffMs)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 64, cfg.Server.CacheSize)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
  sqlite_path: /data/rent.db
grid:
  cell_size: 0.004
  seed: 42
scale:
  mode: continuous
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/data/rent.db", cfg.Store.SQLitePath)
	assert.InDelta(t, 0.004, cfg.Grid.CellSize, 1e-12)
	assert.Equal(t, uint64(42), cfg.Grid.Seed)
	assert.Equal(t, "continuous", cfg.Scale.Mode)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values.
	assert.Equal(t, 4, cfg.Grid.Workers)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("RENTMAP_STORE_DRIVER", "supabase")
	t.Setenv("RENTMAP_SUPABASE_URL", "https://x.supabase.co")
	t.Setenv("RENTMAP_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "supabase", cfg.Store.Driver)
	assert.Equal(t, "https://x.supabase.co", cfg.Supabase.URL)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("RENTMAP_SERVER_PORT=3000\n"), 0o644))
	t.Setenv("RENTMAP_SERVER_PORT", "")
	require.NoError(t, os.Unsetenv("RENTMAP_SERVER_PORT"))

	require.NoError(t, LoadDotEnv())
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestLoadDotEnv_MissingFileIsFine(t *testing.T) {
	chdirTemp(t)
	assert.NoError(t, LoadDotEnv("does-not-exist.env"))
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "loud", Format: "json"}))
}

func validDefaults() *Config {
	return &Config{
		Store:    StoreConfig{Driver: "synthetic"},
		Supabase: SupabaseConfig{RateLimit: 5},
		Grid:     GridConfig{Workers: 4},
		Scale:    ScaleConfig{Mode: "discrete"},
		Server:   ServerConfig{Port: 8000, CacheSize: 64},
	}
}

func TestValidate_Defaults(t *testing.T) {
	for _, mode := range []string{"grid", "aggregate", "serve"} {
		assert.NoError(t, validDefaults().Validate(mode), mode)
	}
}

func TestValidate_Sources(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"postgres without url", func(c *Config) { c.Store.Driver = "postgres" }, "store.database_url is required"},
		{"postgres with url", func(c *Config) {
			c.Store.Driver = "postgres"
			c.Store.DatabaseURL = "postgres://localhost/rent"
		}, ""},
		{"sqlite without path", func(c *Config) { c.Store.Driver = "sqlite" }, "store.sqlite_path is required"},
		{"supabase without creds", func(c *Config) { c.Store.Driver = "supabase" }, "supabase.url is required"},
		{"supabase zero rate", func(c *Config) {
			c.Store.Driver = "supabase"
			c.Supabase = SupabaseConfig{URL: "https://x", Key: "k"}
		}, "supabase.rate_limit must be > 0"},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mongo" }, "store.driver must be"},
		{"bad scale", func(c *Config) { c.Scale.Mode = "rainbow" }, "scale.mode"},
		{"negative cell size", func(c *Config) { c.Grid.CellSize = -1 }, "grid.cell_size"},
		{"too many workers", func(c *Config) { c.Grid.Workers = 100 }, "grid.workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mutate(cfg)
			err := cfg.Validate("aggregate")
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_Serve(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0
	cfg.Server.CacheSize = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
	assert.Contains(t, err.Error(), "server.cache_size must be > 0")
}

func TestValidate_Import(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("import")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be postgres or sqlite to import")

	cfg.Store.Driver = "postgres"
	err = cfg.Validate("import")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/rent"
	assert.NoError(t, cfg.Validate("import"))

	cfg.Store = StoreConfig{Driver: "sqlite", SQLitePath: "rent.db"}
	assert.NoError(t, cfg.Validate("import"))
}

func TestValidate_UnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
