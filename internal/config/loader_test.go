package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/namelens/listlens/internal/errors"
)

func newTestViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	require.NoError(t, BindEnv(v))
	return v
}

func TestLoad(t *testing.T) {
	t.Run("LoadDefaults", func(t *testing.T) {
		t.Setenv("HUBSPOT_BEARER", "")
		t.Setenv("LISTLENS_HUBSPOT_BEARER_TOKEN", "")

		cfg, err := Load(newTestViper(t))
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "https://api.hubapi.com", cfg.HubSpot.BaseURL)
		assert.Equal(t, 30*time.Second, cfg.HubSpot.Timeout)
		assert.Equal(t, 32, cfg.HubSpot.MaxFilterDepth)

		assert.Equal(t, 100, cfg.RateLimit.Requests)
		assert.Equal(t, 10*time.Second, cfg.RateLimit.Window)
		assert.Equal(t, 100*time.Millisecond, cfg.RateLimit.PollInterval)

		assert.Equal(t, "lists_to_check.csv", cfg.Files.Lists)
		assert.Equal(t, "properties_to_check.txt", cfg.Files.Properties)
		assert.Equal(t, "checked_lists.csv", cfg.Files.Results)
		assert.Equal(t, "log_file.csv", cfg.Files.ErrorLog)
		assert.False(t, cfg.Files.LogSuccess)

		assert.False(t, cfg.Store.Enabled)
		assert.Equal(t, "libsql", cfg.Store.Driver)
		assert.NotEmpty(t, cfg.Store.Path)

		assert.Equal(t, "info", cfg.Logging.Level)
		assert.False(t, cfg.Metrics.Enabled)
		assert.Equal(t, 5, cfg.Workers)

		assert.Same(t, cfg, GetConfig())
	})

	t.Run("LegacyBearerEnv", func(t *testing.T) {
		t.Setenv("LISTLENS_HUBSPOT_BEARER_TOKEN", "")
		t.Setenv("HUBSPOT_BEARER", " legacy-token ")

		cfg, err := Load(newTestViper(t))
		require.NoError(t, err)
		assert.Equal(t, "legacy-token", cfg.HubSpot.BearerToken)
	})

	t.Run("PrefixedEnvOverrides", func(t *testing.T) {
		t.Setenv("LISTLENS_HUBSPOT_BEARER_TOKEN", "prefixed")
		t.Setenv("HUBSPOT_BEARER", "legacy")
		t.Setenv("LISTLENS_RATE_LIMIT_REQUESTS", "25")
		t.Setenv("LISTLENS_RATE_LIMIT_WINDOW", "2s")
		t.Setenv("LISTLENS_WORKERS", "9")

		cfg, err := Load(newTestViper(t))
		require.NoError(t, err)
		assert.Equal(t, "prefixed", cfg.HubSpot.BearerToken)
		assert.Equal(t, 25, cfg.RateLimit.Requests)
		assert.Equal(t, 2*time.Second, cfg.RateLimit.Window)
		assert.Equal(t, 9, cfg.Workers)
	})

	t.Run("ConfigFile", func(t *testing.T) {
		t.Setenv("HUBSPOT_BEARER", "")
		t.Setenv("LISTLENS_HUBSPOT_BEARER_TOKEN", "")

		path := filepath.Join(t.TempDir(), "config.yaml")
		content := []byte("hubspot:\n  bearer_token: from-file\n  timeout: 5s\nrate_limit:\n  requests: 10\nfiles:\n  results: out/results.csv\n")
		require.NoError(t, os.WriteFile(path, content, 0o600))

		v := newTestViper(t)
		ConfigureSearch(v, path)
		require.NoError(t, v.ReadInConfig())

		cfg, err := Load(v)
		require.NoError(t, err)
		assert.Equal(t, "from-file", cfg.HubSpot.BearerToken)
		assert.Equal(t, 5*time.Second, cfg.HubSpot.Timeout)
		assert.Equal(t, 10, cfg.RateLimit.Requests)
		assert.Equal(t, "out/results.csv", cfg.Files.Results)
		assert.Equal(t, "log_file.csv", cfg.Files.ErrorLog)
	})
}

func validConfig() *Config {
	return &Config{
		HubSpot:   HubSpotConfig{BaseURL: "https://api.hubapi.com", BearerToken: "token", Timeout: time.Second, MaxFilterDepth: 32},
		RateLimit: RateLimitConfig{Requests: 100, Window: 10 * time.Second, PollInterval: 100 * time.Millisecond},
		Files:     FilesConfig{Lists: "a.csv", Properties: "b.txt", Results: "c.csv", ErrorLog: "d.csv"},
		Workers:   5,
	}
}

func TestValidateRun(t *testing.T) {
	require.NoError(t, validConfig().ValidateRun())

	cases := map[string]func(c *Config){
		"missing token":   func(c *Config) { c.HubSpot.BearerToken = "" },
		"bad base url":    func(c *Config) { c.HubSpot.BaseURL = "not a url" },
		"zero timeout":    func(c *Config) { c.HubSpot.Timeout = 0 },
		"zero depth":      func(c *Config) { c.HubSpot.MaxFilterDepth = 0 },
		"zero requests":   func(c *Config) { c.RateLimit.Requests = 0 },
		"zero window":     func(c *Config) { c.RateLimit.Window = 0 },
		"negative poll":   func(c *Config) { c.RateLimit.PollInterval = -1 },
		"zero workers":    func(c *Config) { c.Workers = 0 },
		"missing results": func(c *Config) { c.Files.Results = " " },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(cfg)
			err := cfg.ValidateRun()
			require.Error(t, err)
			require.Equal(t, foundry.ExitConfigInvalid, apperrors.ExitCodeFor(err))
		})
	}

	var missing *Config
	require.Error(t, missing.ValidateRun())
}
