// Package config provides centralized configuration management for listlens.
// Settings are resolved through viper and decoded with mapstructure.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	apperrors "github.com/namelens/listlens/internal/errors"
)

const (
	// AppName is used for XDG config and data directories.
	AppName = "listlens"

	// EnvPrefix is prepended to environment variable overrides.
	EnvPrefix = "LISTLENS"

	// LegacyBearerEnv is also accepted for the bearer token.
	LegacyBearerEnv = "HUBSPOT_BEARER"
)

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex
)

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("hubspot.base_url", "https://api.hubapi.com")
	v.SetDefault("hubspot.bearer_token", "")
	v.SetDefault("hubspot.timeout", "30s")
	v.SetDefault("hubspot.max_filter_depth", 32)

	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "10s")
	v.SetDefault("rate_limit.poll_interval", "100ms")

	v.SetDefault("files.lists", "lists_to_check.csv")
	v.SetDefault("files.properties", "properties_to_check.txt")
	v.SetDefault("files.results", "checked_lists.csv")
	v.SetDefault("files.error_log", "log_file.csv")
	v.SetDefault("files.log_success", false)

	v.SetDefault("store.enabled", false)
	v.SetDefault("store.driver", "libsql")
	v.SetDefault("store.path", DefaultStorePath())
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")

	v.SetDefault("logging.level", "info")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 9090)

	v.SetDefault("workers", 5)
}

// BindEnv enables LISTLENS_* overrides. The bearer token also honours
// HUBSPOT_BEARER.
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("hubspot.bearer_token", EnvPrefix+"_HUBSPOT_BEARER_TOKEN", LegacyBearerEnv); err != nil {
		return fmt.Errorf("bind bearer token env: %w", err)
	}
	return nil
}

// Load decodes the settings held by v into a Config and stores it as the
// current configuration.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.GetViper()
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, apperrors.WrapConfigInvalid(err, "failed to unmarshal config")
	}

	cfg.HubSpot.BearerToken = strings.TrimSpace(cfg.HubSpot.BearerToken)
	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}

	setConfig(cfg)
	return cfg, nil
}

// ValidateRun checks everything a run needs before any work starts.
func (c *Config) ValidateRun() error {
	if c == nil {
		return apperrors.NewConfigInvalidError("config not loaded")
	}
	if c.HubSpot.BearerToken == "" {
		return apperrors.NewConfigInvalidError(fmt.Sprintf("bearer token is required (set hubspot.bearer_token, %s_HUBSPOT_BEARER_TOKEN or %s)", EnvPrefix, LegacyBearerEnv))
	}
	parsed, err := url.Parse(c.HubSpot.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return apperrors.NewConfigInvalidError(fmt.Sprintf("invalid hubspot.base_url: %q", c.HubSpot.BaseURL))
	}
	if c.HubSpot.Timeout <= 0 {
		return apperrors.NewConfigInvalidError("hubspot.timeout must be positive")
	}
	if c.HubSpot.MaxFilterDepth < 1 {
		return apperrors.NewConfigInvalidError("hubspot.max_filter_depth must be at least 1")
	}
	if c.RateLimit.Requests < 1 {
		return apperrors.NewConfigInvalidError("rate_limit.requests must be at least 1")
	}
	if c.RateLimit.Window <= 0 {
		return apperrors.NewConfigInvalidError("rate_limit.window must be positive")
	}
	if c.RateLimit.PollInterval < 0 {
		return apperrors.NewConfigInvalidError("rate_limit.poll_interval must not be negative")
	}
	if c.Workers < 1 {
		return apperrors.NewConfigInvalidError("workers must be at least 1")
	}
	for key, value := range map[string]string{
		"files.lists":      c.Files.Lists,
		"files.properties": c.Files.Properties,
		"files.results":    c.Files.Results,
		"files.error_log":  c.Files.ErrorLog,
	} {
		if strings.TrimSpace(value) == "" {
			return apperrors.NewConfigInvalidError(key + " is required")
		}
	}
	return nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// DefaultConfigDir returns the XDG-compliant config directory for the app.
func DefaultConfigDir() string {
	return gfconfig.GetAppConfigDir(AppName)
}

// DefaultStorePath returns the XDG-compliant path to the run history database.
func DefaultStorePath() string {
	dataDir := gfconfig.GetAppDataDir(AppName)
	if strings.TrimSpace(dataDir) == "" {
		return "./" + AppName + ".db"
	}
	return filepath.Join(dataDir, AppName+".db")
}

// ConfigureSearch points v at an explicit config file, or at the XDG config
// directory, the home directory and ./config.
func ConfigureSearch(v *viper.Viper, cfgFile string) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		return
	}

	if dir := DefaultConfigDir(); dir != "" {
		v.AddConfigPath(dir)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, "."+AppName))
	}
	v.AddConfigPath("./config")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}
