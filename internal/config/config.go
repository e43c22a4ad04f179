// Package config loads the client configuration from defaults, an optional
// YAML file and AUTODOC_* environment variables, in increasing precedence.
//
// PRECEDENCE (highest wins):
//
//	1. command-line flags (--port, --log-level), applied by the CLI
//	2. environment: AUTODOC_API_URL, AUTODOC_PORT, AUTODOC_DB_PATH, ...
//	3. config file: --config, or ~/.autodoc/config.yaml when it exists
//	4. DefaultConfig
//
// A config file uses the same keys as the mapstructure tags below:
//
//	api_url: https://autodoc.example.com
//	port: 8080
//	poll_interval: 5s
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. AUTODOC_API_URL.
const EnvPrefix = "AUTODOC"

// DefaultCookieSecret is only good for local development; serve warns when
// it is in use.
const DefaultCookieSecret = "autodoc-local-development-secret"

// Config is the merged configuration.
type Config struct {
	APIURL        string        `mapstructure:"api_url"`
	Port          int           `mapstructure:"port"`
	DBPath        string        `mapstructure:"db_path"`
	CookieSecret  string        `mapstructure:"cookie_secret"`
	SecureCookies bool          `mapstructure:"secure_cookies"`
	LogLevel      string        `mapstructure:"log_level"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		APIURL:       "http://localhost:8000",
		Port:         5173,
		DBPath:       filepath.Join("data", "autodoc.db"),
		CookieSecret: DefaultCookieSecret,
		LogLevel:     "info",
		PollInterval: 2 * time.Second,
	}
}

// DefaultPath is ~/.autodoc/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".autodoc", "config.yaml")
}

// Load reads the configuration. An explicit path must exist; the default
// path is read only when present.
func Load(path string) (Config, error) {
	v := viper.New()

	d := DefaultConfig()
	v.SetDefault("api_url", d.APIURL)
	v.SetDefault("port", d.Port)
	v.SetDefault("db_path", d.DBPath)
	v.SetDefault("cookie_secret", d.CookieSecret)
	v.SetDefault("secure_cookies", d.SecureCookies)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("poll_interval", d.PollInterval)

	// AutomaticEnv checks AUTODOC_<KEY> on every lookup. It only covers
	// keys viper already knows, which SetDefault above registered.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
			if explicit || !missing {
				return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
			}
		}
	}

	// Unmarshal goes through mapstructure, which also turns "5s" into a
	// time.Duration.
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decoding: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values a server cannot start without.
func (c Config) Validate() error {
	if c.APIURL == "" {
		return errors.New("config: api_url is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("config: poll_interval must be positive, got %s", c.PollInterval)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps debug, info, warn and error to their slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: unknown log level %q", s)
	}
	return level, nil
}
