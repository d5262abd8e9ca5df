// Package config loads settings from defaults, an optional YAML file,
// AIRMASS_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/star/airmass/internal/airmass"
	"github.com/star/airmass/internal/sky"
)

// Config holds all configuration for the binaries.
type Config struct {
	Log  LogConfig
	HTTP HTTPConfig
	Auth AuthConfig

	Workers         int
	Threshold       float64
	Observatory     string
	Time            string        // local wall-clock time of the observation
	UTCOffset       float64       `mapstructure:"utc_offset"` // hours east of UTC
	SiteTime        bool          `mapstructure:"site_time"`  // Time is in the observatory's own zone
	Catalog         string        // file path, http(s) URL, or empty for the sample
	CatalogCacheDir string        `mapstructure:"catalog_cache_dir"`
	CatalogRefresh  time.Duration `mapstructure:"catalog_refresh"` // remote reload interval, 0 disables
	Format          string        // table, json
	All             bool          // print every target, not only retained ones

	Observatories []ObservatoryConfig
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// HTTPConfig holds service listener configuration.
type HTTPConfig struct {
	Addr         string
	MaxPerClient int  `mapstructure:"max_per_client"`
	TrustProxy   bool `mapstructure:"trust_proxy"`
}

// AuthConfig holds bearer-token settings for the service.
type AuthConfig struct {
	Enabled bool
	Token   string
}

// ObservatoryConfig is an extra site declared in the config file.
type ObservatoryConfig struct {
	Name      string
	Longitude float64
	Latitude  float64
	Height    float64
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"log-level":         "log.level",
	"log-format":        "log.format",
	"http-addr":         "http.addr",
	"workers":           "workers",
	"threshold":         "threshold",
	"observatory":       "observatory",
	"time":              "time",
	"utc-offset":        "utc_offset",
	"site-time":         "site_time",
	"catalog":           "catalog",
	"catalog-cache-dir": "catalog_cache_dir",
	"catalog-refresh":   "catalog_refresh",
	"format":            "format",
	"all":               "all",
}

// NewFlagSet declares every flag the binaries understand.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "path to a YAML config file")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.String("log-format", "text", "log format: text, json")
	fs.String("http-addr", ":8080", "service listen address")
	fs.Int("workers", runtime.NumCPU(), "evaluation workers")
	fs.Float64("threshold", airmass.DefaultThreshold, "maximum airmass to keep")
	fs.StringP("observatory", "o", "", "observatory name")
	fs.StringP("time", "t", "", "local observation time, 2006-01-02T15:04:05")
	fs.Float64("utc-offset", 0, "local UTC offset in hours, e.g. -5 for CDT")
	fs.Bool("site-time", false, "read --time in the observatory's time zone instead of --utc-offset")
	fs.StringP("catalog", "c", "", "catalog file or URL (default: embedded sample)")
	fs.String("catalog-cache-dir", defaultCacheDir(), "directory caching downloaded catalogs")
	fs.Duration("catalog-refresh", 0, "reload interval for a remote catalog (service only)")
	fs.StringP("format", "f", "table", "output format: table, json")
	fs.Bool("all", false, "list every target with its airmass, not only retained ones")
	return fs
}

// Load parses args against fs and merges all configuration sources.
func Load(fs *pflag.FlagSet, args []string) (*Config, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.max_per_client", 4)
	v.SetDefault("http.trust_proxy", false)
	v.SetDefault("workers", runtime.NumCPU())
	v.SetDefault("threshold", airmass.DefaultThreshold)
	v.SetDefault("format", "table")
	v.SetDefault("catalog_cache_dir", defaultCacheDir())
	v.SetDefault("catalog_refresh", 0)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.token", "")

	v.SetEnvPrefix("AIRMASS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for flagName, key := range flagKeys {
		if f := fs.Lookup(flagName); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding flag %s: %w", flagName, err)
			}
		}
	}

	path, _ := fs.GetString("config")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("airmass")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.airmass")
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing default config file is fine; defaults apply. A file
		// named with --config must exist.
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	switch c.Format {
	case "table", "json":
	default:
		return fmt.Errorf("unknown output format %q", c.Format)
	}
	if c.UTCOffset < -14 || c.UTCOffset > 14 {
		return fmt.Errorf("utc offset %v outside [-14, 14] hours", c.UTCOffset)
	}
	if c.SiteTime && c.UTCOffset != 0 {
		return errors.New("site time and a utc offset are mutually exclusive")
	}
	if c.CatalogRefresh < 0 {
		return fmt.Errorf("catalog refresh must not be negative, got %s", c.CatalogRefresh)
	}
	if c.Auth.Enabled && c.Auth.Token == "" {
		return errors.New("auth.token is required when auth is enabled")
	}
	return nil
}

func defaultCacheDir() string {
	return filepath.Join(os.TempDir(), "airmass", "catalog")
}

// ExtraObservatories converts the configured sites, normalising longitudes.
func (c *Config) ExtraObservatories() ([]sky.Observatory, error) {
	out := make([]sky.Observatory, 0, len(c.Observatories))
	for _, o := range c.Observatories {
		loc, err := sky.NewGeodeticLocation(o.Longitude, o.Latitude, o.Height)
		if err != nil {
			return nil, fmt.Errorf("observatory %q: %w", o.Name, err)
		}
		out = append(out, sky.Observatory{Name: o.Name, Location: loc})
	}
	return out, nil
}

// NewLogger creates a slog.Logger writing to w per the log settings.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(c.Log.Format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
