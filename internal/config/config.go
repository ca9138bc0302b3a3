// Package config loads the runtime configuration: everything about the
// host environment rather than the study. Study inputs live in the
// three YAML decks; this package covers the output root, worker count,
// logging, the metrics listener and object-store credentials.
//
// Precedence, highest first: command-line flags, WINDCO_* environment
// variables, the config file, built-in defaults. The config file is
// optional; windco.yaml is searched in the working directory and in
// $HOME/.config/windco unless a path is given explicitly.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the resolved runtime configuration.
type Config struct {
	// OutputRoot is the base directory run folders land under. The
	// analysis deck's folder_output resolves relative to it.
	OutputRoot string
	// Workers bounds campaign concurrency; zero lets the deck or the
	// CPU count decide.
	Workers int
	Log     Log
	Metrics Metrics
	Archive Archive
}

// Log selects the logger's level and encoding.
type Log struct {
	Level  string
	Format string
}

// Metrics controls the two optional exposure paths.
type Metrics struct {
	// Listen enables the /metrics endpoint when set, host:port.
	Listen string
	// Textfile writes an end-of-run dump to this path when set.
	Textfile string
}

// Archive holds the object-store connection; the bucket and prefix come
// from the analysis deck, which owns what gets archived where.
type Archive struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	UseSSL          bool
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		OutputRoot: ".",
		Log:        Log{Level: "info", Format: "console"},
		Archive:    Archive{UseSSL: true},
	}
}

// Load resolves the configuration. flags may be nil; cfgFile may be
// empty to use the search path.
func Load(fs afero.Fs, flags *pflag.FlagSet, cfgFile string) (*Config, error) {
	v := viper.New()
	v.SetFs(fs)

	v.SetDefault("output_root", ".")
	v.SetDefault("workers", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("metrics.listen", "")
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("archive.endpoint", "")
	v.SetDefault("archive.access_key_id", "")
	v.SetDefault("archive.secret_access_key", "")
	v.SetDefault("archive.region", "")
	v.SetDefault("archive.use_ssl", true)

	v.SetEnvPrefix("WINDCO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName("windco")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/windco")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	bindFlags(v, flags)

	cfg := &Config{
		OutputRoot: v.GetString("output_root"),
		Workers:    v.GetInt("workers"),
		Log: Log{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Metrics: Metrics{
			Listen:   v.GetString("metrics.listen"),
			Textfile: v.GetString("metrics.textfile"),
		},
		Archive: Archive{
			Endpoint:        v.GetString("archive.endpoint"),
			AccessKeyID:     v.GetString("archive.access_key_id"),
			SecretAccessKey: v.GetString("archive.secret_access_key"),
			Region:          v.GetString("archive.region"),
			UseSSL:          v.GetBool("archive.use_ssl"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bindFlags maps CLI flags onto config keys. Viper only lets a flag
// override lower layers when the user actually set it.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	if flags == nil {
		return
	}
	for key, name := range map[string]string{
		"output_root":      "output-root",
		"workers":          "workers",
		"log.level":        "log-level",
		"log.format":       "log-format",
		"metrics.listen":   "metrics-listen",
		"metrics.textfile": "metrics-textfile",
	} {
		if f := flags.Lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}

// Validate checks for invalid configuration values.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log format must be console or json, got %q", c.Log.Format)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	if c.Metrics.Listen != "" && !strings.Contains(c.Metrics.Listen, ":") {
		return fmt.Errorf("metrics listen address must be host:port, got %q", c.Metrics.Listen)
	}
	return nil
}
