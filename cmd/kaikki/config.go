package main

import (
	"os"
	"strings"

	"github.com/japaniel/kaikki/pkg/db"
	"github.com/japaniel/kaikki/pkg/feed"
	"github.com/japaniel/kaikki/pkg/ingest"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	configName    = "kaikki"
	configType    = "yaml"
	defaultConfig = "kaikki.yaml"
	envPrefix     = "KAIKKI"
)

// Config keys.
const (
	cfgKeyFeed            = "feed"
	cfgKeyFeedURL         = "feed_url"
	cfgKeyDriver          = "database.driver"
	cfgKeyDSN             = "database.dsn"
	cfgKeyBatchSize       = "batch_size"
	cfgKeyFailedLinesFile = "failed_lines_file"
	cfgKeyProgressFile    = "progress_file"
	cfgKeyMetricsAddress  = "metrics.address"
	cfgKeyReadings        = "annotate.readings"
)

// Config is the resolved configuration for one invocation.
type Config struct {
	Feed            string         `mapstructure:"feed" yaml:"feed"`
	FeedURL         string         `mapstructure:"feed_url" yaml:"feed_url"`
	Database        DatabaseConfig `mapstructure:"database" yaml:"database"`
	BatchSize       int            `mapstructure:"batch_size" yaml:"batch_size"`
	FailedLinesFile string         `mapstructure:"failed_lines_file" yaml:"failed_lines_file"`
	ProgressFile    string         `mapstructure:"progress_file" yaml:"progress_file"`
	Metrics         MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
	Annotate        AnnotateConfig `mapstructure:"annotate" yaml:"annotate"`
}

// DatabaseConfig selects the sink. Driver is sqlite or postgres.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Address to serve /metrics on during ingest; empty disables it.
	Address string `mapstructure:"address" yaml:"address"`
}

// AnnotateConfig toggles optional enrichment of stored entries.
type AnnotateConfig struct {
	Readings bool `mapstructure:"readings" yaml:"readings"`
}

func defaults() Config {
	return Config{
		Feed:    "kaikki.org-dictionary-English.jsonl",
		FeedURL: feed.DefaultURL,
		Database: DatabaseConfig{
			Driver: string(db.SQLite),
			DSN:    "wikitionary-kaikki-english.db",
		},
		BatchSize:       ingest.DefaultBatchSize,
		FailedLinesFile: "failed_lines.txt",
		ProgressFile:    "progress.txt",
	}
}

// flagKeys maps command-line flags onto config keys. Flags a command does not
// define are skipped.
var flagKeys = map[string]string{
	"feed":       cfgKeyFeed,
	"url":        cfgKeyFeedURL,
	"db":         cfgKeyDSN,
	"driver":     cfgKeyDriver,
	"batch-size": cfgKeyBatchSize,
	"metrics":    cfgKeyMetricsAddress,
	"readings":   cfgKeyReadings,
}

// loadConfig resolves configuration with precedence flag > env > file > default.
// A missing kaikki.yaml in the working directory is not an error; a missing
// file named with --config is.
func loadConfig(path string, cmd *cobra.Command) (*Config, error) {
	d := defaults()
	v := viper.New()
	v.SetDefault(cfgKeyFeed, d.Feed)
	v.SetDefault(cfgKeyFeedURL, d.FeedURL)
	v.SetDefault(cfgKeyDriver, d.Database.Driver)
	v.SetDefault(cfgKeyDSN, d.Database.DSN)
	v.SetDefault(cfgKeyBatchSize, d.BatchSize)
	v.SetDefault(cfgKeyFailedLinesFile, d.FailedLinesFile)
	v.SetDefault(cfgKeyProgressFile, d.ProgressFile)
	v.SetDefault(cfgKeyMetricsAddress, d.Metrics.Address)
	v.SetDefault(cfgKeyReadings, d.Annotate.Readings)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, errors.Wrap(err, "read config")
		}
	}

	if cmd != nil {
		for name, key := range flagKeys {
			if f := cmd.Flags().Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, errors.Wrapf(err, "bind --%s", name)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.BatchSize <= 0 {
		return errors.Wrapf(ingest.ErrInvalidBatchSize, "batch_size %d", c.BatchSize)
	}
	if _, err := db.ParseDialect(c.Database.Driver); err != nil {
		return err
	}
	if c.Feed == "" {
		return errors.New("feed path is empty")
	}
	return nil
}

// writeDefaultConfig writes the default configuration to path unless a file
// already exists there. It reports whether a file was written.
func writeDefaultConfig(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, errors.Wrap(err, "stat config file")
	}
	body, err := yaml.Marshal(defaults())
	if err != nil {
		return false, errors.Wrap(err, "encode default config")
	}
	header := "# kaikki configuration. Environment variables KAIKKI_<KEY> override these values,\n" +
		"# with dots replaced by underscores (KAIKKI_DATABASE_DSN).\n"
	if err := os.WriteFile(path, append([]byte(header), body...), 0o644); err != nil {
		return false, errors.Wrap(err, "write config file")
	}
	return true, nil
}
