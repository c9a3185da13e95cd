// Package config loads trapstash settings from a YAML file, TRAPSTASH_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dendrascience/trapstash/content"
	"github.com/dendrascience/trapstash/export"
	"github.com/dendrascience/trapstash/metadata"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	AppName   = "trapstash"
	EnvPrefix = "TRAPSTASH"
)

// Config is the complete set of settings.
type Config struct {
	Import   ImportConfig   `mapstructure:"import"`
	Export   ExportConfig   `mapstructure:"export"`
	Metadata MetadataConfig `mapstructure:"metadata"`
	Log      LogConfig      `mapstructure:"log"`
}

// ImportConfig controls which files become leaves.
type ImportConfig struct {
	Extensions []string `mapstructure:"extensions"`
	Ignore     []string `mapstructure:"ignore"`
	IgnoreFile string   `mapstructure:"ignoreFile"`
}

// ExportConfig controls chunking and where archives go.
type ExportConfig struct {
	MaxEntriesPerChunk int    `mapstructure:"maxEntriesPerChunk"`
	Parallelism        int    `mapstructure:"parallelism"`
	ScratchDir         string `mapstructure:"scratchDir"`
	Manifest           bool   `mapstructure:"manifest"`
}

// MetadataConfig controls the metadata pass.
type MetadataConfig struct {
	Enabled          bool `mapstructure:"enabled"`
	ProgressInterval int  `mapstructure:"progressInterval"`
}

// LogConfig controls logger construction.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// New returns a viper instance carrying every default and the env binding.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("import.extensions", content.DefaultExtensions)
	v.SetDefault("import.ignore", []string{})
	v.SetDefault("import.ignoreFile", content.DefaultIgnoreFile)
	v.SetDefault("export.maxEntriesPerChunk", export.DefaultMaxEntries)
	v.SetDefault("export.parallelism", 1)
	v.SetDefault("export.scratchDir", "")
	v.SetDefault("export.manifest", true)
	v.SetDefault("metadata.enabled", true)
	v.SetDefault("metadata.progressInterval", metadata.MinProgressInterval)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags maps command-line flags onto config keys. Flags absent from fs
// are ignored.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) error {
	for flag, key := range keys {
		f := fs.Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind --%s: %w", flag, err)
		}
	}
	return nil
}

// Load reads path, or searches the working directory and the user config
// directory for trapstash.yaml when path is empty, and decodes the result.
// A missing file is only an error when path was given explicitly.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, AppName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if cfg.Export.MaxEntriesPerChunk < 1 {
		return nil, fmt.Errorf("export.maxEntriesPerChunk = %d: %w", cfg.Export.MaxEntriesPerChunk, export.ErrInvalidChunkSize)
	}
	return &cfg, nil
}
