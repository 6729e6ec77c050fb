package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"
)

const (
	CompressionDeflate = "deflate"
	CompressionStore   = "store"
)

type Config struct {
	DaemonPort    int           `mapstructure:"daemon_port"`
	DBPath        string        `mapstructure:"db_path"`
	IgnoreFile    string        `mapstructure:"ignore_file"`
	DefaultIgnore []string      `mapstructure:"default_ignore"`
	Watch         WatchConfig   `mapstructure:"watch"`
	Archive       ArchiveConfig `mapstructure:"archive"`
}

type WatchConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	DebounceTicks int           `mapstructure:"debounce_ticks"`
	InitialPack   bool          `mapstructure:"initial_pack"`
}

type ArchiveConfig struct {
	PreserveEmptyDirs bool   `mapstructure:"preserve_empty_dirs"`
	Compression       string `mapstructure:"compression"`
	CompressionLevel  int    `mapstructure:"compression_level"`
}

var Default = Config{
	DaemonPort: 9002,
	DBPath:     "scriptpack.db",
	IgnoreFile: ".ts4ignore",
	DefaultIgnore: []string{
		"__pycache__/",
		"*.pyc",
		"*.pyo",
		"*.log",
		".git/",
		".idea/",
		".vscode/",
		"*.swp",
		".DS_Store",
		"Thumbs.db",
	},
	Watch: WatchConfig{
		Interval:      2 * time.Second,
		DebounceTicks: 3,
		InitialPack:   true,
	},
	Archive: ArchiveConfig{
		Compression:      CompressionDeflate,
		CompressionLevel: -1,
	},
}

var envKeyReplacer = strings.NewReplacer(".", "_")

func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.DaemonPort, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.DBPath, validation.Required),
		validation.Field(&c.IgnoreFile, validation.Required),
	); err != nil {
		return err
	}
	if err := c.Watch.Validate(); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	if err := c.Archive.Validate(); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	return nil
}

func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Interval, validation.Required, validation.Min(10*time.Millisecond)),
		validation.Field(&c.DebounceTicks, validation.Min(0)),
	)
}

func (c *ArchiveConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Compression, validation.Required, validation.In(CompressionDeflate, CompressionStore)),
		validation.Field(&c.CompressionLevel, validation.Min(-1), validation.Max(9)),
	)
}

// Dir returns ~/.scriptpack, creating it if needed.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home dir: %w", err)
	}

	dir := filepath.Join(home, ".scriptpack")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config dir: %w", err)
	}

	return dir, nil
}

func Load() (*Config, error) {
	configDir, err := Dir()
	if err != nil {
		return nil, err
	}

	return LoadFrom(viper.New(), configDir)
}

// LoadFrom reads config.yaml from configDir into v. A missing file is not an
// error; defaults and SCRIPTPACK_* environment variables still apply.
func LoadFrom(v *viper.Viper, configDir string) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	v.SetDefault("daemon_port", Default.DaemonPort)
	v.SetDefault("db_path", filepath.Join(configDir, Default.DBPath))
	v.SetDefault("ignore_file", Default.IgnoreFile)
	v.SetDefault("default_ignore", Default.DefaultIgnore)
	v.SetDefault("watch.interval", Default.Watch.Interval)
	v.SetDefault("watch.debounce_ticks", Default.Watch.DebounceTicks)
	v.SetDefault("watch.initial_pack", Default.Watch.InitialPack)
	v.SetDefault("archive.preserve_empty_dirs", Default.Archive.PreserveEmptyDirs)
	v.SetDefault("archive.compression", Default.Archive.Compression)
	v.SetDefault("archive.compression_level", Default.Archive.CompressionLevel)

	v.SetEnvPrefix("SCRIPTPACK")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := errors.AsType[viper.ConfigFileNotFoundError](err); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
