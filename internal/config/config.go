// Package config loads voice-memories configuration from defaults, an
// optional config file and VOICE_MEMORIES_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. VOICE_MEMORIES_DIR.
const EnvPrefix = "VOICE_MEMORIES"

// Recognizer providers.
const (
	ProviderOpenAI = "openai"
	ProviderStatic = "static"
)

// Config is the full application configuration.
type Config struct {
	Dir               string           `mapstructure:"dir"`
	IndexPath         string           `mapstructure:"index_path"`
	ThumbnailWidth    int              `mapstructure:"thumbnail_width"`
	JPEGQuality       int              `mapstructure:"jpeg_quality"`
	CacheMaxCost      int64            `mapstructure:"cache_max_cost"`
	TranscribeTimeout time.Duration    `mapstructure:"transcribe_timeout"`
	Permissions       PermissionConfig `mapstructure:"permissions"`
	Recognizer        RecognizerConfig `mapstructure:"recognizer"`
	Player            PlayerConfig     `mapstructure:"player"`
	Logging           LoggingConfig    `mapstructure:"logging"`
	Watcher           WatcherConfig    `mapstructure:"watcher"`
}

// PermissionConfig records which capabilities the user granted.
type PermissionConfig struct {
	Photos     bool `mapstructure:"photos"`
	Microphone bool `mapstructure:"microphone"`
	Speech     bool `mapstructure:"speech"`
}

// RecognizerConfig selects and configures the speech recognizer.
type RecognizerConfig struct {
	Provider   string `mapstructure:"provider"`
	Model      string `mapstructure:"model"`
	Language   string `mapstructure:"language"`
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	StaticText string `mapstructure:"static_text"`
}

// PlayerConfig names an external audio player. Empty disables playback.
type PlayerConfig struct {
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	File   string `mapstructure:"file"`
	Pretty bool   `mapstructure:"pretty"`
}

// WatcherConfig configures the directory watcher.
type WatcherConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// DefaultDir returns ~/.voice-memories.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".voice-memories"
	}
	return filepath.Join(home, ".voice-memories")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("dir", DefaultDir())
	v.SetDefault("index_path", "")
	v.SetDefault("thumbnail_width", 200)
	v.SetDefault("jpeg_quality", 80)
	v.SetDefault("cache_max_cost", 8<<20)
	v.SetDefault("transcribe_timeout", 2*time.Minute)

	v.SetDefault("permissions.photos", true)
	v.SetDefault("permissions.microphone", true)
	v.SetDefault("permissions.speech", true)

	v.SetDefault("recognizer.provider", ProviderOpenAI)
	v.SetDefault("recognizer.model", "whisper-1")
	v.SetDefault("recognizer.language", "")
	v.SetDefault("recognizer.base_url", "")
	v.SetDefault("recognizer.api_key", "")
	v.SetDefault("recognizer.static_text", "")

	v.SetDefault("player.command", "")
	v.SetDefault("player.args", []string{})

	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.pretty", true)

	v.SetDefault("watcher.debounce", 500*time.Millisecond)
}

// Load reads configuration. configPath may be empty, in which case
// config.{json,yaml,toml} is looked up in the memory directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("recognizer.api_key", EnvPrefix+"_RECOGNIZER_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, err
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(v.GetString("dir"))
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IndexFile returns the index database path, defaulting to a hidden file
// in the memory directory.
func (c *Config) IndexFile() string {
	if c.IndexPath != "" {
		return c.IndexPath
	}
	return filepath.Join(c.Dir, ".index.db")
}

// Validate checks the configuration for values the pipeline cannot use.
func (c *Config) Validate() error {
	if c.Dir == "" {
		return errors.New("dir must not be empty")
	}
	if c.ThumbnailWidth <= 0 {
		return fmt.Errorf("thumbnail_width must be positive, got %d", c.ThumbnailWidth)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg_quality must be between 1 and 100, got %d", c.JPEGQuality)
	}
	switch c.Recognizer.Provider {
	case ProviderOpenAI, ProviderStatic:
	default:
		return fmt.Errorf("unknown recognizer provider %q (valid: %s, %s)", c.Recognizer.Provider, ProviderOpenAI, ProviderStatic)
	}
	if c.TranscribeTimeout < 0 {
		return fmt.Errorf("transcribe_timeout must not be negative")
	}
	return nil
}
