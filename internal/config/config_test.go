package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("VOICE_MEMORIES_DIR", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 200, cfg.ThumbnailWidth)
	assert.Equal(t, 80, cfg.JPEGQuality)
	assert.Equal(t, ProviderOpenAI, cfg.Recognizer.Provider)
	assert.Equal(t, "whisper-1", cfg.Recognizer.Model)
	assert.True(t, cfg.Permissions.Photos)
	assert.True(t, cfg.Permissions.Microphone)
	assert.True(t, cfg.Permissions.Speech)
	assert.Equal(t, 500*time.Millisecond, cfg.Watcher.Debounce)
	assert.Equal(t, filepath.Join(cfg.Dir, ".index.db"), cfg.IndexFile())
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"dir": "`+filepath.ToSlash(dir)+`",
		"thumbnail_width": 320,
		"permissions": {"speech": false},
		"recognizer": {"provider": "static", "static_text": "hello world"},
		"watcher": {"debounce": "2s"}
	}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 320, cfg.ThumbnailWidth)
	assert.False(t, cfg.Permissions.Speech)
	assert.True(t, cfg.Permissions.Photos)
	assert.Equal(t, ProviderStatic, cfg.Recognizer.Provider)
	assert.Equal(t, "hello world", cfg.Recognizer.StaticText)
	assert.Equal(t, 2*time.Second, cfg.Watcher.Debounce)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("VOICE_MEMORIES_DIR", t.TempDir())
	t.Setenv("VOICE_MEMORIES_THUMBNAIL_WIDTH", "150")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 150, cfg.ThumbnailWidth)
	assert.Equal(t, "sk-test", cfg.Recognizer.APIKey)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Dir:            "/tmp/m",
			ThumbnailWidth: 200,
			JPEGQuality:    80,
			Recognizer:     RecognizerConfig{Provider: ProviderOpenAI},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{"valid", func(c *Config) {}, true},
		{"empty dir", func(c *Config) { c.Dir = "" }, false},
		{"zero width", func(c *Config) { c.ThumbnailWidth = 0 }, false},
		{"quality too high", func(c *Config) { c.JPEGQuality = 101 }, false},
		{"unknown provider", func(c *Config) { c.Recognizer.Provider = "siri" }, false},
		{"negative timeout", func(c *Config) { c.TranscribeTimeout = -time.Second }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
