// Package cli implements the voice-memories CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/voice-memories/internal/config"
	"github.com/rcliao/voice-memories/internal/logger"
	"github.com/rcliao/voice-memories/internal/permission"
	"github.com/rcliao/voice-memories/internal/pipeline"
	"github.com/rcliao/voice-memories/internal/recorder"
	"github.com/rcliao/voice-memories/internal/store"
	"github.com/rcliao/voice-memories/internal/transcriber"
)

var (
	dirFlag      string
	configFlag   string
	logLevelFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "voice-memories",
	Short: "Photo memories with spoken, searchable notes",
	Long:  "Store photo memories, attach voice notes, transcribe them and search memories by what was said.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dirFlag, "dir", "d", "", "Memory directory (default: $VOICE_MEMORIES_DIR or ~/.voice-memories)")
	RootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Config file (default: config.{json,yaml,toml} in the memory directory)")
	RootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, err
	}
	if dirFlag != "" {
		cfg.Dir = dirFlag
	}
	if logLevelFlag != "" {
		cfg.Logging.Level = logLevelFlag
	}
	return cfg, nil
}

func newRecognizer(cfg *config.Config) transcriber.Recognizer {
	if cfg.Recognizer.Provider == config.ProviderStatic {
		return transcriber.StaticRecognizer{Text: cfg.Recognizer.StaticText}
	}
	return transcriber.NewOpenAIRecognizer(transcriber.OpenAIConfig{
		APIKey:   cfg.Recognizer.APIKey,
		BaseURL:  cfg.Recognizer.BaseURL,
		Model:    cfg.Recognizer.Model,
		Language: cfg.Recognizer.Language,
	})
}

func newGrants(cfg *config.Config) *permission.Grants {
	g := permission.NewGrants()
	g.Set(permission.Photos, cfg.Permissions.Photos)
	g.Set(permission.Microphone, cfg.Permissions.Microphone)
	g.Set(permission.Speech, cfg.Permissions.Speech)
	return g
}

// app bundles what a command needs and closes it in the right order.
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	p      *pipeline.Pipeline
	player *recorder.CommandPlayer
}

func (a *app) Close() {
	a.p.Close()
	a.log.Close()
}

// openApp loads configuration and opens the pipeline. device may be nil for
// commands that never record.
func openApp(device recorder.Device) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		File:   cfg.Logging.File,
		Pretty: cfg.Logging.Pretty,
	})
	if err != nil {
		return nil, err
	}

	var player *recorder.CommandPlayer
	opts := pipeline.Options{
		Dir:       cfg.Dir,
		IndexPath: cfg.IndexFile(),
		Store: store.Options{
			ThumbnailWidth: cfg.ThumbnailWidth,
			JPEGQuality:    cfg.JPEGQuality,
			CacheMaxCost:   cfg.CacheMaxCost,
		},
		Device:            device,
		Recognizer:        newRecognizer(cfg),
		Permissions:       newGrants(cfg),
		TranscribeTimeout: cfg.TranscribeTimeout,
		Logger:            log.Logger,
	}
	if cfg.Player.Command != "" {
		player = &recorder.CommandPlayer{Command: cfg.Player.Command, Args: cfg.Player.Args}
		opts.Player = player
	}

	p, err := pipeline.New(opts)
	if err != nil {
		log.Close()
		return nil, err
	}
	return &app{cfg: cfg, log: log, p: p, player: player}, nil
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
