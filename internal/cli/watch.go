package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rcliao/voice-memories/internal/watcher"
)

func init() {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the search index in sync with the memory directory",
		Long:  "Watch the memory directory and reindex transcripts that are edited, added or removed by hand. Runs until interrupted.",
		Run:   runWatch,
	}

	cmd.Flags().Bool("reindex", true, "Rebuild the index before watching")

	RootCmd.AddCommand(cmd)
}

func runWatch(cmd *cobra.Command, args []string) {
	reindex, _ := cmd.Flags().GetBool("reindex")

	a, err := openApp(nil)
	if err != nil {
		exitErr("open", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if reindex {
		if _, err := a.p.Reindex(ctx); err != nil {
			exitErr("reindex", err)
		}
	}

	w, err := watcher.New(a.cfg.Dir, a.p.Store, a.p.Index,
		a.log.With().Str("component", "watcher").Logger(), a.cfg.Watcher.Debounce)
	if err != nil {
		exitErr("watch", err)
	}

	a.log.Info().Str("dir", a.cfg.Dir).Msg("Watching memories")
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		exitErr("watch", err)
	}
}
