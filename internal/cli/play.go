package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "play [id]",
		Short: "Play a memory's voice note and print its transcript",
		Long:  "Print a memory's transcript and, when player.command is configured, play its recording.",
		Args:  cobra.ExactArgs(1),
		Run:   runPlay,
	}

	RootCmd.AddCommand(cmd)
}

func runPlay(cmd *cobra.Command, args []string) {
	a, err := openApp(nil)
	if err != nil {
		exitErr("open", err)
	}
	defer a.Close()

	text, err := a.p.Play(args[0])
	if err != nil {
		exitErr("play", err)
	}
	if text != "" {
		fmt.Println(text)
	}

	if a.player == nil {
		return
	}
	if done := a.player.Done(); done != nil {
		select {
		case <-done:
		case <-cmd.Context().Done():
		}
	}
}
