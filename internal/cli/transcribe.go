package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "transcribe [id]",
		Short: "Transcribe a memory's voice note again",
		Args:  cobra.ExactArgs(1),
		Run:   runTranscribe,
	}

	RootCmd.AddCommand(cmd)
}

func runTranscribe(cmd *cobra.Command, args []string) {
	a, err := openApp(nil)
	if err != nil {
		exitErr("open", err)
	}
	defer a.Close()

	outcome, err := a.p.Transcribe(args[0]).Wait(cmd.Context())
	if err != nil {
		exitErr("transcribe", err)
	}
	printJSON(outcome)
}
