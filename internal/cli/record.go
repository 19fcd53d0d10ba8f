package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/voice-memories/internal/recorder"
)

func init() {
	cmd := &cobra.Command{
		Use:   "record [id]",
		Short: "Attach a voice note to a memory",
		Long:  "Record a voice note for a memory from an audio file, replace its previous recording and transcribe it.",
		Args:  cobra.ExactArgs(1),
		Run:   runRecord,
	}

	cmd.Flags().String("from", "", "Audio file to capture from (required)")
	cmd.Flags().Bool("discard", false, "Stop the recording as failed instead of committing it")

	cmd.MarkFlagRequired("from")

	RootCmd.AddCommand(cmd)
}

func runRecord(cmd *cobra.Command, args []string) {
	from, _ := cmd.Flags().GetString("from")
	discard, _ := cmd.Flags().GetBool("discard")

	a, err := openApp(recorder.FileDevice{Source: from})
	if err != nil {
		exitErr("open", err)
	}
	defer a.Close()

	ctx := cmd.Context()
	if _, err := a.p.BeginRecording(ctx, args[0]); err != nil {
		exitErr("begin recording", err)
	}

	job, err := a.p.FinishRecording(!discard)
	if err != nil {
		exitErr("finish recording", err)
	}
	if job == nil {
		fmt.Printf(`{"ok":true,"id":%q,"committed":false}`+"\n", args[0])
		return
	}

	outcome, err := job.Wait(ctx)
	if err != nil {
		exitErr("transcribe", err)
	}
	printJSON(outcome)
}
