package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/rcliao/voice-memories/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Show a memory and its transcript",
		Args:  cobra.ExactArgs(1),
		Run:   runGet,
	}

	RootCmd.AddCommand(cmd)
}

type memoryView struct {
	model.Memory
	Transcript string `json:"transcript,omitempty"`
}

func runGet(cmd *cobra.Command, args []string) {
	a, err := openApp(nil)
	if err != nil {
		exitErr("open", err)
	}
	defer a.Close()

	mem, err := a.p.Memory(args[0])
	if err != nil {
		exitErr("get", err)
	}

	text, err := a.p.ReadTranscript(mem.ID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		exitErr("read transcript", err)
	}

	printJSON(memoryView{Memory: *mem, Transcript: text})
}
