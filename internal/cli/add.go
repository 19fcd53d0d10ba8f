package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "add [image-file]",
		Short: "Create a memory from a photo",
		Long:  "Create a memory from a JPEG, PNG, GIF or WebP photo. The image can be a path or piped via stdin.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runAdd,
	}

	RootCmd.AddCommand(cmd)
}

func runAdd(cmd *cobra.Command, args []string) {
	var data []byte
	var err error
	if len(args) > 0 {
		data, err = os.ReadFile(args[0])
		if err != nil {
			exitErr("read image", err)
		}
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			data, err = io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
		}
	}
	if len(data) == 0 {
		exitErr("add", fmt.Errorf("image is required (path or stdin)"))
	}

	a, err := openApp(nil)
	if err != nil {
		exitErr("open", err)
	}
	defer a.Close()

	mem, err := a.p.CreateMemory(cmd.Context(), data)
	if err != nil {
		exitErr("add", err)
	}

	printJSON(mem)
}
