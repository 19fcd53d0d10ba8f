package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the search index from transcript files",
		Run:   runReindex,
	}

	RootCmd.AddCommand(cmd)
}

func runReindex(cmd *cobra.Command, args []string) {
	a, err := openApp(nil)
	if err != nil {
		exitErr("open", err)
	}
	defer a.Close()

	n, err := a.p.Reindex(cmd.Context())
	if err != nil {
		exitErr("reindex", err)
	}

	fmt.Printf(`{"ok":true,"documents":%d}`+"\n", n)
}
