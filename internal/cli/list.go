package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memories",
		Run:   runList,
	}

	cmd.Flags().IntP("limit", "l", 0, "Max results (0 for all)")
	cmd.Flags().Bool("keys-only", false, "Only output memory ids")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	keysOnly, _ := cmd.Flags().GetBool("keys-only")

	a, err := openApp(nil)
	if err != nil {
		exitErr("open", err)
	}
	defer a.Close()

	ids, err := a.p.ListMemories(cmd.Context())
	if err != nil {
		exitErr("list", err)
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	if keysOnly {
		for _, id := range ids {
			fmt.Println(id)
		}
		return
	}

	printJSON(a.p.Resolve(ids))
}
