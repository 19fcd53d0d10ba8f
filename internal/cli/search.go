package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search memories by transcript",
		Long:  "Find memories whose transcript contains the query, ignoring case. An empty query lists every memory.",
		Run:   runSearch,
	}

	cmd.Flags().Bool("fuzzy", false, "Match the query's characters in order instead of as a substring")
	cmd.Flags().Bool("keys-only", false, "Only output memory ids")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	fuzzy, _ := cmd.Flags().GetBool("fuzzy")
	keysOnly, _ := cmd.Flags().GetBool("keys-only")
	query := strings.Join(args, " ")

	a, err := openApp(nil)
	if err != nil {
		exitErr("open", err)
	}
	defer a.Close()

	res := a.p.NewSearcher(fuzzy).Search(cmd.Context(), query)
	if res.Err != nil {
		exitErr("search", res.Err)
	}

	if keysOnly {
		for _, id := range res.IDs {
			fmt.Println(id)
		}
		return
	}

	memories := a.p.Resolve(res.IDs)
	if len(memories) == 0 {
		fmt.Println("[]")
		return
	}
	printJSON(memories)
}
