package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/airth/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "Show the history of publishing attempts, newest first",
		Run:   runPosts,
	}

	cmd.Flags().IntP("limit", "l", 20, "Max results")

	RootCmd.AddCommand(cmd)
}

func runPosts(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	pl, ok := s.(store.PostLog)
	if !ok {
		exitErr("posts", fmt.Errorf("storage backend %q keeps no post log", loadConfig().Storage.Backend))
	}
	entries, err := pl.Posts(cmd.Context(), limit)
	if err != nil {
		exitErr("posts", err)
	}
	if len(entries) == 0 {
		fmt.Println("[]")
		return
	}
	printJSON(entries)
}
