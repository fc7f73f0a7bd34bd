package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/airth/internal/store"
)

func init() {
	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show collection statistics",
		Run:   runStats,
	}
	memoryCmd.AddCommand(stats)

	validate := &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a memory collection file",
		Long:  "Check every record of a JSON collection against the schema and report all problems. Defaults to the configured collection.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runValidate,
	}
	memoryCmd.AddCommand(validate)
}

func runStats(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	st, err := s.Stats(cmd.Context())
	if err != nil {
		exitErr("stats", err)
	}
	printJSON(st)
}

func runValidate(cmd *cobra.Command, args []string) {
	path := getMemoriesPath()
	if len(args) > 0 {
		path = args[0]
	}

	data, err := os.ReadFile(path)
	if err != nil {
		exitErr("read", err)
	}
	c, err := store.DecodeCollection(data)
	if err != nil {
		var joined interface{ Unwrap() []error }
		if errors.As(err, &joined) {
			for _, e := range joined.Unwrap() {
				fmt.Fprintln(os.Stderr, e)
			}
			exitErr("validate", fmt.Errorf("%s: %d problems", path, len(joined.Unwrap())))
		}
		exitErr("validate", err)
	}

	printJSON(map[string]any{"ok": true, "path": path, "records": len(c)})
}
