package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/airth/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export memories as a JSON array",
		Long:  "Export the whole collection, in insertion order, as the JSON array format accepted by import.",
		Run:   runExport,
	}

	cmd.Flags().Bool("compact", false, "Write compact JSON")

	memoryCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	compact, _ := cmd.Flags().GetBool("compact")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	all, err := s.All(cmd.Context())
	if err != nil {
		exitErr("export", err)
	}
	if all == nil {
		all = model.Collection{}
	}

	if compact {
		b, _ := json.Marshal(all)
		fmt.Println(string(b))
		return
	}
	printJSON(all)
}
