package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/airth/internal/model"
	"github.com/rcliao/airth/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memories, newest first",
		Run:   runList,
	}

	cmd.Flags().String("type", "", "Filter by type")
	cmd.Flags().Int("min-priority", 0, "Only memories at or above this priority")
	cmd.Flags().IntP("limit", "l", 20, "Max results")
	cmd.Flags().Bool("ids-only", false, "Only output id and title")

	memoryCmd.AddCommand(cmd)
}

// parseTypeFilter accepts an empty filter.
func parseTypeFilter(s string) model.Type {
	if s == "" {
		return ""
	}
	t, err := model.ParseType(s)
	if err != nil {
		exitErr("type", err)
	}
	return t
}

func runList(cmd *cobra.Command, args []string) {
	typ, _ := cmd.Flags().GetString("type")
	minPriority, _ := cmd.Flags().GetInt("min-priority")
	limit, _ := cmd.Flags().GetInt("limit")
	idsOnly, _ := cmd.Flags().GetBool("ids-only")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	records, err := s.List(cmd.Context(), store.ListParams{
		Type:        parseTypeFilter(typ),
		MinPriority: minPriority,
		Limit:       limit,
	})
	if err != nil {
		exitErr("list", err)
	}

	if idsOnly {
		for _, r := range records {
			fmt.Printf("%s\t%s\n", r.ID, r.Title)
		}
		return
	}
	if len(records) == 0 {
		fmt.Println("[]")
		return
	}
	printJSON(records)
}
