package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/airth/internal/recall"
	"github.com/rcliao/airth/internal/store"
)

func init() {
	search := &cobra.Command{
		Use:   "search [query]",
		Short: "Search memories by substring",
		Long:  "Search memory titles, content, entities, and emotional signatures for matching text.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}
	search.Flags().String("type", "", "Filter by type")
	search.Flags().IntP("limit", "l", 20, "Max results")
	memoryCmd.AddCommand(search)

	rc := &cobra.Command{
		Use:   "recall [topic]",
		Short: "Show the memories Airth would draw on for a topic",
		Long:  "Rank memories against a topic using the configured recall policy, with relevance scores.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runRecall,
	}
	rc.Flags().IntP("limit", "l", 0, "Max results (default: content.recall_limit)")
	rc.Flags().String("policy", "", "Recall policy: keyword, none (default: content.recall_policy)")
	memoryCmd.AddCommand(rc)
}

func runSearch(cmd *cobra.Command, args []string) {
	typ, _ := cmd.Flags().GetString("type")
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	results, err := s.Search(cmd.Context(), store.SearchParams{
		Query: query,
		Type:  parseTypeFilter(typ),
		Limit: limit,
	})
	if err != nil {
		exitErr("search", err)
	}

	if len(results) == 0 {
		fmt.Println("[]")
		return
	}
	printJSON(results)
}

func runRecall(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	policy, _ := cmd.Flags().GetString("policy")
	topic := strings.Join(args, " ")

	c := loadConfig()
	if limit <= 0 {
		limit = c.Content.RecallLimit
	}
	m := newMatcher()
	if policy != "" {
		var err error
		if m, err = recall.New(policy); err != nil {
			exitErr("recall", err)
		}
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	all, err := s.All(cmd.Context())
	if err != nil {
		exitErr("recall", err)
	}
	scored := m.Match(topic, all, limit)
	if len(scored) == 0 {
		fmt.Println("[]")
		return
	}
	printJSON(scored)
}
