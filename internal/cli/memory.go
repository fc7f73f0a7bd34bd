package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/airth/internal/model"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Manage Airth's memory collection",
}

func init() {
	add := &cobra.Command{
		Use:   "add [content]",
		Short: "Append a memory",
		Long:  "Append a memory. Content can be a positional arg or piped via stdin. Id and timestamp are assigned when omitted.",
		Run:   runMemoryAdd,
	}

	add.Flags().String("id", "", "Memory id (default: next free memNNN)")
	add.Flags().String("type", "personal", "Type: personal, faction, event, relationship, knowledge")
	add.Flags().String("title", "", "Title (required)")
	add.Flags().IntP("priority", "p", model.DefaultPriority, "Priority level 1-10")
	add.Flags().String("frequency", "medium", "Recall frequency: high, medium, low")
	add.Flags().StringP("entities", "e", "", "Comma-separated associated entities")
	add.Flags().String("emotions", "", "Emotional signature")
	add.Flags().String("sensory", "", "Comma-separated sensory tags")
	add.Flags().String("timestamp", "", "ISO-8601 timestamp (default: now)")

	add.MarkFlagRequired("title")

	memoryCmd.AddCommand(add)
	RootCmd.AddCommand(memoryCmd)
}

func runMemoryAdd(cmd *cobra.Command, args []string) {
	id, _ := cmd.Flags().GetString("id")
	typ, _ := cmd.Flags().GetString("type")
	title, _ := cmd.Flags().GetString("title")
	priority, _ := cmd.Flags().GetInt("priority")
	frequency, _ := cmd.Flags().GetString("frequency")
	entities, _ := cmd.Flags().GetString("entities")
	emotions, _ := cmd.Flags().GetString("emotions")
	sensory, _ := cmd.Flags().GetString("sensory")
	stamp, _ := cmd.Flags().GetString("timestamp")

	content := strings.TrimSpace(readContent(args))
	if content == "" {
		exitErr("add", fmt.Errorf("content is required (positional arg or stdin)"))
	}

	t, err := model.ParseType(typ)
	if err != nil {
		exitErr("add", err)
	}
	f, err := model.ParseFrequency(frequency)
	if err != nil {
		exitErr("add", err)
	}
	if _, err := model.ParsePriority(priority); err != nil {
		exitErr("add", err)
	}

	r := model.Record{
		ID:                 id,
		Type:               t,
		Title:              title,
		Content:            content,
		EmotionalSignature: emotions,
		AssociatedEntities: splitList(entities),
		Meta: model.Meta{
			PriorityLevel:   priority,
			RecallFrequency: f,
			SensoryTags:     splitList(sensory),
		},
	}
	if stamp != "" {
		if r.Timestamp, err = model.ParseTimestamp(stamp); err != nil {
			exitErr("add", err)
		}
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	stored, err := s.Add(cmd.Context(), r)
	if err != nil {
		exitErr("add", err)
	}
	logger.Info("added memory", "id", stored.ID, "title", stored.Title)
	printJSON(stored)
}
