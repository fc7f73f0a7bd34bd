package cli

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/airth/internal/chunker"
	"github.com/rcliao/airth/internal/config"
	"github.com/rcliao/airth/internal/ingest"
	"github.com/rcliao/airth/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Turn a text or markdown document into memories",
		Long: "Split a document into passages and extract one structured memory from each. " +
			"Uses the AI service when a key is configured, otherwise headings become titles.",
		Args: cobra.ExactArgs(1),
		Run:  runIngest,
	}

	cmd.Flags().String("type", "", "Memory type hint: personal, faction, event, relationship, knowledge")
	cmd.Flags().Bool("heuristic", false, "Skip the AI service even when configured")
	cmd.Flags().Bool("dry-run", false, "Print the extracted records without storing them")
	cmd.Flags().Int("chunk-size", chunker.DefaultTargetSize, "Target passage size in characters")

	RootCmd.AddCommand(cmd)
}

func runIngest(cmd *cobra.Command, args []string) {
	typ, _ := cmd.Flags().GetString("type")
	heuristic, _ := cmd.Flags().GetBool("heuristic")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	chunkSize, _ := cmd.Flags().GetInt("chunk-size")

	var hint model.Type
	if typ != "" {
		hint = parseTypeFilter(typ)
	}

	doc, err := os.ReadFile(args[0])
	if err != nil {
		exitErr("read document", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	var ex ingest.Extractor = ingest.HeuristicExtractor{}
	if !heuristic {
		completer, err := newCompleter()
		switch {
		case errors.Is(err, config.ErrMissing):
			logger.Warn("no AI key configured, using heading-based extraction", "error", err)
		case err != nil:
			exitErr("ai service", err)
		default:
			ex = &ingest.LLMExtractor{Completer: completer, Prompts: loadPrompts(), Logger: logger}
		}
	}

	opts := chunker.DefaultOptions()
	if chunkSize > 0 {
		opts.TargetSize = chunkSize
		if opts.MaxSize < chunkSize {
			opts.MaxSize = chunkSize * 2
		}
	}

	added, err := ingest.NewProcessor(s, ex, logger).Process(cmd.Context(), string(doc), ingest.Options{
		TypeHint: hint,
		Chunking: opts,
		DryRun:   dryRun,
	})
	if err != nil {
		if len(added) > 0 {
			printJSON(added)
		}
		exitErr("ingest", err)
	}
	printJSON(added)
}
