package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/airth/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import memories from JSON",
		Long: "Import memories from a file or stdin. Accepts a JSON array of records or the " +
			"{\"memories\": [...]} envelope. Records whose id already exists are skipped.",
		Args: cobra.MaximumNArgs(1),
		Run:  runImport,
	}

	memoryCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	var data []byte
	var err error
	if len(args) > 0 {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		exitErr("read input", err)
	}

	c, err := store.DecodeCollection(data)
	if err != nil {
		exitErr("parse collection", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	res, err := store.Import(cmd.Context(), s, c)
	if err != nil {
		exitErr("import", err)
	}
	logger.Info("imported memories", "imported", res.Imported, "skipped", len(res.Skipped))
	printJSON(res)
}
