package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "respond [input]",
		Short: "Answer in Airth's voice",
		Long:  "Generate an in-character reply. Input can be a positional arg or piped via stdin.",
		Run:   runRespond,
	}

	cmd.Flags().Bool("no-memories", false, "Do not draw on recalled memories")

	RootCmd.AddCommand(cmd)
}

func runRespond(cmd *cobra.Command, args []string) {
	noMemories, _ := cmd.Flags().GetBool("no-memories")

	input := strings.TrimSpace(readContent(args))
	if input == "" {
		exitErr("respond", fmt.Errorf("input is required (positional arg or stdin)"))
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	reply, err := newWriter(s, nil).Respond(cmd.Context(), input, !noMemories)
	if err != nil {
		exitErr("respond", err)
	}
	printJSON(map[string]string{"input": input, "response": reply})
}
