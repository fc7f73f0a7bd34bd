package cli

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func init() {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the resolved configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration with secrets redacted",
		Run:   runConfigShow,
	}
	show.Flags().Bool("yaml", false, "Print YAML instead of JSON")

	cmd.AddCommand(show)
	RootCmd.AddCommand(cmd)
}

func runConfigShow(cmd *cobra.Command, args []string) {
	asYAML, _ := cmd.Flags().GetBool("yaml")
	c := loadConfig().Redacted()

	if asYAML {
		b, err := yaml.Marshal(c)
		if err != nil {
			exitErr("config", err)
		}
		cmd.OutOrStdout().Write(b)
		return
	}
	printJSON(struct {
		Source        string `json:"source"`
		MemoriesPath  string `json:"memories_path"`
		WordPressOK   bool   `json:"wordpress_configured"`
		AIServiceOK   bool   `json:"ai_configured"`
		Configuration any    `json:"config"`
	}{
		Source:        c.Source,
		MemoriesPath:  getMemoriesPath(),
		WordPressOK:   loadConfig().RequireWordPress() == nil,
		AIServiceOK:   loadConfig().RequireAI() == nil,
		Configuration: c,
	})
}
