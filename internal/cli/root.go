// Package cli implements the airth CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/airth/internal/config"
	"github.com/rcliao/airth/internal/llm"
	"github.com/rcliao/airth/internal/persona"
	"github.com/rcliao/airth/internal/recall"
	"github.com/rcliao/airth/internal/store"
	"github.com/rcliao/airth/internal/wordpress"
	"github.com/rcliao/airth/internal/writer"
)

const agentName = "airth"

var (
	configPath   string
	envFile      string
	logLevel     string
	memoriesPath string

	cfg    *config.Config
	logger *slog.Logger
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "airth",
	Short: "Airth, the AI voice of The Elidoras Codex",
	Long: "Generate and publish blog posts in Airth's voice, answer in character, " +
		"and manage the memory collection her writing draws on.",
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.yaml", "YAML config file")
	RootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default: agents.airth.log_level)")
	RootCmd.PersistentFlags().StringVarP(&memoriesPath, "memories", "m", "", "Memory collection path (default: from storage config)")
}

// loadConfig resolves the configuration and logger once per process.
func loadConfig() *config.Config {
	if cfg != nil {
		return cfg
	}
	c, err := config.Load(configPath, envFile)
	if err != nil {
		exitErr("load config", err)
	}

	level := c.LogLevel(agentName)
	if logLevel != "" {
		if level, err = config.ParseLevel(logLevel); err != nil {
			exitErr("log level", err)
		}
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	if c.Source != "" {
		logger.Debug("loaded config", "path", c.Source)
	}

	cfg = c
	return cfg
}

func getMemoriesPath() string {
	if memoriesPath != "" {
		return memoriesPath
	}
	return loadConfig().MemoriesPath()
}

func openStore() (store.Store, error) {
	c := loadConfig()
	return store.Open(c.Storage.Backend, getMemoriesPath())
}

func newCompleter() (llm.Completer, error) {
	c := loadConfig()
	lc, err := c.LLM()
	if err != nil {
		return nil, err
	}
	return llm.New(lc, logger)
}

func newWordPress() (*wordpress.Client, error) {
	c := loadConfig()
	if err := c.RequireWordPress(); err != nil {
		return nil, err
	}
	return wordpress.New(wordpress.Options{
		SiteURL:     c.WordPress.SiteURL,
		APIPath:     c.WordPress.APIPath,
		User:        c.WordPress.User,
		AppPassword: c.WordPress.AppPassword,
		Logger:      logger,
	})
}

func loadPrompts() *persona.Prompts {
	p, err := persona.Load(loadConfig().Content.PromptsPath)
	if err != nil {
		exitErr("load prompts", err)
	}
	return p
}

func newMatcher() recall.Matcher {
	m, err := recall.New(loadConfig().Content.RecallPolicy)
	if err != nil {
		exitErr("recall policy", err)
	}
	return m
}

// newWriter wires the writer from config. poster may be nil.
func newWriter(s store.Store, poster writer.Poster) *writer.Writer {
	c := loadConfig()
	completer, err := newCompleter()
	if err != nil {
		exitErr("ai service", err)
	}
	voice := persona.DefaultVoice
	if c.Content.Tone != "" {
		voice.Tone = c.Content.Tone
	}
	if c.Content.Interests != "" {
		voice.Interests = splitList(c.Content.Interests)
	}
	return writer.New(completer, loadPrompts(), s, newMatcher(), poster, writer.Options{
		RecallLimit:     c.Content.RecallLimit,
		DefaultKeywords: c.Content.DefaultKeywords,
		Voice:           voice,
	}, logger)
}

// readContent returns the joined args, or stdin when it is piped.
func readContent(args []string) string {
	if len(args) > 0 {
		return strings.Join(args, " ")
	}
	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) == 0 {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			exitErr("read stdin", err)
		}
		return string(b)
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
