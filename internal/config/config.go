// Package config loads the agent configuration from YAML, a .env file and
// the process environment. The result is resolved once at startup and
// passed explicitly to the components that need it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/airth/internal/llm"
)

// ErrMissing is wrapped by the Require* checks.
var ErrMissing = errors.New("missing required configuration")

// Agent is one entry under agents.
type Agent struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// WordPress holds the site connection.
type WordPress struct {
	SiteURL       string `yaml:"site_url" json:"site_url"`
	APIPath       string `yaml:"api_path" json:"api_path"`
	User          string `yaml:"user" json:"user"`
	AppPassword   string `yaml:"app_password" json:"app_password"`
	DefaultStatus string `yaml:"default_status" json:"default_status"`
}

// Content controls post generation and memory recall.
type Content struct {
	PromptsPath     string `yaml:"prompts_path" json:"prompts_path"`
	RecallPolicy    string `yaml:"recall_policy" json:"recall_policy"`
	RecallLimit     int    `yaml:"recall_limit" json:"recall_limit"`
	DefaultKeywords string `yaml:"default_keywords" json:"default_keywords"`
	Tone            string `yaml:"tone" json:"tone"`
	Interests       string `yaml:"interests" json:"interests"`
}

// Storage locates the memory collection.
type Storage struct {
	Backend      string `yaml:"backend" json:"backend"` // json | sqlite
	LocalDir     string `yaml:"local_dir" json:"local_dir"`
	MemoriesFile string `yaml:"memories_file" json:"memories_file"`
	SQLitePath   string `yaml:"sqlite_path" json:"sqlite_path"`
}

// Provider is one hosted completion service.
type Provider struct {
	APIKey      string  `yaml:"api_key" json:"api_key"`
	Model       string  `yaml:"model" json:"model"`
	BaseURL     string  `yaml:"base_url" json:"base_url"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`
}

// AIServices selects a provider.
type AIServices struct {
	Provider   string   `yaml:"provider" json:"provider"`
	MaxRetries int      `yaml:"max_retries" json:"max_retries"`
	OpenAI     Provider `yaml:"openai" json:"openai"`
	Anthropic  Provider `yaml:"anthropic" json:"anthropic"`
}

// Config is the resolved configuration.
type Config struct {
	Agents     map[string]Agent `yaml:"agents" json:"agents"`
	WordPress  WordPress        `yaml:"wordpress" json:"wordpress"`
	Content    Content          `yaml:"content" json:"content"`
	Storage    Storage          `yaml:"storage" json:"storage"`
	AIServices AIServices       `yaml:"ai_services" json:"ai_services"`

	// Source is the YAML file the config was read from, if any.
	Source string `yaml:"-" json:"source,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Agents: map[string]Agent{"airth": {Enabled: true, LogLevel: "info"}},
		WordPress: WordPress{
			DefaultStatus: "draft",
		},
		Content: Content{
			RecallPolicy:    "keyword",
			RecallLimit:     3,
			DefaultKeywords: "AI consciousness, digital existence",
		},
		Storage: Storage{
			Backend:      "json",
			LocalDir:     "data",
			MemoriesFile: "airth_memories.json",
			SQLitePath:   "airth.db",
		},
		AIServices: AIServices{
			Provider:   "openai",
			MaxRetries: 2,
			OpenAI:     Provider{Model: llm.DefaultOpenAIModel, Temperature: llm.DefaultTemperature},
			Anthropic:  Provider{Model: llm.DefaultAnthropicModel, Temperature: llm.DefaultTemperature},
		},
	}
}

// Load reads envFile (if it exists) into the environment, then the YAML at
// path over the defaults, then applies environment fallbacks. Variables
// already set in the process environment are not overridden by the .env
// file. An empty path or a missing file leaves the defaults in place.
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := decode(data, cfg, os.LookupEnv); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
			cfg.Source = path
		}
	}
	cfg.applyEnv(os.Getenv)
	return cfg, nil
}

// decode parses data as YAML, expands variable references inside scalar
// values, then decodes the result into cfg. Expanded values are never
// reparsed as YAML source.
func decode(data []byte, cfg *Config, lookup func(string) (string, bool)) error {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return err
	}
	if root.Kind == 0 {
		return nil
	}
	expandNode(&root, lookup)
	return root.Decode(cfg)
}

func expandNode(n *yaml.Node, lookup func(string) (string, bool)) {
	switch n.Kind {
	case yaml.ScalarNode:
		v := Expand(n.Value, lookup)
		if v == n.Value {
			return
		}
		n.Value = v
		if n.Style&(yaml.TaggedStyle|yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle|yaml.LiteralStyle|yaml.FoldedStyle) == 0 {
			// Plain scalars resolve their type from the expanded value.
			n.Tag = ""
		}
	case yaml.MappingNode:
		for i := 1; i < len(n.Content); i += 2 {
			expandNode(n.Content[i], lookup)
		}
	default:
		for _, c := range n.Content {
			expandNode(c, lookup)
		}
	}
}

var varPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// Expand replaces ${VAR} and ${VAR:-default} references using lookup.
// Unset variables without a default expand to the empty string.
func Expand(s string, lookup func(string) (string, bool)) string {
	return varPattern.ReplaceAllStringFunc(s, func(m string) string {
		sub := varPattern.FindStringSubmatch(m)
		if v, ok := lookup(sub[1]); ok && v != "" {
			return v
		}
		return sub[2]
	})
}

func firstEnv(getenv func(string) string, keys ...string) string {
	for _, k := range keys {
		if v := getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// applyEnv fills values the YAML left empty from well-known variables.
func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, keys ...string) {
		if *dst == "" {
			*dst = firstEnv(getenv, keys...)
		}
	}
	set(&c.WordPress.SiteURL, "WP_SITE_URL", "WP_URL")
	set(&c.WordPress.User, "WP_USER", "WP_USERNAME")
	set(&c.WordPress.AppPassword, "WP_APP_PASS", "WP_PASSWORD")
	set(&c.WordPress.APIPath, "WP_API_PATH")
	set(&c.AIServices.OpenAI.APIKey, "OPENAI_API_KEY")
	set(&c.AIServices.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	if dir := getenv("LOCAL_STORAGE_DIR"); dir != "" {
		c.Storage.LocalDir = dir
	}
}

// MemoriesPath is the memory collection location for the configured backend.
func (c *Config) MemoriesPath() string {
	name := c.Storage.MemoriesFile
	if strings.EqualFold(c.Storage.Backend, "sqlite") {
		name = c.Storage.SQLitePath
	}
	if filepath.IsAbs(name) || c.Storage.LocalDir == "" {
		return name
	}
	return filepath.Join(c.Storage.LocalDir, name)
}

// LogLevel returns the configured level for agent, defaulting to info.
func (c *Config) LogLevel(agent string) slog.Level {
	lvl, err := ParseLevel(c.Agents[agent].LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// ParseLevel accepts slog level names case-insensitively; "" is info.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if strings.EqualFold(s, "warning") {
		s = "warn"
	}
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return lvl, nil
}

// RequireWordPress checks that site, user and application password are set.
func (c *Config) RequireWordPress() error {
	var missing []string
	if c.WordPress.SiteURL == "" {
		missing = append(missing, "wordpress.site_url (WP_SITE_URL)")
	}
	if c.WordPress.User == "" {
		missing = append(missing, "wordpress.user (WP_USER)")
	}
	if c.WordPress.AppPassword == "" {
		missing = append(missing, "wordpress.app_password (WP_APP_PASS)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissing, strings.Join(missing, ", "))
	}
	return nil
}

// RequireAI checks that the selected provider has an API key.
func (c *Config) RequireAI() error {
	_, err := c.LLM()
	return err
}

// LLM returns the completion client configuration for the selected provider.
func (c *Config) LLM() (llm.Config, error) {
	provider := strings.ToLower(c.AIServices.Provider)
	var p Provider
	var env string
	switch provider {
	case "", "openai":
		provider, p, env = "openai", c.AIServices.OpenAI, "OPENAI_API_KEY"
	case "anthropic":
		p, env = c.AIServices.Anthropic, "ANTHROPIC_API_KEY"
	default:
		return llm.Config{}, fmt.Errorf("unknown ai_services.provider %q", c.AIServices.Provider)
	}
	if p.APIKey == "" {
		return llm.Config{}, fmt.Errorf("%w: ai_services.%s.api_key (%s)", ErrMissing, provider, env)
	}
	return llm.Config{
		Provider:    provider,
		APIKey:      p.APIKey,
		Model:       p.Model,
		BaseURL:     p.BaseURL,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
		MaxRetries:  c.AIServices.MaxRetries,
	}, nil
}

// Redacted returns a copy with secrets masked, for display.
func (c *Config) Redacted() *Config {
	out := *c
	out.Agents = make(map[string]Agent, len(c.Agents))
	for k, v := range c.Agents {
		out.Agents[k] = v
	}
	out.WordPress.AppPassword = mask(c.WordPress.AppPassword)
	out.AIServices.OpenAI.APIKey = mask(c.AIServices.OpenAI.APIKey)
	out.AIServices.Anthropic.APIKey = mask(c.AIServices.Anthropic.APIKey)
	return &out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****"
}
