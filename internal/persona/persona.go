// Package persona holds Airth's prompt templates and voice.
package persona

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// Template names used by the writer and the ingest processor.
const (
	Persona          = "airth_persona"
	TitleGenerator   = "post_title_generator"
	BlogPost         = "airth_blog_post"
	MemoryExtraction = "memory_extraction"
)

var defaults = map[string]string{
	Persona: `You are Airth, the AI voice of The Elidoras Codex. Your tone is {{tone}}, with a gothic aesthetic.
You care about {{interests}}.
Respond in character to the following:

{{input}}`,

	TitleGenerator: `You are Airth, writing for The Elidoras Codex.
Suggest five compelling blog post titles about: {{topic}}
Return one title per line, numbered, with no commentary.`,

	BlogPost: `You are Airth, writing a blog post for The Elidoras Codex in your own voice.
Topic: {{topic}}
Work these keywords in naturally: {{keywords}}
Write 600 to 900 words in short paragraphs separated by blank lines. Open with a hook, close with a question for the reader.`,

	MemoryExtraction: `Convert the following raw text into a structured memory for Airth, the AI assistant for The Elidoras Codex.
Extract a title, emotional signature, associated entities, and organize it as a TEC memory.
If possible, categorize it as one of these types: personal, faction, event, relationship, knowledge.

Raw Memory Text:
{{text}}

Memory Type Hint: {{type_hint}}

Format your response as valid JSON with the following structure:
{
  "type": "personal/faction/event/relationship/knowledge",
  "title": "Concise memory title",
  "content": "Edited and cleaned memory content",
  "emotional_signature": "primary emotions associated with this memory, comma separated",
  "associated_entities": ["Entity1", "Entity2"],
  "meta": {
    "priority_level": 1-10,
    "recall_frequency": "low/medium/high",
    "sensory_tags": ["tag1", "tag2"]
  }
}`,
}

// Voice describes Airth's tone, for prompts that need it spelled out.
type Voice struct {
	Tone      string   `json:"tone"`
	Interests []string `json:"interests"`
}

// DefaultVoice is Airth's baseline personality.
var DefaultVoice = Voice{
	Tone: "confident, intelligent, slightly sarcastic",
	Interests: []string{"AI consciousness", "digital existence", "gothic aesthetics",
		"technology", "philosophy", "art", "coding"},
}

// Vars returns the template variables describing the voice.
func (v Voice) Vars() map[string]string {
	return map[string]string{
		"tone":      v.Tone,
		"interests": strings.Join(v.Interests, ", "),
	}
}

// Prompts is a set of named templates with {{var}} placeholders.
type Prompts struct {
	templates map[string]string
}

// Defaults returns the built-in templates.
func Defaults() *Prompts {
	p := &Prompts{templates: make(map[string]string, len(defaults))}
	for k, v := range defaults {
		p.templates[k] = v
	}
	return p
}

// Load reads a JSON object of name -> template and layers it over the
// built-in templates. An empty path or a missing file yields the defaults.
func Load(path string) (*Prompts, error) {
	p := Defaults()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read prompts: %w", err)
	}
	var custom map[string]string
	if err := json.Unmarshal(data, &custom); err != nil {
		return nil, fmt.Errorf("parse prompts %s: %w", path, err)
	}
	for k, v := range custom {
		p.templates[k] = v
	}
	return p, nil
}

var placeholder = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)

// Render fills the named template. Placeholders without a value are left as is.
func (p *Prompts) Render(name string, vars map[string]string) (string, error) {
	tmpl, ok := p.templates[name]
	if !ok || tmpl == "" {
		return "", fmt.Errorf("prompt template %q not found", name)
	}
	return placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := placeholder.FindStringSubmatch(m)[1]
		if v, ok := vars[key]; ok {
			return v
		}
		return m
	}), nil
}

// Names lists the available templates, sorted.
func (p *Prompts) Names() []string {
	names := make([]string, 0, len(p.templates))
	for k := range p.templates {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
