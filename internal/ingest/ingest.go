// Package ingest turns raw documents into memory records.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rcliao/airth/internal/chunker"
	"github.com/rcliao/airth/internal/llm"
	"github.com/rcliao/airth/internal/model"
	"github.com/rcliao/airth/internal/persona"
	"github.com/rcliao/airth/internal/store"
)

// Extractor builds a record from one passage. The returned record may
// leave id, timestamp and meta defaults unset.
type Extractor interface {
	Extract(ctx context.Context, p chunker.Passage, hint model.Type) (model.Record, error)
}

// Options configures one Process call.
type Options struct {
	TypeHint model.Type
	Chunking chunker.Options
	DryRun   bool
}

// Processor splits documents and stores the extracted records.
type Processor struct {
	store     store.Store
	extractor Extractor
	logger    *slog.Logger
}

// NewProcessor returns a processor writing to s.
func NewProcessor(s store.Store, ex Extractor, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{store: s, extractor: ex, logger: logger}
}

// Process extracts one record per passage of doc and appends it to the
// store. On error the records already added are returned with it.
func (p *Processor) Process(ctx context.Context, doc string, opts Options) ([]model.Record, error) {
	passages := chunker.Split(doc, opts.Chunking)
	p.logger.Info("processing document", "passages", len(passages), "type_hint", opts.TypeHint)

	var added []model.Record
	for i, passage := range passages {
		if err := ctx.Err(); err != nil {
			return added, err
		}
		rec, err := p.extractor.Extract(ctx, passage, opts.TypeHint)
		if err != nil {
			return added, fmt.Errorf("passage %d (lines %d-%d): %w", i+1, passage.StartLine, passage.EndLine, err)
		}
		sanitize(&rec, opts.TypeHint)

		if opts.DryRun {
			added = append(added, rec)
			continue
		}
		stored, err := p.store.Add(ctx, rec)
		if err != nil {
			return added, fmt.Errorf("store passage %d: %w", i+1, err)
		}
		p.logger.Info("added memory", "id", stored.ID, "title", stored.Title)
		added = append(added, *stored)
	}
	return added, nil
}

// sanitize coerces extracted fields onto the schema. Unknown enum values
// and out-of-range priorities fall back to defaults; ids are always
// assigned by the store.
func sanitize(r *model.Record, hint model.Type) {
	r.ID = ""
	if t, err := model.ParseType(string(r.Type)); err == nil {
		r.Type = t
	} else {
		r.Type = fallbackType(hint)
	}
	if r.Meta.PriorityLevel < model.MinPriority || r.Meta.PriorityLevel > model.MaxPriority {
		r.Meta.PriorityLevel = model.DefaultPriority
	}
	if f, err := model.ParseFrequency(string(r.Meta.RecallFrequency)); err == nil {
		r.Meta.RecallFrequency = f
	} else {
		r.Meta.RecallFrequency = model.RecallMedium
	}
	r.Title = strings.TrimSpace(r.Title)
	r.Content = strings.TrimSpace(r.Content)
}

func fallbackType(hint model.Type) model.Type {
	if model.ValidTypes[hint] {
		return hint
	}
	return model.TypePersonal
}

// HeuristicExtractor builds records without a model: the heading becomes
// the title and the passage the content.
type HeuristicExtractor struct{}

func (HeuristicExtractor) Extract(_ context.Context, p chunker.Passage, hint model.Type) (model.Record, error) {
	title := p.Heading
	if title == "" {
		title = firstWords(p.Text, 8)
	}
	return model.Record{
		Type:    fallbackType(hint),
		Title:   title,
		Content: p.Text,
	}, nil
}

func firstWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + "..."
}

// LLMExtractor asks a completion model for a structured record.
type LLMExtractor struct {
	Completer llm.Completer
	Prompts   *persona.Prompts
	Logger    *slog.Logger
}

func (e *LLMExtractor) Extract(ctx context.Context, p chunker.Passage, hint model.Type) (model.Record, error) {
	text := p.Text
	if p.Heading != "" {
		text = p.Heading + "\n\n" + text
	}
	hintText := string(hint)
	if hintText == "" {
		hintText = "None provided"
	}
	prompt, err := e.Prompts.Render(persona.MemoryExtraction, map[string]string{
		"text":      text,
		"type_hint": hintText,
	})
	if err != nil {
		return model.Record{}, err
	}

	reply, err := e.Completer.Complete(ctx, prompt, 0)
	if err != nil {
		return model.Record{}, fmt.Errorf("extract memory: %w", err)
	}

	var rec model.Record
	if err := json.Unmarshal([]byte(stripFences(reply)), &rec); err != nil {
		e.logger().Error("failed to parse memory from model reply", "error", err)
		return Fallback(p.Text, hint), nil
	}
	return rec, nil
}

func (e *LLMExtractor) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// Fallback is the record kept when the model reply cannot be decoded.
func Fallback(text string, hint model.Type) model.Record {
	content := text
	if r := []rune(text); len(r) > 100 {
		content = string(r[:100]) + "..."
	}
	return model.Record{
		Type:               fallbackType(hint),
		Title:              "Unprocessed Memory",
		Content:            content,
		EmotionalSignature: "unknown",
		AssociatedEntities: []string{},
		Meta: model.Meta{
			PriorityLevel:   model.DefaultPriority,
			RecallFrequency: model.RecallLow,
			SensoryTags:     []string{},
		},
	}
}

// stripFences removes a surrounding ``` or ```json fence from a model reply.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}
