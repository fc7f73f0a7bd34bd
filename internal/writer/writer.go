// Package writer generates Airth's blog posts and replies and publishes
// posts to WordPress.
package writer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/rcliao/airth/internal/llm"
	"github.com/rcliao/airth/internal/persona"
	"github.com/rcliao/airth/internal/recall"
	"github.com/rcliao/airth/internal/store"
	"github.com/rcliao/airth/internal/wordpress"
)

const (
	// ContentMaxTokens is the completion budget for a post body.
	ContentMaxTokens = 2000

	DefaultKeywords = "AI consciousness, digital existence"

	postMemoryHeader    = "Incorporate these memories (using their essence, not verbatim):"
	respondMemoryHeader = "Relevant memories to consider:"
)

// Poster is the part of the WordPress client the writer needs.
type Poster interface {
	Categories(ctx context.Context) (*wordpress.Categories, error)
	EnsureTags(ctx context.Context, names []string) ([]int, error)
	CreatePost(ctx context.Context, p wordpress.Post) (*wordpress.CreatedPost, error)
}

// Options tunes a Writer.
type Options struct {
	RecallLimit     int
	DefaultKeywords string
	Voice           persona.Voice
}

// Writer composes prompts from templates and recalled memories.
type Writer struct {
	llm     llm.Completer
	prompts *persona.Prompts
	store   store.Store
	matcher recall.Matcher
	poster  Poster
	opts    Options
	logger  *slog.Logger
	now     func() time.Time
}

// New returns a Writer. poster may be nil for reply-only use; s may be nil
// to disable memory recall.
func New(c llm.Completer, prompts *persona.Prompts, s store.Store, m recall.Matcher, poster Poster, opts Options, logger *slog.Logger) *Writer {
	if prompts == nil {
		prompts = persona.Defaults()
	}
	if m == nil {
		m = recall.KeywordMatcher{}
	}
	if opts.RecallLimit <= 0 {
		opts.RecallLimit = recall.DefaultLimit
	}
	if opts.DefaultKeywords == "" {
		opts.DefaultKeywords = DefaultKeywords
	}
	if opts.Voice.Tone == "" {
		opts.Voice = persona.DefaultVoice
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{llm: c, prompts: prompts, store: s, matcher: m, poster: poster, opts: opts, logger: logger, now: time.Now}
}

// Request describes one blog post.
type Request struct {
	Topic           string
	Keywords        []string
	Publish         bool
	IncludeMemories bool
}

// Result is the outcome of CreateBlogPost.
type Result struct {
	Title      string           `json:"title"`
	Status     string           `json:"status"`
	PostID     int              `json:"post_id"`
	Link       string           `json:"link"`
	MemoryIDs  []string         `json:"memory_ids"`
	Categories []int            `json:"categories"`
	Tags       []int            `json:"tags"`
	LogEntry   *store.PostEntry `json:"log_entry,omitempty"`
}

// CreateBlogPost generates a title and body for req.Topic in Airth's voice
// and creates the post on WordPress. Posts are drafts unless req.Publish.
// Both successful and failed attempts are recorded in the post log when
// the store keeps one.
func (w *Writer) CreateBlogPost(ctx context.Context, req Request) (*Result, error) {
	if w.poster == nil {
		return nil, errors.New("writer: no wordpress client configured")
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return nil, errors.New("topic is required")
	}
	w.logger.Info("creating blog post", "topic", topic)

	status := wordpress.StatusDraft
	if req.Publish {
		status = wordpress.StatusPublish
	}
	res := &Result{Status: status}

	res.Title = w.title(ctx, topic)

	var memoryContext string
	if req.IncludeMemories {
		scored, err := w.recall(ctx, topic)
		if err != nil {
			return nil, err
		}
		res.MemoryIDs = recall.IDs(scored)
		memoryContext = recall.FormatContext(postMemoryHeader, recall.Records(scored))
	}

	content, err := w.content(ctx, topic, req.Keywords, memoryContext)
	if err != nil {
		w.logPost(ctx, topic, res, err)
		return nil, err
	}

	res.Categories = w.categories(ctx)
	if len(req.Keywords) > 0 {
		names := append(append([]string{}, req.Keywords...), wordpress.CommonAITags[:3]...)
		tags, err := w.poster.EnsureTags(ctx, names)
		if err != nil {
			w.logger.Warn("tags unavailable, posting without them", "error", err)
		}
		res.Tags = tags
	}

	created, err := w.poster.CreatePost(ctx, wordpress.Post{
		Title:      res.Title,
		Content:    content,
		Excerpt:    "Airth's thoughts on " + topic,
		Status:     status,
		Categories: res.Categories,
		Tags:       res.Tags,
	})
	if err != nil {
		err = fmt.Errorf("create post: %w", err)
		w.logPost(ctx, topic, res, err)
		return nil, err
	}
	res.PostID = created.ID
	res.Link = created.Link
	if created.Status != "" {
		res.Status = created.Status
	}
	res.LogEntry = w.logPost(ctx, topic, res, nil)
	return res, nil
}

// Respond answers input in character, with recalled memories appended to
// the prompt when includeMemories is set.
func (w *Writer) Respond(ctx context.Context, input string, includeMemories bool) (string, error) {
	vars := w.opts.Voice.Vars()
	vars["input"] = input
	prompt, err := w.prompts.Render(persona.Persona, vars)
	if err != nil {
		return "", err
	}
	if includeMemories {
		scored, err := w.recall(ctx, input)
		if err != nil {
			return "", err
		}
		prompt += recall.FormatContext(respondMemoryHeader, recall.Records(scored))
	}
	return w.llm.Complete(ctx, prompt, 0)
}

func (w *Writer) recall(ctx context.Context, query string) ([]recall.Scored, error) {
	if w.store == nil {
		return nil, nil
	}
	all, err := w.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load memories: %w", err)
	}
	scored := w.matcher.Match(query, all, w.opts.RecallLimit)
	w.logger.Debug("recalled memories", "query", query, "matched", len(scored))
	return scored, nil
}

func (w *Writer) title(ctx context.Context, topic string) string {
	fallback := "Airth's Thoughts on " + topic
	prompt, err := w.prompts.Render(persona.TitleGenerator, map[string]string{"topic": topic})
	if err != nil {
		w.logger.Warn("title prompt unavailable", "error", err)
		return fallback
	}
	reply, err := w.llm.Complete(ctx, prompt, 0)
	if err != nil {
		w.logger.Warn("title generation failed, using fallback", "error", err)
		return fallback
	}
	if t := ParseTitle(reply); t != "" {
		return t
	}
	return fallback
}

var numbering = regexp.MustCompile(`^\d+[.)]\s+`)

// ParseTitle takes the first non-empty line of a title suggestion list and
// strips list numbering and surrounding quotes.
func ParseTitle(reply string) string {
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = numbering.ReplaceAllString(line, "")
		line = strings.Trim(line, "\"'“”*")
		return strings.TrimSpace(line)
	}
	return ""
}

func (w *Writer) content(ctx context.Context, topic string, keywords []string, memoryContext string) (string, error) {
	kw := w.opts.DefaultKeywords
	if len(keywords) > 0 {
		kw = strings.Join(keywords, ", ")
	}
	prompt, err := w.prompts.Render(persona.BlogPost, map[string]string{"topic": topic, "keywords": kw})
	if err != nil {
		return "", err
	}
	prompt += memoryContext

	body, err := w.llm.Complete(ctx, prompt, ContentMaxTokens)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return FormatHTML(body), nil
}

// FormatHTML wraps plain text in paragraphs. Text that already starts with
// a tag is returned unchanged.
func FormatHTML(body string) string {
	body = strings.TrimSpace(body)
	if strings.HasPrefix(body, "<") {
		return body
	}
	body = strings.ReplaceAll(body, "\r\n", "\n")
	return "<p>" + strings.ReplaceAll(body, "\n\n", "</p><p>") + "</p>"
}

// categories resolves Airth's categories. A failed lookup is not fatal:
// WordPress files the post under its default category.
func (w *Writer) categories(ctx context.Context) []int {
	cats, err := w.poster.Categories(ctx)
	if err != nil {
		w.logger.Warn("categories unavailable, posting without them", "error", err)
		return nil
	}
	return cats.ForAirth()
}

func (w *Writer) logPost(ctx context.Context, topic string, res *Result, postErr error) *store.PostEntry {
	pl, ok := w.store.(store.PostLog)
	if !ok {
		return nil
	}
	e := store.PostEntry{
		Topic:     topic,
		Title:     res.Title,
		Status:    res.Status,
		PostID:    res.PostID,
		Link:      res.Link,
		MemoryIDs: res.MemoryIDs,
		CreatedAt: w.now().UTC(),
	}
	if postErr != nil {
		e.Status = "failed"
		e.Error = postErr.Error()
	}
	logged, err := pl.LogPost(ctx, e)
	if err != nil {
		w.logger.Warn("post log write failed", "error", err)
		return nil
	}
	return logged
}

// TestPost is the fixed-content draft used to check that posting works
// without involving the completion service.
func TestPost(now time.Time, cats *wordpress.Categories) wordpress.Post {
	stamp := now.Format("2006-01-02 15:04:05")
	p := wordpress.Post{
		Title: "Test Post from Direct WordPress Script - " + stamp,
		Content: "<p>This is a test post created by the direct WordPress posting script.</p>\n" +
			"<p>Created at: " + stamp + "</p>\n" +
			"<p>This post confirms that the WordPress posting functionality is working correctly.</p>",
		Excerpt: "Test post created at " + stamp,
		Status:  wordpress.StatusDraft,
	}
	if cats != nil {
		if id, ok := cats.Roles[wordpress.RoleUncategorized]; ok {
			p.Categories = []int{id}
		}
	}
	return p
}
