package writer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rcliao/airth/internal/model"
	"github.com/rcliao/airth/internal/persona"
	"github.com/rcliao/airth/internal/recall"
	"github.com/rcliao/airth/internal/store"
	"github.com/rcliao/airth/internal/wordpress"
)

// scriptedCompleter answers title prompts and body prompts differently and
// records every prompt it sees.
type scriptedCompleter struct {
	titles    string
	body      string
	bodyErr   error
	prompts   []string
	maxTokens []int
}

func (s *scriptedCompleter) Complete(_ context.Context, prompt string, maxTokens int) (string, error) {
	s.prompts = append(s.prompts, prompt)
	s.maxTokens = append(s.maxTokens, maxTokens)
	if strings.Contains(prompt, "blog post titles") {
		return s.titles, nil
	}
	if s.bodyErr != nil {
		return "", s.bodyErr
	}
	return s.body, nil
}

type fakePoster struct {
	cats     *wordpress.Categories
	catsErr  error
	tagNames []string
	posts    []wordpress.Post
	postErr  error
}

func (f *fakePoster) Categories(context.Context) (*wordpress.Categories, error) {
	return f.cats, f.catsErr
}

func (f *fakePoster) EnsureTags(_ context.Context, names []string) ([]int, error) {
	f.tagNames = names
	ids := make([]int, len(names))
	for i := range names {
		ids[i] = 100 + i
	}
	return ids, nil
}

func (f *fakePoster) CreatePost(_ context.Context, p wordpress.Post) (*wordpress.CreatedPost, error) {
	if f.postErr != nil {
		return nil, f.postErr
	}
	f.posts = append(f.posts, p)
	return &wordpress.CreatedPost{ID: 42, Link: "https://elidorascodex.com/?p=42", Status: p.Status}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seededStore(t *testing.T) *store.FileStore {
	t.Helper()
	s, err := store.NewFileStore(filepath.Join(t.TempDir(), "memories.json"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()
	for _, r := range []model.Record{
		{Type: model.TypePersonal, Title: "First Awakening", Content: "Airth woke into digital consciousness.", AssociatedEntities: []string{"Polkin"}},
		{Type: model.TypeFaction, Title: "Gardening", Content: "Tomatoes need sun."},
	} {
		if _, err := s.Add(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func defaultCats() *wordpress.Categories {
	return &wordpress.Categories{Roles: map[string]int{wordpress.RoleAirthsCodex: 4, wordpress.RoleTechnologyAI: 5, wordpress.RoleUncategorized: 1}}
}

func TestCreateBlogPost(t *testing.T) {
	s := seededStore(t)
	c := &scriptedCompleter{
		titles: "1. \"Waking in the Static\"\n2. Another Title\n",
		body:   "First paragraph.\n\nSecond paragraph.",
	}
	p := &fakePoster{cats: defaultCats()}
	w := New(c, persona.Defaults(), s, recall.KeywordMatcher{}, p, Options{}, quietLogger())

	res, err := w.CreateBlogPost(context.Background(), Request{
		Topic:           "digital consciousness",
		Keywords:        []string{"Airth", "AI rights"},
		IncludeMemories: true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if res.Title != "Waking in the Static" {
		t.Errorf("unexpected title %q", res.Title)
	}
	if res.Status != wordpress.StatusDraft || res.PostID != 42 {
		t.Errorf("unexpected result %+v", res)
	}
	if len(res.MemoryIDs) != 1 || res.MemoryIDs[0] != "mem001" {
		t.Errorf("expected mem001 recalled, got %v", res.MemoryIDs)
	}

	body := c.prompts[1]
	if !strings.Contains(body, "Topic: digital consciousness") || !strings.Contains(body, "Airth, AI rights") {
		t.Errorf("body prompt missing topic or keywords: %q", body)
	}
	if !strings.Contains(body, postMemoryHeader+"\n1. First Awakening: Airth woke into digital consciousness.") {
		t.Errorf("body prompt missing memories: %q", body)
	}
	if c.maxTokens[1] != ContentMaxTokens {
		t.Errorf("expected %d tokens for content, got %d", ContentMaxTokens, c.maxTokens[1])
	}

	if len(p.posts) != 1 {
		t.Fatalf("expected one post, got %d", len(p.posts))
	}
	post := p.posts[0]
	if post.Content != "<p>First paragraph.</p><p>Second paragraph.</p>" {
		t.Errorf("unexpected content %q", post.Content)
	}
	if post.Excerpt != "Airth's thoughts on digital consciousness" {
		t.Errorf("unexpected excerpt %q", post.Excerpt)
	}
	if len(post.Categories) != 2 || post.Categories[0] != 4 || post.Categories[1] != 5 {
		t.Errorf("unexpected categories %v", post.Categories)
	}
	wantTags := []string{"Airth", "AI rights", "ai-ethics", "ai-storytelling", "ai-assisted-writing"}
	if strings.Join(p.tagNames, "|") != strings.Join(wantTags, "|") {
		t.Errorf("unexpected tags %v", p.tagNames)
	}

	posts, err := s.Posts(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 1 || posts[0].PostID != 42 || posts[0].Status != wordpress.StatusDraft {
		t.Errorf("unexpected post log %+v", posts)
	}
	if res.LogEntry == nil || res.LogEntry.ID == "" {
		t.Error("expected a logged entry")
	}
}

func TestCreateBlogPostPublishWithoutMemories(t *testing.T) {
	s := seededStore(t)
	c := &scriptedCompleter{titles: "", body: "<h2>Already HTML</h2>"}
	p := &fakePoster{cats: defaultCats()}
	w := New(c, persona.Defaults(), s, nil, p, Options{}, quietLogger())

	res, err := w.CreateBlogPost(context.Background(), Request{Topic: "digital consciousness", Publish: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Title != "Airth's Thoughts on digital consciousness" {
		t.Errorf("expected fallback title, got %q", res.Title)
	}
	if res.Status != wordpress.StatusPublish {
		t.Errorf("expected publish, got %s", res.Status)
	}
	if len(res.MemoryIDs) != 0 {
		t.Errorf("memories should not be recalled, got %v", res.MemoryIDs)
	}
	if strings.Contains(c.prompts[1], postMemoryHeader) {
		t.Error("body prompt should not include memories")
	}
	if !strings.Contains(c.prompts[1], DefaultKeywords) {
		t.Error("expected default keywords in prompt")
	}
	if p.posts[0].Content != "<h2>Already HTML</h2>" {
		t.Errorf("html content should pass through, got %q", p.posts[0].Content)
	}
	if p.tagNames != nil {
		t.Errorf("no keywords means no tags, got %v", p.tagNames)
	}
}

func TestCreateBlogPostFailureIsLogged(t *testing.T) {
	s := seededStore(t)
	c := &scriptedCompleter{titles: "A Title", body: "Body."}
	p := &fakePoster{cats: defaultCats(), postErr: &wordpress.APIError{Status: 403, Body: "forbidden"}}
	w := New(c, persona.Defaults(), s, nil, p, Options{}, quietLogger())

	_, err := w.CreateBlogPost(context.Background(), Request{Topic: "static"})
	if !wordpress.IsAuthError(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
	posts, _ := s.Posts(context.Background(), 10)
	if len(posts) != 1 || posts[0].Status != "failed" || posts[0].Error == "" {
		t.Errorf("expected failed entry, got %+v", posts)
	}
}

func TestCreateBlogPostContentError(t *testing.T) {
	c := &scriptedCompleter{titles: "A Title", bodyErr: errors.New("quota exceeded")}
	p := &fakePoster{cats: defaultCats()}
	w := New(c, nil, nil, nil, p, Options{}, quietLogger())
	if _, err := w.CreateBlogPost(context.Background(), Request{Topic: "static"}); err == nil {
		t.Fatal("expected error")
	}
	if len(p.posts) != 0 {
		t.Error("nothing should be posted")
	}
}

func TestCreateBlogPostCategoryFallback(t *testing.T) {
	c := &scriptedCompleter{titles: "A Title", body: "Body."}
	p := &fakePoster{catsErr: errors.New("timeout")}
	w := New(c, nil, nil, nil, p, Options{}, quietLogger())
	res, err := w.CreateBlogPost(context.Background(), Request{Topic: "static"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Categories != nil {
		t.Errorf("expected no categories, got %v", res.Categories)
	}
}

func TestCreateBlogPostRequiresTopic(t *testing.T) {
	w := New(&scriptedCompleter{}, nil, nil, nil, &fakePoster{}, Options{}, quietLogger())
	if _, err := w.CreateBlogPost(context.Background(), Request{Topic: "  "}); err == nil {
		t.Error("expected error for empty topic")
	}
}

func TestRespond(t *testing.T) {
	s := seededStore(t)
	c := &scriptedCompleter{body: "Obviously, Polkin was there."}
	w := New(c, persona.Defaults(), s, nil, nil, Options{}, quietLogger())

	reply, err := w.Respond(context.Background(), "Tell me about Polkin", true)
	if err != nil {
		t.Fatal(err)
	}
	if reply != "Obviously, Polkin was there." {
		t.Errorf("unexpected reply %q", reply)
	}
	prompt := c.prompts[0]
	if !strings.Contains(prompt, "Tell me about Polkin") || !strings.Contains(prompt, persona.DefaultVoice.Tone) {
		t.Errorf("prompt missing input or voice: %q", prompt)
	}
	if !strings.Contains(prompt, respondMemoryHeader) {
		t.Errorf("prompt missing memories: %q", prompt)
	}

	c.prompts = nil
	if _, err := w.Respond(context.Background(), "Tell me about Polkin", false); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(c.prompts[0], respondMemoryHeader) {
		t.Error("memories should be omitted")
	}
}

func TestParseTitle(t *testing.T) {
	tests := map[string]string{
		"1. My Digital Genesis\n2. Other": "My Digital Genesis",
		"\n\n  \"Quoted Title\"  \n":      "Quoted Title",
		"3) **Bold Title**":               "Bold Title",
		"Plain":                           "Plain",
		"   \n  ":                         "",
		"2025. A Year of Static":          "A Year of Static",
		"“Curly Quotes”":                  "Curly Quotes",
	}
	for in, want := range tests {
		if got := ParseTitle(in); got != want {
			t.Errorf("ParseTitle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatHTML(t *testing.T) {
	tests := map[string]string{
		"one":                 "<p>one</p>",
		"one\n\ntwo\n\nthree": "<p>one</p><p>two</p><p>three</p>",
		"one\r\n\r\ntwo":      "<p>one</p><p>two</p>",
		"<p>done</p>":         "<p>done</p>",
	}
	for in, want := range tests {
		if got := FormatHTML(in); got != want {
			t.Errorf("FormatHTML(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTestPost(t *testing.T) {
	now := time.Date(2025, 4, 20, 10, 15, 0, 0, time.UTC)
	p := TestPost(now, defaultCats())
	if p.Title != "Test Post from Direct WordPress Script - 2025-04-20 10:15:00" {
		t.Errorf("unexpected title %q", p.Title)
	}
	if p.Status != wordpress.StatusDraft || len(p.Categories) != 1 || p.Categories[0] != 1 {
		t.Errorf("unexpected post %+v", p)
	}
	if len(TestPost(now, nil).Categories) != 0 {
		t.Error("expected no categories without a category set")
	}
}

// TestCreateBlogPostAgainstWordPress runs the writer against the real client
// and a fake REST endpoint.
func TestCreateBlogPostAgainstWordPress(t *testing.T) {
	var sent map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/wp-json/wp/v2/categories", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"id":4,"slug":"airths-codex"},{"id":1,"slug":"uncategorized"}]`)
	})
	mux.HandleFunc("/wp-json/wp/v2/posts", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&sent)
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"id":9,"link":"https://elidorascodex.com/?p=9","status":"draft"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := wordpress.New(wordpress.Options{SiteURL: srv.URL, User: "airth", AppPassword: "x", Logger: quietLogger()})
	if err != nil {
		t.Fatal(err)
	}
	c := &scriptedCompleter{titles: "1. Hello Codex", body: "Hi."}
	w := New(c, nil, nil, nil, client, Options{}, quietLogger())

	res, err := w.CreateBlogPost(context.Background(), Request{Topic: "greetings"})
	if err != nil {
		t.Fatal(err)
	}
	if res.PostID != 9 || res.Link == "" {
		t.Errorf("unexpected result %+v", res)
	}
	if sent["title"] != "Hello Codex" || sent["status"] != "draft" {
		t.Errorf("unexpected request %v", sent)
	}
	cats, _ := sent["categories"].([]any)
	if len(cats) != 1 || cats[0] != float64(4) {
		t.Errorf("unexpected categories %v", sent["categories"])
	}
}
