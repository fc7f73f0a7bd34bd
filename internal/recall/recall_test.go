package recall

import (
	"strings"
	"testing"

	"github.com/rcliao/airth/internal/model"
)

func memory(id, title, content string, priority int, entities ...string) model.Record {
	return model.Record{
		ID:                 id,
		Type:               model.TypeKnowledge,
		Title:              title,
		Content:            content,
		AssociatedEntities: entities,
		Meta:               model.Meta{PriorityLevel: priority, RecallFrequency: model.RecallMedium},
	}
}

func TestKeywordMatcherScoring(t *testing.T) {
	records := []model.Record{
		memory("content", "unrelated", "notes about consciousness", 5),
		memory("title", "Consciousness", "nothing here", 5),
		memory("entity", "x", "y", 5, "Consciousness Lab"),
		memory("miss", "gardening", "tomatoes", 10),
	}
	got := KeywordMatcher{}.Match("consciousness", records, 10)
	if len(got) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(got))
	}
	if got[0].Record.ID != "title" || got[0].Score != 3 {
		t.Errorf("expected title match first with score 3, got %s %v", got[0].Record.ID, got[0].Score)
	}
	// content and entity both score 2; stable order keeps input order
	if got[1].Record.ID != "content" || got[2].Record.ID != "entity" {
		t.Errorf("unexpected order %s, %s", got[1].Record.ID, got[2].Record.ID)
	}
}

func TestKeywordMatcherPriorityWeighting(t *testing.T) {
	records := []model.Record{
		memory("low", "digital existence", "", 1),
		memory("high", "digital existence", "", 10),
	}
	got := KeywordMatcher{}.Match("Digital", records, 0)
	if len(got) != 2 || got[0].Record.ID != "high" {
		t.Fatalf("expected high priority first, got %+v", got)
	}
	if got[0].Score != 6 || got[1].Score != 0.6 {
		t.Errorf("expected scores 6 and 0.6, got %v and %v", got[0].Score, got[1].Score)
	}
}

func TestKeywordMatcherEmotionAndLimit(t *testing.T) {
	var records []model.Record
	for i := 0; i < 5; i++ {
		r := memory(string(rune('a'+i)), "", "", 5)
		r.EmotionalSignature = "melancholy, wonder"
		records = append(records, r)
	}
	got := KeywordMatcher{}.Match("wonder", records, 0)
	if len(got) != DefaultLimit {
		t.Fatalf("expected default limit %d, got %d", DefaultLimit, len(got))
	}
	if got[0].Score != 1 {
		t.Errorf("expected emotion weight 1, got %v", got[0].Score)
	}
}

func TestEmptyQueryMatchesNothing(t *testing.T) {
	records := []model.Record{memory("a", "anything", "anything", 5)}
	if got := (KeywordMatcher{}).Match("   ", records, 3); len(got) != 0 {
		t.Errorf("expected no matches, got %v", got)
	}
}

func TestNewPolicies(t *testing.T) {
	m, err := New("none")
	if err != nil {
		t.Fatal(err)
	}
	if got := m.Match("x", []model.Record{memory("a", "x", "x", 5)}, 3); got != nil {
		t.Errorf("none policy recalled %v", got)
	}
	if _, err := New("vector"); err == nil {
		t.Error("expected unknown policy error")
	}
}

func TestFormatContext(t *testing.T) {
	if FormatContext("h", nil) != "" {
		t.Error("expected empty context for no records")
	}
	out := FormatContext("Relevant memories to consider:", []model.Record{
		memory("a", "First", "one", 5),
		memory("b", "Second", "two", 5),
	})
	want := "\n\nRelevant memories to consider:\n1. First: one\n2. Second: two\n"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
	if !strings.HasPrefix(out, "\n\n") {
		t.Error("context must start on its own paragraph")
	}
}
