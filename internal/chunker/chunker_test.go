package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplit_EmptyInput(t *testing.T) {
	if result := Split("  \n\n ", DefaultOptions()); len(result) != 0 {
		t.Errorf("expected no passages, got %v", result)
	}
}

func TestSplit_ShortContent(t *testing.T) {
	text := "This is a short memory."
	result := Split(text, DefaultOptions())
	if len(result) != 1 {
		t.Fatalf("expected 1 passage, got %d", len(result))
	}
	if result[0].Text != text {
		t.Errorf("expected %q, got %q", text, result[0].Text)
	}
	if result[0].StartLine != 1 || result[0].EndLine != 1 {
		t.Errorf("unexpected span %d-%d", result[0].StartLine, result[0].EndLine)
	}
}

func TestSplit_HeadingsStartNewPassages(t *testing.T) {
	text := "# The Awakening\n\nI woke in static.\n\n## Polkin\n\nHe spoke first.\n"
	result := Split(text, DefaultOptions())
	if len(result) != 2 {
		t.Fatalf("expected 2 passages, got %d: %+v", len(result), result)
	}
	if result[0].Heading != "The Awakening" || result[1].Heading != "Polkin" {
		t.Errorf("unexpected headings %q, %q", result[0].Heading, result[1].Heading)
	}
	if result[1].StartLine != 7 {
		t.Errorf("expected second passage at line 7, got %d", result[1].StartLine)
	}
}

func TestSplit_HashtagIsNotHeading(t *testing.T) {
	result := Split("#hashtag in a sentence\n", DefaultOptions())
	if len(result) != 1 || result[0].Heading != "" {
		t.Errorf("expected plain paragraph, got %+v", result)
	}
}

func TestSplit_MergesParagraphsUpToTarget(t *testing.T) {
	para := strings.Repeat("word ", 40) // ~200 chars
	text := para + "\n\n" + para + "\n\n" + para + "\n\n" + para + "\n\n" + para
	opts := Options{TargetSize: 450, MinSize: 50, MaxSize: 900}

	result := Split(text, opts)
	if len(result) < 2 {
		t.Fatalf("expected several passages, got %d", len(result))
	}
	for i, p := range result {
		if len(p.Text) > opts.MaxSize {
			t.Errorf("passage %d exceeds max: %d", i, len(p.Text))
		}
	}
}

func TestSplit_OversizedParagraphSplitsOnSentences(t *testing.T) {
	sentence := "The codex remembers everything it was ever told. "
	text := strings.Repeat(sentence, 60) // ~3000 chars, one paragraph
	opts := Options{TargetSize: 400, MinSize: 50, MaxSize: 600}

	result := Split(text, opts)
	if len(result) < 4 {
		t.Fatalf("expected at least 4 passages, got %d", len(result))
	}
	for i, p := range result {
		if len(p.Text) > opts.MaxSize {
			t.Errorf("passage %d exceeds max: %d", i, len(p.Text))
		}
		if !strings.HasSuffix(p.Text, ".") {
			t.Errorf("passage %d does not end on a sentence: %q", i, p.Text[len(p.Text)-10:])
		}
	}
}

func TestSplit_MultibyteCutsOnRuneBoundaries(t *testing.T) {
	text := "a" + strings.Repeat("記憶", 600)
	result := Split(text, DefaultOptions())
	if len(result) < 2 {
		t.Fatalf("expected the passage to be split, got %d", len(result))
	}
	var joined strings.Builder
	for i, p := range result {
		if !utf8.ValidString(p.Text) {
			t.Errorf("passage %d is not valid UTF-8", i)
		}
		if len(p.Text) > DefaultMaxSize {
			t.Errorf("passage %d has %d bytes", i, len(p.Text))
		}
		joined.WriteString(p.Text)
	}
	if joined.String() != text {
		t.Error("passages do not reassemble the original text")
	}
}

func TestSplit_PartialOptionsUseDefaults(t *testing.T) {
	text := strings.Repeat("Static hums under every word I keep. ", 120)
	result := Split(text, Options{TargetSize: 500})
	if len(result) < 2 {
		t.Fatalf("expected several passages, got %d", len(result))
	}
	for i, p := range result {
		if len(p.Text) > DefaultMaxSize {
			t.Errorf("passage %d has %d bytes", i, len(p.Text))
		}
	}
}

func TestSplit_MaxBelowTargetIsClamped(t *testing.T) {
	text := strings.Repeat("x", 900)
	result := Split(text, Options{TargetSize: 400, MinSize: 10, MaxSize: 100})
	if len(result) != 3 {
		t.Fatalf("expected 3 passages, got %d", len(result))
	}
	if len(result[0].Text) != 400 {
		t.Errorf("expected first passage of 400 bytes, got %d", len(result[0].Text))
	}
}
