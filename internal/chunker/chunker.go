// Package chunker splits text and markdown documents into passages that can
// each become one memory record.
package chunker

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultTargetSize = 800
	DefaultMinSize    = 120
	DefaultMaxSize    = 1500
)

// Options configures chunking behavior.
type Options struct {
	TargetSize int
	MinSize    int
	MaxSize    int
}

// DefaultOptions returns default chunking options.
func DefaultOptions() Options {
	return Options{
		TargetSize: DefaultTargetSize,
		MinSize:    DefaultMinSize,
		MaxSize:    DefaultMaxSize,
	}
}

// normalized fills zero fields with defaults and keeps MaxSize at or above
// TargetSize.
func (o Options) normalized() Options {
	if o.TargetSize <= 0 {
		o.TargetSize = DefaultTargetSize
	}
	if o.MinSize <= 0 {
		o.MinSize = DefaultMinSize
	}
	if o.MaxSize <= 0 {
		o.MaxSize = DefaultMaxSize
	}
	if o.MaxSize < o.TargetSize {
		o.MaxSize = o.TargetSize
	}
	return o
}

// Passage is a piece of a document with its nearest heading and line span.
type Passage struct {
	Heading   string
	Text      string
	StartLine int
	EndLine   int
}

// Split breaks a document into passages. Paragraphs under the same heading
// are merged up to TargetSize; paragraphs shorter than MinSize are always
// merged into their neighbour; anything over MaxSize is split at sentence
// boundaries.
func Split(doc string, opts Options) []Passage {
	opts = opts.normalized()

	var out []Passage
	for _, sec := range sections(doc) {
		out = append(out, pack(sec, opts)...)
	}
	return out
}

type paragraph struct {
	text      string
	startLine int
	endLine   int
}

type section struct {
	heading string
	paras   []paragraph
}

// sections groups paragraphs by the markdown heading that precedes them.
func sections(doc string) []section {
	lines := strings.Split(strings.ReplaceAll(doc, "\r\n", "\n"), "\n")

	var secs []section
	cur := section{}
	var buf []string
	start := 0

	flushPara := func(end int) {
		t := strings.TrimSpace(strings.Join(buf, "\n"))
		if t != "" {
			cur.paras = append(cur.paras, paragraph{text: t, startLine: start, endLine: end})
		}
		buf = nil
	}
	flushSection := func() {
		if len(cur.paras) > 0 {
			secs = append(secs, cur)
		}
		cur = section{}
	}

	for i, line := range lines {
		n := i + 1
		trimmed := strings.TrimSpace(line)
		switch {
		case isHeading(trimmed):
			flushPara(n - 1)
			flushSection()
			cur.heading = strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		case trimmed == "":
			flushPara(n - 1)
		default:
			if len(buf) == 0 {
				start = n
			}
			buf = append(buf, line)
		}
	}
	flushPara(len(lines))
	flushSection()
	return secs
}

func isHeading(line string) bool {
	if !strings.HasPrefix(line, "#") {
		return false
	}
	rest := strings.TrimLeft(line, "#")
	return len(line)-len(rest) <= 6 && (rest == "" || rest[0] == ' ')
}

// pack merges a section's paragraphs into passages.
func pack(sec section, opts Options) []Passage {
	var out []Passage
	var acc *Passage

	emit := func() {
		if acc == nil {
			return
		}
		if len(acc.Text) > opts.MaxSize {
			out = append(out, splitSentences(*acc, opts)...)
		} else {
			out = append(out, *acc)
		}
		acc = nil
	}

	for _, p := range sec.paras {
		if acc == nil {
			acc = &Passage{Heading: sec.heading, Text: p.text, StartLine: p.startLine, EndLine: p.endLine}
			continue
		}
		combined := len(acc.Text) + 2 + len(p.text)
		if combined <= opts.TargetSize || len(acc.Text) < opts.MinSize || len(p.text) < opts.MinSize {
			acc.Text += "\n\n" + p.text
			acc.EndLine = p.endLine
			continue
		}
		emit()
		acc = &Passage{Heading: sec.heading, Text: p.text, StartLine: p.startLine, EndLine: p.endLine}
	}
	emit()
	return out
}

// splitSentences cuts an oversized passage at sentence ends near TargetSize.
// Line numbers of the pieces keep the span of the original passage.
func splitSentences(p Passage, opts Options) []Passage {
	var out []Passage
	text := p.Text
	for len(text) > opts.MaxSize {
		cut := sentenceCut(text, opts.TargetSize, opts.MaxSize)
		out = append(out, Passage{Heading: p.Heading, Text: strings.TrimSpace(text[:cut]), StartLine: p.StartLine, EndLine: p.EndLine})
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		out = append(out, Passage{Heading: p.Heading, Text: text, StartLine: p.StartLine, EndLine: p.EndLine})
	}
	return out
}

// sentenceCut returns the index just after the last sentence terminator in
// text[:max], preferring one at or beyond target. Falls back to the last
// space, then to the last rune boundary at or before max. The result is
// always positive.
func sentenceCut(text string, target, max int) int {
	max = runeFloor(text, max)
	window := text[:max]
	best := -1
	for i := 0; i < len(window)-1; i++ {
		c := window[i]
		if (c == '.' || c == '!' || c == '?') && (window[i+1] == ' ' || window[i+1] == '\n') {
			best = i + 1
			if best >= target {
				break
			}
		}
	}
	if best > 0 {
		return best
	}
	if sp := strings.LastIndexAny(window, " \n"); sp > 0 {
		return sp
	}
	return max
}

// runeFloor moves i back to the start of the rune it falls in. A cut inside
// the first rune moves forward past it instead.
func runeFloor(text string, i int) int {
	if i >= len(text) {
		return len(text)
	}
	for j := i; j > 0; j-- {
		if utf8.RuneStart(text[j]) {
			return j
		}
	}
	_, size := utf8.DecodeRuneInString(text)
	return size
}
