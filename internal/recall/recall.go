// Package recall selects the memories relevant to a topic.
//
// The selection rule is a policy, not part of the record schema: callers
// pick a Matcher and the rest of the system only sees its output.
package recall

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rcliao/airth/internal/model"
)

// DefaultLimit is the number of memories recalled when no limit is given.
const DefaultLimit = 3

// Scored is a matched record with its relevance score.
type Scored struct {
	Record model.Record `json:"memory"`
	Score  float64      `json:"relevance"`
}

// Matcher ranks records against a query.
type Matcher interface {
	Match(query string, records []model.Record, limit int) []Scored
}

// New returns the matcher for a policy name.
func New(policy string) (Matcher, error) {
	switch policy {
	case "", "keyword":
		return KeywordMatcher{}, nil
	case "none":
		return NoneMatcher{}, nil
	default:
		return nil, fmt.Errorf("unknown recall policy %q (valid: keyword, none)", policy)
	}
}

// KeywordMatcher scores each whitespace-separated query term against the
// record's text fields and weights the total by priority.
type KeywordMatcher struct{}

const (
	contentWeight = 2
	titleWeight   = 3
	entityWeight  = 2
	emotionWeight = 1
)

func (KeywordMatcher) Match(query string, records []model.Record, limit int) []Scored {
	if limit <= 0 {
		limit = DefaultLimit
	}
	terms := uniqueTerms(query)
	if len(terms) == 0 {
		return nil
	}

	var out []Scored
	for _, r := range records {
		score := keywordScore(terms, r)
		if score == 0 {
			continue
		}
		priority := r.Meta.PriorityLevel
		if priority == 0 {
			priority = model.DefaultPriority
		}
		out = append(out, Scored{Record: r, Score: score * float64(priority) / model.DefaultPriority})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func keywordScore(terms []string, r model.Record) float64 {
	content := strings.ToLower(r.Content)
	title := strings.ToLower(r.Title)
	emotion := strings.ToLower(r.EmotionalSignature)
	entities := make([]string, len(r.AssociatedEntities))
	for i, e := range r.AssociatedEntities {
		entities[i] = strings.ToLower(e)
	}

	score := 0
	for _, term := range terms {
		if strings.Contains(content, term) {
			score += contentWeight
		}
		if strings.Contains(title, term) {
			score += titleWeight
		}
		for _, e := range entities {
			if strings.Contains(e, term) {
				score += entityWeight
				break
			}
		}
		if strings.Contains(emotion, term) {
			score += emotionWeight
		}
	}
	return float64(score)
}

func uniqueTerms(query string) []string {
	seen := map[string]bool{}
	var terms []string
	for _, f := range strings.Fields(strings.ToLower(query)) {
		if !seen[f] {
			seen[f] = true
			terms = append(terms, f)
		}
	}
	return terms
}

// NoneMatcher never recalls anything.
type NoneMatcher struct{}

func (NoneMatcher) Match(string, []model.Record, int) []Scored { return nil }

// Records unwraps the records from a match result.
func Records(scored []Scored) []model.Record {
	out := make([]model.Record, len(scored))
	for i, s := range scored {
		out[i] = s.Record
	}
	return out
}

// IDs returns the ids of a match result.
func IDs(scored []Scored) []string {
	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = s.Record.ID
	}
	return out
}

// FormatContext renders records as a numbered "title: content" block under
// header, ready to append to a prompt. Returns "" for no records.
func FormatContext(header string, records []model.Record) string {
	if len(records) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\n")
	b.WriteString(header)
	b.WriteString("\n")
	for i, r := range records {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, r.Title, r.Content)
	}
	return b.String()
}
