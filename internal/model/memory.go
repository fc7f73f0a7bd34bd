// Package model defines the memory record types and their validation rules.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid memory record")

// Type classifies a memory record.
type Type string

const (
	TypePersonal     Type = "personal"
	TypeFaction      Type = "faction"
	TypeEvent        Type = "event"
	TypeRelationship Type = "relationship"
	TypeKnowledge    Type = "knowledge"
)

// ValidTypes are the allowed memory types.
var ValidTypes = map[Type]bool{
	TypePersonal:     true,
	TypeFaction:      true,
	TypeEvent:        true,
	TypeRelationship: true,
	TypeKnowledge:    true,
}

// RecallFrequency is a coarse sampling hint for recall.
type RecallFrequency string

const (
	RecallHigh   RecallFrequency = "high"
	RecallMedium RecallFrequency = "medium"
	RecallLow    RecallFrequency = "low"
)

// ValidFrequencies are the allowed recall frequencies.
var ValidFrequencies = map[RecallFrequency]bool{
	RecallHigh:   true,
	RecallMedium: true,
	RecallLow:    true,
}

const (
	MinPriority     = 1
	MaxPriority     = 10
	DefaultPriority = 5
)

// Meta holds recall hints for a record.
type Meta struct {
	PriorityLevel   int             `json:"priority_level"`
	RecallFrequency RecallFrequency `json:"recall_frequency"`
	SensoryTags     []string        `json:"sensory_tags"`
}

// Record is a single persisted memory.
type Record struct {
	ID                 string    `json:"id"`
	Type               Type      `json:"type"`
	Timestamp          Timestamp `json:"timestamp"`
	Title              string    `json:"title"`
	Content            string    `json:"content"`
	EmotionalSignature string    `json:"emotional_signature"`
	AssociatedEntities []string  `json:"associated_entities"`
	Meta               Meta      `json:"meta"`
}

// ParseType returns the Type for s, or an error if s is not one of the allowed types.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !ValidTypes[t] {
		return "", fmt.Errorf("%w: type %q (valid: personal, faction, event, relationship, knowledge)", ErrInvalid, s)
	}
	return t, nil
}

// ParseFrequency returns the RecallFrequency for s.
func ParseFrequency(s string) (RecallFrequency, error) {
	f := RecallFrequency(strings.ToLower(strings.TrimSpace(s)))
	if !ValidFrequencies[f] {
		return "", fmt.Errorf("%w: recall_frequency %q (valid: high, medium, low)", ErrInvalid, s)
	}
	return f, nil
}

// ParsePriority checks an explicitly given priority level.
func ParsePriority(n int) (int, error) {
	if n < MinPriority || n > MaxPriority {
		return 0, fmt.Errorf("%w: priority_level %d outside [%d,%d]", ErrInvalid, n, MinPriority, MaxPriority)
	}
	return n, nil
}

// Validate checks the record against the schema invariants.
func (r *Record) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalid)
	}
	if !ValidTypes[r.Type] {
		return fmt.Errorf("%w: %s: type %q (valid: personal, faction, event, relationship, knowledge)", ErrInvalid, r.ID, r.Type)
	}
	if r.Meta.PriorityLevel < MinPriority || r.Meta.PriorityLevel > MaxPriority {
		return fmt.Errorf("%w: %s: priority_level %d outside [%d,%d]", ErrInvalid, r.ID, r.Meta.PriorityLevel, MinPriority, MaxPriority)
	}
	if !ValidFrequencies[r.Meta.RecallFrequency] {
		return fmt.Errorf("%w: %s: recall_frequency %q (valid: high, medium, low)", ErrInvalid, r.ID, r.Meta.RecallFrequency)
	}
	if r.Timestamp.IsZero() {
		return fmt.Errorf("%w: %s: timestamp is required", ErrInvalid, r.ID)
	}
	return nil
}

// Normalize fills defaults for a hand-authored or ingested record.
// nextID is only called when the record has no id.
func (r *Record) Normalize(now time.Time, nextID func() string) {
	if r.ID == "" && nextID != nil {
		r.ID = nextID()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = NewTimestamp(now)
	}
	if r.Meta.PriorityLevel == 0 {
		r.Meta.PriorityLevel = DefaultPriority
	}
	if r.Meta.RecallFrequency == "" {
		r.Meta.RecallFrequency = RecallMedium
	}
	if r.Meta.SensoryTags == nil {
		r.Meta.SensoryTags = []string{}
	}
	if r.AssociatedEntities == nil {
		r.AssociatedEntities = []string{}
	}
}

// Collection is an ordered set of records with unique ids.
type Collection []Record

// Validate checks every record and id uniqueness. All problems are reported.
func (c Collection) Validate() error {
	var errs []error
	seen := make(map[string]int, len(c))
	for i := range c {
		if err := c[i].Validate(); err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		if j, ok := seen[c[i].ID]; ok {
			errs = append(errs, fmt.Errorf("record %d: %w: duplicate id %q (first at record %d)", i, ErrInvalid, c[i].ID, j))
			continue
		}
		seen[c[i].ID] = i
	}
	return errors.Join(errs...)
}

// NextID returns the first free id of the form memNNN.
func (c Collection) NextID() string {
	taken := make(map[string]bool, len(c))
	for _, r := range c {
		taken[r.ID] = true
	}
	return NextFreeID(len(c), taken)
}

// NextFreeID returns the first memNNN id greater than count that is not taken.
func NextFreeID(count int, taken map[string]bool) string {
	n := count + 1
	for {
		id := fmt.Sprintf("mem%03d", n)
		if !taken[id] {
			return id
		}
		n++
	}
}
