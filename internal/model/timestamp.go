package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// timestampLayouts lists the accepted ISO-8601 forms, zoned ones first.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Timestamp is an ISO-8601 date-time that remembers the text it was parsed
// from, so records written back to disk keep their original form.
type Timestamp struct {
	time.Time
	raw string
}

// NewTimestamp returns a Timestamp for t rendered as RFC3339 in UTC.
func NewTimestamp(t time.Time) Timestamp {
	t = t.UTC().Truncate(time.Second)
	return Timestamp{Time: t, raw: t.Format(time.RFC3339)}
}

// ParseTimestamp parses s in any of the accepted layouts.
func ParseTimestamp(s string) (Timestamp, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t, raw: s}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("%w: timestamp %q is not ISO-8601", ErrInvalid, s)
}

// String returns the original text.
func (t Timestamp) String() string {
	if t.raw != "" {
		return t.raw
	}
	if t.Time.IsZero() {
		return ""
	}
	return t.Time.Format(time.RFC3339)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: timestamp must be a string", ErrInvalid)
	}
	if s == "" {
		*t = Timestamp{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Equal reports whether both the instant and the textual form match.
func (t Timestamp) Equal(o Timestamp) bool {
	return t.Time.Equal(o.Time) && t.String() == o.String()
}
