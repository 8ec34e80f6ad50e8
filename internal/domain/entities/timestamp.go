package entities

import (
	"encoding/json"
	"fmt"
	"time"
)

// Timestamp decodes the datetime spellings the API has used: RFC 3339 with
// an offset, naive ISO datetimes with optional fractional seconds, and bare
// dates. Values without an offset are taken as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp parses s with the first layout that fits.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		ts.Time = time.Time{}
		return nil
	}
	t, err := ParseTimestamp(raw)
	if err != nil {
		return err
	}
	ts.Time = t
	return nil
}

// timePtr returns nil for an absent timestamp.
func (ts *Timestamp) timePtr() *time.Time {
	if ts == nil || ts.IsZero() {
		return nil
	}
	t := ts.Time
	return &t
}

// UnmarshalJSON decodes the task's timestamps leniently.
func (t *Task) UnmarshalJSON(data []byte) error {
	type plain Task
	aux := struct {
		*plain
		DueDate        *Timestamp `json:"due_date"`
		CreatedAt      Timestamp  `json:"created_at"`
		AssignmentDate *Timestamp `json:"assignment_date"`
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t.DueDate = aux.DueDate.timePtr()
	t.CreatedAt = aux.CreatedAt.Time
	t.AssignmentDate = aux.AssignmentDate.timePtr()
	return nil
}

func (c *Comment) UnmarshalJSON(data []byte) error {
	type plain Comment
	aux := struct {
		*plain
		CreatedAt Timestamp `json:"created_at"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.CreatedAt = aux.CreatedAt.Time
	return nil
}

func (p *Project) UnmarshalJSON(data []byte) error {
	type plain Project
	aux := struct {
		*plain
		CreatedAt *Timestamp `json:"created_at"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.CreatedAt = aux.CreatedAt.timePtr()
	return nil
}
