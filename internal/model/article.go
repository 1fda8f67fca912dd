package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TargetArticle is the article under analysis. It is never modified once a run starts.
type TargetArticle struct {
	Title string       `json:"title"`
	Body  string       `json:"text"`
	URL   string       `json:"url,omitempty"`
	Date  CalendarDate `json:"date"`
}

// CalendarDate is a publication date without time-of-day.
// The zero value means the date is unknown.
type CalendarDate struct {
	time.Time
}

const calendarLayout = "2006-01-02"

var dateLayouts = []string{
	calendarLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"January 2, 2006",
	"Jan 2, 2006",
	"02 Jan 2006",
}

// ParseCalendarDate accepts ISO dates, RFC 3339 timestamps and a few long forms.
// Empty input and "Unknown" yield the zero date.
func ParseCalendarDate(s string) (CalendarDate, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "unknown") {
		return CalendarDate{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return CalendarDate{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}, nil
		}
	}
	return CalendarDate{}, fmt.Errorf("unrecognized date %q", s)
}

// String renders YYYY-MM-DD, or "Unknown" for the zero date
func (d CalendarDate) String() string {
	if d.IsZero() {
		return "Unknown"
	}
	return d.Format(calendarLayout)
}

func (d CalendarDate) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.Format(calendarLayout))
}

func (d *CalendarDate) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = CalendarDate{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseCalendarDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Sentence is one segment of the target article body
type Sentence struct {
	Index int    `json:"index"` // 0-based position, ordering key
	Text  string `json:"text"`  // Trimmed source text
}
