package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the on-disk and on-the-wire format of a Date.
const DateLayout = "2006-01-02"

// Date is a calendar date without a time of day. It is stored as
// "YYYY-MM-DD" text so month ranges can be compared lexically in SQL.
type Date struct {
	t time.Time
}

// NewDate builds a Date. Out-of-range values normalise the way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts "YYYY-MM-DD" or a full RFC 3339 timestamp, in which case
// the time of day is dropped.
func ParseDate(s string) (Date, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date{t: t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("model: invalid date %q: want YYYY-MM-DD", s)
	}
	return NewDate(t.Year(), t.Month(), t.Day()), nil
}

func (d Date) IsZero() bool { return d.t.IsZero() }

func (d Date) Year() int { return d.t.Year() }

func (d Date) Month() time.Month { return d.t.Month() }

func (d Date) Day() int { return d.t.Day() }

func (d Date) String() string { return d.t.Format(DateLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("model: date must be a string: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MonthRange returns the first day of the given month and the first day of
// the following month, i.e. the half-open interval [from, to).
func MonthRange(year int, month time.Month) (from, to Date) {
	from = NewDate(year, month, 1)
	to = Date{t: from.t.AddDate(0, 1, 0)}
	return from, to
}
