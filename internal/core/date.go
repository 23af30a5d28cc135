package core

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar date. The wrapped time is always midnight UTC.
type Date struct {
	time.Time
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date t falls on in its own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD date, or an RFC 3339 timestamp whose calendar
// date is taken in the timestamp's own offset.
func ParseDate(s string) (Date, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return Date{}, &InvalidDateError{Value: s, Err: errors.New("empty")}
	}
	if t, err := time.Parse(DateLayout, v); err == nil {
		return DateOf(t), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return Date{}, &InvalidDateError{Value: s, Err: err}
	}
	return DateOf(t), nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return &InvalidDateError{Value: "", Err: errors.New("date cannot be zero")}
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// In returns the start of the date in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year(), time.Month(d.Month()), d.Day(), 0, 0, 0, 0, loc)
}

// AddDays moves the date by n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// AddMonths moves the date by n calendar months, keeping the day of month
// and clamping it to the length of the target month (Jan 31 + 1 -> Feb 28/29).
func (d Date) AddMonths(n int) Date {
	first := time.Date(d.Year(), time.Month(d.Month())+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	day := d.Day()
	if last := DaysIn(first.Year(), int(first.Month())); day > last {
		day = last
	}
	return NewDate(first.Year(), int(first.Month()), day)
}

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }

// After reports whether d is strictly later than o.
func (d Date) After(o Date) bool { return d.Time.After(o.Time) }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
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

// DaysIn returns the number of days in the given month.
func DaysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
