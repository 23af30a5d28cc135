package query

import (
	"strings"
	"time"

	"kharcha/internal/core"
)

// RangeKind selects the date window of a transaction query.
type RangeKind string

const (
	Today     RangeKind = "today"
	Yesterday RangeKind = "yesterday"
	Last7Days RangeKind = "last7days"
	ThisMonth RangeKind = "thismonth"
	Custom    RangeKind = "custom"
)

const day = 24 * time.Hour

// Window is an inclusive time interval.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies within w, bounds included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// ResolveDateRange turns a range kind into a concrete window relative to now.
// Calendar days are taken in now's location. Empty custom bounds default to
// the Unix epoch and now; malformed custom bounds are rejected. Unknown kinds
// fall back to [epoch, now].
func ResolveDateRange(kind RangeKind, customStart, customEnd string, now time.Time) (Window, error) {
	loc := now.Location()
	startOfToday := core.DateOf(now).In(loc)

	switch kind {
	case Today:
		return Window{Start: startOfToday, End: startOfToday.Add(day - time.Millisecond)}, nil
	case Yesterday:
		start := core.DateOf(now).AddDays(-1).In(loc)
		return Window{Start: start, End: start.Add(day - time.Millisecond)}, nil
	case Last7Days:
		return Window{Start: now.Add(-7 * day), End: now}, nil
	case ThisMonth:
		return Window{Start: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc), End: now}, nil
	case Custom:
		w := Window{Start: time.Unix(0, 0).In(loc), End: now}
		if strings.TrimSpace(customStart) != "" {
			d, err := core.ParseDate(customStart)
			if err != nil {
				return Window{}, err
			}
			w.Start = d.In(loc)
		}
		if strings.TrimSpace(customEnd) != "" {
			d, err := core.ParseDate(customEnd)
			if err != nil {
				return Window{}, err
			}
			w.End = d.In(loc)
		}
		return w, nil
	default:
		return Window{Start: time.Unix(0, 0).In(loc), End: now}, nil
	}
}
