// Package query filters, groups and totals a transaction collection for the
// transactions screen. Every function is read-only over its inputs and takes
// the reference time explicitly.
package query

import (
	"strings"
	"time"

	"kharcha/internal/core"
)

// All is the "no filter" value of the scope, category and member criteria.
const All = "all"

// Criteria is the transient filter state of the transactions screen.
type Criteria struct {
	Scope       string    `json:"scope"`    // all | personal | family
	Category    string    `json:"category"` // all | category name
	DateRange   RangeKind `json:"date_range"`
	CustomStart string    `json:"custom_start,omitempty"`
	CustomEnd   string    `json:"custom_end,omitempty"`
	Member      string    `json:"member"` // all | member id
	Search      string    `json:"search,omitempty"`
}

// DefaultCriteria is the state the screen opens with and resets to.
func DefaultCriteria() Criteria {
	return Criteria{
		Scope:     All,
		Category:  All,
		DateRange: ThisMonth,
		Member:    All,
	}
}

// Normalize fills unset criteria with their defaults.
func (c Criteria) Normalize() Criteria {
	if strings.TrimSpace(c.Scope) == "" {
		c.Scope = All
	}
	if strings.TrimSpace(c.Category) == "" {
		c.Category = All
	}
	if strings.TrimSpace(string(c.DateRange)) == "" {
		c.DateRange = ThisMonth
	}
	if strings.TrimSpace(c.Member) == "" {
		c.Member = All
	}
	return c
}

// Reset clears every filter but keeps the search text.
func (c Criteria) Reset() Criteria {
	d := DefaultCriteria()
	d.Search = c.Search
	return d
}

// CountActiveFilters counts criteria that differ from their default. Search
// text and custom bounds are not counted; unset fields count as default.
func CountActiveFilters(c Criteria) int {
	c = c.Normalize()
	count := 0
	if c.Scope != All {
		count++
	}
	if c.Category != All {
		count++
	}
	if c.DateRange != ThisMonth {
		count++
	}
	if c.Member != All {
		count++
	}
	return count
}

// Filter returns the transactions matching every criterion, in input order.
// A transaction without a date fails the whole query with an InvalidDateError.
func Filter(txs []core.Transaction, c Criteria, now time.Time) ([]core.Transaction, error) {
	c = c.Normalize()
	window, err := ResolveDateRange(c.DateRange, c.CustomStart, c.CustomEnd, now)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(c.Search)
	loc := now.Location()

	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if t.Date.IsZero() {
			return nil, &core.InvalidDateError{Value: "", Err: errMissingDate(t.ID)}
		}
		if !matchesSearch(t, needle) {
			continue
		}
		if c.Scope != All && string(t.Scope) != c.Scope {
			continue
		}
		if c.Category != All && t.Category != c.Category {
			continue
		}
		if !window.Contains(t.Date.In(loc)) {
			continue
		}
		if !matchesMember(t, c.Member) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func matchesSearch(t core.Transaction, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.Description), needle) ||
		strings.Contains(strings.ToLower(t.Category), needle)
}

// MemberOptions lists the member filter entries, "All Members" first.
func MemberOptions(members []core.Member) []core.Member {
	out := make([]core.Member, 0, len(members)+1)
	out = append(out, core.Member{ID: All, Name: "All Members"})
	return append(out, members...)
}

// matchesMember accepts everything: transactions carry no owner yet.
func matchesMember(_ core.Transaction, _ string) bool {
	return true
}

type errMissingDate string

func (e errMissingDate) Error() string {
	return "transaction " + string(e) + " has no date"
}
