package query

import (
	"time"

	"kharcha/internal/core"
)

// DayView is one rendered section of the transactions list.
type DayView struct {
	DayGroup
	Label  string    `json:"label"`
	Totals DayTotals `json:"totals"`
}

// View is the complete transactions screen model.
type View struct {
	Criteria      Criteria  `json:"criteria"`
	ActiveFilters int       `json:"active_filters"`
	Window        Window    `json:"window"`
	Count         int       `json:"count"`
	Totals        DayTotals `json:"totals"`
	Days          []DayView `json:"days"`
}

// Build filters txs, groups the result by day and totals every group.
func Build(txs []core.Transaction, c Criteria, now time.Time) (View, error) {
	c = c.Normalize()
	window, err := ResolveDateRange(c.DateRange, c.CustomStart, c.CustomEnd, now)
	if err != nil {
		return View{}, err
	}
	filtered, err := Filter(txs, c, now)
	if err != nil {
		return View{}, err
	}
	groups, err := GroupByCalendarDay(filtered)
	if err != nil {
		return View{}, err
	}

	days := make([]DayView, 0, len(groups))
	for _, g := range groups {
		days = append(days, DayView{
			DayGroup: g,
			Label:    DayLabel(g.Day, now),
			Totals:   AggregateDay(g.Transactions),
		})
	}
	return View{
		Criteria:      c,
		ActiveFilters: CountActiveFilters(c),
		Window:        window,
		Count:         len(filtered),
		Totals:        AggregateDay(filtered),
		Days:          days,
	}, nil
}

// CategoryOption is an entry of the category filter list.
type CategoryOption struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// AvailableCategories lists the distinct category names used by txs, in
// first-seen order, with the color of the matching category.
func AvailableCategories(txs []core.Transaction, categories []core.Category) []CategoryOption {
	colors := make(map[string]string, len(categories))
	for _, c := range categories {
		if _, ok := colors[c.Name]; !ok {
			colors[c.Name] = c.Color
		}
	}
	seen := make(map[string]struct{})
	var out []CategoryOption
	for _, t := range txs {
		if _, ok := seen[t.Category]; ok {
			continue
		}
		seen[t.Category] = struct{}{}
		color := colors[t.Category]
		if color == "" {
			color = core.NeutralColor
		}
		out = append(out, CategoryOption{Name: t.Category, Color: color})
	}
	return out
}
