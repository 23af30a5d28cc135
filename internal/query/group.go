package query

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"kharcha/internal/core"
)

// DayGroup holds the transactions of one calendar day.
type DayGroup struct {
	Day          core.Date          `json:"day"`
	Transactions []core.Transaction `json:"transactions"`
}

// Key is the grouping key of the day, YYYY-MM-DD.
func (g DayGroup) Key() string {
	return g.Day.String()
}

// DayTotals are the income, expense and net sums of a set of transactions.
type DayTotals struct {
	Income   core.Money `json:"income"`
	Expenses core.Money `json:"expenses"`
	Net      core.Money `json:"net"`
}

// GroupByCalendarDay buckets transactions by date, most recent day first.
// Within a day the input order is kept.
func GroupByCalendarDay(txs []core.Transaction) ([]DayGroup, error) {
	index := make(map[string]int)
	var groups []DayGroup
	for _, t := range txs {
		if t.Date.IsZero() {
			return nil, &core.InvalidDateError{Value: "", Err: errMissingDate(t.ID)}
		}
		key := t.Date.String()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, DayGroup{Day: t.Date})
		}
		groups[i].Transactions = append(groups[i].Transactions, t)
	}
	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].Day.After(groups[b].Day)
	})
	return groups, nil
}

// AggregateDay sums income and expenses exactly; Net is income minus expenses.
func AggregateDay(txs []core.Transaction) DayTotals {
	income, expenses := decimal.Zero, decimal.Zero
	for _, t := range txs {
		switch t.Type {
		case core.Income:
			income = income.Add(t.Amount.Value)
		case core.Expense:
			expenses = expenses.Add(t.Amount.Value)
		}
	}
	return DayTotals{
		Income:   core.NewMoney(income),
		Expenses: core.NewMoney(expenses),
		Net:      core.NewMoney(income.Sub(expenses)),
	}
}

// DayLabel names a day header: "Today", "Yesterday" or e.g. "Mar 1, 2024".
func DayLabel(d core.Date, now time.Time) string {
	today := core.DateOf(now)
	switch {
	case d.Equal(today.Time):
		return "Today"
	case d.Equal(today.AddDays(-1).Time):
		return "Yesterday"
	default:
		return d.Format("Jan 2, 2006")
	}
}
