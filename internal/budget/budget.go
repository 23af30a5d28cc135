// Package budget validates the family's monthly spending plan.
package budget

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"kharcha/internal/core"
)

// ErrBudgetExceeded means the category budgets add up to more than the
// monthly total.
var ErrBudgetExceeded = errors.New("category budgets exceed the total monthly budget")

// Validate checks the plan before it is saved. Field problems are reported as
// core.FieldErrors; an over-allocated plan as ErrBudgetExceeded.
func Validate(b core.FamilyBudget) error {
	errs := core.FieldErrors{}
	if !b.Monthly.Value.IsPositive() {
		errs.Add("monthly", "Please enter a valid monthly budget amount.")
	}
	for _, c := range b.Categories {
		if strings.TrimSpace(c.Name) == "" {
			errs.Add("categories", "Please provide names for all categories.")
		}
		if c.Budget.IsNegative() {
			errs.Add("categories", "Category budgets cannot be negative.")
		}
	}
	if err := errs.Err(); err != nil {
		return err
	}
	if Allocated(b).Cmp(b.Monthly) > 0 {
		return ErrBudgetExceeded
	}
	return nil
}

// Allocated is the sum of the category budgets.
func Allocated(b core.FamilyBudget) core.Money {
	total := decimal.Zero
	for _, c := range b.Categories {
		total = total.Add(c.Budget.Value)
	}
	return core.NewMoney(total)
}

// Remaining is the part of the monthly budget not assigned to a category.
func Remaining(b core.FamilyBudget) core.Money {
	return b.Monthly.Sub(Allocated(b))
}

// NearLimitPercent is the utilisation above which a budget is flagged.
const NearLimitPercent = 80

var hundred = decimal.NewFromInt(100)

// UsedPercent is spent as a percentage of monthly, to one decimal place.
// It exceeds 100 when the budget is overspent and is zero without a budget.
func UsedPercent(spent, monthly core.Money) decimal.Decimal {
	if !monthly.Value.IsPositive() {
		return decimal.Zero
	}
	return spent.Value.Mul(hundred).DivRound(monthly.Value, 1)
}

// NearLimit reports whether used is above NearLimitPercent.
func NearLimit(used decimal.Decimal) bool {
	return used.GreaterThan(decimal.NewFromInt(NearLimitPercent))
}

// Normalize trims category names. The input is not modified.
func Normalize(b core.FamilyBudget) core.FamilyBudget {
	cats := make([]core.BudgetCategory, len(b.Categories))
	for i, c := range b.Categories {
		c.Name = strings.TrimSpace(c.Name)
		cats[i] = c
	}
	b.Categories = cats
	return b
}
