package emi

import (
	"errors"
	"time"

	"kharcha/internal/core"
)

var (
	ErrEMICompleted  = errors.New("emi already completed")
	ErrInvalidStatus = errors.New("invalid emi status")
)

// New builds a fresh, active EMI from validated terms. Nothing has been paid
// yet, so the remaining amount is the principal.
func New(id, name string, t Terms) (core.EMI, error) {
	q, err := Quote(t)
	if err != nil {
		return core.EMI{}, err
	}
	principal := core.NewMoney(t.Principal)
	return core.EMI{
		ID:              id,
		Name:            name,
		Principal:       principal,
		InterestRate:    t.AnnualRate,
		Tenure:          t.Tenure,
		MonthlyAmount:   q.MonthlyPayment,
		StartDate:       t.StartDate,
		NextDueDate:     q.NextDueDate,
		TotalPaid:       core.Zero,
		RemainingAmount: principal,
		Status:          core.EMIActive,
	}, nil
}

// Revise applies edited terms to prior. MonthlyAmount and NextDueDate are
// derived again; TotalPaid, RemainingAmount and Status are carried forward.
func Revise(prior core.EMI, name string, t Terms) (core.EMI, error) {
	q, err := Quote(t)
	if err != nil {
		return core.EMI{}, err
	}
	updated := prior
	updated.Name = name
	updated.Principal = core.NewMoney(t.Principal)
	updated.InterestRate = t.AnnualRate
	updated.Tenure = t.Tenure
	updated.MonthlyAmount = q.MonthlyPayment
	updated.StartDate = t.StartDate
	updated.NextDueDate = q.NextDueDate
	return updated, nil
}

// TermsOf recovers the terms an EMI was created with.
func TermsOf(e core.EMI) Terms {
	return Terms{
		Principal:  e.Principal.Value,
		AnnualRate: e.InterestRate,
		Tenure:     e.Tenure,
		StartDate:  e.StartDate,
	}
}

// ApplyPayment records an installment payment against e.
func ApplyPayment(e core.EMI, amount core.Money) (core.EMI, error) {
	if e.Status == core.EMICompleted {
		return e, ErrEMICompleted
	}
	if !e.Status.Valid() {
		return e, ErrInvalidStatus
	}
	if err := amount.Validate(); err != nil {
		return e, &core.InvalidInputError{Field: "amount", Reason: "must be greater than zero"}
	}

	e.TotalPaid = e.TotalPaid.Add(amount)
	e.RemainingAmount = e.RemainingAmount.Sub(amount)
	if !e.RemainingAmount.Value.IsPositive() {
		e.RemainingAmount = core.Zero
		e.Status = core.EMICompleted
		return e, nil
	}
	e.NextDueDate = advanceDue(e.StartDate, e.NextDueDate)
	return e, nil
}

// advanceDue moves due one month on, anchored to the start day so that a
// clamped month end (Jan 31 -> Feb 29) does not drift later dates.
func advanceDue(start, due core.Date) core.Date {
	if start.IsZero() {
		return due.AddMonths(1)
	}
	months := (due.Year()-start.Year())*12 + due.Month() - start.Month()
	return start.AddMonths(months + 1)
}

// IsDue reports whether an active EMI's next installment falls on or before
// the calendar day of now.
func IsDue(e core.EMI, now time.Time) bool {
	if e.Status != core.EMIActive || e.NextDueDate.IsZero() {
		return false
	}
	return !e.NextDueDate.After(core.DateOf(now))
}
