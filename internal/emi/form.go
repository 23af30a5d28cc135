package emi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"kharcha/internal/core"
)

// Form holds the raw EMI form fields as typed by the user.
type Form struct {
	Name         string `json:"name"`
	Principal    string `json:"principal"`
	InterestRate string `json:"interest_rate"`
	Tenure       string `json:"tenure"`
	StartDate    string `json:"start_date"`
}

// Terms are validated loan parameters.
type Terms struct {
	Principal  decimal.Decimal
	AnnualRate decimal.Decimal // percent
	Tenure     int             // months
	StartDate  core.Date
}

// Quotation is everything the form displays for a set of terms.
type Quotation struct {
	MonthlyPayment core.Money `json:"monthly_amount"`
	TotalPayable   core.Money `json:"total_payable"`
	TotalInterest  core.Money `json:"total_interest"`
	NextDueDate    core.Date  `json:"next_due_date"`
}

// Form field keys used in FieldErrors.
const (
	FieldName         = "name"
	FieldPrincipal    = "principal"
	FieldInterestRate = "interest_rate"
	FieldTenure       = "tenure"
	FieldStartDate    = "start_date"
)

// ParseForm validates the form and converts it to Terms. An empty start date
// defaults to today. The returned name is trimmed.
func ParseForm(f Form, today core.Date) (string, Terms, error) {
	errs := core.FieldErrors{}
	name := strings.TrimSpace(f.Name)
	if name == "" {
		errs.Add(FieldName, "EMI name is required")
	}

	terms, termErrs := ParseTerms(f.Principal, f.InterestRate, f.Tenure, f.StartDate, today)
	for k, v := range termErrs {
		errs.Add(k, v)
	}
	if len(errs) > 0 {
		return "", Terms{}, errs
	}
	return name, terms, nil
}

// ParseTerms converts the numeric form fields. Principal and rate must be
// positive decimals; tenure must be a positive whole number of months.
func ParseTerms(principal, rate, tenure, startDate string, today core.Date) (Terms, core.FieldErrors) {
	errs := core.FieldErrors{}
	var t Terms

	if strings.TrimSpace(principal) == "" {
		errs.Add(FieldPrincipal, "Principal amount is required")
	} else if m, err := core.ParseAmount(principal); err != nil {
		errs.Add(FieldPrincipal, "Please enter a valid amount greater than zero")
	} else {
		t.Principal = m.Value
	}

	if strings.TrimSpace(rate) == "" {
		errs.Add(FieldInterestRate, "Interest rate is required")
	} else if m, err := core.ParseAmount(rate); err != nil {
		errs.Add(FieldInterestRate, "Please enter a valid interest rate greater than zero")
	} else {
		t.AnnualRate = m.Value
	}

	if strings.TrimSpace(tenure) == "" {
		errs.Add(FieldTenure, "Tenure is required")
	} else if n, err := parseTenure(tenure); err != nil {
		errs.Add(FieldTenure, "Please enter a valid tenure in months")
	} else if n > MaxTenureMonths {
		errs.Add(FieldTenure, fmt.Sprintf("Tenure cannot be longer than %d months", MaxTenureMonths))
	} else {
		t.Tenure = n
	}

	if strings.TrimSpace(startDate) == "" {
		t.StartDate = today
	} else if d, err := core.ParseDate(startDate); err != nil {
		errs.Add(FieldStartDate, "Please select a valid start date")
	} else {
		t.StartDate = d
	}

	return t, errs
}

func parseTenure(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, errors.New("tenure must be positive")
	}
	return n, nil
}

// Quote derives the monthly payment, totals and first due date for t.
// Money fields are rounded to two places; totals are computed before rounding.
func Quote(t Terms) (Quotation, error) {
	payment, err := MonthlyPayment(t.Principal, t.AnnualRate, t.Tenure)
	if err != nil {
		return Quotation{}, err
	}
	payable := TotalPayable(payment, t.Tenure)
	interest := TotalInterest(payable, t.Principal)
	if interest.IsNegative() {
		return Quotation{}, &core.InvalidInputError{Field: FieldInterestRate, Reason: "terms produce negative interest"}
	}
	return Quotation{
		MonthlyPayment: core.NewMoney(payment).Round(),
		TotalPayable:   core.NewMoney(payable).Round(),
		TotalInterest:  core.NewMoney(interest).Round(),
		NextDueDate:    NextDueDate(t.StartDate),
	}, nil
}
