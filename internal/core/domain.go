package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"

	Personal Scope = "personal"
	Family   Scope = "family"

	EMIActive    EMIStatus = "active"
	EMICompleted EMIStatus = "completed"
)

// NeutralColor and NeutralIcon describe a category that cannot be resolved.
const (
	NeutralColor = "#6B7280"
	NeutralIcon  = "Circle"
)

type (
	TransactionType string
	Scope           string
	EMIStatus       string

	Transaction struct {
		ID          string          `json:"id"`
		Description string          `json:"description"`
		Category    string          `json:"category"` // Category name
		Type        TransactionType `json:"type"`
		Scope       Scope           `json:"scope"`
		Amount      Money           `json:"amount"`
		Date        Date            `json:"date"`
	}

	Category struct {
		ID        string          `json:"id"`
		Name      string          `json:"name"`
		Type      TransactionType `json:"type"`
		Scopes    []Scope         `json:"scopes"`
		Color     string          `json:"color"`
		Icon      string          `json:"icon"`
		IsDefault bool            `json:"is_default"`
	}

	// EMI is a loan repaid in equated monthly installments. MonthlyAmount and
	// NextDueDate are derived from the terms; TotalPaid, RemainingAmount and
	// Status only move when payments are recorded.
	EMI struct {
		ID              string          `json:"id"`
		Name            string          `json:"name"`
		Principal       Money           `json:"principal"`
		InterestRate    decimal.Decimal `json:"interest_rate"` // annual, percent
		Tenure          int             `json:"tenure"`        // months
		MonthlyAmount   Money           `json:"monthly_amount"`
		StartDate       Date            `json:"start_date"`
		NextDueDate     Date            `json:"next_due_date"`
		TotalPaid       Money           `json:"total_paid"`
		RemainingAmount Money           `json:"remaining_amount"`
		Status          EMIStatus       `json:"status"`
	}

	// Member is a family member selectable in the member filter.
	Member struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
)

// MembersFromNames numbers members user1, user2, ... in the given order.
func MembersFromNames(names []string) []Member {
	members := make([]Member, 0, len(names))
	for i, name := range names {
		members = append(members, Member{ID: fmt.Sprintf("user%d", i+1), Name: name})
	}
	return members
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (s Scope) Valid() bool {
	return s == Personal || s == Family
}

func (s EMIStatus) Valid() bool {
	return s == EMIActive || s == EMICompleted
}

// Validate checks a submitted transaction and reports every failing field.
func (t Transaction) Validate() error {
	errs := FieldErrors{}
	if strings.TrimSpace(t.Description) == "" {
		errs.Add("description", ErrEmptyDescription.Error())
	} else if len(t.Description) > 200 {
		errs.Add("description", "description too long (max 200 characters)")
	}
	if strings.TrimSpace(t.Category) == "" {
		errs.Add("category", ErrEmptyCategory.Error())
	}
	if !t.Type.Valid() {
		errs.Add("type", ErrInvalidType.Error())
	}
	if !t.Scope.Valid() {
		errs.Add("scope", ErrInvalidScope.Error())
	}
	if err := t.Amount.Validate(); err != nil {
		errs.Add("amount", err.Error())
	}
	if err := t.Date.Validate(); err != nil {
		errs.Add("date", err.Error())
	}
	return errs.Err()
}

// HasScope reports whether the category is offered in scope s.
func (c Category) HasScope(s Scope) bool {
	for _, v := range c.Scopes {
		if v == s {
			return true
		}
	}
	return false
}
