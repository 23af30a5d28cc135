package budget

import (
	"errors"
	"testing"

	"kharcha/internal/core"
)

func plan(monthly string, cats ...core.BudgetCategory) core.FamilyBudget {
	return core.FamilyBudget{Monthly: core.MustMoney(monthly), Categories: cats}
}

func slice(name, amount string) core.BudgetCategory {
	return core.BudgetCategory{Name: name, Budget: core.MustMoney(amount)}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		budget  core.FamilyBudget
		wantErr error
		field   string
	}{
		{"valid", plan("50000", slice("Groceries", "15000"), slice("Utilities", "5000")), nil, ""},
		{"fully allocated", plan("20000", slice("Groceries", "15000"), slice("Utilities", "5000")), nil, ""},
		{"no categories", plan("1000"), nil, ""},
		{"zero monthly", plan("0"), core.ErrInvalidInput, "monthly"},
		{"blank name", plan("1000", slice(" ", "10")), core.ErrInvalidInput, "categories"},
		{"negative slice", plan("1000", slice("Food", "-1")), core.ErrInvalidInput, "categories"},
		{"exceeded by a paisa", plan("20000", slice("Groceries", "15000"), slice("Utilities", "5000.01")), ErrBudgetExceeded, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.budget)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.field != "" {
				var fe core.FieldErrors
				if !errors.As(err, &fe) || fe[tt.field] == "" {
					t.Errorf("expected message for %q, got %v", tt.field, err)
				}
			}
		})
	}
}

func TestRemaining(t *testing.T) {
	b := plan("50000", slice("Groceries", "15000.50"), slice("Utilities", "4999.25"))
	if got := Remaining(b).String(); got != "30000.25" {
		t.Errorf("Remaining() = %s, want 30000.25", got)
	}
	if got := Allocated(b).String(); got != "19999.75" {
		t.Errorf("Allocated() = %s, want 19999.75", got)
	}
}

func TestNormalize(t *testing.T) {
	b := plan("100", slice("  Groceries ", "10"))
	n := Normalize(b)
	if n.Categories[0].Name != "Groceries" {
		t.Errorf("name = %q", n.Categories[0].Name)
	}
	if b.Categories[0].Name != "  Groceries " {
		t.Errorf("input modified")
	}
}

func TestUsedPercent(t *testing.T) {
	tests := []struct {
		name      string
		spent     string
		monthly   string
		want      string
		nearLimit bool
	}{
		{"nothing spent", "0", "50000", "0", false},
		{"rounded to one place", "1300", "50000", "2.6", false},
		{"third", "100", "300", "33.3", false},
		{"at the threshold", "40000", "50000", "80", false},
		{"above the threshold", "40050", "50000", "80.1", true},
		{"overspent", "60000", "50000", "120", true},
		{"no budget", "500", "0", "0", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UsedPercent(core.MustMoney(tt.spent), core.MustMoney(tt.monthly))
			if got.String() != tt.want {
				t.Errorf("UsedPercent() = %s, want %s", got, tt.want)
			}
			if NearLimit(got) != tt.nearLimit {
				t.Errorf("NearLimit(%s) = %v, want %v", got, NearLimit(got), tt.nearLimit)
			}
		})
	}
}
