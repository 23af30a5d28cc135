package category

import (
	"errors"
	"testing"

	"kharcha/internal/core"
)

func catalogue() []core.Category {
	return append(Defaults(),
		core.Category{ID: "u1", Name: "Pets", Type: core.Expense, Scopes: []core.Scope{core.Family}, Color: "#AAAAAA", Icon: "Dog"},
		core.Category{ID: "u2", Name: "Gifts", Type: core.Expense, Scopes: []core.Scope{core.Personal}},
		core.Category{ID: "u3", Name: "Rental", Type: core.Income, Scopes: []core.Scope{core.Family}},
	)
}

func TestResolve(t *testing.T) {
	cats := catalogue()
	tests := []struct {
		name string
		cat  string
		typ  core.TransactionType
		want Descriptor
	}{
		{"known", "Groceries", core.Expense, Descriptor{"#10B981", "ShoppingCart"}},
		{"user category", "Pets", core.Expense, Descriptor{"#AAAAAA", "Dog"}},
		{"blank descriptor fields", "Gifts", core.Expense, Descriptor{core.NeutralColor, core.NeutralIcon}},
		{"wrong type", "Groceries", core.Income, Descriptor{core.NeutralColor, core.NeutralIcon}},
		{"unknown", "Space travel", core.Expense, Descriptor{core.NeutralColor, core.NeutralIcon}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(cats, tt.cat, tt.typ); got != tt.want {
				t.Errorf("Resolve() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSplitAndCount(t *testing.T) {
	cats := catalogue()
	defaults, user := Split(cats, core.Expense, core.Family)
	for _, c := range defaults {
		if !c.IsDefault || c.Type != core.Expense || !c.HasScope(core.Family) {
			t.Errorf("unexpected default %+v", c)
		}
	}
	if len(user) != 1 || user[0].Name != "Pets" {
		t.Errorf("user = %+v", user)
	}
	if got := Count(cats, core.Expense, core.Family); got != len(defaults)+len(user) {
		t.Errorf("Count() = %d, want %d", got, len(defaults)+len(user))
	}
	if got := Count(cats, core.Income, core.Personal); got != 3 {
		t.Errorf("Count(income, personal) = %d, want 3", got)
	}
}

func TestCheckMutable(t *testing.T) {
	if err := CheckMutable(Defaults()[0]); !errors.Is(err, ErrDefaultCategory) {
		t.Errorf("expected ErrDefaultCategory, got %v", err)
	}
	if err := CheckMutable(core.Category{Name: "Pets"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cats := catalogue()
	tests := []struct {
		name   string
		cat    core.Category
		fields []string
	}{
		{"valid", core.Category{Name: "Books", Type: core.Expense, Scopes: []core.Scope{core.Personal}}, nil},
		{"same name other type", core.Category{Name: "Pets", Type: core.Income, Scopes: []core.Scope{core.Family}}, nil},
		{"edit keeps own name", core.Category{ID: "u1", Name: "Pets", Type: core.Expense, Scopes: []core.Scope{core.Family}}, nil},
		{"duplicate ignoring case", core.Category{Name: "groceries", Type: core.Expense, Scopes: []core.Scope{core.Family}}, []string{"name"}},
		{"blank name", core.Category{Name: "  ", Type: core.Expense, Scopes: []core.Scope{core.Family}}, []string{"name"}},
		{"bad type and no scope", core.Category{Name: "X", Type: "transfer"}, []string{"type", "scopes"}},
		{"bad scope", core.Category{Name: "X", Type: core.Expense, Scopes: []core.Scope{"office"}}, []string{"scopes"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.cat, cats)
			if len(tt.fields) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var fe core.FieldErrors
			if !errors.As(err, &fe) {
				t.Fatalf("expected FieldErrors, got %v", err)
			}
			if len(fe) != len(tt.fields) {
				t.Errorf("got fields %v, want %v", fe, tt.fields)
			}
			for _, f := range tt.fields {
				if _, ok := fe[f]; !ok {
					t.Errorf("missing error for %q in %v", f, fe)
				}
			}
		})
	}
}
