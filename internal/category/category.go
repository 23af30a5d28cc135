// Package category resolves display descriptors for category names and
// enforces the rules of the category catalogue.
package category

import (
	"errors"
	"strings"

	"kharcha/internal/core"
)

// ErrDefaultCategory is returned when a built-in category would be changed.
var ErrDefaultCategory = errors.New("default categories cannot be modified")

// Descriptor is what a transaction row needs to render its category.
type Descriptor struct {
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

// Resolve finds the category with the given name and type. Unknown names get
// the neutral descriptor.
func Resolve(categories []core.Category, name string, typ core.TransactionType) Descriptor {
	for _, c := range categories {
		if c.Name == name && c.Type == typ {
			return descriptorOf(c)
		}
	}
	return Descriptor{Color: core.NeutralColor, Icon: core.NeutralIcon}
}

func descriptorOf(c core.Category) Descriptor {
	d := Descriptor{Color: c.Color, Icon: c.Icon}
	if d.Color == "" {
		d.Color = core.NeutralColor
	}
	if d.Icon == "" {
		d.Icon = core.NeutralIcon
	}
	return d
}

// Split returns the categories of typ available in scope, built-in ones first.
func Split(categories []core.Category, typ core.TransactionType, scope core.Scope) (defaults, user []core.Category) {
	for _, c := range categories {
		if c.Type != typ || !c.HasScope(scope) {
			continue
		}
		if c.IsDefault {
			defaults = append(defaults, c)
		} else {
			user = append(user, c)
		}
	}
	return defaults, user
}

// Count is the number of categories of typ available in scope.
func Count(categories []core.Category, typ core.TransactionType, scope core.Scope) int {
	n := 0
	for _, c := range categories {
		if c.Type == typ && c.HasScope(scope) {
			n++
		}
	}
	return n
}

// CheckMutable rejects changes to built-in categories.
func CheckMutable(c core.Category) error {
	if c.IsDefault {
		return ErrDefaultCategory
	}
	return nil
}

// Validate checks a user category against the rest of the catalogue. A
// category being edited is matched by ID and does not conflict with itself.
func Validate(c core.Category, existing []core.Category) error {
	errs := core.FieldErrors{}
	name := strings.TrimSpace(c.Name)
	if name == "" {
		errs.Add("name", "Category name is required")
	}
	if !c.Type.Valid() {
		errs.Add("type", "Type must be income or expense")
	}
	if len(c.Scopes) == 0 {
		errs.Add("scopes", "Select at least one scope")
	}
	for _, s := range c.Scopes {
		if !s.Valid() {
			errs.Add("scopes", "Scope must be personal or family")
			break
		}
	}
	if name != "" {
		for _, o := range existing {
			if o.ID != c.ID && o.Type == c.Type && strings.EqualFold(o.Name, name) {
				errs.Add("name", "A category with this name already exists")
				break
			}
		}
	}
	return errs.Err()
}

// Defaults is the built-in catalogue seeded into an empty store.
func Defaults() []core.Category {
	both := []core.Scope{core.Personal, core.Family}
	return []core.Category{
		{ID: "default-food", Name: "Food & Dining", Type: core.Expense, Scopes: both, Color: "#EF4444", Icon: "Utensils", IsDefault: true},
		{ID: "default-groceries", Name: "Groceries", Type: core.Expense, Scopes: both, Color: "#10B981", Icon: "ShoppingCart", IsDefault: true},
		{ID: "default-transport", Name: "Transportation", Type: core.Expense, Scopes: both, Color: "#F59E0B", Icon: "Car", IsDefault: true},
		{ID: "default-utilities", Name: "Utilities", Type: core.Expense, Scopes: []core.Scope{core.Family}, Color: "#6366F1", Icon: "Zap", IsDefault: true},
		{ID: "default-housing", Name: "Housing", Type: core.Expense, Scopes: []core.Scope{core.Family}, Color: "#8B5CF6", Icon: "Home", IsDefault: true},
		{ID: "default-health", Name: "Healthcare", Type: core.Expense, Scopes: both, Color: "#EC4899", Icon: "Heart", IsDefault: true},
		{ID: "default-entertainment", Name: "Entertainment", Type: core.Expense, Scopes: []core.Scope{core.Personal}, Color: "#F97316", Icon: "Film", IsDefault: true},
		{ID: "default-salary", Name: "Salary", Type: core.Income, Scopes: both, Color: "#3B82F6", Icon: "Briefcase", IsDefault: true},
		{ID: "default-freelance", Name: "Freelance", Type: core.Income, Scopes: []core.Scope{core.Personal}, Color: "#14B8A6", Icon: "Laptop", IsDefault: true},
		{ID: "default-investments", Name: "Investments", Type: core.Income, Scopes: both, Color: "#22C55E", Icon: "TrendingUp", IsDefault: true},
	}
}
