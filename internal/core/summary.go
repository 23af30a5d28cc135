package core

// BudgetCategory is one slice of the family's monthly budget.
type BudgetCategory struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Budget Money  `json:"budget"`
	Spent  Money  `json:"spent"`
	Color  string `json:"color"`
}

// FamilyBudget is the shared monthly spending plan.
type FamilyBudget struct {
	Monthly    Money            `json:"monthly"`
	Categories []BudgetCategory `json:"categories"`
}
