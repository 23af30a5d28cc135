// Package store declares the persistence ports the services depend on.
package store

import (
	"context"

	"kharcha/internal/core"
)

// Ports for outbound adapters. Get, Update and Delete return an error
// matching core.ErrNotFound when the id is unknown.
type (
	TransactionRepository interface {
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
		CreateTransaction(ctx context.Context, t core.Transaction) error
		UpdateTransaction(ctx context.Context, t core.Transaction) error
		DeleteTransaction(ctx context.Context, id string) error
	}

	CategoryRepository interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
		GetCategory(ctx context.Context, id string) (core.Category, error)
		CreateCategory(ctx context.Context, c core.Category) error
		UpdateCategory(ctx context.Context, c core.Category) error
		DeleteCategory(ctx context.Context, id string) error
	}

	EMIRepository interface {
		ListEMIs(ctx context.Context) ([]core.EMI, error)
		GetEMI(ctx context.Context, id string) (core.EMI, error)
		CreateEMI(ctx context.Context, e core.EMI) error
		UpdateEMI(ctx context.Context, e core.EMI) error
	}

	// BudgetRepository holds the single family budget. An unset budget reads
	// as the zero value.
	BudgetRepository interface {
		GetBudget(ctx context.Context) (core.FamilyBudget, error)
		SaveBudget(ctx context.Context, b core.FamilyBudget) error
	}

	// Repository is everything a backend provides.
	Repository interface {
		TransactionRepository
		CategoryRepository
		EMIRepository
		BudgetRepository
		Close() error
	}
)
