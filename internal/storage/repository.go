package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"kharcha/internal/category"
	"kharcha/internal/core"
	"kharcha/internal/store"

	_ "modernc.org/sqlite"
)

var _ store.Repository = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath,
// migrates it and seeds the built-in categories into an empty catalogue.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	repo := &SQLiteRepository{db: db}
	if err := repo.seedCategories(context.Background(), category.Defaults()); err != nil {
		db.Close()
		return nil, err
	}

	slog.Info("SQLite repository ready", "db_path", dbPath, "schema_version", version)
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) seedCategories(ctx context.Context, defaults []core.Category) error {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&n); err != nil {
		return fmt.Errorf("count categories: %w", err)
	}
	if n > 0 {
		return nil
	}
	for _, c := range defaults {
		if err := r.CreateCategory(ctx, c); err != nil {
			return fmt.Errorf("seed category %s: %w", c.Name, err)
		}
	}
	slog.InfoContext(ctx, "Seeded default categories", "count", len(defaults))
	return nil
}

// Transactions

const transactionColumns = `id, description, category, type, scope, amount, date`

func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+transactionColumns+` FROM transactions ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, notFound("transaction", id)
	}
	return t, err
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Description, t.Category, string(t.Type), string(t.Scope), t.Amount.Value.String(), t.Date.String())
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	slog.DebugContext(ctx, "Transaction saved to SQLite", "id", t.ID, "amount", t.Amount.String())
	return nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET description = ?, category = ?, type = ?, scope = ?, amount = ?, date = ? WHERE id = ?`,
		t.Description, t.Category, string(t.Type), string(t.Scope), t.Amount.Value.String(), t.Date.String(), t.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return expectOne(res, "transaction", t.ID)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return expectOne(res, "transaction", id)
}

// Categories

const categoryColumns = `id, name, type, scopes, color, icon, is_default`

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id string) (core.Category, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, notFound("category", id)
	}
	return c, err
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (`+categoryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, string(c.Type), joinScopes(c.Scopes), c.Color, c.Icon, c.IsDefault)
	if err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, type = ?, scopes = ?, color = ?, icon = ?, is_default = ? WHERE id = ?`,
		c.Name, string(c.Type), joinScopes(c.Scopes), c.Color, c.Icon, c.IsDefault, c.ID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return expectOne(res, "category", c.ID)
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return expectOne(res, "category", id)
}

// EMIs

const emiColumns = `id, name, principal, interest_rate, tenure, monthly_amount, start_date,
	next_due_date, total_paid, remaining_amount, status`

func (r *SQLiteRepository) ListEMIs(ctx context.Context) ([]core.EMI, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+emiColumns+` FROM emis ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list emis: %w", err)
	}
	defer rows.Close()

	var out []core.EMI
	for rows.Next() {
		e, err := scanEMI(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list emis: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetEMI(ctx context.Context, id string) (core.EMI, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+emiColumns+` FROM emis WHERE id = ?`, id)
	e, err := scanEMI(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.EMI{}, notFound("emi", id)
	}
	return e, err
}

func (r *SQLiteRepository) CreateEMI(ctx context.Context, e core.EMI) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO emis (`+emiColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Name, e.Principal.Value.String(), e.InterestRate.String(), e.Tenure,
		e.MonthlyAmount.Value.String(), e.StartDate.String(), e.NextDueDate.String(),
		e.TotalPaid.Value.String(), e.RemainingAmount.Value.String(), string(e.Status))
	if err != nil {
		return fmt.Errorf("create emi: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateEMI(ctx context.Context, e core.EMI) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE emis SET name = ?, principal = ?, interest_rate = ?, tenure = ?, monthly_amount = ?,
			start_date = ?, next_due_date = ?, total_paid = ?, remaining_amount = ?, status = ?
		WHERE id = ?`,
		e.Name, e.Principal.Value.String(), e.InterestRate.String(), e.Tenure,
		e.MonthlyAmount.Value.String(), e.StartDate.String(), e.NextDueDate.String(),
		e.TotalPaid.Value.String(), e.RemainingAmount.Value.String(), string(e.Status), e.ID)
	if err != nil {
		return fmt.Errorf("update emi: %w", err)
	}
	return expectOne(res, "emi", e.ID)
}

// Budget

func (r *SQLiteRepository) GetBudget(ctx context.Context) (core.FamilyBudget, error) {
	var b core.FamilyBudget
	var monthly string
	err := r.db.QueryRowContext(ctx, `SELECT monthly FROM family_budget WHERE id = 1`).Scan(&monthly)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return b, nil
	case err != nil:
		return b, fmt.Errorf("get budget: %w", err)
	}
	if b.Monthly, err = parseMoney(monthly); err != nil {
		return b, err
	}

	rows, err := r.db.QueryContext(ctx, `SELECT id, name, budget, spent, color FROM budget_categories ORDER BY position`)
	if err != nil {
		return b, fmt.Errorf("get budget categories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c core.BudgetCategory
		var amount, spent string
		if err := rows.Scan(&c.ID, &c.Name, &amount, &spent, &c.Color); err != nil {
			return b, fmt.Errorf("scan budget category: %w", err)
		}
		if c.Budget, err = parseMoney(amount); err != nil {
			return b, err
		}
		if c.Spent, err = parseMoney(spent); err != nil {
			return b, err
		}
		b.Categories = append(b.Categories, c)
	}
	if err := rows.Err(); err != nil {
		return b, fmt.Errorf("get budget categories: %w", err)
	}
	return b, nil
}

// SaveBudget replaces the stored budget atomically.
func (r *SQLiteRepository) SaveBudget(ctx context.Context, b core.FamilyBudget) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin budget transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO family_budget (id, monthly) VALUES (1, ?) ON CONFLICT(id) DO UPDATE SET monthly = excluded.monthly`,
		b.Monthly.Value.String()); err != nil {
		return fmt.Errorf("save budget: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM budget_categories`); err != nil {
		return fmt.Errorf("clear budget categories: %w", err)
	}
	for i, c := range b.Categories {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO budget_categories (position, id, name, budget, spent, color) VALUES (?, ?, ?, ?, ?, ?)`,
			i, c.ID, c.Name, c.Budget.Value.String(), c.Spent.Value.String(), c.Color); err != nil {
			return fmt.Errorf("save budget category %s: %w", c.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit budget: %w", err)
	}
	return nil
}

// helpers

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var t core.Transaction
	var typ, scope, amount, date string
	if err := s.Scan(&t.ID, &t.Description, &t.Category, &typ, &scope, &amount, &date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, err
		}
		return t, fmt.Errorf("scan transaction: %w", err)
	}
	t.Type = core.TransactionType(typ)
	t.Scope = core.Scope(scope)
	var err error
	if t.Amount, err = parseMoney(amount); err != nil {
		return t, err
	}
	if t.Date, err = core.ParseDate(date); err != nil {
		return t, fmt.Errorf("transaction %s: %w", t.ID, err)
	}
	return t, nil
}

func scanCategory(s scanner) (core.Category, error) {
	var c core.Category
	var typ, scopes string
	if err := s.Scan(&c.ID, &c.Name, &typ, &scopes, &c.Color, &c.Icon, &c.IsDefault); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c, err
		}
		return c, fmt.Errorf("scan category: %w", err)
	}
	c.Type = core.TransactionType(typ)
	c.Scopes = splitScopes(scopes)
	return c, nil
}

func scanEMI(s scanner) (core.EMI, error) {
	var e core.EMI
	var principal, rate, monthly, start, next, paid, remaining, status string
	if err := s.Scan(&e.ID, &e.Name, &principal, &rate, &e.Tenure, &monthly, &start,
		&next, &paid, &remaining, &status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, err
		}
		return e, fmt.Errorf("scan emi: %w", err)
	}
	e.Status = core.EMIStatus(status)

	var err error
	if e.InterestRate, err = decimal.NewFromString(rate); err != nil {
		return e, fmt.Errorf("emi %s interest rate: %w", e.ID, err)
	}
	for _, f := range []struct {
		dst *core.Money
		src string
	}{
		{&e.Principal, principal},
		{&e.MonthlyAmount, monthly},
		{&e.TotalPaid, paid},
		{&e.RemainingAmount, remaining},
	} {
		if *f.dst, err = parseMoney(f.src); err != nil {
			return e, fmt.Errorf("emi %s: %w", e.ID, err)
		}
	}
	if e.StartDate, err = core.ParseDate(start); err != nil {
		return e, fmt.Errorf("emi %s start date: %w", e.ID, err)
	}
	if e.NextDueDate, err = core.ParseDate(next); err != nil {
		return e, fmt.Errorf("emi %s next due date: %w", e.ID, err)
	}
	return e, nil
}

func parseMoney(s string) (core.Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return core.Zero, fmt.Errorf("parse stored amount %q: %w", s, err)
	}
	return core.NewMoney(d), nil
}

func joinScopes(scopes []core.Scope) string {
	parts := make([]string, len(scopes))
	for i, s := range scopes {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}

func splitScopes(s string) []core.Scope {
	var out []core.Scope
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, core.Scope(p))
		}
	}
	return out
}

func expectOne(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %q rows affected: %w", entity, id, err)
	}
	if n == 0 {
		return notFound(entity, id)
	}
	return nil
}

func notFound(entity, id string) error {
	return fmt.Errorf("%s %q: %w", entity, id, core.ErrNotFound)
}
