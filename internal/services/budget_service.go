package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"kharcha/internal/amqp"
	"kharcha/internal/budget"
	"kharcha/internal/core"
	"kharcha/internal/log"
	"kharcha/internal/query"
	"kharcha/internal/store"
)

// BudgetView is the family budget with this month's spending filled in.
type BudgetView struct {
	core.FamilyBudget
	Allocated core.Money `json:"allocated"`
	Remaining core.Money `json:"remaining"`
	Spent     core.Money `json:"spent"`
	// UsedPercent is Spent against Monthly; see budget.UsedPercent.
	UsedPercent decimal.Decimal `json:"used_percent"`
	NearLimit   bool            `json:"near_limit"`
}

// BudgetRepository is the storage a BudgetService needs.
type BudgetRepository interface {
	store.BudgetRepository
	store.TransactionRepository
}

type BudgetService struct {
	repo      BudgetRepository
	publisher Publisher
	clock     Clock
	logger    *log.Logger
}

func NewBudgetService(repo BudgetRepository, publisher Publisher, clock Clock, logger *log.Logger) *BudgetService {
	return &BudgetService{
		repo:      repo,
		publisher: publisher,
		clock:     clock,
		logger:    componentLogger(logger, log.ComponentBudget),
	}
}

// Get returns the budget. Each category's Spent is the sum of this month's
// family expenses filed under a category of the same name.
func (s *BudgetService) Get(ctx context.Context) (BudgetView, error) {
	var (
		b   core.FamilyBudget
		txs []core.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		b, err = s.repo.GetBudget(gctx)
		if err != nil {
			return fmt.Errorf("get budget: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		txs, err = s.repo.ListTransactions(gctx)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return BudgetView{}, err
	}

	c := query.DefaultCriteria()
	c.Scope = string(core.Family)
	month, err := query.Filter(txs, c, s.clock.now())
	if err != nil {
		return BudgetView{}, err
	}
	spent := make(map[string]core.Money)
	total := core.Zero
	for _, t := range month {
		if t.Type != core.Expense {
			continue
		}
		key := strings.ToLower(t.Category)
		if v, ok := spent[key]; ok {
			spent[key] = v.Add(t.Amount)
		} else {
			spent[key] = t.Amount
		}
		total = total.Add(t.Amount)
	}

	cats := make([]core.BudgetCategory, len(b.Categories))
	for i, bc := range b.Categories {
		bc.Spent = core.Zero
		if v, ok := spent[strings.ToLower(bc.Name)]; ok {
			bc.Spent = v
		}
		cats[i] = bc
	}
	b.Categories = cats

	used := budget.UsedPercent(total, b.Monthly)
	return BudgetView{
		FamilyBudget: b,
		Allocated:    budget.Allocated(b),
		Remaining:    budget.Remaining(b),
		Spent:        total,
		UsedPercent:  used,
		NearLimit:    budget.NearLimit(used),
	}, nil
}

// Save replaces the budget. Categories without an id get one.
func (s *BudgetService) Save(ctx context.Context, b core.FamilyBudget) (BudgetView, error) {
	b = budget.Normalize(b)
	if err := budget.Validate(b); err != nil {
		return BudgetView{}, err
	}
	for i := range b.Categories {
		if b.Categories[i].ID == "" {
			b.Categories[i].ID = newID()
		}
		b.Categories[i].Spent = core.Zero
	}
	if err := s.repo.SaveBudget(ctx, b); err != nil {
		return BudgetView{}, fmt.Errorf("save budget: %w", err)
	}
	s.logger.InfoContext(ctx, "Family budget saved",
		log.FieldAmount, b.Monthly.String(),
		log.FieldCount, len(b.Categories))
	publishChange(ctx, s.publisher, s.logger, EntityBudget, "family", amqp.OpUpdated)
	return s.Get(ctx)
}
