package services

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"kharcha/internal/amqp"
	"kharcha/internal/cache"
	"kharcha/internal/category"
	"kharcha/internal/core"
	"kharcha/internal/log"
	"kharcha/internal/query"
	"kharcha/internal/store"
)

const snapshotKey = "ledger"

// snapshot is the data every transactions screen is computed from.
type snapshot struct {
	transactions []core.Transaction
	categories   []core.Category
}

// LedgerView is the transactions screen plus a descriptor for every
// category it shows, keyed by DescriptorKey.
type LedgerView struct {
	query.View
	Descriptors map[string]category.Descriptor `json:"descriptors"`
	Members     []core.Member                  `json:"members"`
}

// DescriptorKey keys LedgerView.Descriptors.
func DescriptorKey(typ core.TransactionType, name string) string {
	return string(typ) + ":" + name
}

// LedgerRepository is the storage a LedgerService needs.
type LedgerRepository interface {
	store.TransactionRepository
	store.CategoryRepository
}

// LedgerService handles transaction writes and the filtered, grouped
// transactions view. Reads go through an LRU cache purged on every write.
type LedgerService struct {
	repo      LedgerRepository
	publisher Publisher
	cache     cache.Cache[snapshot]
	clock     Clock
	members   []core.Member
	logger    *log.Logger

	// generation is bumped by every write. Snapshots are cached under the
	// generation they were loaded in, so a load that raced a write can
	// only fill a key nobody reads any more.
	generation atomic.Uint64
}

func NewLedgerService(repo LedgerRepository, publisher Publisher, c cache.Cache[snapshot], clock Clock, logger *log.Logger) *LedgerService {
	return &LedgerService{
		repo:      repo,
		publisher: publisher,
		cache:     c,
		clock:     clock,
		logger:    componentLogger(logger, log.ComponentLedger),
	}
}

// NewSnapshotCache builds the cache a LedgerService reads through.
func NewSnapshotCache(size int, ttl time.Duration) *cache.LRUCache[snapshot] {
	return cache.NewLRUCache[snapshot](size, ttl)
}

// SetMembers replaces the family members the member filter offers.
func (s *LedgerService) SetMembers(members []core.Member) {
	s.members = members
}

// Invalidate drops cached ledger data. Category writes call it.
func (s *LedgerService) Invalidate() {
	s.generation.Add(1)
	if s.cache != nil {
		s.cache.Purge()
	}
}

func (s *LedgerService) load(ctx context.Context) (snapshot, error) {
	key := snapshotKey + ":" + strconv.FormatUint(s.generation.Load(), 10)
	if s.cache != nil {
		if snap, ok := s.cache.Get(key); ok {
			return snap, nil
		}
	}

	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		txs, err := s.repo.ListTransactions(gctx)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		snap.transactions = txs
		return nil
	})
	g.Go(func() error {
		cats, err := s.repo.ListCategories(gctx)
		if err != nil {
			return fmt.Errorf("list categories: %w", err)
		}
		snap.categories = cats
		return nil
	})
	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}

	if s.cache != nil {
		s.cache.Set(key, snap)
	}
	return snap, nil
}

// View filters, groups and totals the ledger for c.
func (s *LedgerService) View(ctx context.Context, c query.Criteria) (LedgerView, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return LedgerView{}, err
	}
	v, err := query.Build(snap.transactions, c, s.clock.now())
	if err != nil {
		return LedgerView{}, err
	}

	descriptors := make(map[string]category.Descriptor)
	for _, d := range v.Days {
		for _, t := range d.Transactions {
			key := DescriptorKey(t.Type, t.Category)
			if _, ok := descriptors[key]; !ok {
				descriptors[key] = category.Resolve(snap.categories, t.Category, t.Type)
			}
		}
	}

	s.logger.DebugContext(ctx, "Built transactions view",
		log.FieldCount, v.Count,
		log.FieldActiveFilters, v.ActiveFilters)
	return LedgerView{
		View:        v,
		Descriptors: descriptors,
		Members:     query.MemberOptions(s.members),
	}, nil
}

// CategoryOptions lists the categories the filter sheet offers.
func (s *LedgerService) CategoryOptions(ctx context.Context) ([]query.CategoryOption, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return query.AvailableCategories(snap.transactions, snap.categories), nil
}

// Create stores t under a new id.
func (s *LedgerService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = newID()
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.repo.CreateTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.Invalidate()
	s.logger.InfoContext(ctx, "Transaction created", log.NewFields().WithTransaction(t).ToSlice()...)
	publishChange(ctx, s.publisher, s.logger, EntityTransaction, t.ID, amqp.OpCreated)
	return t, nil
}

// Update replaces the transaction with the given id.
func (s *LedgerService) Update(ctx context.Context, id string, t core.Transaction) (core.Transaction, error) {
	t.ID = id
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.repo.UpdateTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	s.Invalidate()
	publishChange(ctx, s.publisher, s.logger, EntityTransaction, id, amqp.OpUpdated)
	return t, nil
}

func (s *LedgerService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.Invalidate()
	publishChange(ctx, s.publisher, s.logger, EntityTransaction, id, amqp.OpDeleted)
	return nil
}
