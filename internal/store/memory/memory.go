package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"kharcha/internal/category"
	"kharcha/internal/core"
	"kharcha/internal/store"
)

var _ store.Repository = (*Store)(nil)

// Store keeps everything in process memory. Values are copied on the way in
// and out so callers never share slices with the store.
type Store struct {
	mu     sync.Mutex
	txs    []core.Transaction
	cats   []core.Category
	emis   []core.EMI
	budget core.FamilyBudget
}

func New(cats []core.Category) *Store {
	return &Store{cats: dedupe(cats)}
}

// NewFromFiles seeds the built-in categories from base/seed_categories.txt,
// one "type|name|scopes|color|icon" entry per line. Without the file the
// stock catalogue is used.
func NewFromFiles(base string) *Store {
	cats := parseCategories(readLines(filepath.Join(base, "seed_categories.txt")))
	if len(cats) == 0 {
		cats = category.Defaults()
	}
	return New(cats)
}

func (s *Store) Close() error { return nil }

func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.txs...), nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.txs {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Transaction{}, notFound("transaction", id)
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = append(s.txs, t)
	return nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.txs {
		if s.txs[i].ID == t.ID {
			s.txs[i] = t
			return nil
		}
	}
	return notFound("transaction", t.ID)
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.txs {
		if s.txs[i].ID == id {
			s.txs = append(s.txs[:i], s.txs[i+1:]...)
			return nil
		}
	}
	return notFound("transaction", id)
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Category, len(s.cats))
	for i, c := range s.cats {
		out[i] = copyCategory(c)
	}
	return out, nil
}

func (s *Store) GetCategory(_ context.Context, id string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cats {
		if c.ID == id {
			return copyCategory(c), nil
		}
	}
	return core.Category{}, notFound("category", id)
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cats = append(s.cats, copyCategory(c))
	return nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cats {
		if s.cats[i].ID == c.ID {
			s.cats[i] = copyCategory(c)
			return nil
		}
	}
	return notFound("category", c.ID)
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cats {
		if s.cats[i].ID == id {
			s.cats = append(s.cats[:i], s.cats[i+1:]...)
			return nil
		}
	}
	return notFound("category", id)
}

func (s *Store) ListEMIs(_ context.Context) ([]core.EMI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.EMI(nil), s.emis...), nil
}

func (s *Store) GetEMI(_ context.Context, id string) (core.EMI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.emis {
		if e.ID == id {
			return e, nil
		}
	}
	return core.EMI{}, notFound("emi", id)
}

func (s *Store) CreateEMI(_ context.Context, e core.EMI) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emis = append(s.emis, e)
	return nil
}

func (s *Store) UpdateEMI(_ context.Context, e core.EMI) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.emis {
		if s.emis[i].ID == e.ID {
			s.emis[i] = e
			return nil
		}
	}
	return notFound("emi", e.ID)
}

func (s *Store) GetBudget(_ context.Context) (core.FamilyBudget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyBudget(s.budget), nil
}

func (s *Store) SaveBudget(_ context.Context, b core.FamilyBudget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budget = copyBudget(b)
	return nil
}

func notFound(entity, id string) error {
	return fmt.Errorf("%s %q: %w", entity, id, core.ErrNotFound)
}

func copyCategory(c core.Category) core.Category {
	c.Scopes = append([]core.Scope(nil), c.Scopes...)
	return c
}

func copyBudget(b core.FamilyBudget) core.FamilyBudget {
	b.Categories = append([]core.BudgetCategory(nil), b.Categories...)
	return b
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

// parseCategories skips lines with an unknown type or no valid scope.
func parseCategories(lines []string) []core.Category {
	var out []core.Category
	for _, line := range lines {
		parts := strings.Split(line, "|")
		for len(parts) < 5 {
			parts = append(parts, "")
		}
		typ := core.TransactionType(strings.TrimSpace(parts[0]))
		name := strings.TrimSpace(parts[1])
		if !typ.Valid() || name == "" {
			continue
		}
		var scopes []core.Scope
		for _, raw := range strings.Split(parts[2], ",") {
			if sc := core.Scope(strings.TrimSpace(raw)); sc.Valid() {
				scopes = append(scopes, sc)
			}
		}
		if len(scopes) == 0 {
			continue
		}
		out = append(out, core.Category{
			ID:        "default-" + string(typ) + "-" + slug(name),
			Name:      name,
			Type:      typ,
			Scopes:    scopes,
			Color:     strings.TrimSpace(parts[3]),
			Icon:      strings.TrimSpace(parts[4]),
			IsDefault: true,
		})
	}
	return out
}

func slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}

// dedupe keeps the first category of each type and name, in input order.
func dedupe(in []core.Category) []core.Category {
	seen := map[string]struct{}{}
	out := make([]core.Category, 0, len(in))
	for _, c := range in {
		key := string(c.Type) + "|" + strings.ToLower(strings.TrimSpace(c.Name))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, copyCategory(c))
	}
	return out
}
