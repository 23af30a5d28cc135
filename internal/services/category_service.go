package services

import (
	"context"
	"fmt"
	"strings"

	"kharcha/internal/amqp"
	"kharcha/internal/category"
	"kharcha/internal/core"
	"kharcha/internal/log"
	"kharcha/internal/store"
)

// CategoryListing is the categories screen for one type and scope.
type CategoryListing struct {
	Defaults []core.Category `json:"defaults"`
	User     []core.Category `json:"user"`
	Count    int             `json:"count"`
}

// CategoryService manages user categories. Built-in categories are read-only.
type CategoryService struct {
	repo       store.CategoryRepository
	publisher  Publisher
	invalidate func()
	logger     *log.Logger
}

// NewCategoryService wires a category service. invalidate, when set, runs
// after every write so dependent caches see the change.
func NewCategoryService(repo store.CategoryRepository, publisher Publisher, invalidate func(), logger *log.Logger) *CategoryService {
	return &CategoryService{
		repo:       repo,
		publisher:  publisher,
		invalidate: invalidate,
		logger:     componentLogger(logger, log.ComponentCategory),
	}
}

func (s *CategoryService) List(ctx context.Context, typ core.TransactionType, scope core.Scope) (CategoryListing, error) {
	if !typ.Valid() {
		return CategoryListing{}, &core.InvalidInputError{Field: "type", Reason: "must be income or expense"}
	}
	if !scope.Valid() {
		return CategoryListing{}, &core.InvalidInputError{Field: "scope", Reason: "must be personal or family"}
	}
	cats, err := s.repo.ListCategories(ctx)
	if err != nil {
		return CategoryListing{}, fmt.Errorf("list categories: %w", err)
	}
	defaults, user := category.Split(cats, typ, scope)
	return CategoryListing{
		Defaults: defaults,
		User:     user,
		Count:    category.Count(cats, typ, scope),
	}, nil
}

func (s *CategoryService) Create(ctx context.Context, c core.Category) (core.Category, error) {
	c.ID = newID()
	c.IsDefault = false
	c.Name = strings.TrimSpace(c.Name)
	if err := s.validate(ctx, c); err != nil {
		return core.Category{}, err
	}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return core.Category{}, fmt.Errorf("save category: %w", err)
	}
	s.changed(ctx, c.ID, amqp.OpCreated)
	return c, nil
}

// Update replaces a user category. Built-in categories yield
// category.ErrDefaultCategory.
func (s *CategoryService) Update(ctx context.Context, id string, c core.Category) (core.Category, error) {
	existing, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, err
	}
	if err := category.CheckMutable(existing); err != nil {
		return core.Category{}, err
	}
	c.ID = id
	c.IsDefault = false
	c.Name = strings.TrimSpace(c.Name)
	if err := s.validate(ctx, c); err != nil {
		return core.Category{}, err
	}
	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	s.changed(ctx, id, amqp.OpUpdated)
	return c, nil
}

func (s *CategoryService) Delete(ctx context.Context, id string) error {
	existing, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	if err := category.CheckMutable(existing); err != nil {
		return err
	}
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	s.changed(ctx, id, amqp.OpDeleted)
	return nil
}

func (s *CategoryService) validate(ctx context.Context, c core.Category) error {
	existing, err := s.repo.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	return category.Validate(c, existing)
}

func (s *CategoryService) changed(ctx context.Context, id, op string) {
	if s.invalidate != nil {
		s.invalidate()
	}
	s.logger.InfoContext(ctx, "Category changed", log.FieldID, id, log.FieldOperation, op)
	publishChange(ctx, s.publisher, s.logger, EntityCategory, id, op)
}
