// Package catalog manages category groups, categories and rules: the
// user-editable taxonomy that drives both AI categorization and the local
// rule engine.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dfedorov/statement-desk/internal/domain"
	"github.com/dfedorov/statement-desk/internal/observability"
	"github.com/dfedorov/statement-desk/internal/rules"
)

// DefaultGroupName is the group auto-created for an owner with no groups.
const DefaultGroupName = "Default"

// Store is the persistence surface the service needs.
type Store interface {
	InsertGroup(ctx context.Context, ownerID string, g domain.CategoryGroup) error
	ListGroups(ctx context.Context, ownerID string) ([]domain.CategoryGroup, error)
	GetGroup(ctx context.Context, ownerID, id string) (*domain.CategoryGroup, error)
	ActiveGroup(ctx context.Context, ownerID string) (*domain.CategoryGroup, error)
	SetActiveGroup(ctx context.Context, ownerID, id string) error
	RenameGroup(ctx context.Context, ownerID, id, name string) error
	DeleteGroup(ctx context.Context, ownerID, id string) error
	InsertCategory(ctx context.Context, groupID string, c domain.CategoryItem) error
	UpdateCategory(ctx context.Context, c domain.CategoryItem) error
	DeleteCategory(ctx context.Context, categoryID string) error
	GroupForCategory(ctx context.Context, ownerID, categoryID string) (*domain.CategoryGroup, error)
	GroupForRule(ctx context.Context, ownerID, ruleID string) (*domain.CategoryGroup, string, error)
	InsertRule(ctx context.Context, categoryID string, r domain.CategoryRule) error
	UpdateRule(ctx context.Context, r domain.CategoryRule) error
	DeleteRule(ctx context.Context, ruleID string) error
}

// Service implements the catalog operations over a Store. Mutations that
// create near-duplicates return an advisory Warning alongside the result;
// only exact duplicates are refused.
type Service struct {
	store   Store
	checker rules.SimilarityChecker
	log     zerolog.Logger
}

// NewService creates a catalog service.
func NewService(store Store, checker rules.SimilarityChecker, log zerolog.Logger) *Service {
	return &Service{store: store, checker: checker, log: log}
}

// ListGroups returns the owner's groups. An owner with no groups gets a
// seeded active Default group created on first access, so the list is never
// empty.
func (s *Service) ListGroups(ctx context.Context, ownerID string) ([]domain.CategoryGroup, error) {
	groups, err := s.store.ListGroups(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(groups) > 0 {
		return groups, nil
	}

	g := s.newSeededGroup(DefaultGroupName, true)
	if err := s.store.InsertGroup(ctx, ownerID, g); err != nil {
		return nil, fmt.Errorf("seed default group: %w", err)
	}
	s.log.Info().Str("owner", ownerID).Str("group_id", g.ID).Msg("Seeded default category group")
	return []domain.CategoryGroup{g}, nil
}

// GetGroup returns one group.
func (s *Service) GetGroup(ctx context.Context, ownerID, id string) (*domain.CategoryGroup, error) {
	return s.store.GetGroup(ctx, ownerID, id)
}

// ActiveGroup returns the owner's active group, seeding the Default group
// when the owner has none at all.
func (s *Service) ActiveGroup(ctx context.Context, ownerID string) (*domain.CategoryGroup, error) {
	g, err := s.store.ActiveGroup(ctx, ownerID)
	if err == nil {
		return g, nil
	}
	groups, lerr := s.ListGroups(ctx, ownerID)
	if lerr != nil {
		return nil, lerr
	}
	for i := range groups {
		if groups[i].IsActive {
			return &groups[i], nil
		}
	}
	return nil, err
}

// CreateGroup creates a group seeded with the default categories. The
// owner's first group becomes active automatically.
func (s *Service) CreateGroup(ctx context.Context, ownerID, name string) (*domain.CategoryGroup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("group name is required: %w", domain.ErrInvalid)
	}

	existing, err := s.store.ListGroups(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for _, g := range existing {
		if strings.EqualFold(g.Name, name) {
			return nil, fmt.Errorf("group %q: %w", g.Name, domain.ErrConflict)
		}
	}

	g := s.newSeededGroup(name, len(existing) == 0)
	if err := s.store.InsertGroup(ctx, ownerID, g); err != nil {
		return nil, err
	}
	return &g, nil
}

// RenameGroup changes a group's name, refusing case-insensitive duplicates.
func (s *Service) RenameGroup(ctx context.Context, ownerID, id, name string) (*domain.CategoryGroup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("group name is required: %w", domain.ErrInvalid)
	}
	existing, err := s.store.ListGroups(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for _, g := range existing {
		if g.ID != id && strings.EqualFold(g.Name, name) {
			return nil, fmt.Errorf("group %q: %w", g.Name, domain.ErrConflict)
		}
	}
	if err := s.store.RenameGroup(ctx, ownerID, id, name); err != nil {
		return nil, err
	}
	return s.store.GetGroup(ctx, ownerID, id)
}

// ActivateGroup makes the given group the owner's active one.
func (s *Service) ActivateGroup(ctx context.Context, ownerID, id string) error {
	return s.store.SetActiveGroup(ctx, ownerID, id)
}

// DeleteGroup removes a group. When the active group is deleted and others
// remain, the oldest surviving group becomes active, preserving the
// one-active-group invariant.
func (s *Service) DeleteGroup(ctx context.Context, ownerID, id string) error {
	g, err := s.store.GetGroup(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteGroup(ctx, ownerID, id); err != nil {
		return err
	}
	if !g.IsActive {
		return nil
	}
	remaining, err := s.store.ListGroups(ctx, ownerID)
	if err != nil {
		return err
	}
	if len(remaining) == 0 {
		return nil
	}
	return s.store.SetActiveGroup(ctx, ownerID, remaining[0].ID)
}

// AddCategory appends a category to a group. Exact name duplicates are
// refused; near-duplicates succeed with an advisory warning.
func (s *Service) AddCategory(ctx context.Context, ownerID, groupID, name, description string) (*domain.CategoryItem, *rules.Warning, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil, fmt.Errorf("category name is required: %w", domain.ErrInvalid)
	}

	g, err := s.store.GetGroup(ctx, ownerID, groupID)
	if err != nil {
		return nil, nil, err
	}
	warning, err := s.checker.CheckName(name, categoryNames(g.Categories))
	if err != nil {
		return nil, nil, err
	}

	c := domain.CategoryItem{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(description),
		SortOrder:   nextSortOrder(g.Categories),
	}
	if err := s.store.InsertCategory(ctx, groupID, c); err != nil {
		return nil, nil, err
	}
	return &c, warning, nil
}

// CategoryPatch is a partial category update; nil fields are left unchanged.
type CategoryPatch struct {
	Name        *string
	Description *string
	SortOrder   *int
}

// UpdateCategory applies a partial update. The fallback category cannot be
// renamed, and no category can be renamed onto an existing name.
func (s *Service) UpdateCategory(ctx context.Context, ownerID, categoryID string, patch CategoryPatch) (*domain.CategoryItem, *rules.Warning, error) {
	g, err := s.store.GroupForCategory(ctx, ownerID, categoryID)
	if err != nil {
		return nil, nil, err
	}
	current, err := findCategory(g.Categories, categoryID)
	if err != nil {
		return nil, nil, err
	}

	var warning *rules.Warning
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, nil, fmt.Errorf("category name is required: %w", domain.ErrInvalid)
		}
		if current.IsFallback() && !strings.EqualFold(name, domain.FallbackCategory) {
			return nil, nil, fmt.Errorf("the %s category cannot be renamed: %w", domain.FallbackCategory, domain.ErrInvalid)
		}
		if !strings.EqualFold(name, current.Name) {
			warning, err = s.checker.CheckName(name, categoryNames(without(g.Categories, categoryID)))
			if err != nil {
				return nil, nil, err
			}
		}
		current.Name = name
	}
	if patch.Description != nil {
		current.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.SortOrder != nil {
		current.SortOrder = *patch.SortOrder
	}

	if err := s.store.UpdateCategory(ctx, current); err != nil {
		return nil, nil, err
	}
	return &current, warning, nil
}

// DeleteCategory removes a category and its rules. The fallback category is
// protected.
func (s *Service) DeleteCategory(ctx context.Context, ownerID, categoryID string) error {
	g, err := s.store.GroupForCategory(ctx, ownerID, categoryID)
	if err != nil {
		return err
	}
	c, err := findCategory(g.Categories, categoryID)
	if err != nil {
		return err
	}
	if c.IsFallback() {
		return fmt.Errorf("the %s category cannot be deleted: %w", domain.FallbackCategory, domain.ErrInvalid)
	}
	return s.store.DeleteCategory(ctx, categoryID)
}

// AddRule attaches a rule to a category. Exact pattern duplicates within the
// category are refused; overlaps and near-matches anywhere in the group
// succeed with an advisory.
func (s *Service) AddRule(ctx context.Context, ownerID, categoryID string, ruleType domain.RuleType, pattern string) (*domain.CategoryRule, *rules.Warning, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil, nil, fmt.Errorf("rule pattern is required: %w", domain.ErrInvalid)
	}
	if ruleType != domain.RuleInclude && ruleType != domain.RuleExclude {
		return nil, nil, fmt.Errorf("unknown rule type %q: %w", ruleType, domain.ErrInvalid)
	}

	g, err := s.store.GroupForCategory(ctx, ownerID, categoryID)
	if err != nil {
		return nil, nil, err
	}
	warning, err := s.checker.CheckPattern(pattern, categoryID, g.Categories)
	if err != nil {
		return nil, nil, err
	}

	r := domain.CategoryRule{
		ID:        uuid.NewString(),
		RuleType:  ruleType,
		Pattern:   pattern,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.InsertRule(ctx, categoryID, r); err != nil {
		return nil, nil, err
	}
	return &r, warning, nil
}

// RulePatch is a partial rule update; nil fields are left unchanged.
type RulePatch struct {
	RuleType *domain.RuleType
	Pattern  *string
}

// UpdateRule applies a partial update to a rule. A changed pattern goes
// through the same duplicate and similarity checks as a new one.
func (s *Service) UpdateRule(ctx context.Context, ownerID, ruleID string, patch RulePatch) (*domain.CategoryRule, *rules.Warning, error) {
	g, categoryID, err := s.store.GroupForRule(ctx, ownerID, ruleID)
	if err != nil {
		return nil, nil, err
	}
	current, err := findRule(g.Categories, ruleID)
	if err != nil {
		return nil, nil, err
	}

	var warning *rules.Warning
	if patch.RuleType != nil {
		if *patch.RuleType != domain.RuleInclude && *patch.RuleType != domain.RuleExclude {
			return nil, nil, fmt.Errorf("unknown rule type %q: %w", *patch.RuleType, domain.ErrInvalid)
		}
		current.RuleType = *patch.RuleType
	}
	if patch.Pattern != nil {
		pattern := strings.TrimSpace(*patch.Pattern)
		if pattern == "" {
			return nil, nil, fmt.Errorf("rule pattern is required: %w", domain.ErrInvalid)
		}
		if !strings.EqualFold(pattern, current.Pattern) {
			warning, err = s.checker.CheckPattern(pattern, categoryID, withoutRule(g.Categories, ruleID))
			if err != nil {
				return nil, nil, err
			}
		}
		current.Pattern = pattern
	}

	if err := s.store.UpdateRule(ctx, current); err != nil {
		return nil, nil, err
	}
	return &current, warning, nil
}

// DeleteRule removes one rule from a group the owner holds.
func (s *Service) DeleteRule(ctx context.Context, ownerID, ruleID string) error {
	if _, _, err := s.store.GroupForRule(ctx, ownerID, ruleID); err != nil {
		return err
	}
	return s.store.DeleteRule(ctx, ruleID)
}

// ApplyRules reruns rule resolution for the given transactions against a
// group (the active group when groupID is empty). The returned outcomes are
// positionally aligned with the input; applied counts how many came out
// rule-sourced.
func (s *Service) ApplyRules(ctx context.Context, ownerID, groupID string, transactions []domain.Transaction) ([]rules.Outcome, int, error) {
	var g *domain.CategoryGroup
	var err error
	if groupID == "" {
		g, err = s.ActiveGroup(ctx, ownerID)
	} else {
		g, err = s.store.GetGroup(ctx, ownerID, groupID)
	}
	if err != nil {
		return nil, 0, err
	}

	outcomes := rules.Reprocess(transactions, g.Categories)
	applied := 0
	for _, o := range outcomes {
		if o.Source == domain.SourceRule {
			applied++
		}
	}
	observability.RulesApplied(applied)
	s.log.Debug().
		Str("group_id", g.ID).
		Int("transactions", len(transactions)).
		Int("applied", applied).
		Msg("Rules applied")
	return outcomes, applied, nil
}

func (s *Service) newSeededGroup(name string, active bool) domain.CategoryGroup {
	ts := time.Now().UTC()
	g := domain.CategoryGroup{
		ID:        uuid.NewString(),
		Name:      name,
		IsActive:  active,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	for i, seed := range domain.DefaultCategories {
		g.Categories = append(g.Categories, domain.CategoryItem{
			ID:          uuid.NewString(),
			Name:        seed.Name,
			Description: seed.Description,
			SortOrder:   i,
		})
	}
	return g
}

func categoryNames(cats []domain.CategoryItem) []string {
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.Name)
	}
	return names
}

func findCategory(cats []domain.CategoryItem, id string) (domain.CategoryItem, error) {
	for _, c := range cats {
		if c.ID == id {
			return c, nil
		}
	}
	return domain.CategoryItem{}, fmt.Errorf("category %s: %w", id, domain.ErrNotFound)
}

func findRule(cats []domain.CategoryItem, ruleID string) (domain.CategoryRule, error) {
	for _, c := range cats {
		for _, r := range c.Rules {
			if r.ID == ruleID {
				return r, nil
			}
		}
	}
	return domain.CategoryRule{}, fmt.Errorf("rule %s: %w", ruleID, domain.ErrNotFound)
}

// withoutRule copies categories with one rule elided, so an edited pattern is
// not compared against itself.
func withoutRule(cats []domain.CategoryItem, ruleID string) []domain.CategoryItem {
	out := make([]domain.CategoryItem, len(cats))
	for i, c := range cats {
		out[i] = c
		out[i].Rules = make([]domain.CategoryRule, 0, len(c.Rules))
		for _, r := range c.Rules {
			if r.ID != ruleID {
				out[i].Rules = append(out[i].Rules, r)
			}
		}
	}
	return out
}

func without(cats []domain.CategoryItem, id string) []domain.CategoryItem {
	out := make([]domain.CategoryItem, 0, len(cats))
	for _, c := range cats {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}

func nextSortOrder(cats []domain.CategoryItem) int {
	next := 0
	for _, c := range cats {
		if c.SortOrder >= next {
			next = c.SortOrder + 1
		}
	}
	return next
}
