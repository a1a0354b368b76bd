package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dfedorov/statement-desk/internal/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newGroup(name string, active bool) domain.CategoryGroup {
	ts := time.Now().UTC()
	return domain.CategoryGroup{
		ID:        uuid.NewString(),
		Name:      name,
		IsActive:  active,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

func newCategory(name string, order int) domain.CategoryItem {
	return domain.CategoryItem{ID: uuid.NewString(), Name: name, SortOrder: order}
}

func TestInsertAndGetGroup(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	g := newGroup("Personal", true)
	g.Categories = []domain.CategoryItem{
		newCategory("Groceries", 0),
		newCategory("Other", 1),
	}
	g.Categories[0].Rules = []domain.CategoryRule{{
		ID:        uuid.NewString(),
		RuleType:  domain.RuleInclude,
		Pattern:   "COSTCO",
		CreatedAt: time.Now().UTC(),
	}}
	require.NoError(t, db.InsertGroup(ctx, "owner-1", g))

	got, err := db.GetGroup(ctx, "owner-1", g.ID)
	require.NoError(t, err)
	require.Equal(t, "Personal", got.Name)
	require.True(t, got.IsActive)
	require.Len(t, got.Categories, 2)
	require.Equal(t, "Groceries", got.Categories[0].Name)
	require.Len(t, got.Categories[0].Rules, 1)
	require.Equal(t, "COSTCO", got.Categories[0].Rules[0].Pattern)
	require.Equal(t, domain.RuleInclude, got.Categories[0].Rules[0].RuleType)
}

func TestGetGroupScopedToOwner(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	g := newGroup("Personal", true)
	require.NoError(t, db.InsertGroup(ctx, "owner-1", g))

	_, err := db.GetGroup(ctx, "owner-2", g.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCategoriesOrderedBySortOrder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	g := newGroup("Personal", true)
	g.Categories = []domain.CategoryItem{
		newCategory("Other", 2),
		newCategory("Dining", 0),
		newCategory("Groceries", 1),
	}
	require.NoError(t, db.InsertGroup(ctx, "owner-1", g))

	got, err := db.GetGroup(ctx, "owner-1", g.ID)
	require.NoError(t, err)
	names := []string{got.Categories[0].Name, got.Categories[1].Name, got.Categories[2].Name}
	require.Equal(t, []string{"Dining", "Groceries", "Other"}, names)
}

func TestSetActiveGroupIsExclusive(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a := newGroup("A", true)
	b := newGroup("B", false)
	require.NoError(t, db.InsertGroup(ctx, "owner-1", a))
	require.NoError(t, db.InsertGroup(ctx, "owner-1", b))

	require.NoError(t, db.SetActiveGroup(ctx, "owner-1", b.ID))

	active, err := db.ActiveGroup(ctx, "owner-1")
	require.NoError(t, err)
	require.Equal(t, b.ID, active.ID)

	gotA, err := db.GetGroup(ctx, "owner-1", a.ID)
	require.NoError(t, err)
	require.False(t, gotA.IsActive)
}

func TestSetActiveGroupUnknownID(t *testing.T) {
	db := newTestDB(t)
	err := db.SetActiveGroup(context.Background(), "owner-1", "nope")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestActiveGroupNone(t *testing.T) {
	db := newTestDB(t)
	_, err := db.ActiveGroup(context.Background(), "owner-1")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteGroupCascades(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	g := newGroup("Personal", true)
	cat := newCategory("Groceries", 0)
	cat.Rules = []domain.CategoryRule{{
		ID: uuid.NewString(), RuleType: domain.RuleInclude, Pattern: "COSTCO", CreatedAt: time.Now().UTC(),
	}}
	g.Categories = []domain.CategoryItem{cat}
	require.NoError(t, db.InsertGroup(ctx, "owner-1", g))

	require.NoError(t, db.DeleteGroup(ctx, "owner-1", g.ID))

	var n int
	require.NoError(t, db.db.QueryRow(`SELECT COUNT(*) FROM category_rules`).Scan(&n))
	require.Zero(t, n)
	require.NoError(t, db.db.QueryRow(`SELECT COUNT(*) FROM categories`).Scan(&n))
	require.Zero(t, n)
}

func TestCategoryAndRuleLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	g := newGroup("Personal", true)
	require.NoError(t, db.InsertGroup(ctx, "owner-1", g))

	cat := newCategory("Dining", 0)
	require.NoError(t, db.InsertCategory(ctx, g.ID, cat))

	cat.Description = "Restaurants and takeout"
	cat.SortOrder = 3
	require.NoError(t, db.UpdateCategory(ctx, cat))

	rule := domain.CategoryRule{
		ID: uuid.NewString(), RuleType: domain.RuleExclude, Pattern: "GROCERY", CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, db.InsertRule(ctx, cat.ID, rule))

	got, err := db.GetGroup(ctx, "owner-1", g.ID)
	require.NoError(t, err)
	require.Len(t, got.Categories, 1)
	require.Equal(t, "Restaurants and takeout", got.Categories[0].Description)
	require.Equal(t, 3, got.Categories[0].SortOrder)
	require.Len(t, got.Categories[0].Rules, 1)

	require.NoError(t, db.DeleteRule(ctx, rule.ID))
	require.NoError(t, db.DeleteCategory(ctx, cat.ID))

	got, err = db.GetGroup(ctx, "owner-1", g.ID)
	require.NoError(t, err)
	require.Empty(t, got.Categories)
}

func TestRulesKeepCreationOrder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	g := newGroup("Personal", true)
	cat := newCategory("Shopping", 0)
	g.Categories = []domain.CategoryItem{cat}
	require.NoError(t, db.InsertGroup(ctx, "owner-1", g))

	base := time.Now().UTC()
	for i, p := range []string{"AMAZON", "WALMART", "TARGET"} {
		require.NoError(t, db.InsertRule(ctx, cat.ID, domain.CategoryRule{
			ID:        uuid.NewString(),
			RuleType:  domain.RuleInclude,
			Pattern:   p,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	got, err := db.GetGroup(ctx, "owner-1", g.ID)
	require.NoError(t, err)
	rules := got.Categories[0].Rules
	require.Len(t, rules, 3)
	require.Equal(t, "AMAZON", rules[0].Pattern)
	require.Equal(t, "TARGET", rules[2].Pattern)
}

func TestListGroupsOldestFirst(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	old := newGroup("Old", true)
	old.CreatedAt = time.Now().UTC().Add(-time.Hour)
	recent := newGroup("Recent", false)
	require.NoError(t, db.InsertGroup(ctx, "owner-1", recent))
	require.NoError(t, db.InsertGroup(ctx, "owner-1", old))

	groups, err := db.ListGroups(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, groups, 2)
	require.Equal(t, "Old", groups[0].Name)
}

func TestGroupForCategory(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	g := newGroup("Personal", true)
	cat := newCategory("Groceries", 0)
	g.Categories = []domain.CategoryItem{cat}
	require.NoError(t, db.InsertGroup(ctx, "owner-1", g))

	got, err := db.GroupForCategory(ctx, "owner-1", cat.ID)
	require.NoError(t, err)
	require.Equal(t, g.ID, got.ID)
	require.Len(t, got.Categories, 1)

	_, err = db.GroupForCategory(ctx, "owner-2", cat.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = db.GroupForCategory(ctx, "owner-1", "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGroupForRule(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	g := newGroup("Personal", true)
	cat := newCategory("Groceries", 0)
	g.Categories = []domain.CategoryItem{cat}
	require.NoError(t, db.InsertGroup(ctx, "owner-1", g))

	rule := domain.CategoryRule{
		ID:        uuid.NewString(),
		RuleType:  domain.RuleInclude,
		Pattern:   "COSTCO",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, db.InsertRule(ctx, cat.ID, rule))

	got, categoryID, err := db.GroupForRule(ctx, "owner-1", rule.ID)
	require.NoError(t, err)
	require.Equal(t, g.ID, got.ID)
	require.Equal(t, cat.ID, categoryID)

	_, _, err = db.GroupForRule(ctx, "owner-2", rule.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateRule(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	g := newGroup("Personal", true)
	cat := newCategory("Groceries", 0)
	g.Categories = []domain.CategoryItem{cat}
	require.NoError(t, db.InsertGroup(ctx, "owner-1", g))

	rule := domain.CategoryRule{
		ID:        uuid.NewString(),
		RuleType:  domain.RuleInclude,
		Pattern:   "CSTCO",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, db.InsertRule(ctx, cat.ID, rule))

	rule.RuleType = domain.RuleExclude
	rule.Pattern = "COSTCO"
	require.NoError(t, db.UpdateRule(ctx, rule))

	got, err := db.GetGroup(ctx, "owner-1", g.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RuleExclude, got.Categories[0].Rules[0].RuleType)
	require.Equal(t, "COSTCO", got.Categories[0].Rules[0].Pattern)

	require.ErrorIs(t, db.UpdateRule(ctx, domain.CategoryRule{ID: "missing"}), domain.ErrNotFound)
}
