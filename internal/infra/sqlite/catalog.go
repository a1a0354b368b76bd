package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dfedorov/statement-desk/internal/domain"
)

const timeLayout = time.RFC3339Nano

// InsertGroup stores a group with its categories and rules in one
// transaction.
func (db *DB) InsertGroup(ctx context.Context, ownerID string, g domain.CategoryGroup) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert group: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO category_groups (id, owner_id, name, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, g.ID, ownerID, g.Name, boolToInt(g.IsActive), g.CreatedAt.Format(timeLayout), g.UpdatedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert group: %w", err)
	}

	for _, c := range g.Categories {
		if err := insertCategoryTx(ctx, tx, g.ID, c); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertCategoryTx(ctx context.Context, tx *sql.Tx, groupID string, c domain.CategoryItem) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO categories (id, group_id, name, description, sort_order)
		VALUES (?, ?, ?, ?, ?)
	`, c.ID, groupID, c.Name, c.Description, c.SortOrder)
	if err != nil {
		return fmt.Errorf("insert category %s: %w", c.Name, err)
	}
	for _, r := range c.Rules {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO category_rules (id, category_id, rule_type, pattern, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, r.ID, c.ID, string(r.RuleType), r.Pattern, r.CreatedAt.Format(timeLayout))
		if err != nil {
			return fmt.Errorf("insert rule: %w", err)
		}
	}
	return nil
}

// ListGroups returns the owner's groups, oldest first, fully loaded.
func (db *DB) ListGroups(ctx context.Context, ownerID string) ([]domain.CategoryGroup, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, name, is_active, created_at, updated_at
		FROM category_groups WHERE owner_id = ? ORDER BY created_at, id
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []domain.CategoryGroup
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}

	for i := range groups {
		groups[i].Categories, err = db.loadCategories(ctx, groups[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return groups, nil
}

// GetGroup returns one group by id, scoped to the owner.
func (db *DB) GetGroup(ctx context.Context, ownerID, id string) (*domain.CategoryGroup, error) {
	row := db.db.QueryRowContext(ctx, `
		SELECT id, name, is_active, created_at, updated_at
		FROM category_groups WHERE owner_id = ? AND id = ?
	`, ownerID, id)
	g, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	g.Categories, err = db.loadCategories(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// ActiveGroup returns the owner's active group, or ErrNotFound when the
// owner has none.
func (db *DB) ActiveGroup(ctx context.Context, ownerID string) (*domain.CategoryGroup, error) {
	row := db.db.QueryRowContext(ctx, `
		SELECT id, name, is_active, created_at, updated_at
		FROM category_groups WHERE owner_id = ? AND is_active = 1
	`, ownerID)
	g, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("active group: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	g.Categories, err = db.loadCategories(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// SetActiveGroup makes the given group the owner's single active one.
func (db *DB) SetActiveGroup(ctx context.Context, ownerID, id string) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin activate group: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE category_groups SET is_active = 1, updated_at = ?
		WHERE owner_id = ? AND id = ?
	`, now(), ownerID, id)
	if err != nil {
		return fmt.Errorf("activate group: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("group %s: %w", id, domain.ErrNotFound)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE category_groups SET is_active = 0 WHERE owner_id = ? AND id != ?
	`, ownerID, id)
	if err != nil {
		return fmt.Errorf("deactivate siblings: %w", err)
	}
	return tx.Commit()
}

// RenameGroup updates a group's name.
func (db *DB) RenameGroup(ctx context.Context, ownerID, id, name string) error {
	res, err := db.db.ExecContext(ctx, `
		UPDATE category_groups SET name = ?, updated_at = ? WHERE owner_id = ? AND id = ?
	`, name, now(), ownerID, id)
	if err != nil {
		return fmt.Errorf("rename group: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("group %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// DeleteGroup removes a group and, through cascade, its categories and rules.
func (db *DB) DeleteGroup(ctx context.Context, ownerID, id string) error {
	res, err := db.db.ExecContext(ctx, `
		DELETE FROM category_groups WHERE owner_id = ? AND id = ?
	`, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("group %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// InsertCategory adds a category to an existing group.
func (db *DB) InsertCategory(ctx context.Context, groupID string, c domain.CategoryItem) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert category: %w", err)
	}
	defer tx.Rollback()

	if err := insertCategoryTx(ctx, tx, groupID, c); err != nil {
		return err
	}
	if err := touchGroupTx(ctx, tx, groupID); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateCategory replaces a category's scalar fields. Rules are managed
// through InsertRule and DeleteRule.
func (db *DB) UpdateCategory(ctx context.Context, c domain.CategoryItem) error {
	res, err := db.db.ExecContext(ctx, `
		UPDATE categories SET name = ?, description = ?, sort_order = ? WHERE id = ?
	`, c.Name, c.Description, c.SortOrder, c.ID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("category %s: %w", c.ID, domain.ErrNotFound)
	}
	return db.touchOwningGroup(ctx, c.ID)
}

// DeleteCategory removes a category and its rules.
func (db *DB) DeleteCategory(ctx context.Context, categoryID string) error {
	if err := db.touchOwningGroup(ctx, categoryID); err != nil {
		return err
	}
	res, err := db.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, categoryID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("category %s: %w", categoryID, domain.ErrNotFound)
	}
	return nil
}

// GroupForCategory resolves the group containing a category, scoped to the
// owner.
func (db *DB) GroupForCategory(ctx context.Context, ownerID, categoryID string) (*domain.CategoryGroup, error) {
	var groupID string
	err := db.db.QueryRowContext(ctx, `
		SELECT g.id FROM category_groups g
		JOIN categories c ON c.group_id = g.id
		WHERE g.owner_id = ? AND c.id = ?
	`, ownerID, categoryID).Scan(&groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %s: %w", categoryID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve category group: %w", err)
	}
	return db.GetGroup(ctx, ownerID, groupID)
}

// GroupForRule resolves the group containing a rule, scoped to the owner,
// along with the owning category's id.
func (db *DB) GroupForRule(ctx context.Context, ownerID, ruleID string) (*domain.CategoryGroup, string, error) {
	var groupID, categoryID string
	err := db.db.QueryRowContext(ctx, `
		SELECT g.id, c.id FROM category_groups g
		JOIN categories c ON c.group_id = g.id
		JOIN category_rules r ON r.category_id = c.id
		WHERE g.owner_id = ? AND r.id = ?
	`, ownerID, ruleID).Scan(&groupID, &categoryID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("rule %s: %w", ruleID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("resolve rule group: %w", err)
	}
	g, err := db.GetGroup(ctx, ownerID, groupID)
	if err != nil {
		return nil, "", err
	}
	return g, categoryID, nil
}

// InsertRule attaches a rule to a category.
func (db *DB) InsertRule(ctx context.Context, categoryID string, r domain.CategoryRule) error {
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO category_rules (id, category_id, rule_type, pattern, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, r.ID, categoryID, string(r.RuleType), r.Pattern, r.CreatedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert rule: %w", err)
	}
	return db.touchOwningGroup(ctx, categoryID)
}

// UpdateRule replaces a rule's type and pattern.
func (db *DB) UpdateRule(ctx context.Context, r domain.CategoryRule) error {
	res, err := db.db.ExecContext(ctx, `
		UPDATE category_rules SET rule_type = ?, pattern = ? WHERE id = ?
	`, string(r.RuleType), r.Pattern, r.ID)
	if err != nil {
		return fmt.Errorf("update rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("rule %s: %w", r.ID, domain.ErrNotFound)
	}
	return nil
}

// DeleteRule removes one rule.
func (db *DB) DeleteRule(ctx context.Context, ruleID string) error {
	res, err := db.db.ExecContext(ctx, `DELETE FROM category_rules WHERE id = ?`, ruleID)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("rule %s: %w", ruleID, domain.ErrNotFound)
	}
	return nil
}

func (db *DB) loadCategories(ctx context.Context, groupID string) ([]domain.CategoryItem, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, name, description, sort_order
		FROM categories WHERE group_id = ? ORDER BY sort_order, id
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	defer rows.Close()

	var cats []domain.CategoryItem
	for rows.Next() {
		var c domain.CategoryItem
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.SortOrder); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}

	for i := range cats {
		cats[i].Rules, err = db.loadRules(ctx, cats[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return cats, nil
}

func (db *DB) loadRules(ctx context.Context, categoryID string) ([]domain.CategoryRule, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, rule_type, pattern, created_at
		FROM category_rules WHERE category_id = ? ORDER BY created_at, id
	`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	defer rows.Close()

	var rules []domain.CategoryRule
	for rows.Next() {
		var r domain.CategoryRule
		var ruleType, createdAt string
		if err := rows.Scan(&r.ID, &ruleType, &r.Pattern, &createdAt); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		r.RuleType = domain.RuleType(ruleType)
		r.CreatedAt = parseTime(createdAt)
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// touchOwningGroup bumps updated_at on the group containing a category.
func (db *DB) touchOwningGroup(ctx context.Context, categoryID string) error {
	_, err := db.db.ExecContext(ctx, `
		UPDATE category_groups SET updated_at = ?
		WHERE id = (SELECT group_id FROM categories WHERE id = ?)
	`, now(), categoryID)
	if err != nil {
		return fmt.Errorf("touch group: %w", err)
	}
	return nil
}

func touchGroupTx(ctx context.Context, tx *sql.Tx, groupID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE category_groups SET updated_at = ? WHERE id = ?
	`, now(), groupID)
	if err != nil {
		return fmt.Errorf("touch group: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGroup(row rowScanner) (domain.CategoryGroup, error) {
	var g domain.CategoryGroup
	var active int
	var createdAt, updatedAt string
	if err := row.Scan(&g.ID, &g.Name, &active, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return g, err
		}
		return g, fmt.Errorf("scan group: %w", err)
	}
	g.IsActive = active == 1
	g.CreatedAt = parseTime(createdAt)
	g.UpdatedAt = parseTime(updatedAt)
	return g, nil
}

func now() string {
	return time.Now().UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
