package domain

import (
	"strings"
	"time"
)

// RuleType classifies a category rule.
type RuleType string

const (
	// RuleInclude proposes the owning category when its pattern matches.
	RuleInclude RuleType = "include"
	// RuleExclude vetoes the owning category when its pattern matches,
	// regardless of any matching include rule on the same category.
	RuleExclude RuleType = "exclude"
)

// FallbackCategory is the reserved catch-all name. Every group carries one
// (case-insensitive) and it can be neither deleted nor duplicated.
const FallbackCategory = "Other"

// CategoryRule is a case-insensitive substring pattern attached to a category.
type CategoryRule struct {
	ID        string    `json:"id"`
	RuleType  RuleType  `json:"rule_type"`
	Pattern   string    `json:"pattern"`
	CreatedAt time.Time `json:"created_at"`
}

// CategoryItem is one category inside a group. Name is unique within the
// group, case-insensitive. Rules keep creation order.
type CategoryItem struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	SortOrder   int            `json:"sort_order"`
	Rules       []CategoryRule `json:"rules"`
}

// IsFallback reports whether this category is the reserved "Other" fallback.
func (c CategoryItem) IsFallback() bool {
	return strings.EqualFold(strings.TrimSpace(c.Name), FallbackCategory)
}

// CategoryGroup is a named, user-owned ordered set of categories. Exactly one
// group per owner is active at a time; the active group feeds both AI
// categorization and the rule engine by default.
type CategoryGroup struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	IsActive   bool           `json:"is_active"`
	Categories []CategoryItem `json:"categories"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// CategorySeed is a name + description pair sent inline to the extraction
// service when no saved group is referenced.
type CategorySeed struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// DefaultCategories is the seed set applied to every new group. The list
// deliberately ends with the fallback so that AI prompts list it last.
var DefaultCategories = []CategorySeed{
	{Name: "Payroll & Income", Description: "Salary, wages, direct deposits, government payments, tax refunds"},
	{Name: "Rent & Mortgage", Description: "Rent payments, mortgage payments, property-related"},
	{Name: "Utilities", Description: "Hydro, gas, electric, internet, phone, cable"},
	{Name: "Groceries", Description: "Supermarkets, grocery stores, food shopping"},
	{Name: "Dining", Description: "Restaurants, fast food, coffee shops, food delivery"},
	{Name: "Transportation", Description: "Transit, gas stations, parking, ride-sharing, car payments"},
	{Name: "Insurance", Description: "Any insurance premiums"},
	{Name: "Subscriptions", Description: "Streaming, software, memberships, recurring digital services"},
	{Name: "E-Transfer", Description: "Interac e-transfers (sent or received)"},
	{Name: "Bank Fees", Description: "Account fees, service charges, overdraft fees, interest charges"},
	{Name: "Shopping", Description: "Retail stores, online shopping, Amazon, clothing"},
	{Name: "Health & Wellness", Description: "Pharmacy, dental, medical, gym, fitness"},
	{Name: "Entertainment", Description: "Movies, concerts, sports, hobbies, gaming"},
	{Name: "Business Expense", Description: "Office supplies, software, professional services, business transfers"},
	{Name: "Transfers", Description: "Transfers between own accounts, bill payments, loan payments"},
	{Name: "Other", Description: "Only if none of the above fit"},
}

// Seeds flattens a group's categories into the inline form the extraction
// service accepts.
func (g CategoryGroup) Seeds() []CategorySeed {
	seeds := make([]CategorySeed, 0, len(g.Categories))
	for _, c := range g.Categories {
		seeds = append(seeds, CategorySeed{Name: c.Name, Description: c.Description})
	}
	return seeds
}
