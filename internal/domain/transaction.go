// Package domain contains the core value types shared across the upload
// pipeline and the category rule engine. It has no infrastructure imports.
package domain

import "math"

// TransactionType tells whether an amount is money in or money out. The
// amount field itself is always a non-negative magnitude; the sign lives here.
type TransactionType string

const (
	TypeDebit  TransactionType = "debit"
	TypeCredit TransactionType = "credit"
)

// CategorySource records where a transaction's category came from, and
// decides whether automated reprocessing may overwrite it.
type CategorySource string

const (
	SourceAI     CategorySource = "ai"
	SourceRule   CategorySource = "rule"
	SourceManual CategorySource = "manual"
)

// Transaction is one ledger entry extracted from a statement.
// Dates are ISO strings (YYYY-MM-DD) exactly as the extraction service
// returns them; we never reinterpret them through a timezone.
type Transaction struct {
	Date           string          `json:"date"`
	PostingDate    *string         `json:"posting_date,omitempty"`
	Description    string          `json:"description"`
	Amount         float64         `json:"amount"`
	Type           TransactionType `json:"type"`
	Balance        *float64        `json:"balance,omitempty"`
	Category       string          `json:"category"`
	CategorySource CategorySource  `json:"category_source,omitempty"`
}

// Round2 rounds a monetary magnitude to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
