package domain

// ProcessingType says which extraction path the service took for a file.
type ProcessingType string

const (
	ProcessingText        ProcessingType = "text"
	ProcessingImage       ProcessingType = "image"
	ProcessingOCR         ProcessingType = "ocr"
	ProcessingSpreadsheet ProcessingType = "spreadsheet"
)

// StatementResult is one processed file. TotalDebits, TotalCredits and
// TransactionCount are derived from Transactions and must be recomputed
// through RecomputeTotals after any edit; they are never set independently.
type StatementResult struct {
	Filename         string         `json:"filename"`
	Transactions     []Transaction  `json:"transactions"`
	TotalDebits      float64        `json:"total_debits"`
	TotalCredits     float64        `json:"total_credits"`
	TransactionCount int            `json:"transaction_count"`
	PageCount        int            `json:"page_count"`
	ActualPages      int            `json:"actual_pages"`
	ProcessingType   ProcessingType `json:"processing_type,omitempty"`
	OCRConfidence    *float64       `json:"ocr_confidence,omitempty"`
}

// RecomputeTotals rebuilds the derived fields from the current transaction
// list, rounding each total to 2 decimals.
func (s *StatementResult) RecomputeTotals() {
	var debits, credits float64
	for _, tx := range s.Transactions {
		switch tx.Type {
		case TypeDebit:
			debits += tx.Amount
		case TypeCredit:
			credits += tx.Amount
		}
	}
	s.TotalDebits = Round2(debits)
	s.TotalCredits = Round2(credits)
	s.TransactionCount = len(s.Transactions)
}

// ApplyUpdate applies a single field edit to the transaction at index i and
// recomputes the derived totals. Out-of-range indexes are ignored.
func (s *StatementResult) ApplyUpdate(i int, u FieldUpdate) {
	if i < 0 || i >= len(s.Transactions) {
		return
	}
	u.apply(&s.Transactions[i])
	s.RecomputeTotals()
}

// UsageSnapshot is the quota picture returned by the extraction service
// alongside a successful upload. Later snapshots supersede earlier ones
// within a batch, since they reflect cumulative consumption.
type UsageSnapshot struct {
	TotalUploads      int    `json:"total_uploads"`
	TotalPages        int    `json:"total_pages"`
	TotalTransactions int    `json:"total_transactions"`
	MonthUploads      int    `json:"month_uploads"`
	MonthPages        int    `json:"month_pages"`
	MonthTransactions int    `json:"month_transactions"`
	PageLimit         *int   `json:"page_limit"`
	BonusPages        int    `json:"bonus_pages"`
	Plan              string `json:"plan"`
}
