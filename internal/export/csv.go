// Package export renders the merged transaction view to downloadable
// formats.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dfedorov/statement-desk/internal/merge"
)

// Headers is the column set of the export, matching the on-screen table.
var Headers = []string{"Date", "Posting Date", "Description", "Amount", "Type", "Balance", "Category"}

// WriteCSV writes the merged transactions as CSV. Amounts and balances are
// rendered with two decimals; absent optional fields are blank cells.
func WriteCSV(w io.Writer, transactions []merge.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Headers); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, tx := range transactions {
		postingDate := ""
		if tx.PostingDate != nil {
			postingDate = *tx.PostingDate
		}
		balance := ""
		if tx.Balance != nil {
			balance = fmt.Sprintf("%.2f", *tx.Balance)
		}
		record := []string{
			tx.Date,
			postingDate,
			tx.Description,
			fmt.Sprintf("%.2f", tx.Amount),
			string(tx.Type),
			balance,
			tx.Category,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
