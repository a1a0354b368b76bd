package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(usageCmd)
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show extraction quota usage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		usage, err := d.extractClient().FetchUsage(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("plan: %s\n", usage.Plan)
		if usage.PageLimit != nil {
			fmt.Printf("this month: %d uploads, %d/%d pages, %d transactions\n",
				usage.MonthUploads, usage.MonthPages, *usage.PageLimit, usage.MonthTransactions)
		} else {
			fmt.Printf("this month: %d uploads, %d pages, %d transactions\n",
				usage.MonthUploads, usage.MonthPages, usage.MonthTransactions)
		}
		if usage.BonusPages > 0 {
			fmt.Printf("bonus pages: %d\n", usage.BonusPages)
		}
		fmt.Printf("all time: %d uploads, %d pages, %d transactions\n",
			usage.TotalUploads, usage.TotalPages, usage.TotalTransactions)
		return nil
	},
}
