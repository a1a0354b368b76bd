package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(reprocessCmd)
	reprocessCmd.Flags().StringP("group", "g", "", "Category group id to apply (default: active group)")
}

var reprocessCmd = &cobra.Command{
	Use:   "reprocess",
	Short: "Re-apply category rules to the saved session",
	Long: `Re-run rule resolution over every transaction in the saved session.
Manually set categories are never touched; everything else is recomputed
against the group's current rules.`,
	Args: cobra.NoArgs,
	RunE: runReprocess,
}

func runReprocess(cmd *cobra.Command, args []string) error {
	groupID, _ := cmd.Flags().GetString("group")

	d, err := newDeps()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	state, err := d.catalog.LoadSession(ctx)
	if err != nil {
		return err
	}
	if len(state.Statements) == 0 {
		fmt.Println("no saved session to reprocess")
		return nil
	}

	total := 0
	for i := range state.Statements {
		s := &state.Statements[i]
		if len(s.Transactions) == 0 {
			continue
		}
		outcomes, applied, err := d.catalog.ApplyRules(ctx, groupID, s.Transactions)
		if err != nil {
			return err
		}
		for j := range s.Transactions {
			s.Transactions[j].Category = outcomes[j].Category
			s.Transactions[j].CategorySource = outcomes[j].Source
		}
		total += applied
	}

	if err := d.catalog.SaveSession(ctx, *state); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	fmt.Printf("%d transactions categorized by rules\n", total)
	return nil
}
