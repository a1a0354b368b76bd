package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dfedorov/statement-desk/internal/export"
	"github.com/dfedorov/statement-desk/internal/merge"
)

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the saved session as CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		d, err := newDeps()
		if err != nil {
			return err
		}
		state, err := d.catalog.LoadSession(cmd.Context())
		if err != nil {
			return err
		}
		if len(state.Statements) == 0 {
			return fmt.Errorf("no saved session to export")
		}

		merged := merge.Flatten(state.Statements, state.Registry())

		w := os.Stdout
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			defer f.Close()
			w = f
		}
		if err := export.WriteCSV(w, merged); err != nil {
			return err
		}
		if output != "" {
			fmt.Fprintf(os.Stderr, "wrote %d transactions to %s\n", len(merged), output)
		}
		return nil
	},
}
