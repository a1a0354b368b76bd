// Package cli implements the statement-desk command line interface.
package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dfedorov/statement-desk/internal/catalog"
	"github.com/dfedorov/statement-desk/internal/config"
	"github.com/dfedorov/statement-desk/internal/extract"
	"github.com/dfedorov/statement-desk/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "statement-desk",
	Short: "Upload bank statements for extraction and manage categorization",
	Long: `statement-desk submits bank statements to the extraction service one file
at a time, merges the results into a single transaction view, and applies
your category rules on top of the AI's categorization.

Category groups and rules live in the catalog service (statement-desk-api);
the session survives restarts through it as well.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// deps bundles what every command needs.
type deps struct {
	cfg     config.Config
	log     zerolog.Logger
	catalog *catalog.Client
}

func newDeps() (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return &deps{
		cfg:     cfg,
		log:     logger.NewWithLevel(cfg.Log.Level),
		catalog: catalog.NewClient(cfg.API.BaseURL),
	}, nil
}

func (d *deps) extractClient() *extract.Client {
	return extract.NewClient(d.cfg.Extract.BaseURL, d.log,
		extract.WithToken(d.cfg.Extract.Token),
		extract.WithFileTimeout(d.cfg.Extract.FileTimeout),
	)
}
