package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dfedorov/statement-desk/internal/domain"
	"github.com/dfedorov/statement-desk/internal/extract"
	"github.com/dfedorov/statement-desk/internal/merge"
	"github.com/dfedorov/statement-desk/internal/upload"
	"github.com/dfedorov/statement-desk/internal/workspace"
)

func init() {
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().StringP("group", "g", "", "Category group id to extract against (default: active group)")
	uploadCmd.Flags().Bool("append", false, "Add results to the saved session instead of starting fresh")
	uploadCmd.Flags().Bool("anonymous-gcs", false, "Read gs:// sources without credentials (public buckets)")
}

var uploadCmd = &cobra.Command{
	Use:   "upload FILE...",
	Short: "Submit statement files for extraction",
	Long: `Submit one or more statement files (local paths or gs:// URIs) to the
extraction service, one file at a time. A failing file never aborts the
batch; Ctrl-C finishes the file in flight and stops cleanly.

Category rules from the targeted group are applied to the results before
the session is saved.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func runUpload(cmd *cobra.Command, args []string) error {
	groupID, _ := cmd.Flags().GetString("group")
	appendMode, _ := cmd.Flags().GetBool("append")
	anonymousGCS, _ := cmd.Flags().GetBool("anonymous-gcs")

	d, err := newDeps()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	sources := make([]upload.Source, 0, len(args))
	for _, arg := range args {
		src, err := upload.ParseSource(arg, anonymousGCS)
		if err != nil {
			return err
		}
		sources = append(sources, src)
	}

	opts, err := resolveUploadOptions(ctx, d, groupID)
	if err != nil {
		return err
	}

	orch := upload.New(d.extractClient(), d.log, upload.WithProgress(printProgress))

	// First Ctrl-C cancels cooperatively; a second one kills the process.
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		<-sigs
		fmt.Fprintln(os.Stderr, "\nFinishing current file, then stopping (Ctrl-C again to force quit)")
		orch.Cancel()
		<-sigs
		os.Exit(1)
	}()

	var prev *workspace.State
	var batch *upload.Batch
	if appendMode {
		prev, err = d.catalog.LoadSession(ctx)
		if err != nil {
			return err
		}
		batch, err = orch.RunAppend(ctx, &upload.Batch{
			Statements: prev.Statements,
			MockMode:   prev.MockMode,
			Usage:      prev.Usage,
		}, sources, opts)
	} else {
		batch, err = orch.Run(ctx, sources, opts)
	}
	if err != nil {
		if errors.Is(err, domain.ErrSessionExpired) {
			return fmt.Errorf("extraction session expired, sign in again: %w", err)
		}
		return err
	}

	return finishUpload(ctx, d, batch, prev, appendMode, groupID, opts.GroupID)
}

// finishUpload merges the batch, applies rules and persists the session. A
// batch cancelled before any file completed leaves the saved session exactly
// as it was.
func finishUpload(ctx context.Context, d *deps, batch *upload.Batch, prev *workspace.State, appendMode bool, groupID, activeGroupID string) error {
	if batch.Cancelled && len(batch.Statements) == 0 {
		fmt.Println("\nbatch cancelled before any file completed; saved session unchanged")
		return nil
	}

	registry := merge.NewTagRegistry()
	if appendMode {
		registry = prev.Registry()
	}
	merged := merge.Flatten(batch.Statements, registry)

	// Apply the group's rules on top of the AI categorization.
	applied, err := applyRules(ctx, d, groupID, batch)
	if err != nil {
		d.log.Warn().Err(err).Msg("Rules not applied")
	}

	state := workspace.State{
		Statements:    batch.Statements,
		MockMode:      batch.MockMode,
		Usage:         batch.Usage,
		Tags:          registry.Snapshot(),
		TagsAssigned:  registry.Assigned(),
		ActiveGroupID: activeGroupID,
	}
	if err := d.catalog.SaveSession(ctx, state); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	printSummary(batch, len(merged), applied)
	return nil
}

// resolveUploadOptions chooses the category context: an explicit group id, or
// the active group's categories sent inline.
func resolveUploadOptions(ctx context.Context, d *deps, groupID string) (extract.UploadOptions, error) {
	if groupID != "" {
		return extract.UploadOptions{GroupID: groupID}, nil
	}
	groups, err := d.catalog.ListGroups(ctx)
	if err != nil {
		return extract.UploadOptions{}, fmt.Errorf("resolve active group: %w", err)
	}
	for _, g := range groups {
		if g.IsActive {
			return extract.UploadOptions{Categories: g.Seeds(), GroupID: g.ID}, nil
		}
	}
	return extract.UploadOptions{}, nil
}

func applyRules(ctx context.Context, d *deps, groupID string, batch *upload.Batch) (int, error) {
	total := 0
	for i := range batch.Statements {
		s := &batch.Statements[i]
		if len(s.Transactions) == 0 {
			continue
		}
		outcomes, applied, err := d.catalog.ApplyRules(ctx, groupID, s.Transactions)
		if err != nil {
			return total, err
		}
		for j := range s.Transactions {
			s.Transactions[j].Category = outcomes[j].Category
			s.Transactions[j].CategorySource = outcomes[j].Source
		}
		total += applied
	}
	return total, nil
}

func printProgress(p domain.UploadProgress) {
	if p.CurrentFile != "" {
		fmt.Printf("[%d/%d] %s...\n", p.Completed+1, p.Total, p.CurrentFile)
	}
}

func printSummary(batch *upload.Batch, transactions, rulesApplied int) {
	fmt.Printf("\n%d of %d files processed, %d transactions\n",
		len(batch.Progress.CompletedFiles), batch.Progress.Total, transactions)
	if rulesApplied > 0 {
		fmt.Printf("%d transactions categorized by rules\n", rulesApplied)
	}
	for _, f := range batch.Progress.FailedFiles {
		fmt.Printf("failed: %s: %s\n", f.Name, f.Error)
	}
	if batch.Cancelled {
		fmt.Println("batch cancelled; completed files were kept")
	}
	if batch.MockMode {
		fmt.Println("note: extraction service returned mock data")
	}
	if batch.Usage != nil && batch.Usage.PageLimit != nil {
		fmt.Printf("usage: %d/%d pages this month (%s plan)\n",
			batch.Usage.MonthPages, *batch.Usage.PageLimit, batch.Usage.Plan)
	}
}
