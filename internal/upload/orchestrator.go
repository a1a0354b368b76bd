// Package upload drives one-file-at-a-time submission of a batch to the
// extraction service. Submission is deliberately sequential: the service is a
// shared, rate- and cost-limited resource, and a serial loop gives natural
// admission control, exact progress accounting and clean cancellation.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/dfedorov/statement-desk/internal/domain"
	"github.com/dfedorov/statement-desk/internal/extract"
	"github.com/dfedorov/statement-desk/internal/observability"
)

// ErrAllFilesFailed marks a batch in which every file failed and the user did
// not cancel. The wrapping error carries the concatenated per-file reasons.
var ErrAllFilesFailed = errors.New("all files failed")

// Extractor is the single-file submission call the orchestrator loops over.
type Extractor interface {
	UploadStatement(ctx context.Context, filename string, content io.Reader, opts extract.UploadOptions) (*extract.UploadResult, error)
}

// Batch is the aggregated outcome of one upload run.
type Batch struct {
	Statements []domain.StatementResult `json:"statements"`
	MockMode   bool                     `json:"mock_mode"`
	Usage      *domain.UsageSnapshot    `json:"usage"`
	Progress   domain.UploadProgress    `json:"progress"`
	Cancelled  bool                     `json:"cancelled"`
}

// Orchestrator submits batches. One orchestrator handles one batch at a time;
// Cancel is safe to call from another goroutine while Run is looping.
type Orchestrator struct {
	extractor  Extractor
	log        zerolog.Logger
	onProgress func(domain.UploadProgress)
	cancelled  atomic.Bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithProgress installs a callback invoked with a progress snapshot after
// every state change. The callback receives a copy and may keep it.
func WithProgress(fn func(domain.UploadProgress)) Option {
	return func(o *Orchestrator) { o.onProgress = fn }
}

// New creates an orchestrator over the given extractor.
func New(extractor Extractor, log zerolog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{extractor: extractor, log: log}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Cancel raises the cooperative cancellation flag. The file currently in
// flight is allowed to finish; no further file is started. Checked only at
// iteration boundaries, never preemptively.
func (o *Orchestrator) Cancel() { o.cancelled.Store(true) }

// Run submits sources in order and aggregates the outcome into a fresh batch.
//
// Termination: at least one success makes the batch a partial-or-full
// success. Zero successes without cancellation is a hard failure carrying
// every per-file reason. Zero successes with cancellation returns a cancelled
// empty batch and no error, putting the caller back in its pre-batch state.
// A session-expiry response aborts immediately; it is a global condition, not
// a per-file one.
func (o *Orchestrator) Run(ctx context.Context, sources []Source, opts extract.UploadOptions) (*Batch, error) {
	o.cancelled.Store(false)
	return o.run(ctx, &Batch{}, sources, opts)
}

// RunAppend is the "add more files" path: the same loop, but merging into a
// pre-existing batch. Previously completed statements are never discarded,
// even when every new file fails, so no hard-failure error is returned;
// failures stay visible in the progress record.
func (o *Orchestrator) RunAppend(ctx context.Context, prev *Batch, sources []Source, opts extract.UploadOptions) (*Batch, error) {
	o.cancelled.Store(false)
	acc := &Batch{}
	if prev != nil {
		acc.Statements = append(acc.Statements, prev.Statements...)
		acc.MockMode = prev.MockMode
		acc.Usage = prev.Usage
	}
	return o.run(ctx, acc, sources, opts)
}

func (o *Orchestrator) run(ctx context.Context, acc *Batch, sources []Source, opts extract.UploadOptions) (*Batch, error) {
	progress := domain.NewUploadProgress(len(sources))
	o.notify(progress)

	for _, src := range sources {
		if o.cancelled.Load() {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		progress.CurrentFile = src.Name()
		o.notify(progress)

		result, err := o.submitOne(ctx, src, opts)
		switch {
		case errors.Is(err, domain.ErrSessionExpired):
			return nil, err
		case err != nil:
			o.log.Warn().Str("file", src.Name()).Err(err).Msg("File failed, batch continues")
			observability.FileProcessed(false)
			progress.FailedFiles = append(progress.FailedFiles, domain.FailedFile{
				Name:  src.Name(),
				Error: err.Error(),
			})
		default:
			observability.FileProcessed(true)
			acc.Statements = append(acc.Statements, result.Statements...)
			if result.MockMode {
				acc.MockMode = true
			}
			// Last-write-wins: a later snapshot reflects cumulative
			// consumption. A nil snapshot never clears an earlier one.
			if result.Usage != nil {
				acc.Usage = result.Usage
			}
			pages := 0
			for _, s := range result.Statements {
				pages += s.PageCount
			}
			progress.CompletedFiles = append(progress.CompletedFiles, domain.CompletedFile{
				Name:  src.Name(),
				Pages: pages,
			})
		}

		progress.Completed++
		progress.CurrentFile = ""
		o.notify(progress)
	}

	acc.Progress = progress
	acc.Cancelled = o.cancelled.Load()

	switch {
	case len(acc.Statements) > 0:
		o.log.Info().
			Int("total", progress.Total).
			Int("failed", len(progress.FailedFiles)).
			Bool("cancelled", acc.Cancelled).
			Msg("Batch settled")
		return acc, nil
	case acc.Cancelled:
		return acc, nil
	default:
		return acc, fmt.Errorf("%w: all %d files failed to process: %s",
			ErrAllFilesFailed, progress.Total, joinFailures(progress.FailedFiles))
	}
}

// submitOne opens a source and awaits its extraction. The per-file timeout
// lives inside the extractor client.
func (o *Orchestrator) submitOne(ctx context.Context, src Source, opts extract.UploadOptions) (*extract.UploadResult, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return o.extractor.UploadStatement(ctx, src.Name(), rc, opts)
}

func (o *Orchestrator) notify(p domain.UploadProgress) {
	if o.onProgress != nil {
		o.onProgress(p.Clone())
	}
}

func joinFailures(failures []domain.FailedFile) string {
	parts := make([]string, 0, len(failures))
	for _, f := range failures {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Name, f.Error))
	}
	return strings.Join(parts, "; ")
}
