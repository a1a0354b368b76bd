package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/dfedorov/statement-desk/internal/domain"
	"github.com/dfedorov/statement-desk/internal/extract"
)

// fakeSource is an in-memory Source.
type fakeSource struct {
	name    string
	content string
	openErr error
}

func (s fakeSource) Name() string { return s.name }

func (s fakeSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	return io.NopCloser(strings.NewReader(s.content)), nil
}

// fakeExtractor scripts per-filename responses and records call order.
type fakeExtractor struct {
	results map[string]*extract.UploadResult
	errs    map[string]error
	calls   []string
	onCall  func(filename string)
}

func (f *fakeExtractor) UploadStatement(ctx context.Context, filename string, content io.Reader, opts extract.UploadOptions) (*extract.UploadResult, error) {
	f.calls = append(f.calls, filename)
	if f.onCall != nil {
		f.onCall(filename)
	}
	if err, ok := f.errs[filename]; ok {
		return nil, err
	}
	if res, ok := f.results[filename]; ok {
		return res, nil
	}
	return &extract.UploadResult{}, nil
}

func result(filename string, pages int, txCount int) *extract.UploadResult {
	s := domain.StatementResult{Filename: filename, PageCount: pages}
	for i := 0; i < txCount; i++ {
		s.Transactions = append(s.Transactions, domain.Transaction{
			Description: fmt.Sprintf("%s-%d", filename, i),
			Type:        domain.TypeDebit,
			Amount:      1,
		})
	}
	s.RecomputeTotals()
	return &extract.UploadResult{Statements: []domain.StatementResult{s}}
}

func sources(names ...string) []Source {
	out := make([]Source, len(names))
	for i, n := range names {
		out[i] = fakeSource{name: n, content: "%PDF"}
	}
	return out
}

func TestRunPartialFailure(t *testing.T) {
	ex := &fakeExtractor{
		results: map[string]*extract.UploadResult{
			"ok.pdf":  result("ok.pdf", 2, 3),
			"ok2.pdf": result("ok2.pdf", 1, 1),
		},
		errs: map[string]error{"bad.pdf": errors.New("corrupt file")},
	}
	o := New(ex, zerolog.Nop())

	batch, err := o.Run(context.Background(), sources("ok.pdf", "bad.pdf", "ok2.pdf"), extract.UploadOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(batch.Statements) != 2 {
		t.Fatalf("statements = %d, want 2", len(batch.Statements))
	}
	if batch.Statements[0].Filename != "ok.pdf" || batch.Statements[1].Filename != "ok2.pdf" {
		t.Errorf("statement order: %s, %s", batch.Statements[0].Filename, batch.Statements[1].Filename)
	}
	if got := batch.Progress.Completed; got != 3 {
		t.Errorf("completed = %d, want 3", got)
	}
	if len(batch.Progress.FailedFiles) != 1 || batch.Progress.FailedFiles[0].Name != "bad.pdf" {
		t.Errorf("failedFiles = %+v", batch.Progress.FailedFiles)
	}
	if !strings.Contains(batch.Progress.FailedFiles[0].Error, "corrupt file") {
		t.Errorf("failure reason = %q", batch.Progress.FailedFiles[0].Error)
	}
	if want := []domain.CompletedFile{{Name: "ok.pdf", Pages: 2}, {Name: "ok2.pdf", Pages: 1}}; len(batch.Progress.CompletedFiles) != 2 ||
		batch.Progress.CompletedFiles[0] != want[0] || batch.Progress.CompletedFiles[1] != want[1] {
		t.Errorf("completedFiles = %+v", batch.Progress.CompletedFiles)
	}
}

func TestRunSequentialOrder(t *testing.T) {
	ex := &fakeExtractor{results: map[string]*extract.UploadResult{
		"1.pdf": result("1.pdf", 1, 1),
		"2.pdf": result("2.pdf", 1, 1),
		"3.pdf": result("3.pdf", 1, 1),
	}}
	o := New(ex, zerolog.Nop())

	if _, err := o.Run(context.Background(), sources("1.pdf", "2.pdf", "3.pdf"), extract.UploadOptions{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{"1.pdf", "2.pdf", "3.pdf"}
	if len(ex.calls) != len(want) {
		t.Fatalf("calls = %v", ex.calls)
	}
	for i := range want {
		if ex.calls[i] != want[i] {
			t.Errorf("call %d = %s, want %s", i, ex.calls[i], want[i])
		}
	}
}

func TestRunAllFailed(t *testing.T) {
	ex := &fakeExtractor{errs: map[string]error{
		"a.pdf": errors.New("timeout"),
		"b.pdf": errors.New("unreadable"),
	}}
	o := New(ex, zerolog.Nop())

	_, err := o.Run(context.Background(), sources("a.pdf", "b.pdf"), extract.UploadOptions{})
	if !errors.Is(err, ErrAllFilesFailed) {
		t.Fatalf("err = %v, want ErrAllFilesFailed", err)
	}
	// The hard-failure error concatenates every per-file reason.
	for _, want := range []string{"a.pdf: timeout", "b.pdf: unreadable"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err.Error(), want)
		}
	}
}

func TestCancelStopsBeforeNextFile(t *testing.T) {
	ex := &fakeExtractor{results: map[string]*extract.UploadResult{
		"1.pdf": result("1.pdf", 1, 2),
		"2.pdf": result("2.pdf", 1, 2),
		"3.pdf": result("3.pdf", 1, 2),
	}}
	o := New(ex, zerolog.Nop())
	// Cancel while file 1 is in flight: it completes, file 2 never starts.
	ex.onCall = func(filename string) {
		if filename == "1.pdf" {
			o.Cancel()
		}
	}

	batch, err := o.Run(context.Background(), sources("1.pdf", "2.pdf", "3.pdf"), extract.UploadOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(ex.calls) != 1 {
		t.Fatalf("calls = %v, want just 1.pdf", ex.calls)
	}
	if !batch.Cancelled {
		t.Error("batch not marked cancelled")
	}
	if len(batch.Statements) != 1 || batch.Statements[0].Filename != "1.pdf" {
		t.Errorf("statements = %+v", batch.Statements)
	}
}

func TestCancelWithZeroSuccesses(t *testing.T) {
	ex := &fakeExtractor{errs: map[string]error{"1.pdf": errors.New("boom")}}
	o := New(ex, zerolog.Nop())
	ex.onCall = func(string) { o.Cancel() }

	batch, err := o.Run(context.Background(), sources("1.pdf", "2.pdf"), extract.UploadOptions{})
	if err != nil {
		t.Fatalf("cancelled batch must not surface an error, got %v", err)
	}
	if !batch.Cancelled || len(batch.Statements) != 0 {
		t.Errorf("batch = %+v, want cancelled and empty", batch)
	}
}

func TestSessionExpiryAbortsBatch(t *testing.T) {
	ex := &fakeExtractor{errs: map[string]error{"1.pdf": domain.ErrSessionExpired}}
	o := New(ex, zerolog.Nop())

	_, err := o.Run(context.Background(), sources("1.pdf", "2.pdf"), extract.UploadOptions{})
	if !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if len(ex.calls) != 1 {
		t.Errorf("calls = %v; expiry must not try further files", ex.calls)
	}
}

func TestUsageLastWriteWins(t *testing.T) {
	first := result("1.pdf", 1, 1)
	first.Usage = &domain.UsageSnapshot{MonthPages: 1}
	second := result("2.pdf", 1, 1)
	second.Usage = &domain.UsageSnapshot{MonthPages: 2}
	third := result("3.pdf", 1, 1) // nil usage must not clear the snapshot

	ex := &fakeExtractor{results: map[string]*extract.UploadResult{
		"1.pdf": first, "2.pdf": second, "3.pdf": third,
	}}
	o := New(ex, zerolog.Nop())

	batch, err := o.Run(context.Background(), sources("1.pdf", "2.pdf", "3.pdf"), extract.UploadOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if batch.Usage == nil || batch.Usage.MonthPages != 2 {
		t.Errorf("usage = %+v, want month_pages=2", batch.Usage)
	}
}

func TestMockModeSticky(t *testing.T) {
	mock := result("1.pdf", 1, 1)
	mock.MockMode = true
	ex := &fakeExtractor{results: map[string]*extract.UploadResult{
		"1.pdf": mock, "2.pdf": result("2.pdf", 1, 1),
	}}
	o := New(ex, zerolog.Nop())

	batch, err := o.Run(context.Background(), sources("1.pdf", "2.pdf"), extract.UploadOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !batch.MockMode {
		t.Error("mock_mode from an earlier file was lost")
	}
}

func TestRunAppendKeepsPreviousStatements(t *testing.T) {
	ex := &fakeExtractor{results: map[string]*extract.UploadResult{"old.pdf": result("old.pdf", 1, 1)}}
	o := New(ex, zerolog.Nop())
	prev, err := o.Run(context.Background(), sources("old.pdf"), extract.UploadOptions{})
	if err != nil {
		t.Fatalf("seed batch: %v", err)
	}

	// Every new file fails; the old statements survive and no hard error is
	// raised.
	ex.errs = map[string]error{"new.pdf": errors.New("boom")}
	batch, err := o.RunAppend(context.Background(), prev, sources("new.pdf"), extract.UploadOptions{})
	if err != nil {
		t.Fatalf("RunAppend: %v", err)
	}
	if len(batch.Statements) != 1 || batch.Statements[0].Filename != "old.pdf" {
		t.Errorf("previous statements lost: %+v", batch.Statements)
	}
	if len(batch.Progress.FailedFiles) != 1 {
		t.Errorf("failedFiles = %+v", batch.Progress.FailedFiles)
	}

	// A successful append extends the accumulation in order.
	ex.errs = nil
	ex.results["new.pdf"] = result("new.pdf", 1, 1)
	batch, err = o.RunAppend(context.Background(), batch, sources("new.pdf"), extract.UploadOptions{})
	if err != nil {
		t.Fatalf("RunAppend: %v", err)
	}
	if len(batch.Statements) != 2 || batch.Statements[1].Filename != "new.pdf" {
		t.Errorf("statements = %+v", batch.Statements)
	}
}

func TestProgressSnapshots(t *testing.T) {
	ex := &fakeExtractor{results: map[string]*extract.UploadResult{"1.pdf": result("1.pdf", 1, 1)}}
	var snaps []domain.UploadProgress
	o := New(ex, zerolog.Nop(), WithProgress(func(p domain.UploadProgress) {
		snaps = append(snaps, p)
	}))

	if _, err := o.Run(context.Background(), sources("1.pdf"), extract.UploadOptions{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// init, current-file set, file settled.
	if len(snaps) != 3 {
		t.Fatalf("snapshots = %d, want 3", len(snaps))
	}
	if snaps[1].CurrentFile != "1.pdf" {
		t.Errorf("mid snapshot current_file = %q", snaps[1].CurrentFile)
	}
	if snaps[2].Completed != 1 || snaps[2].CurrentFile != "" {
		t.Errorf("final snapshot = %+v", snaps[2])
	}
}

func TestOpenFailureIsFileFailure(t *testing.T) {
	ex := &fakeExtractor{results: map[string]*extract.UploadResult{"ok.pdf": result("ok.pdf", 1, 1)}}
	o := New(ex, zerolog.Nop())

	srcs := []Source{
		fakeSource{name: "missing.pdf", openErr: errors.New("no such file")},
		fakeSource{name: "ok.pdf", content: "%PDF"},
	}
	batch, err := o.Run(context.Background(), srcs, extract.UploadOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(batch.Progress.FailedFiles) != 1 || batch.Progress.FailedFiles[0].Name != "missing.pdf" {
		t.Errorf("failedFiles = %+v", batch.Progress.FailedFiles)
	}
	if len(ex.calls) != 1 || ex.calls[0] != "ok.pdf" {
		t.Errorf("calls = %v", ex.calls)
	}
}

func TestParseSource(t *testing.T) {
	src, err := ParseSource("gs://bucket/statements/jan.pdf", false)
	if err != nil {
		t.Fatalf("ParseSource: %v", err)
	}
	gcs, ok := src.(GCSSource)
	if !ok || gcs.Bucket != "bucket" || gcs.Object != "statements/jan.pdf" {
		t.Errorf("src = %+v", src)
	}
	if gcs.Name() != "jan.pdf" {
		t.Errorf("Name = %q", gcs.Name())
	}

	if _, err := ParseSource("gs://only-bucket", false); err == nil {
		t.Error("invalid GCS URI accepted")
	}

	local, err := ParseSource("/tmp/x/feb.pdf", false)
	if err != nil {
		t.Fatalf("ParseSource local: %v", err)
	}
	if local.Name() != "feb.pdf" {
		t.Errorf("local Name = %q", local.Name())
	}
}
