package batch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/notepdf/internal/ledger"
	"github.com/tsawler/notepdf/internal/notetest"
	"github.com/tsawler/notepdf/note"
	"github.com/tsawler/notepdf/pdfwriter"
	"github.com/tsawler/notepdf/stroke"
)

func TestMain(m *testing.M) {
	api.DisableConfigDir()
	os.Exit(m.Run())
}

var fixedNow = func() time.Time { return time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC) }

func writeNote(t *testing.T, dir, name string, nb notetest.Notebook) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nb.Bytes(), 0o644))
	return path
}

func notebook(stamp string, pages int) notetest.Notebook {
	return notetest.Notebook{FileID: notetest.FileID(stamp), Pages: notetest.Pages(pages)}
}

func openLedger(t *testing.T) *ledger.DB {
	t.Helper()
	db, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func pageCount(t *testing.T, path string) int {
	t.Helper()
	n, err := api.PageCountFile(path)
	require.NoError(t, err)
	return n
}

func TestRunConverts(t *testing.T) {
	dir := t.TempDir()
	writeNote(t, dir, "a.note", notebook("20240307101500", 2))
	writeNote(t, dir, "b.note", notebook("20240308101500", 3))

	jobs, err := Discover([]string{dir}, "", false)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	report, err := Run(context.Background(), jobs, Config{Workers: 2, Now: fixedNow})
	require.NoError(t, err)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 2, report.Count(StatusConverted))

	a, ok := report.Result(jobs[0].Source)
	require.True(t, ok)
	assert.Equal(t, 2, a.Pages)
	assert.Equal(t, "2024-03-07", a.Captured.Format("2006-01-02"))
	assert.Equal(t, 2, pageCount(t, a.Output))

	b, _ := report.Result(jobs[1].Source)
	assert.Equal(t, 3, pageCount(t, b.Output))
}

func TestRunSkipsUnchanged(t *testing.T) {
	dir := t.TempDir()
	a := writeNote(t, dir, "a.note", notebook("20240307101500", 2))
	writeNote(t, dir, "b.note", notebook("20240308101500", 1))
	jobs, err := Discover([]string{dir}, filepath.Join(dir, "out"), false)
	require.NoError(t, err)

	cfg := Config{Workers: 2, Ledger: openLedger(t), Now: fixedNow}
	ctx := context.Background()

	report, err := Run(ctx, jobs, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Count(StatusConverted))
	first, _ := report.Result(a)
	before, err := os.ReadFile(first.Output)
	require.NoError(t, err)

	report, err = Run(ctx, jobs, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Count(StatusSkipped))
	skipped, _ := report.Result(a)
	assert.Equal(t, 2, skipped.Pages)
	assert.Equal(t, first.Captured, skipped.Captured)

	after, err := os.ReadFile(first.Output)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	// Changing the source reconverts only that notebook.
	writeNote(t, dir, "a.note", notebook("20240307101500", 3))
	report, err = Run(ctx, jobs, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Count(StatusConverted))
	assert.Equal(t, 1, report.Count(StatusSkipped))
	res, _ := report.Result(a)
	assert.Equal(t, StatusConverted, res.Status)
	assert.Equal(t, 3, pageCount(t, res.Output))

	// Changing an option changes every fingerprint.
	cfg.Convert.Mode = pdfwriter.ModeRaster
	cfg.Convert.RasterDPI = 72
	report, err = Run(ctx, jobs, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Count(StatusConverted))

	cfg.Force = true
	report, err = Run(ctx, jobs, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Count(StatusConverted))
}

func TestRunReconvertsMissingOutput(t *testing.T) {
	dir := t.TempDir()
	writeNote(t, dir, "a.note", notebook("20240307101500", 1))
	jobs, err := Discover([]string{dir}, "", false)
	require.NoError(t, err)
	cfg := Config{Ledger: openLedger(t), Now: fixedNow}

	_, err = Run(context.Background(), jobs, cfg)
	require.NoError(t, err)
	require.NoError(t, os.Remove(jobs[0].Output))

	report, err := Run(context.Background(), jobs, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Count(StatusConverted))
	assert.FileExists(t, jobs[0].Output)
}

func TestRunIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	good := writeNote(t, dir, "good.note", notebook("20240307101500", 2))

	truncated := filepath.Join(dir, "truncated.note")
	data := notebook("20240307101500", 1).Bytes()
	require.NoError(t, os.WriteFile(truncated, data[:len(data)-6], 0o644))

	pages := notetest.Pages(2)
	pages[1].RawStrokes = []byte{1, 0, 0, 0, 'X', 0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0}
	corrupt := writeNote(t, dir, "corrupt.note", notetest.Notebook{Pages: pages})

	jobs, err := Discover([]string{dir}, "", false)
	require.NoError(t, err)
	require.Len(t, jobs, 3)

	report, err := Run(context.Background(), jobs, Config{Workers: 3, Now: fixedNow})
	require.Error(t, err)

	var oe *OrchestratorError
	require.True(t, errors.As(err, &oe))
	assert.Len(t, oe.Failures, 2)
	assert.True(t, errors.Is(err, stroke.ErrCorrupt))

	res, _ := report.Result(good)
	assert.Equal(t, StatusConverted, res.Status)
	assert.Equal(t, 2, pageCount(t, res.Output))

	res, _ = report.Result(truncated)
	assert.Equal(t, StatusFailed, res.Status)
	var ce *ConversionError
	require.True(t, errors.As(res.Err, &ce))
	assert.Equal(t, StageReader, ce.Stage)
	var fe *note.FormatError
	assert.True(t, errors.As(res.Err, &fe))
	assert.ErrorIs(t, res.Err, note.ErrTruncatedBlock)
	assert.NoFileExists(t, res.Output)

	res, _ = report.Result(corrupt)
	assert.Equal(t, StatusFailed, res.Status)
	require.True(t, errors.As(res.Err, &ce))
	assert.Equal(t, StageReconstructor, ce.Stage)
	assert.NoFileExists(t, res.Output, "partial output must not be left behind")
}

func TestRunMissingSource(t *testing.T) {
	jobs := []Job{{Source: filepath.Join(t.TempDir(), "gone.note"), Output: filepath.Join(t.TempDir(), "gone.pdf")}}
	report, err := Run(context.Background(), jobs, Config{Now: fixedNow})
	require.Error(t, err)

	res, ok := report.Result(jobs[0].Source)
	require.True(t, ok)
	var ioErr *IOError
	require.True(t, errors.As(res.Err, &ioErr))
	assert.Equal(t, "read", ioErr.Op)
	assert.True(t, errors.Is(res.Err, os.ErrNotExist))
}

func TestRunMerges(t *testing.T) {
	dir := t.TempDir()
	writeNote(t, dir, "a.note", notebook("20240307090000", 2))
	writeNote(t, dir, "b.note", notebook("20240307140000", 3))
	writeNote(t, dir, "c.note", notebook("20240307180000", 1))
	writeNote(t, dir, "d.note", notebook("20240309100000", 1))

	jobs, err := Discover([]string{dir}, filepath.Join(dir, "pdf"), false)
	require.NoError(t, err)

	mergeDir := filepath.Join(dir, "merged")
	cfg := Config{
		Workers:  2,
		Merge:    true,
		MergeDir: mergeDir,
		Ledger:   openLedger(t),
		Now:      fixedNow,
	}
	report, err := Run(context.Background(), jobs, cfg)
	require.NoError(t, err)
	require.NotNil(t, report.Merge)
	require.Len(t, report.Merge.Outputs, 2)

	day := report.Merge.Outputs[0]
	assert.Equal(t, "2024-03-07", day.Date)
	assert.Equal(t, filepath.Join(mergeDir, "2024-03-07.pdf"), day.Path)
	assert.Equal(t, 3, day.Inputs)
	assert.Equal(t, 6, day.Pages)
	assert.Equal(t, 6, pageCount(t, day.Path))
	assert.Equal(t, 1, pageCount(t, report.Merge.Outputs[1].Path))

	// A second run leaves the merged outputs alone.
	report, err = Run(context.Background(), jobs, cfg)
	require.NoError(t, err)
	for _, o := range report.Merge.Outputs {
		assert.True(t, o.Skipped, o.Path)
	}
}

func TestRunMergeKeepsEarlierMembers(t *testing.T) {
	dir := t.TempDir()
	writeNote(t, dir, "a.note", notebook("20240307090000", 2))
	b := writeNote(t, dir, "b.note", notebook("20240307140000", 3))
	writeNote(t, dir, "c.note", notebook("20240307180000", 1))

	jobs, err := Discover([]string{dir}, filepath.Join(dir, "pdf"), false)
	require.NoError(t, err)
	cfg := Config{
		Merge:    true,
		MergeDir: filepath.Join(dir, "merged"),
		Ledger:   openLedger(t),
		Now:      fixedNow,
	}
	ctx := context.Background()

	report, err := Run(ctx, jobs, cfg)
	require.NoError(t, err)
	require.Len(t, report.Merge.Outputs, 1)
	assert.Equal(t, 6, pageCount(t, report.Merge.Outputs[0].Path))

	// Reconverting one notebook rebuilds the day from every recorded member.
	writeNote(t, dir, "b.note", notebook("20240307140000", 4))
	var only []Job
	for _, j := range jobs {
		if j.Source == b {
			only = append(only, j)
		}
	}
	require.Len(t, only, 1)

	report, err = Run(ctx, only, cfg)
	require.NoError(t, err)
	require.Len(t, report.Merge.Outputs, 1)
	day := report.Merge.Outputs[0]
	assert.False(t, day.Skipped)
	assert.Equal(t, 3, day.Inputs)
	assert.Equal(t, 7, pageCount(t, day.Path))

	// Without changes, the subset run leaves the day alone.
	report, err = Run(ctx, only, cfg)
	require.NoError(t, err)
	require.Len(t, report.Merge.Outputs, 1)
	assert.True(t, report.Merge.Outputs[0].Skipped)
}

func TestRunMergeRange(t *testing.T) {
	dir := t.TempDir()
	writeNote(t, dir, "old.note", notebook("20240101090000", 1))
	writeNote(t, dir, "new.note", notebook("20240318090000", 1))
	jobs, err := Discover([]string{dir}, "", false)
	require.NoError(t, err)

	report, err := Run(context.Background(), jobs, Config{
		Merge:     true,
		MergeDir:  filepath.Join(dir, "merged"),
		TimeRange: "week",
		Now:       fixedNow,
	})
	require.NoError(t, err)
	require.Len(t, report.Merge.Outputs, 1)
	assert.Equal(t, "2024-03-18", report.Merge.Outputs[0].Date)
}

func TestRunCanceled(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.note", "b.note", "c.note"} {
		writeNote(t, dir, name, notebook("20240307090000", 1))
	}
	jobs, err := Discover([]string{dir}, "", false)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := Run(ctx, jobs, Config{Merge: true, MergeDir: filepath.Join(dir, "merged"), Now: fixedNow})
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, report.Results, 3)
	assert.Equal(t, 3, report.Count(StatusCanceled))
	assert.Nil(t, report.Merge)
	for _, j := range jobs {
		assert.NoFileExists(t, j.Output)
	}
	assert.NoDirExists(t, filepath.Join(dir, "merged"))
}

// blockingFetcher holds every fetch until the context is canceled.
type blockingFetcher struct {
	started chan struct{}
	once    sync.Once
}

func (f *blockingFetcher) Fetch(ctx context.Context, _ string, _ io.Writer) error {
	f.once.Do(func() { close(f.started) })
	<-ctx.Done()
	return ctx.Err()
}

func TestRunCanceledMidway(t *testing.T) {
	jobs := make([]Job, 20)
	for i := range jobs {
		jobs[i] = Job{Source: filepath.Join("src", string(rune('a'+i))+".note"), Output: filepath.Join(t.TempDir(), "x.pdf")}
	}
	f := &blockingFetcher{started: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-f.started
		cancel()
	}()

	report, err := Run(ctx, jobs, Config{Workers: 2, PerWorkerBuffer: 1, Fetcher: f, Now: fixedNow})
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, report.Results, len(jobs))
	assert.Equal(t, len(jobs), report.Count(StatusCanceled))
}

func TestRunOnResult(t *testing.T) {
	dir := t.TempDir()
	writeNote(t, dir, "a.note", notebook("20240307090000", 1))
	writeNote(t, dir, "b.note", notebook("20240307090000", 1))
	jobs, err := Discover([]string{dir}, "", false)
	require.NoError(t, err)

	var seen []string
	_, err = Run(context.Background(), jobs, Config{
		Workers:  2,
		Now:      fixedNow,
		OnResult: func(r JobResult) { seen = append(seen, r.Source) },
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{jobs[0].Source, jobs[1].Source}, seen)
}

func TestReportYAML(t *testing.T) {
	dir := t.TempDir()
	writeNote(t, dir, "a.note", notebook("20240307090000", 2))
	jobs, err := Discover([]string{dir}, "", false)
	require.NoError(t, err)
	report, err := Run(context.Background(), jobs, Config{Now: fixedNow})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, report.WriteYAML(&buf))
	out := buf.String()
	assert.Contains(t, out, "run_id: "+report.RunID)
	assert.Contains(t, out, "converted: 1")
	assert.Contains(t, out, "status: converted")
	assert.Contains(t, out, "pages: 2")
	assert.Contains(t, out, "2024-03-07T09:00:00Z")

	buf.Reset()
	report.Summary(&buf)
	assert.Contains(t, buf.String(), "1 converted, 0 skipped, 0 failed, 0 canceled (total: 1)")
}
