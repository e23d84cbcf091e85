// Package batch converts many notebooks concurrently.
//
// A fixed pool of workers pulls jobs from a bounded queue. Jobs share
// nothing writable: results flow to a single collector goroutine that owns
// the run report and the ledger writes. Failures are isolated to their job.
// After every job has finished the optional merge stage runs once, as the
// only writer of the merged outputs.
package batch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/tsawler/notepdf/internal/ledger"
	"github.com/tsawler/notepdf/internal/logging"
	"github.com/tsawler/notepdf/merge"
	"github.com/tsawler/notepdf/note"
	"github.com/tsawler/notepdf/ocr"
	"github.com/tsawler/notepdf/pdfwriter"
	"github.com/tsawler/notepdf/stroke"
)

// Defaults for Config.
const (
	DefaultWorkers         = 4
	DefaultPerWorkerBuffer = 2
)

// Config controls a run.
type Config struct {
	Workers         int
	PerWorkerBuffer int
	Convert         ConvertOptions
	// Force reconverts and remerges even when fingerprints match.
	Force bool

	Merge     bool
	MergeDir  string
	TimeRange merge.Range

	Fetcher    Fetcher        // LocalFetcher when nil
	Recognizer ocr.Recognizer // used when Convert.OCR is set
	Ledger     *ledger.DB     // optional; without it nothing is skipped
	Now        func() time.Time
	// OnResult is called by the collector for every finished job.
	OnResult func(JobResult)
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.PerWorkerBuffer <= 0 {
		c.PerWorkerBuffer = DefaultPerWorkerBuffer
	}
	if c.Fetcher == nil {
		c.Fetcher = LocalFetcher{}
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

var bufPool = sync.Pool{
	New: func() interface{} { return new(bytes.Buffer) },
}

// Run converts jobs and, when configured, merges the results by capture
// date. The report is always returned. The error is an *OrchestratorError
// when jobs failed, the context error when the run was canceled, or a setup
// error.
func Run(ctx context.Context, jobs []Job, cfg Config) (*Report, error) {
	cfg = cfg.withDefaults()
	log := logging.From(ctx)

	report := &Report{RunID: uuid.NewString(), Started: cfg.Now()}
	capacity := cfg.Workers * cfg.PerWorkerBuffer
	queue := make(chan Job, capacity)
	results := make(chan JobResult, capacity)
	sem := semaphore.NewWeighted(int64(capacity))

	log.Info().Str("run", report.RunID).Int("jobs", len(jobs)).Int("workers", cfg.Workers).Msg("batch started")

	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for res := range results {
			if res.Status == StatusConverted && cfg.Ledger != nil {
				err := cfg.Ledger.Record(context.WithoutCancel(ctx), ledger.Entry{
					Source:      res.Source,
					Output:      res.Output,
					Fingerprint: res.Fingerprint,
					Captured:    res.Captured,
					Pages:       res.Pages,
				})
				if err != nil {
					log.Warn().Err(err).Str("source", res.Source).Msg("ledger write failed")
				}
			}
			report.Results = append(report.Results, res)
			if cfg.OnResult != nil {
				cfg.OnResult(res)
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(queue)
		for i, job := range jobs {
			if err := sem.Acquire(gctx, 1); err != nil {
				for _, rest := range jobs[i:] {
					results <- JobResult{Source: rest.Source, Output: rest.Output, Status: StatusCanceled, Err: err}
				}
				return nil
			}
			queue <- job
		}
		return nil
	})
	for w := 0; w < cfg.Workers; w++ {
		g.Go(func() error {
			for job := range queue {
				results <- convert(gctx, job, cfg)
				sem.Release(1)
			}
			return nil
		})
	}
	g.Wait()
	close(results)
	<-collected

	if err := ctx.Err(); err != nil {
		report.Finished = cfg.Now()
		log.Warn().Str("run", report.RunID).Msg("batch canceled")
		return report, err
	}

	if cfg.Merge {
		entries, err := mergeEntries(ctx, report, cfg.Ledger)
		if err != nil {
			report.Finished = cfg.Now()
			return report, err
		}
		mres, err := merge.Run(ctx, entries, merge.Options{
			Dir:    cfg.MergeDir,
			Range:  cfg.TimeRange,
			Now:    cfg.Now,
			Force:  cfg.Force,
			Ledger: ledgerOrNil(cfg.Ledger),
		})
		report.Merge = mres
		if err != nil {
			report.Finished = cfg.Now()
			return report, err
		}
	}

	report.Finished = cfg.Now()
	log.Info().
		Str("run", report.RunID).
		Int("converted", report.Count(StatusConverted)).
		Int("skipped", report.Count(StatusSkipped)).
		Int("failed", report.Count(StatusFailed)).
		Msg("batch finished")

	if failures := report.Failures(); len(failures) > 0 {
		return report, &OrchestratorError{Failures: failures}
	}
	return report, nil
}

// ledgerOrNil avoids handing merge a typed nil interface.
func ledgerOrNil(db *ledger.DB) merge.Ledger {
	if db == nil {
		return nil
	}
	return db
}

// mergeEntries returns this run's outputs plus, for every capture date the
// run touched, the outputs the ledger recorded for other notebooks. A day's
// merged file therefore keeps members that were not part of this run.
func mergeEntries(ctx context.Context, r *Report, db *ledger.DB) ([]merge.Entry, error) {
	var out []merge.Entry
	inRun := map[string]bool{}
	dates := map[string]bool{}
	for _, res := range r.Results {
		if res.Status != StatusConverted && res.Status != StatusSkipped {
			continue
		}
		inRun[res.Source] = true
		if !res.Captured.IsZero() {
			dates[merge.Date(res.Captured)] = true
		}
		out = append(out, merge.Entry{
			Path:        res.Output,
			Source:      res.Source,
			Captured:    res.Captured,
			Fingerprint: res.Fingerprint,
		})
	}
	if db == nil || len(dates) == 0 {
		return out, nil
	}

	recorded, err := db.Entries(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range recorded {
		if inRun[e.Source] || e.Captured.IsZero() || !dates[merge.Date(e.Captured)] {
			continue
		}
		if _, err := os.Stat(e.Output); err != nil {
			continue
		}
		out = append(out, merge.Entry{
			Path:        e.Output,
			Source:      e.Source,
			Captured:    e.Captured,
			Fingerprint: e.Fingerprint,
		})
	}
	return out, nil
}

// convert runs one job. Every error is captured in the result.
func convert(ctx context.Context, job Job, cfg Config) (res JobResult) {
	start := time.Now()
	res = JobResult{Source: job.Source, Output: job.Output}
	defer func() {
		res.Duration = time.Since(start)
		if res.Err != nil && res.Status == "" {
			res.Status = StatusFailed
		}
		if res.Status == StatusFailed && ctx.Err() != nil {
			res.Status = StatusCanceled
		}
	}()

	if err := ctx.Err(); err != nil {
		res.Status, res.Err = StatusCanceled, err
		return res
	}

	buf := bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufPool.Put(buf)

	if err := cfg.Fetcher.Fetch(ctx, job.Source, buf); err != nil {
		var ioErr *IOError
		if !errors.As(err, &ioErr) {
			err = &IOError{Op: "read", Path: job.Source, Err: err}
		}
		res.Err = err
		return res
	}
	data := buf.Bytes()
	res.Fingerprint = Fingerprint(data, cfg.Convert)

	if !cfg.Force && cfg.Ledger != nil {
		if prev, ok := upToDate(ctx, cfg.Ledger, job, res.Fingerprint); ok {
			res.Status = StatusSkipped
			res.Pages = prev.Pages
			res.Captured = prev.Captured
			return res
		}
	}

	f, err := note.Parse(data, note.Options{Name: filepath.Base(job.Source), Exact: cfg.Convert.Exact})
	if err != nil {
		res.Err = &ConversionError{Stage: StageReader, Path: job.Source, Err: err}
		return res
	}
	meta := f.Metadata()
	res.Captured = meta.Captured

	if err := os.MkdirAll(filepath.Dir(job.Output), 0o755); err != nil {
		res.Err = &IOError{Op: "mkdir", Path: filepath.Dir(job.Output), Err: err}
		return res
	}

	opts := pdfwriter.Options{
		Mode:         cfg.Convert.Mode,
		RasterDPI:    cfg.Convert.RasterDPI,
		OmitLinks:    cfg.Convert.OmitLinks,
		HiddenLayers: cfg.Convert.HiddenLayers,
		SourceDigest: SourceDigest(data),
	}
	if cfg.Convert.OCR {
		opts.Recognizer = cfg.Recognizer
	}
	out, err := pdfwriter.WriteFile(ctx, job.Output, f, opts)
	if err != nil {
		res.Err = classify(job, err)
		return res
	}

	res.Status = StatusConverted
	res.Pages = out.Pages
	res.Warnings = append(f.Warnings(), out.Warnings...)
	return res
}

func upToDate(ctx context.Context, db *ledger.DB, job Job, fingerprint string) (ledger.Entry, bool) {
	prev, ok, err := db.Lookup(ctx, job.Source)
	if err != nil || !ok || prev.Fingerprint != fingerprint || prev.Output != job.Output {
		return ledger.Entry{}, false
	}
	if _, err := os.Stat(job.Output); err != nil {
		return ledger.Entry{}, false
	}
	return prev, true
}

// classify maps an emission error to the stage that caused it. Pages are
// decoded lazily, so reader and reconstructor failures surface here too.
func classify(job Job, err error) error {
	var fe *note.FormatError
	var pe *os.PathError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, stroke.ErrCorrupt):
		return &ConversionError{Stage: StageReconstructor, Path: job.Source, Err: err}
	case errors.As(err, &fe):
		return &ConversionError{Stage: StageReader, Path: job.Source, Err: err}
	case errors.As(err, &pe):
		return &IOError{Op: "write", Path: job.Output, Err: err}
	default:
		return &ConversionError{Stage: StageEmitter, Path: job.Source, Err: err}
	}
}
