package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/tsawler/notepdf/batch"
	"github.com/tsawler/notepdf/internal/ledger"
	"github.com/tsawler/notepdf/internal/logging"
	"github.com/tsawler/notepdf/ocr"
	"github.com/tsawler/notepdf/pdfwriter"
)

// addConvertFlags registers the flags shared by every converting command.
func addConvertFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("output", "o", "", "output directory (default: next to each notebook)")
	f.IntP("workers", "w", 4, "number of concurrent conversions")
	f.Int("buffer", 2, "notebooks buffered per worker")
	f.Bool("raster", false, "embed pages as images instead of vector strokes")
	f.Float64("dpi", 150, "raster resolution")
	f.Bool("links", true, "write link annotations")
	f.Bool("no-links", false, "omit link annotations")
	f.BoolP("force", "f", false, "reconvert even when the output is up to date")
	f.Bool("exact", false, "keep every recorded stroke point")
	f.Bool("hidden-layers", false, "also draw hidden layers")
	f.Bool("merge", false, "merge converted notebooks into one PDF per day")
	f.String("merge-dir", "", "directory for merged PDFs (default pdf_notes)")
	f.String("range", "", "merge only notebooks captured within: all, week, 2weeks, month")
	f.Bool("ocr", false, "add a searchable text layer (needs a build with -tags ocr)")
	f.String("ocr-lang", "eng", "OCR languages, joined with +")
	f.Int("ocr-psm", 11, "Tesseract page segmentation mode (11: sparse text)")
	f.String("report", "", "write a YAML run report to this file")
}

func convertOptions() batch.ConvertOptions {
	opts := batch.ConvertOptions{
		RasterDPI:    cfg.DPI,
		OmitLinks:    !cfg.Links,
		Exact:        cfg.Exact,
		HiddenLayers: cfg.Hidden,
		OCR:          cfg.OCR.Enabled,
	}
	if cfg.Raster {
		opts.Mode = pdfwriter.ModeRaster
	}
	return opts
}

// runBatch converts jobs with a progress bar, prints the summary and writes
// the report when asked to.
func runBatch(cmd *cobra.Command, jobs []batch.Job, fetcher batch.Fetcher) error {
	ctx := cmd.Context()
	log := logging.From(ctx)

	if len(jobs) == 0 {
		color.New(color.FgYellow).Fprintln(os.Stderr, "⚠ no notebooks found")
		return nil
	}

	db, err := openLedger()
	if err != nil {
		return err
	}
	defer db.Close()

	rc := batch.Config{
		Workers:         cfg.Workers,
		PerWorkerBuffer: cfg.Buffer,
		Convert:         convertOptions(),
		Force:           cfg.Force,
		Merge:           cfg.Merge,
		MergeDir:        cfg.MergeDir,
		TimeRange:       cfg.TimeRange(),
		Fetcher:         fetcher,
		Ledger:          db,
	}

	if cfg.OCR.Enabled {
		rec, err := ocr.New()
		if err != nil {
			return fmt.Errorf("ocr: %w", err)
		}
		defer rec.Close()
		if err := rec.SetLanguage(cfg.OCR.Lang); err != nil {
			return fmt.Errorf("ocr: %w", err)
		}
		if cfg.OCR.PSM != 0 {
			if err := rec.SetPageSegMode(ocr.PageSegMode(cfg.OCR.PSM)); err != nil {
				return fmt.Errorf("ocr: %w", err)
			}
		}
		rc.Recognizer = rec
	}

	bar := newProgressBar(len(jobs), "converting")
	rc.OnResult = func(r batch.JobResult) {
		bar.Add(1)
		for _, w := range r.Warnings {
			log.Warn().Str("source", r.Source).Msg(w.String())
		}
	}

	report, err := batch.Run(ctx, jobs, rc)
	bar.Finish()
	if report != nil {
		printSummary(report)
		if path, _ := cmd.Flags().GetString("report"); path != "" {
			if werr := writeReport(report, path); werr != nil {
				return werr
			}
		}
	}

	var oe *batch.OrchestratorError
	switch {
	case errors.As(err, &oe):
		return fmt.Errorf("%d of %d notebooks failed", len(oe.Failures), len(jobs))
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("interrupted")
	}
	return err
}

func openLedger() (*ledger.DB, error) {
	path := cfg.Ledger
	if path == "" {
		return nil, errors.New("no ledger path configured")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("ledger: %w", err)
		}
	}
	return ledger.Open(path)
}

func writeReport(r *batch.Report, path string) error {
	return pdfwriter.AtomicWrite(path, r.WriteYAML)
}

func newProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("notebooks"),
		progressbar.OptionOnCompletion(func() { fmt.Fprint(os.Stderr, "\n") }),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func printSummary(r *batch.Report) {
	ok := color.New(color.FgGreen)
	warn := color.New(color.FgYellow)
	bad := color.New(color.FgRed)

	ok.Printf("✓ %d converted", r.Count(batch.StatusConverted))
	fmt.Printf(", %d up to date", r.Count(batch.StatusSkipped))
	if n := r.Count(batch.StatusFailed); n > 0 {
		bad.Printf(", %d failed", n)
	}
	if n := r.Count(batch.StatusCanceled); n > 0 {
		warn.Printf(", %d canceled", n)
	}
	fmt.Println()

	for _, f := range r.Failures() {
		bad.Printf("  ✗ %s: %v\n", f.Source, f.Err)
	}
	if r.Merge == nil {
		return
	}
	for _, o := range r.Merge.Outputs {
		switch {
		case o.Err != nil:
			bad.Printf("  ✗ merge %s: %v\n", o.Path, o.Err)
		case o.Skipped:
			fmt.Printf("  = %s (unchanged)\n", o.Path)
		default:
			ok.Printf("  ✓ %s (%d notebooks, %d pages)\n", o.Path, o.Inputs, o.Pages)
		}
	}
	for _, w := range r.Merge.Warnings {
		warn.Printf("  ⚠ %s\n", w)
	}
}
