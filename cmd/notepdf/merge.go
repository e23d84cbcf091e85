package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tsawler/notepdf/merge"
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge previously converted notebooks into one PDF per day",
	Long: `Merge combines the PDFs recorded in the ledger by earlier conversions into
one document per capture day, ordered by capture time. Days whose inputs are
unchanged are left alone unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: runMerge,
}

func init() {
	f := mergeCmd.Flags()
	f.String("merge-dir", "", "directory for merged PDFs (default pdf_notes)")
	f.String("range", "", "merge only notebooks captured within: all, week, 2weeks, month")
	f.BoolP("force", "f", false, "rewrite merged PDFs even when unchanged")

	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	db, err := openLedger()
	if err != nil {
		return err
	}
	defer db.Close()

	recorded, err := db.Entries(ctx)
	if err != nil {
		return err
	}
	var entries []merge.Entry
	for _, e := range recorded {
		if _, err := os.Stat(e.Output); err != nil {
			continue
		}
		entries = append(entries, merge.Entry{
			Path:        e.Output,
			Source:      e.Source,
			Captured:    e.Captured,
			Fingerprint: e.Fingerprint,
		})
	}

	res, err := merge.Run(ctx, entries, merge.Options{
		Dir:    cfg.MergeDir,
		Range:  cfg.TimeRange(),
		Force:  cfg.Force,
		Ledger: db,
	})
	if res != nil {
		for _, o := range res.Outputs {
			switch {
			case o.Err != nil:
				fail("%s: %v", o.Path, o.Err)
			case o.Skipped:
				fmt.Printf("= %s (unchanged)\n", o.Path)
			default:
				fmt.Printf("✓ %s (%d notebooks, %d pages)\n", o.Path, o.Inputs, o.Pages)
			}
		}
		for _, w := range res.Warnings {
			fmt.Fprintf(os.Stderr, "⚠ %s\n", w)
		}
		if n := len(res.Failed()); n > 0 && err == nil {
			err = fmt.Errorf("%d merged files failed", n)
		}
	}
	return err
}
