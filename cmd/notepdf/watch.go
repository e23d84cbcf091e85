package main

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tsawler/notepdf/batch"
	"github.com/tsawler/notepdf/format"
	"github.com/tsawler/notepdf/internal/logging"
)

var watchCmd = &cobra.Command{
	Use:   "watch [directories...]",
	Short: "Reconvert notebooks as they change",
	Long: `Watch converts the notebooks in the given directories, then keeps running
and reconverts each notebook shortly after it is written. Stop with Ctrl-C.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	addConvertFlags(watchCmd)
	watchCmd.Flags().BoolP("recursive", "r", false, "watch subdirectories too")
	watchCmd.Flags().Duration("debounce", batch.DefaultDebounce, "quiet period before reconverting")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, roots []string) error {
	ctx := cmd.Context()
	log := logging.From(ctx)

	jobs, err := batch.Discover(roots, cfg.Output, cfg.Recursive)
	if err != nil {
		return err
	}
	if err := runBatch(cmd, jobs, nil); err != nil {
		fail("%v", err)
	}

	return batch.Watch(ctx, roots, cfg.Recursive, cfg.Debounce, func(paths []string) {
		jobs := make([]batch.Job, 0, len(paths))
		for _, p := range paths {
			jobs = append(jobs, batch.Job{Source: p, Output: outputFor(roots, p)})
		}
		if err := runBatch(cmd, jobs, nil); err != nil {
			log.Error().Err(err).Msg("reconvert failed")
		}
	})
}

// outputFor mirrors Discover: the PDF goes next to the notebook, or under
// the output directory at the notebook's path relative to its root.
func outputFor(roots []string, p string) string {
	if cfg.Output == "" {
		return format.SwapExtension(p, format.PDF)
	}
	for _, root := range roots {
		rel, err := filepath.Rel(root, p)
		if err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.Join(cfg.Output, format.SwapExtension(rel, format.PDF))
		}
	}
	return filepath.Join(cfg.Output, format.SwapExtension(filepath.Base(p), format.PDF))
}
