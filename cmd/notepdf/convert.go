package main

import (
	"github.com/spf13/cobra"

	"github.com/tsawler/notepdf/batch"
)

var convertCmd = &cobra.Command{
	Use:   "convert [files or directories...]",
	Short: "Convert notebooks to PDF",
	Long: `Convert turns .note files into PDF. Directories contribute the notebooks
they contain (add --recursive to descend). Notebooks whose source and options
are unchanged since the last run are skipped unless --force is given.

With --merge, the PDFs are also combined into one file per capture day.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	addConvertFlags(convertCmd)
	convertCmd.Flags().BoolP("recursive", "r", false, "descend into subdirectories")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	jobs, err := batch.Discover(args, cfg.Output, cfg.Recursive)
	if err != nil {
		return err
	}
	return runBatch(cmd, jobs, nil)
}
