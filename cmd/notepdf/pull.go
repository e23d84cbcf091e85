package main

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tsawler/notepdf/batch"
	"github.com/tsawler/notepdf/device"
	"github.com/tsawler/notepdf/format"
	"github.com/tsawler/notepdf/internal/logging"
)

var pullCmd = &cobra.Command{
	Use:   "pull [device directory]",
	Short: "Convert notebooks straight from a tablet on the local network",
	Long: `Pull lists a directory on the tablet's browse-and-access server (Note by
default), downloads every notebook under it and converts it. PDFs mirror the
device layout under --output.

With --save-notes, the .note files are also kept locally; copies whose size
matches the device are not downloaded again.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPull,
}

func init() {
	addConvertFlags(pullCmd)
	f := pullCmd.Flags()
	f.String("host", "", "tablet address")
	f.Int("port", device.DefaultPort, "tablet port")
	f.Duration("timeout", 0, "per-request timeout (default 30s)")
	f.BoolP("recursive", "r", true, "descend into subdirectories")
	f.String("save-notes", "", "also keep the downloaded .note files in this directory")

	rootCmd.AddCommand(pullCmd)
}

func runPull(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dir := "Note"
	if len(args) > 0 {
		dir = args[0]
	}

	client, err := device.New(cfg.Device.Host, cfg.Device.Port, cfg.Device.Timeout)
	if err != nil {
		return err
	}
	// Pulling descends by default, unlike convert.
	recursive, _ := cmd.Flags().GetBool("recursive")
	entries, err := client.Notebooks(ctx, dir, recursive)
	if err != nil {
		return err
	}
	logging.From(ctx).Info().Int("notebooks", len(entries)).Str("dir", dir).Msg("listed device")

	out := cfg.Output
	if out == "" {
		out = "."
	}

	var fetcher batch.Fetcher = client
	if keep, _ := cmd.Flags().GetString("save-notes"); keep != "" {
		fetcher = device.NewMirror(client, keep, cfg.Force, entries)
	}
	return runBatch(cmd, pullJobs(entries, out), fetcher)
}

// pullJobs maps device notebooks to jobs whose outputs mirror the device
// layout under out.
func pullJobs(entries []device.Entry, out string) []batch.Job {
	jobs := make([]batch.Job, 0, len(entries))
	for _, e := range entries {
		rel := filepath.FromSlash(strings.TrimPrefix(path.Clean("/"+e.URI), "/"))
		jobs = append(jobs, batch.Job{Source: e.URI, Output: filepath.Join(out, format.SwapExtension(rel, format.PDF))})
	}
	return jobs
}
