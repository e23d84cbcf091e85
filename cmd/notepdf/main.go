package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tsawler/notepdf/internal/config"
	"github.com/tsawler/notepdf/internal/logging"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	v   = viper.New()
	cfg *config.Config
)

// flagKeys maps config keys to the flag names that override them.
var flagKeys = map[string]string{
	"output":         "output",
	"workers":        "workers",
	"buffer":         "buffer",
	"raster":         "raster",
	"dpi":            "dpi",
	"links":          "links",
	"recursive":      "recursive",
	"force":          "force",
	"exact":          "exact",
	"hidden":         "hidden-layers",
	"merge":          "merge",
	"merge_dir":      "merge-dir",
	"range":          "range",
	"ledger":         "ledger",
	"log.level":      "log-level",
	"log.format":     "log-format",
	"device.host":    "host",
	"device.port":    "port",
	"device.timeout": "timeout",
	"ocr.enabled":    "ocr",
	"ocr.lang":       "ocr-lang",
	"ocr.psm":        "ocr-psm",
	"debounce":       "debounce",
}

// rootCmd is the base command for the notepdf CLI.
var rootCmd = &cobra.Command{
	Use:   "notepdf",
	Short: "Convert handwritten .note notebooks to PDF",
	Long: `notepdf converts notebooks exported from a handwriting tablet into PDF
documents, with vector strokes, working links and an outline built from the
notebook's titles.

Notebooks can be converted from disk, pulled straight from a tablet on the
local network, merged into one PDF per day, or watched and reconverted as
they change. Settings come from flags, NOTEPDF_* environment variables and
an optional notepdf.yaml.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./notepdf.yaml or ~/.config/notepdf/notepdf.yaml)")
	pf.String("log-level", "info", "log level: trace, debug, info, warn, error, off")
	pf.String("log-format", "console", "log format: console or json")
	pf.String("ledger", "", "fingerprint ledger database (default ~/.config/notepdf/ledger.db)")
	pf.Bool("no-color", false, "disable colored output")
}

// setup binds the flags of the running command, loads the configuration and
// attaches a logger to the command context.
func setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	for key, name := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}

	file, _ := cmd.Flags().GetString("config")
	used, err := config.Init(v, file)
	if err != nil {
		return err
	}
	c, err := config.Load(v)
	if err != nil {
		return err
	}
	if noLinks, _ := cmd.Flags().GetBool("no-links"); noLinks {
		c.Links = false
	}
	cfg = c

	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
		color.NoColor = true
	}

	logger := logging.New(logging.Config{Level: c.Log.Level, Format: c.Log.Format, Output: os.Stderr})
	if used != "" {
		logger.Debug().Str("file", used).Msg("config loaded")
	}
	cmd.SetContext(logging.WithContext(cmd.Context(), logger))
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fail("%v", err)
		os.Exit(1)
	}
}

func fail(format string, args ...interface{}) {
	color.New(color.FgRed).Fprintf(os.Stderr, "✗ %s\n", fmt.Sprintf(format, args...))
}
