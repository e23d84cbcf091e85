package merge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/tsawler/notepdf/internal/logging"
	"github.com/tsawler/notepdf/model"
)

// Ledger remembers which members produced each merged output.
type Ledger interface {
	GroupDigest(ctx context.Context, output string) (string, bool, error)
	RecordGroup(ctx context.Context, output, digest string, members int) error
}

// Options controls a merge run.
type Options struct {
	Dir   string // output directory; DefaultDir when empty
	Range Range
	Now   func() time.Time
	// Force rewrites outputs whose members have not changed.
	Force  bool
	Ledger Ledger
}

// Output describes one merged file.
type Output struct {
	Date    string
	Path    string
	Inputs  int
	Pages   int
	Skipped bool  // unchanged since the last run
	Err     error // set when this group failed
}

// Result summarizes a merge run.
type Result struct {
	Outputs  []Output
	Warnings []model.Warning
}

// Failed returns the groups that could not be merged.
func (r *Result) Failed() []Output {
	var out []Output
	for _, o := range r.Outputs {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// Run merges entries into one PDF per capture date. A failing group is
// reported in its Output and does not stop the others; the returned error
// is reserved for setup failures and cancellation.
func Run(ctx context.Context, entries []Entry, opts Options) (*Result, error) {
	log := logging.From(ctx)
	disableConfigDir.Do(api.DisableConfigDir)
	dir := opts.Dir
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("merge: create %s: %w", dir, err)
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	groups, warnings := Plan(entries, opts.Range.Since(now()))
	res := &Result{Warnings: warnings}

	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		out := Output{Date: g.Date, Path: g.Output(dir), Inputs: len(g.Entries)}
		digest := g.Digest()

		if !opts.Force && unchanged(ctx, opts.Ledger, out.Path, digest) {
			out.Skipped = true
			log.Debug().Str("output", out.Path).Msg("merge group unchanged")
			res.Outputs = append(res.Outputs, out)
			continue
		}

		if err := Concat(g.Inputs(), out.Path); err != nil {
			out.Err = err
			log.Error().Err(err).Str("output", out.Path).Msg("merge failed")
			res.Outputs = append(res.Outputs, out)
			continue
		}
		if n, err := api.PageCountFile(out.Path); err == nil {
			out.Pages = n
		}
		if opts.Ledger != nil {
			if err := opts.Ledger.RecordGroup(ctx, out.Path, digest, len(g.Entries)); err != nil {
				res.Warnings = append(res.Warnings, model.DocWarning(Stage, "%v", err))
			}
		}
		log.Info().Str("output", out.Path).Int("inputs", out.Inputs).Int("pages", out.Pages).Msg("merged")
		res.Outputs = append(res.Outputs, out)
	}
	return res, nil
}

func unchanged(ctx context.Context, l Ledger, output, digest string) bool {
	if l == nil {
		return false
	}
	if _, err := os.Stat(output); err != nil {
		return false
	}
	recorded, ok, err := l.GroupDigest(ctx, output)
	return err == nil && ok && recorded == digest
}

var disableConfigDir sync.Once

func pdfcpuConfig() *pdfmodel.Configuration {
	disableConfigDir.Do(api.DisableConfigDir)
	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed
	return conf
}

// Concat writes inputs, in order, to out. The result is written to a
// temporary sibling and renamed into place.
func Concat(inputs []string, out string) (err error) {
	if len(inputs) == 0 {
		return errors.New("merge: no inputs")
	}

	tmp, err := os.CreateTemp(filepath.Dir(out), "."+filepath.Base(out)+".*.tmp")
	if err != nil {
		return fmt.Errorf("merge: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if len(inputs) == 1 {
		err = copyInto(tmp, inputs[0])
		if cerr := tmp.Close(); err == nil {
			err = cerr
		}
	} else {
		tmp.Close()
		err = api.MergeCreateFile(inputs, tmpName, false, pdfcpuConfig())
	}
	if err != nil {
		return fmt.Errorf("merge: %w", err)
	}

	if err = os.Rename(tmpName, out); err != nil {
		return fmt.Errorf("merge: rename to %s: %w", out, err)
	}
	return nil
}

func copyInto(dst io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(dst, f)
	return err
}
