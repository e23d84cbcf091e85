package batch

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/tsawler/notepdf/format"
)

// Job converts one notebook.
type Job struct {
	Source string // path understood by the Fetcher
	Output string // destination PDF
}

// Discover builds jobs from files and directories. Directories contribute
// their .note files, recursively when recursive is set; explicitly named
// files are accepted when their content is a notebook. Outputs mirror the
// layout under outDir, or sit next to the source when outDir is empty.
func Discover(roots []string, outDir string, recursive bool) ([]Job, error) {
	seen := map[string]bool{}
	var jobs []Job
	add := func(src, rel string) {
		if seen[src] {
			return
		}
		seen[src] = true
		out := format.SwapExtension(src, format.PDF)
		if outDir != "" {
			out = filepath.Join(outDir, format.SwapExtension(rel, format.PDF))
		}
		jobs = append(jobs, Job{Source: src, Output: out})
	}

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, &IOError{Op: "stat", Path: root, Err: err}
		}
		if !info.IsDir() {
			ok, err := isNotebook(root)
			if err != nil {
				return nil, &IOError{Op: "read", Path: root, Err: err}
			}
			if !ok {
				return nil, fmt.Errorf("%s is not a .note file", root)
			}
			add(root, filepath.Base(root))
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && !recursive {
					return filepath.SkipDir
				}
				return nil
			}
			if format.Detect(path) != format.Note {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			add(path, rel)
			return nil
		})
		if err != nil {
			return nil, &IOError{Op: "walk", Path: root, Err: err}
		}
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Source < jobs[j].Source })
	return jobs, nil
}

func isNotebook(path string) (bool, error) {
	if format.Detect(path) == format.Note {
		return true, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	got, err := format.DetectFromReader(f)
	return got == format.Note, err
}

// Fetcher supplies notebook bytes for a job source.
type Fetcher interface {
	Fetch(ctx context.Context, source string, w io.Writer) error
}

// LocalFetcher reads sources from the local file system.
type LocalFetcher struct{}

// Fetch copies the file at source to w.
func (LocalFetcher) Fetch(ctx context.Context, source string, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.Open(source)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}
