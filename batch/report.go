package batch

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tsawler/notepdf/merge"
	"github.com/tsawler/notepdf/model"
)

// Status is the outcome of one job.
type Status string

const (
	StatusConverted Status = "converted"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// JobResult records what happened to one job.
type JobResult struct {
	Source      string
	Output      string
	Status      Status
	Pages       int
	Captured    time.Time
	Fingerprint string
	Warnings    []model.Warning
	Err         error
	Duration    time.Duration
}

// Report is the append-only record of a run. Results are in completion
// order.
type Report struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Results  []JobResult
	Merge    *merge.Result
}

// Count returns the number of results with status s.
func (r *Report) Count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// Failures returns the failed results.
func (r *Report) Failures() []JobResult {
	var out []JobResult
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			out = append(out, res)
		}
	}
	return out
}

// Result returns the result for source.
func (r *Report) Result(source string) (JobResult, bool) {
	for _, res := range r.Results {
		if res.Source == source {
			return res, true
		}
	}
	return JobResult{}, false
}

// Summary writes a human-readable summary to w.
func (r *Report) Summary(w io.Writer) {
	fmt.Fprintf(w, "%d converted, %d skipped, %d failed, %d canceled (total: %d)\n",
		r.Count(StatusConverted), r.Count(StatusSkipped), r.Count(StatusFailed),
		r.Count(StatusCanceled), len(r.Results))
	for _, f := range r.Failures() {
		fmt.Fprintf(w, "  failed: %s: %v\n", f.Source, f.Err)
	}
	if r.Merge != nil {
		for _, o := range r.Merge.Outputs {
			switch {
			case o.Err != nil:
				fmt.Fprintf(w, "  merge failed: %s: %v\n", o.Path, o.Err)
			case o.Skipped:
				fmt.Fprintf(w, "  merged (unchanged): %s\n", o.Path)
			default:
				fmt.Fprintf(w, "  merged: %s (%d files, %d pages)\n", o.Path, o.Inputs, o.Pages)
			}
		}
	}
}

type yamlReport struct {
	RunID    string       `yaml:"run_id"`
	Started  string       `yaml:"started"`
	Finished string       `yaml:"finished"`
	Counts   yamlCounts   `yaml:"counts"`
	Jobs     []yamlJob    `yaml:"jobs"`
	Merged   []yamlMerged `yaml:"merged,omitempty"`
	Warnings []string     `yaml:"merge_warnings,omitempty"`
}

type yamlCounts struct {
	Converted int `yaml:"converted"`
	Skipped   int `yaml:"skipped"`
	Failed    int `yaml:"failed"`
	Canceled  int `yaml:"canceled"`
}

type yamlJob struct {
	Source   string   `yaml:"source"`
	Output   string   `yaml:"output,omitempty"`
	Status   Status   `yaml:"status"`
	Pages    int      `yaml:"pages,omitempty"`
	Captured string   `yaml:"captured,omitempty"`
	Error    string   `yaml:"error,omitempty"`
	Warnings []string `yaml:"warnings,omitempty"`
	Duration string   `yaml:"duration,omitempty"`
}

type yamlMerged struct {
	Date    string `yaml:"date"`
	Path    string `yaml:"path"`
	Inputs  int    `yaml:"inputs"`
	Pages   int    `yaml:"pages,omitempty"`
	Skipped bool   `yaml:"skipped,omitempty"`
	Error   string `yaml:"error,omitempty"`
}

// WriteYAML exports the report.
func (r *Report) WriteYAML(w io.Writer) error {
	out := yamlReport{
		RunID:    r.RunID,
		Started:  r.Started.UTC().Format(time.RFC3339),
		Finished: r.Finished.UTC().Format(time.RFC3339),
		Counts: yamlCounts{
			Converted: r.Count(StatusConverted),
			Skipped:   r.Count(StatusSkipped),
			Failed:    r.Count(StatusFailed),
			Canceled:  r.Count(StatusCanceled),
		},
	}
	for _, res := range r.Results {
		j := yamlJob{
			Source: res.Source,
			Output: res.Output,
			Status: res.Status,
			Pages:  res.Pages,
		}
		if !res.Captured.IsZero() {
			j.Captured = res.Captured.UTC().Format(time.RFC3339)
		}
		if res.Err != nil {
			j.Error = res.Err.Error()
		}
		if res.Duration > 0 {
			j.Duration = res.Duration.Round(time.Millisecond).String()
		}
		for _, warn := range res.Warnings {
			j.Warnings = append(j.Warnings, warn.String())
		}
		out.Jobs = append(out.Jobs, j)
	}
	if r.Merge != nil {
		for _, o := range r.Merge.Outputs {
			m := yamlMerged{Date: o.Date, Path: o.Path, Inputs: o.Inputs, Pages: o.Pages, Skipped: o.Skipped}
			if o.Err != nil {
				m.Error = o.Err.Error()
			}
			out.Merged = append(out.Merged, m)
		}
		for _, warn := range r.Merge.Warnings {
			out.Warnings = append(out.Warnings, warn.String())
		}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return enc.Close()
}
