// Package merge concatenates converted notebooks captured on the same day
// into one PDF per date.
//
// Grouping uses the capture timestamp recorded in each notebook, never file
// system times. Within a group, documents are ordered by capture time, then
// base file name, then full path, so the output is stable across runs.
package merge

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tsawler/notepdf/model"
)

// Stage names the pipeline stage in warnings produced here.
const Stage = "merge"

// DefaultDir is the merge output directory used when none is configured.
const DefaultDir = "pdf_notes"

// Entry is one converted document eligible for merging.
type Entry struct {
	Path        string    // converted PDF
	Source      string    // originating notebook, for reporting
	Captured    time.Time // zero when unknown
	Fingerprint string
}

// Range limits merging to recently captured documents.
type Range string

const (
	RangeAll      Range = "all"
	RangeWeek     Range = "week"
	RangeTwoWeeks Range = "2weeks"
	RangeMonth    Range = "month"
)

// ParseRange validates a range name. The empty string means all.
func ParseRange(s string) (Range, error) {
	switch r := Range(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return RangeAll, nil
	case RangeAll, RangeWeek, RangeTwoWeeks, RangeMonth:
		return r, nil
	}
	return "", fmt.Errorf("unknown time range %q (want all, week, 2weeks or month)", s)
}

// Ranges lists the accepted range names.
func Ranges() []string {
	return []string{string(RangeAll), string(RangeWeek), string(RangeTwoWeeks), string(RangeMonth)}
}

// Since returns the earliest capture time included relative to now, or the
// zero time for RangeAll.
func (r Range) Since(now time.Time) time.Time {
	switch r {
	case RangeWeek:
		return now.AddDate(0, 0, -7)
	case RangeTwoWeeks:
		return now.AddDate(0, 0, -14)
	case RangeMonth:
		return now.AddDate(0, -1, 0)
	}
	return time.Time{}
}

// Group is the set of documents merged into one output.
type Group struct {
	Date    string // YYYY-MM-DD
	Entries []Entry
}

// Output returns the merged file path inside dir.
func (g Group) Output(dir string) string {
	return filepath.Join(dir, g.Date+".pdf")
}

// Digest identifies the group's ordered members and their content.
func (g Group) Digest() string {
	h := sha256.New()
	for _, e := range g.Entries {
		fmt.Fprintf(h, "%s\x00%s\n", e.Path, e.Fingerprint)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Inputs returns the member paths in merge order.
func (g Group) Inputs() []string {
	out := make([]string, len(g.Entries))
	for i, e := range g.Entries {
		out[i] = e.Path
	}
	return out
}

// Date returns the group key for a capture time.
func Date(captured time.Time) string {
	return captured.Format("2006-01-02")
}

// Plan groups entries by capture date. Entries without a capture time, or
// captured before since, are excluded; the former with a warning. Groups
// are returned in date order.
func Plan(entries []Entry, since time.Time) ([]Group, []model.Warning) {
	var warnings []model.Warning
	byDate := map[string][]Entry{}
	for _, e := range entries {
		if e.Captured.IsZero() {
			name := e.Source
			if name == "" {
				name = e.Path
			}
			warnings = append(warnings, model.DocWarning(Stage, "%s has no capture time; not merged", name))
			continue
		}
		if !since.IsZero() && e.Captured.Before(since) {
			continue
		}
		date := Date(e.Captured)
		byDate[date] = append(byDate[date], e)
	}

	groups := make([]Group, 0, len(byDate))
	for date, members := range byDate {
		SortEntries(members)
		groups = append(groups, Group{Date: date, Entries: members})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Date < groups[j].Date })
	return groups, warnings
}

// SortEntries orders entries by capture time, then source file name, then
// output path.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.Captured.Equal(b.Captured) {
			return a.Captured.Before(b.Captured)
		}
		if an, bn := sortName(a), sortName(b); an != bn {
			return an < bn
		}
		return a.Path < b.Path
	})
}

func sortName(e Entry) string {
	if e.Source != "" {
		return filepath.Base(e.Source)
	}
	return filepath.Base(e.Path)
}
