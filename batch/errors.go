package batch

import (
	"fmt"
	"strings"
)

// Stage identifies where in the pipeline a conversion failed.
type Stage string

const (
	StageReader        Stage = "reader"
	StageReconstructor Stage = "reconstructor"
	StageEmitter       Stage = "emitter"
)

// IOError reports an unreadable source or an unwritable destination.
type IOError struct {
	Op   string // read, write, mkdir
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ConversionError reports a notebook that could not be converted.
type ConversionError struct {
	Stage Stage
	Path  string
	Err   error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Path, e.Stage, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// OrchestratorError is returned by Run when one or more jobs failed.
type OrchestratorError struct {
	Failures []JobResult
}

func (e *OrchestratorError) Error() string {
	if len(e.Failures) == 1 {
		return fmt.Sprintf("1 conversion failed: %v", e.Failures[0].Err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d conversions failed", len(e.Failures))
	for _, f := range e.Failures {
		fmt.Fprintf(&b, "\n  %s: %v", f.Source, f.Err)
	}
	return b.String()
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *OrchestratorError) Unwrap() []error {
	out := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		out = append(out, f.Err)
	}
	return out
}
