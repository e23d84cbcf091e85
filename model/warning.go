package model

import (
	"fmt"
	"strings"
)

// Warning is a non-fatal issue found while decoding or emitting a notebook.
// Page is 0-based, or -1 for document-level warnings.
type Warning struct {
	Stage   string
	Page    int
	Message string
}

func (w Warning) String() string {
	var b strings.Builder
	if w.Stage != "" {
		b.WriteString(w.Stage)
		b.WriteString(": ")
	}
	if w.Page >= 0 {
		fmt.Fprintf(&b, "page %d: ", w.Page+1)
	}
	b.WriteString(w.Message)
	return b.String()
}

// DocWarning returns a document-level warning.
func DocWarning(stage, format string, args ...interface{}) Warning {
	return Warning{Stage: stage, Page: -1, Message: fmt.Sprintf(format, args...)}
}

// PageWarning returns a warning attached to a page.
func PageWarning(stage string, page int, format string, args ...interface{}) Warning {
	return Warning{Stage: stage, Page: page, Message: fmt.Sprintf(format, args...)}
}
