// Package sink renders pipeline reports for humans and machines.
package sink

import (
	"io"
	"os"
	"strings"

	"emperror.dev/errors"
	"golang.org/x/term"

	"github.com/voluzi/taskpilot/pkg/pipeline"
)

const (
	FormatAuto       = "auto"
	FormatJSON       = "json"
	FormatText       = "text"
	FormatPrometheus = "prometheus"
)

const ErrUnknownFormat = errors.Sentinel("unknown output format")

// Sink writes a report somewhere. Sections for stages that did not run are
// omitted.
type Sink interface {
	Write(report *pipeline.Report) error
}

// ForFormat returns the sink for name writing to w. The auto format picks
// text when w is a terminal and JSON otherwise.
func ForFormat(name string, w io.Writer) (Sink, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", FormatAuto:
		if isTerminal(w) {
			return NewText(w), nil
		}
		return NewJSON(w), nil
	case FormatJSON:
		return NewJSON(w), nil
	case FormatText, "table":
		return NewText(w), nil
	case FormatPrometheus, "prom":
		return NewPrometheus(w), nil
	default:
		return nil, errors.WithDetails(ErrUnknownFormat, "format", name)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
