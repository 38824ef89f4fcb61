package station

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// ColorReporter prints one line per outcome: success green, duplicate
// yellow, rejection red, retry cyan.
type ColorReporter struct {
	mu  sync.Mutex
	out io.Writer

	styles map[Outcome]*color.Color
}

func NewColorReporter(out io.Writer) *ColorReporter {
	return &ColorReporter{
		out: out,
		styles: map[Outcome]*color.Color{
			OutcomeSuccess: color.New(color.FgGreen, color.Bold),
			OutcomeWarning: color.New(color.FgYellow, color.Bold),
			OutcomeError:   color.New(color.FgRed, color.Bold),
			OutcomeRetry:   color.New(color.FgCyan),
		},
	}
}

func (r *ColorReporter) Report(rep Report) {
	style, ok := r.styles[rep.Outcome]
	if !ok {
		style = color.New(color.Reset)
	}

	line := rep.Message
	if rep.Name != "" {
		line = fmt.Sprintf("%s: %s", rep.Message, rep.Name)
	}
	if !rep.CheckedInAt.IsZero() {
		line = fmt.Sprintf("%s (checked in at %s)", line, rep.CheckedInAt.Local().Format("15:04"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintf(r.out, "%s  %s\n", rep.At.Format("15:04:05"), style.Sprintf("%-7s %s", label(rep.Outcome), line))
}

func label(o Outcome) string {
	switch o {
	case OutcomeSuccess:
		return "OK"
	case OutcomeWarning:
		return "DUP"
	case OutcomeRetry:
		return "RETRY"
	default:
		return "ERROR"
	}
}
