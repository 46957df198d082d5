package status

import (
	"fmt"
	"io"
	"math"
	"sync"

	"vidflow/domain/export"
)

// TextReporter writes export progress as plain lines, for non-interactive
// output and logs.
type TextReporter struct {
	mu   sync.Mutex
	out  io.Writer
	last int
}

// NewTextReporter creates a reporter writing to out
func NewTextReporter(out io.Writer) *TextReporter {
	return &TextReporter{out: out, last: -1}
}

func (r *TextReporter) Title(title string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = -1
	fmt.Fprintf(r.out, "== %s ==\n", title)
}

// Progress prints at most one line per whole percent
func (r *TextReporter) Progress(percent float64) {
	p := int(math.Floor(percent))
	r.mu.Lock()
	defer r.mu.Unlock()
	if p <= r.last {
		return
	}
	r.last = p
	fmt.Fprintf(r.out, "  %3d%%\n", p)
}

func (r *TextReporter) Status(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "  %s\n", text)
}

func (r *TextReporter) Toast(message string, severity export.Severity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "[%s] %s\n", severity, message)
}

var _ export.StatusReporter = (*TextReporter)(nil)
