// Package console prints user-facing status lines.
package console

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Printer writes status lines to Out unless Quiet is set. In interactive
// mode progress rewrites one line with a carriage return; otherwise each
// step gets its own "NN%" line.
type Printer struct {
	Out         io.Writer
	Quiet       bool
	Interactive bool

	mu          sync.Mutex
	progressing bool
	lastPercent int
	label       string
}

// New returns a Printer on stdout.
func New(quiet, interactive bool) *Printer {
	return &Printer{Out: os.Stdout, Quiet: quiet, Interactive: interactive, lastPercent: -1}
}

// Log prints a message if not in quiet mode
func (p *Printer) Log(format string, args ...any) {
	if p.Quiet {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.endProgress()
	fmt.Fprintf(p.Out, format+"\n", args...)
}

// Always prints regardless of quiet mode. Used for final summaries and errors.
func (p *Printer) Always(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.endProgress()
	fmt.Fprintf(p.Out, format+"\n", args...)
}

// Progress shows percent for label. Repeated values are dropped.
func (p *Printer) Progress(label string, percent int) {
	if p.Quiet {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if label == p.label && percent == p.lastPercent {
		return
	}
	p.label = label
	p.lastPercent = percent

	if p.Interactive {
		fmt.Fprintf(p.Out, "\r%s %3d%%", label, percent)
		p.progressing = true
		return
	}
	fmt.Fprintf(p.Out, "%s %d%%\n", label, percent)
}

// Done finishes an in-place progress line.
func (p *Printer) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.endProgress()
}

func (p *Printer) endProgress() {
	if p.progressing {
		fmt.Fprintln(p.Out)
		p.progressing = false
	}
	p.label = ""
	p.lastPercent = -1
}
