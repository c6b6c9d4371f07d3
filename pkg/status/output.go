// Package status reports project lifecycle state on a mobyprogress.Output.
package status

import (
	"fmt"
	"io"
	"sync"

	"github.com/pcj/mobyprogress"
)

const streamNewline = "\r\n"

// NewOutput returns an Output that renders updates as plain text lines on w.
func NewOutput(w io.Writer) mobyprogress.Output {
	return &textOutput{out: w}
}

type textOutput struct {
	mu  sync.Mutex
	out io.Writer
}

// WriteProgress implements mobyprogress.Output.
func (o *textOutput) WriteProgress(prog mobyprogress.Progress) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, err := io.WriteString(o.out, formatProgress(prog))
	return err
}

func formatProgress(prog mobyprogress.Progress) string {
	prefix := ""
	if prog.ID != "" {
		prefix = prog.ID + ": "
	}
	if prog.Message != "" {
		return prefix + prog.Message + streamNewline
	}
	line := prefix + prog.Action
	if prog.Total > 0 {
		line += fmt.Sprintf(" %d/%d", prog.Current, prog.Total)
		if prog.Units != "" {
			line += " " + prog.Units
		}
	}
	if prog.LastUpdate {
		return line + streamNewline
	}
	return line + "\r"
}

// Recorder is an Output that keeps every update in memory.
type Recorder struct {
	mu      sync.Mutex
	updates []mobyprogress.Progress
}

// WriteProgress implements mobyprogress.Output.
func (r *Recorder) WriteProgress(prog mobyprogress.Progress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, prog)
	return nil
}

// Updates returns a copy of the recorded updates.
func (r *Recorder) Updates() []mobyprogress.Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]mobyprogress.Progress(nil), r.updates...)
}

// Discard drops every update.
var Discard mobyprogress.Output = discard{}

type discard struct{}

func (discard) WriteProgress(mobyprogress.Progress) error { return nil }
