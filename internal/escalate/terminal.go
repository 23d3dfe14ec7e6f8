package escalate

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// TerminalNotifier prints escalations to a terminal. Color output is
// enabled automatically when the destination is a TTY.
type TerminalNotifier struct {
	writer      io.Writer
	colorOutput bool
	mutex       sync.Mutex
}

// NewTerminalNotifier creates a notifier writing to stderr, with color
// detection.
func NewTerminalNotifier() *TerminalNotifier {
	return &TerminalNotifier{
		writer:      os.Stderr,
		colorOutput: isatty.IsTerminal(os.Stderr.Fd()) && !color.NoColor,
	}
}

// NewTerminalNotifierWithWriter creates a notifier writing to the provided
// writer with color disabled. Intended for tests.
func NewTerminalNotifierWithWriter(w io.Writer) *TerminalNotifier {
	return &TerminalNotifier{writer: w}
}

// Notify prints a human-readable escalation block.
func (t *TerminalNotifier) Notify(_ context.Context, esc Escalation) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.writer == nil {
		return nil
	}

	header := fmt.Sprintf("⚠️  Escalation: task %s needs human review", esc.TaskID)
	if t.colorOutput {
		header = color.New(color.FgYellow, color.Bold).Sprint(header)
	}

	fmt.Fprintln(t.writer, header)
	fmt.Fprintf(t.writer, "  agent:         %s\n", esc.AgentID)
	fmt.Fprintf(t.writer, "  reason:        %s\n", esc.Reason)
	fmt.Fprintf(t.writer, "  quality score: %.2f\n", esc.QualityScore)
	fmt.Fprintf(t.writer, "  critical gaps: %d\n", esc.CriticalGaps)
	fmt.Fprintf(t.writer, "  iterations:    %d\n", esc.Iterations)
	return nil
}

// Name identifies this notifier in log output.
func (t *TerminalNotifier) Name() string {
	return "terminal"
}
