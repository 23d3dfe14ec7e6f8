package escalate

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// MultiNotifier fans one escalation out to several destinations
// concurrently. Every destination is attempted; Notify returns the first
// delivery error encountered.
type MultiNotifier struct {
	notifiers []Notifier
	name      string
}

// NewMultiNotifier combines notifiers into one. Nil entries are skipped.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	kept := make([]Notifier, 0, len(notifiers))
	names := make([]string, 0, len(notifiers))
	for _, n := range notifiers {
		if n == nil {
			continue
		}
		kept = append(kept, n)
		names = append(names, n.Name())
	}

	return &MultiNotifier{
		notifiers: kept,
		name:      strings.Join(names, "+"),
	}
}

// Notify delivers to all destinations in parallel. A slow or failing
// destination never prevents delivery to the others.
func (m *MultiNotifier) Notify(ctx context.Context, esc Escalation) error {
	var g errgroup.Group
	for _, n := range m.notifiers {
		g.Go(func() error {
			if err := n.Notify(ctx, esc); err != nil {
				return fmt.Errorf("%s: %w", n.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Name lists the member destinations, joined with "+".
func (m *MultiNotifier) Name() string {
	return m.name
}
