// Package escalate delivers review escalations to humans. The review loop
// raises an escalation when it gives up on automated convergence: too many
// critical gaps, persistently low quality, or iteration exhaustion.
package escalate

import (
	"context"
	"time"
)

// Escalation describes why automated review stopped and what a human
// reviewer is being handed.
type Escalation struct {
	TaskID       string    `json:"task_id"`
	AgentID      string    `json:"agent_id"`
	Reason       string    `json:"reason"`
	QualityScore float64   `json:"quality_score"`
	CriticalGaps int       `json:"critical_gaps"`
	Iterations   int       `json:"iterations"`
	Timestamp    time.Time `json:"timestamp"`
}

// Notifier delivers an escalation to one destination. Implementations must
// be safe for concurrent use. Delivery is fire-and-forget from the loop's
// perspective; a failed delivery never blocks or retries the review.
type Notifier interface {
	Notify(ctx context.Context, esc Escalation) error

	// Name identifies the destination in log output.
	Name() string
}
