package entity

import "time"

// AlertSeverity classifies how urgently an operator-facing Alert needs
// attention.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// Alert is one operator-facing notification raised by the pipeline: a
// cycle failure, a missed soft/hard deadline, or a capability budget
// exhaustion (spec §7's "Failure modes").
type Alert struct {
	ID         int64
	Severity   AlertSeverity
	Source     string // which part of the pipeline raised it, e.g. "orchestrator", "budget"
	Title      string
	Message    string
	URL        string // optional link, e.g. to a cycle's logs
	OccurredAt time.Time
}
