package entity

import "time"

// ClusterStatus is the lifecycle state of a Cluster. Transitions are
// active -> closed only; a closed cluster is never reopened.
type ClusterStatus string

const (
	ClusterActive ClusterStatus = "active"
	ClusterClosed ClusterStatus = "closed"
)

// Cluster is a live event grouping of one or more SourceItem rows that are
// believed to describe the same real-world event.
type Cluster struct {
	ID int64

	EventLabel string
	Keywords   []string
	Entities   []string
	Category   string
	Status     ClusterStatus

	SourceCount int
	TopScore    int

	CreatedAt     time.Time
	LastUpdatedAt time.Time

	PublishedArticleID *int64
}

// IsActive reports whether the cluster can still accept new members.
func (c *Cluster) IsActive() bool {
	return c.Status == ClusterActive
}

// ShouldClose decides whether the cluster has aged past the inactivity
// window or the hard-max age, given the current time and both window
// durations, per the cluster lifecycle rules.
func (c *Cluster) ShouldClose(now time.Time, inactivityWindow, hardMaxAge time.Duration) bool {
	if now.Sub(c.LastUpdatedAt) > inactivityWindow {
		return true
	}
	if now.Sub(c.CreatedAt) > hardMaxAge {
		return true
	}
	return false
}
