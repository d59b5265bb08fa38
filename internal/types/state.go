// Package types provides type definitions for structured data used throughout the a11y-remediator system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// ArtifactStatus tracks one artifact through a processing run. Statuses only
// move forward; re-running the whole pipeline is the retry mechanism.
type ArtifactStatus string

const (
	StatusDiscovered  ArtifactStatus = "discovered"
	StatusMapped      ArtifactStatus = "mapped"
	StatusSynthesized ArtifactStatus = "synthesized"
	StatusValidated   ArtifactStatus = "validated"
	StatusApplied     ArtifactStatus = "applied"
	StatusRejected    ArtifactStatus = "rejected"
	StatusUnchanged   ArtifactStatus = "unchanged"
	StatusError       ArtifactStatus = "error"
)

var statusOrder = map[ArtifactStatus]int{
	StatusDiscovered:  0,
	StatusMapped:      1,
	StatusSynthesized: 2,
	StatusValidated:   3,
	StatusApplied:     4,
	StatusRejected:    4,
	StatusUnchanged:   4,
	StatusError:       4,
}

// IsTerminal reports whether no further transitions are allowed from s.
func (s ArtifactStatus) IsTerminal() bool {
	switch s {
	case StatusApplied, StatusRejected, StatusUnchanged, StatusError:
		return true
	default:
		return false
	}
}

// CanTransition reports whether an artifact may move from one status to
// another. Error is reachable from any non-terminal status; otherwise
// transitions must advance the pipeline by exactly one stage.
func CanTransition(from, to ArtifactStatus) bool {
	if from.IsTerminal() {
		return false
	}
	if to == StatusError {
		return true
	}
	fromOrder, ok := statusOrder[from]
	if !ok {
		return false
	}
	toOrder, ok := statusOrder[to]
	if !ok {
		return false
	}
	return toOrder == fromOrder+1
}
