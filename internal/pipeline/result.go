package pipeline

import "time"

// Outcome classifies how a cycle ended.
type Outcome string

const (
	// OutcomeCompleted means the tree was organised and a new graph emitted.
	OutcomeCompleted Outcome = "completed"
	// OutcomeIdle means fewer than two files were embedded; nothing changed.
	OutcomeIdle Outcome = "idle"
	// OutcomeFailed means a cycle-level error left the previous graph in place.
	OutcomeFailed Outcome = "failed"
	// OutcomeCancelled means shutdown or the cycle timeout interrupted the cycle
	// before any file was moved.
	OutcomeCancelled Outcome = "cancelled"
)

// Result describes one executed cycle.
type Result struct {
	ID           string              `json:"id"`
	Outcome      Outcome             `json:"outcome"`
	StartedAt    time.Time           `json:"started_at"`
	FinishedAt   time.Time           `json:"finished_at"`
	Scanned      int                 `json:"scanned"`
	Embedded     int                 `json:"embedded"`
	Clusters     int                 `json:"clusters"`
	Moved        int                 `json:"moved"`
	MoveFailures int                 `json:"move_failures"`
	Mapping      map[string][]string `json:"mapping,omitempty"` // folder → basenames
	Error        string              `json:"error,omitempty"`
}

// Duration returns the wall time of the cycle.
func (r Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
