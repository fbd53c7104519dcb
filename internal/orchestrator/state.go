package orchestrator

import "github.com/AaronLay10/algoscene/internal/script"

// RunState is the lifecycle state of a script run.
type RunState string

const (
	RunStateNotStarted RunState = "not_started"
	RunStateRunning    RunState = "running"
	RunStateCompleted  RunState = "completed"
	RunStateFailed     RunState = "failed"
)

// Status is a snapshot of a run's progress.
type Status struct {
	RunID string   `json:"run_id"`
	State RunState `json:"state"`
	// Position is the beat running, or the last one reached.
	Position   script.Position `json:"position"`
	BeatsDone  int             `json:"beats_done"`
	BeatsTotal int             `json:"beats_total"`
	Error      string          `json:"error,omitempty"`
}

// IsTerminal reports whether the run has finished, successfully or not.
func (s Status) IsTerminal() bool {
	return s.State == RunStateCompleted || s.State == RunStateFailed
}
