package model

type BuildState string

const (
	BuildStateIdle      BuildState = "idle"
	BuildStateBuilding  BuildState = "building"
	BuildStateCompleted BuildState = "completed"
	BuildStateError     BuildState = "error"
)

type BuildStep struct {
	Step      string `json:"step"`
	Details   string `json:"details"`
	Timestamp int64  `json:"timestamp"`
}

// BuildStatus is the per-user record polled by the UI while a build runs.
type BuildStatus struct {
	UserID      string     `json:"user_id"`
	Status      BuildState `json:"status"`
	StartedAt   int64      `json:"started_at"`
	CurrentStep BuildStep  `json:"current_step"`
	LastError   string     `json:"last_error"`
	ErrorAt     int64      `json:"error_at"`
}
