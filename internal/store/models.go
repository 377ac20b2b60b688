package store

import "time"

// Session is one bot run: a window of profile processing with its outcome
// counters and how it ended.
type Session struct {
	ID                 string    `json:"id"`
	Serial             string    `json:"serial"`
	StartedAt          time.Time `json:"started_at"`
	EndedAt            time.Time `json:"ended_at,omitempty"`
	ProfilesProcessed  int       `json:"profiles_processed"`
	Liked              int       `json:"liked"`
	Passed             int       `json:"passed"`
	Commented          int       `json:"commented"`
	Abandoned          int       `json:"abandoned"`
	ExecutionFailures  int       `json:"execution_failures"`
	HaltReason         string    `json:"halt_reason,omitempty"`
}

// DecisionRecord is one persisted verdict with its execution outcome.
type DecisionRecord struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	ProfileName  string    `json:"profile_name"`
	ProfileAge   int       `json:"profile_age"`
	Action       string    `json:"action"`
	Comment      string    `json:"comment,omitempty"`
	Confidence   float64   `json:"confidence"`
	Rationale    string    `json:"rationale"`
	Status       string    `json:"status"`
	StatusReason string    `json:"status_reason,omitempty"`
	DecidedAt    time.Time `json:"decided_at"`
}
