package audit

import "time"

// ExecutionRecord tracks one audited operation from start to completion.
// Created at RecordStart, terminal via RecordEnd or RecordFailedStart,
// then removed from the in-flight set.
type ExecutionRecord struct {
	CorrelationID string    `json:"correlation_id"`
	Command       string    `json:"command"`
	WorkingDir    string    `json:"working_dir,omitempty"`
	Elevated      bool      `json:"elevated,omitempty"`
	SessionKey    string    `json:"session_key,omitempty"`
	PID           int       `json:"pid,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	CompletedAt   time.Time `json:"completed_at,omitzero"`
	ExitCode      *int      `json:"exit_code,omitempty"`
	Signal        string    `json:"signal,omitempty"`
	DurationMs    int64     `json:"duration_ms,omitempty"`
	OutputPreview string    `json:"output_preview,omitempty"`
}

// chainPayload is the scrubbed projection of a record appended to the
// ledger. Command text here has already passed the sentinel policy.
type chainPayload struct {
	Kind          string `json:"kind"`
	CorrelationID string `json:"correlation_id"`
	Command       string `json:"command,omitempty"`
	WorkingDir    string `json:"working_dir,omitempty"`
	Elevated      bool   `json:"elevated,omitempty"`
	ExitCode      *int   `json:"exit_code,omitempty"`
	Signal        string `json:"signal,omitempty"`
	DurationMs    int64  `json:"duration_ms,omitempty"`
	Error         string `json:"error,omitempty"`
}
