package result

import "time"

type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

type LogLevel string

const (
	LevelInfo    LogLevel = "INFO"
	LevelWarning LogLevel = "WARNING"
	LevelError   LogLevel = "ERROR"
)

type LogLine struct {
	Level   LogLevel `json:"level"`
	Message string   `json:"message"`
}

// ErrorDetail separates what participants see from what operators see.
// Message is sanitized; Internal may carry stack traces or raw tool output
// and must never be rendered in participant-facing reports.
type ErrorDetail struct {
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Internal string `json:"internal,omitempty"`
}

// ScoreResult is the authoritative record of one scoring attempt. It is
// written once and never mutated; a retry produces a new attempt with a new
// AttemptID.
type ScoreResult struct {
	AttemptID    string             `json:"attempt_id"`
	Competition  string             `json:"competition"`
	Submission   string             `json:"submission"`
	Status       Status             `json:"status"`
	PublicScore  float64            `json:"public_score"`
	PrivateScore float64            `json:"private_score,omitempty"`
	HasPrivate   bool               `json:"has_private,omitempty"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
	Logs         []LogLine          `json:"logs,omitempty"`
	Error        *ErrorDetail       `json:"error,omitempty"`
	DurationS    int                `json:"duration_s"`
	ScoredAt     time.Time          `json:"scored_at"`
}

func (r *ScoreResult) AddLog(level LogLevel, message string) {
	r.Logs = append(r.Logs, LogLine{Level: level, Message: message})
}
