package models

import "time"

const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// LogEvent is a progress notification emitted at stage boundaries.
type LogEvent struct {
	Message   string    `json:"message"`
	Level     string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLogEvent(level, message string) LogEvent {
	return LogEvent{
		Message:   message,
		Level:     level,
		Timestamp: time.Now(),
	}
}

// Clock renders the event time the way the progress stream shows it.
func (e LogEvent) Clock() string {
	return e.Timestamp.Format("15:04:05")
}
