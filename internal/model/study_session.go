package model

import "time"

// StudySessionRecord is the append-only history row written once per
// completed work phase. SubjectName is denormalized at creation time so
// the row survives subject deletion (SubjectID is then nulled out).
type StudySessionRecord struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	SubjectID       *string   `json:"subjectId,omitempty"`
	SubjectName     string    `json:"subjectName"`
	Topic           string    `json:"topic"`
	DurationMinutes int       `json:"durationMinutes"`
	TimerMode       string    `json:"timerMode"`
	StartedAt       time.Time `json:"startedAt"`
	CompletedAt     time.Time `json:"completedAt"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}
