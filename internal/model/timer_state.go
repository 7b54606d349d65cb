package model

import "time"

// TimerState is the durable per-user timer row. Draft fields are only
// meaningful while a work phase is in flight; DraftStartedAt doubles as
// the presence marker.
type TimerState struct {
	UserID           string     `json:"userId"`
	Phase            string     `json:"phase"`
	Running          bool       `json:"running"`
	SecondsRemaining int        `json:"secondsRemaining"`
	Mode             string     `json:"mode"`
	WorkMinutes      int        `json:"workMinutes"`
	BreakMinutes     int        `json:"breakMinutes"`
	LongBreakMinutes int        `json:"longBreakMinutes"`
	DraftSubjectID   string     `json:"draftSubjectId,omitempty"`
	DraftSubjectName string     `json:"draftSubjectName,omitempty"`
	DraftTopic       string     `json:"draftTopic,omitempty"`
	DraftNotes       string     `json:"draftNotes,omitempty"`
	DraftStartedAt   *time.Time `json:"draftStartedAt,omitempty"`
	Version          int        `json:"version"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}
