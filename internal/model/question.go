package model

import "time"

const (
	QuestionSourceManual    = "manual"
	QuestionSourceGenerated = "generated"
)

// Question is a pool item. Options always has at least two entries and
// CorrectOption is a valid index into it; both are enforced at the
// service boundary before a row is written.
type Question struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	SubjectID     *string   `json:"subjectId,omitempty"`
	SubjectName   string    `json:"subjectName"`
	Topic         string    `json:"topic,omitempty"`
	Question      string    `json:"question"`
	Options       []string  `json:"options"`
	CorrectOption int       `json:"correctOption"`
	Explanation   string    `json:"explanation,omitempty"`
	Answered      bool      `json:"answered"`
	Correct       bool      `json:"correct"`
	Source        string    `json:"source"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
