package model

import "time"

type Group struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	OwnerID    string    `json:"ownerId"`
	InviteCode string    `json:"inviteCode"`
	CreatedAt  time.Time `json:"createdAt"`
}

type GroupMember struct {
	GroupID  string    `json:"groupId"`
	UserID   string    `json:"userId"`
	JoinedAt time.Time `json:"joinedAt"`
}

const (
	ActivityStudySession  = "study_session"
	ActivityCardReview    = "card_review"
	ActivityExamCompleted = "exam_completed"
)

// ActivityEvent is one durable row of a fanned-out gamification event.
// A logical event becomes one row per group membership at emission time.
type ActivityEvent struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	GroupID      string    `json:"groupId"`
	ActivityType string    `json:"activityType"`
	Points       int       `json:"points"`
	Metadata     string    `json:"metadata,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type LeaderboardEntry struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Points int    `json:"points"`
}
