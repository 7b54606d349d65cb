package model

import "time"

type Flashcard struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId"`
	Subject        string     `json:"subject"`
	Front          string     `json:"front"`
	Back           string     `json:"back"`
	Difficulty     string     `json:"difficulty,omitempty"`
	ReviewCount    int        `json:"reviewCount"`
	CorrectCount   int        `json:"correctCount"`
	LastReviewedAt *time.Time `json:"lastReviewedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}
