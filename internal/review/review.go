// Package review implements the single-pass flashcard review loop:
// present front, reveal back, grade, advance, over a shuffled working
// copy of the whole collection. There is no interval scheduling and no
// partial-session resume.
package review

import (
	"math/rand/v2"
	"time"

	"studyplan/backend/internal/model"
)

// WorkingCopy returns the full collection in randomized order. The
// returned slice is a copy; grading mutates cards through ApplyGrade,
// never through the working copy.
func WorkingCopy(cards []model.Flashcard, rng *rand.Rand) []model.Flashcard {
	copied := make([]model.Flashcard, len(cards))
	copy(copied, cards)
	rng.Shuffle(len(copied), func(i, j int) {
		copied[i], copied[j] = copied[j], copied[i]
	})
	return copied
}

// ApplyGrade records one grading pass on a card. ReviewCount always
// increments; CorrectCount increments only on a correct grade, so
// CorrectCount <= ReviewCount holds over the card's lifetime.
func ApplyGrade(card *model.Flashcard, correct bool, now time.Time) {
	card.ReviewCount++
	if correct {
		card.CorrectCount++
	}
	card.LastReviewedAt = &now
	card.UpdatedAt = now
}

// ResetStats is the explicit bulk action that zeroes a card's counters.
func ResetStats(card *model.Flashcard, now time.Time) {
	card.ReviewCount = 0
	card.CorrectCount = 0
	card.LastReviewedAt = nil
	card.UpdatedAt = now
}
