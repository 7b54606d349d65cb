package exam

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"studyplan/backend/internal/model"
)

// Unanswered marks a question index the user has not answered yet.
// Unanswered questions count as incorrect at finish.
const Unanswered = -1

var (
	ErrInsufficientQuestions = errors.New("exam: not enough questions in the filtered pool")
	ErrSessionFinished       = errors.New("exam: session is already finished")
	ErrIndexOutOfRange       = errors.New("exam: question index out of range")
	ErrOptionOutOfRange      = errors.New("exam: option index out of range")
	ErrInvalidCount          = errors.New("exam: question count must be at least 1")
)

// UnansweredError is the soft finish warning: the caller must re-issue
// finish with explicit confirmation to proceed.
type UnansweredError struct {
	Count int
}

func (e *UnansweredError) Error() string {
	return fmt.Sprintf("exam: %d questions are unanswered", e.Count)
}

type Filters struct {
	SubjectIDs     []string
	OnlyUnanswered bool
}

func (f Filters) matches(q model.Question) bool {
	if f.OnlyUnanswered && q.Answered {
		return false
	}
	if len(f.SubjectIDs) == 0 {
		return true
	}
	for _, id := range f.SubjectIDs {
		if q.SubjectID != nil && *q.SubjectID == id {
			return true
		}
	}
	return false
}

// Session is an in-flight or finished exam. Questions is a by-value
// snapshot of the sampled pool items; mutating the pool afterwards does
// not affect the session.
type Session struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Questions []model.Question `json:"questions"`
	Answers   []int            `json:"answers"`
	StartTime time.Time        `json:"startTime"`
	EndTime   *time.Time       `json:"endTime,omitempty"`
	Score     *int             `json:"score,omitempty"`
}

// PoolUpdate is the write-back of an exam answer onto the shared pool
// item that was sampled.
type PoolUpdate struct {
	QuestionID string
	Correct    bool
}

type Result struct {
	Score        int
	CorrectCount int
	TotalCount   int
	PoolUpdates  []PoolUpdate
}

// Start samples count questions from the filtered pool without
// replacement (Fisher-Yates over the filtered indices) and snapshots
// them by value. Rejected with ErrInsufficientQuestions when the
// filtered pool is smaller than count.
func Start(id, title string, pool []model.Question, filters Filters, count int, rng *rand.Rand, now time.Time) (*Session, error) {
	if count < 1 {
		return nil, ErrInvalidCount
	}

	indices := make([]int, 0, len(pool))
	for i, q := range pool {
		if filters.matches(q) {
			indices = append(indices, i)
		}
	}
	if len(indices) < count {
		return nil, ErrInsufficientQuestions
	}

	rng.Shuffle(len(indices), func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})

	questions := make([]model.Question, count)
	answers := make([]int, count)
	for i := 0; i < count; i++ {
		questions[i] = snapshot(pool[indices[i]])
		answers[i] = Unanswered
	}

	return &Session{
		ID:        id,
		Title:     title,
		Questions: questions,
		Answers:   answers,
		StartTime: now,
	}, nil
}

func snapshot(q model.Question) model.Question {
	options := make([]string, len(q.Options))
	copy(options, q.Options)
	q.Options = options
	if q.SubjectID != nil {
		id := *q.SubjectID
		q.SubjectID = &id
	}
	return q
}

// Answer records the chosen option for a question. Answering the same
// index twice is an idempotent overwrite; navigation is non-linear.
func (s *Session) Answer(index, optionIndex int) error {
	if s.EndTime != nil {
		return ErrSessionFinished
	}
	if index < 0 || index >= len(s.Questions) {
		return ErrIndexOutOfRange
	}
	if optionIndex < 0 || optionIndex >= len(s.Questions[index].Options) {
		return ErrOptionOutOfRange
	}
	s.Answers[index] = optionIndex
	return nil
}

func (s *Session) UnansweredCount() int {
	count := 0
	for _, a := range s.Answers {
		if a == Unanswered {
			count++
		}
	}
	return count
}

// Finish computes the score and closes the session. Finishing with
// unanswered questions needs explicit confirmation; they then count as
// incorrect. The score, once computed, is immutable.
func (s *Session) Finish(confirmUnanswered bool, now time.Time) (*Result, error) {
	if s.EndTime != nil {
		return nil, ErrSessionFinished
	}
	if n := s.UnansweredCount(); n > 0 && !confirmUnanswered {
		return nil, &UnansweredError{Count: n}
	}

	correct := 0
	updates := make([]PoolUpdate, len(s.Questions))
	for i, q := range s.Questions {
		matched := s.Answers[i] == q.CorrectOption
		if matched {
			correct++
		}
		updates[i] = PoolUpdate{QuestionID: q.ID, Correct: matched}
	}

	score := int(math.Round(100 * float64(correct) / float64(len(s.Questions))))
	s.Score = &score
	s.EndTime = &now

	return &Result{
		Score:        score,
		CorrectCount: correct,
		TotalCount:   len(s.Questions),
		PoolUpdates:  updates,
	}, nil
}
