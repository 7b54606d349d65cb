package service

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "studyplan/backend/internal/errors"
	"studyplan/backend/internal/model"
	"studyplan/backend/internal/repository"
	"studyplan/backend/internal/review"
)

type FlashcardService struct {
	cardRepo       *repository.FlashcardRepository
	activity       *ActivityService
	pointsPerGrade int
	logger         *slog.Logger
}

func NewFlashcardService(
	cardRepo *repository.FlashcardRepository,
	activity *ActivityService,
	pointsPerGrade int,
	logger *slog.Logger,
) *FlashcardService {
	return &FlashcardService{
		cardRepo:       cardRepo,
		activity:       activity,
		pointsPerGrade: pointsPerGrade,
		logger:         logger,
	}
}

type FlashcardInput struct {
	Subject    string
	Front      string
	Back       string
	Difficulty string
}

func (input FlashcardInput) validate() *apperrors.APIError {
	if strings.TrimSpace(input.Subject) == "" {
		return apperrors.BadRequest("validation_error", "subject is required")
	}
	if strings.TrimSpace(input.Front) == "" || strings.TrimSpace(input.Back) == "" {
		return apperrors.BadRequest("validation_error", "both sides of the card are required")
	}
	return nil
}

func (s *FlashcardService) Create(ctx context.Context, userID string, input FlashcardInput) (*model.Flashcard, *apperrors.APIError) {
	if apiErr := input.validate(); apiErr != nil {
		return nil, apiErr
	}

	now := time.Now().UTC()
	card := model.Flashcard{
		ID:         uuid.NewString(),
		UserID:     userID,
		Subject:    strings.TrimSpace(input.Subject),
		Front:      input.Front,
		Back:       input.Back,
		Difficulty: input.Difficulty,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.cardRepo.Create(ctx, &card); err != nil {
		return nil, apperrors.Internal("failed to create flashcard")
	}
	return &card, nil
}

func (s *FlashcardService) List(ctx context.Context, userID string) ([]model.Flashcard, *apperrors.APIError) {
	cards, err := s.cardRepo.List(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to load flashcards")
	}
	return cards, nil
}

func (s *FlashcardService) Update(ctx context.Context, userID, id string, input FlashcardInput) (*model.Flashcard, *apperrors.APIError) {
	if apiErr := input.validate(); apiErr != nil {
		return nil, apiErr
	}

	card, apiErr := s.get(ctx, userID, id)
	if apiErr != nil {
		return nil, apiErr
	}

	card.Subject = strings.TrimSpace(input.Subject)
	card.Front = input.Front
	card.Back = input.Back
	card.Difficulty = input.Difficulty
	card.UpdatedAt = time.Now().UTC()

	if err := s.cardRepo.Update(ctx, card); err != nil {
		return nil, apperrors.Internal("failed to update flashcard")
	}
	return card, nil
}

func (s *FlashcardService) Delete(ctx context.Context, userID, id string) *apperrors.APIError {
	err := s.cardRepo.Delete(ctx, userID, id)
	if err == repository.ErrNotFound {
		return apperrors.NotFound("flashcard_not_found", "flashcard not found")
	}
	if err != nil {
		return apperrors.Internal("failed to delete flashcard")
	}
	return nil
}

// StartReview returns the whole collection in randomized order; every
// review session is a single pass over all cards.
func (s *FlashcardService) StartReview(ctx context.Context, userID string) ([]model.Flashcard, *apperrors.APIError) {
	cards, err := s.cardRepo.List(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to load flashcards")
	}

	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	return review.WorkingCopy(cards, rng), nil
}

// Grade records one grading pass and persists it immediately; grades
// are not batched.
func (s *FlashcardService) Grade(ctx context.Context, userID, id string, correct bool) (*model.Flashcard, *apperrors.APIError) {
	card, apiErr := s.get(ctx, userID, id)
	if apiErr != nil {
		return nil, apiErr
	}

	review.ApplyGrade(card, correct, time.Now().UTC())

	if err := s.cardRepo.Update(ctx, card); err != nil {
		return nil, apperrors.Internal("failed to save grade")
	}

	s.activity.Emit(ctx, userID, model.ActivityCardReview, s.pointsPerGrade, map[string]interface{}{
		"card":    card.ID,
		"correct": correct,
	})
	return card, nil
}

// ResetStats is the explicit bulk action that zeroes every counter.
func (s *FlashcardService) ResetStats(ctx context.Context, userID string) *apperrors.APIError {
	if err := s.cardRepo.ResetStats(ctx, userID); err != nil {
		return apperrors.Internal("failed to reset flashcard stats")
	}
	return nil
}

func (s *FlashcardService) get(ctx context.Context, userID, id string) (*model.Flashcard, *apperrors.APIError) {
	card, err := s.cardRepo.GetByID(ctx, userID, id)
	if err == repository.ErrNotFound {
		return nil, apperrors.NotFound("flashcard_not_found", "flashcard not found")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to load flashcard")
	}
	return card, nil
}
