package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "studyplan/backend/internal/errors"
	"studyplan/backend/internal/generator"
	"studyplan/backend/internal/model"
	"studyplan/backend/internal/repository"
)

// GenerationService seeds the question and flashcard pools from the
// external AI collaborator. Results are all-or-nothing: a malformed
// response inserts nothing.
type GenerationService struct {
	client       *generator.Client
	questionRepo *repository.QuestionRepository
	cardRepo     *repository.FlashcardRepository
	subjectRepo  *repository.SubjectRepository
	logger       *slog.Logger
}

func NewGenerationService(
	client *generator.Client,
	questionRepo *repository.QuestionRepository,
	cardRepo *repository.FlashcardRepository,
	subjectRepo *repository.SubjectRepository,
	logger *slog.Logger,
) *GenerationService {
	return &GenerationService{
		client:       client,
		questionRepo: questionRepo,
		cardRepo:     cardRepo,
		subjectRepo:  subjectRepo,
		logger:       logger,
	}
}

type GenerateInput struct {
	DocumentText string
	SubjectID    string
	Count        int
}

func (input GenerateInput) validate() *apperrors.APIError {
	if strings.TrimSpace(input.DocumentText) == "" {
		return apperrors.BadRequest("validation_error", "documentText is required")
	}
	if input.Count < 1 || input.Count > 50 {
		return apperrors.BadRequest("validation_error", "count must be between 1 and 50")
	}
	return nil
}

func (s *GenerationService) GenerateQuestions(ctx context.Context, userID string, input GenerateInput) ([]model.Question, *apperrors.APIError) {
	if apiErr := input.validate(); apiErr != nil {
		return nil, apiErr
	}

	subject, err := s.subjectRepo.GetByID(ctx, userID, input.SubjectID)
	if err == repository.ErrNotFound {
		return nil, apperrors.BadRequest("validation_error", "subject does not exist")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to look up subject")
	}

	generated, genErr := s.client.GenerateQuestions(ctx, generator.Request{
		DocumentText: input.DocumentText,
		Subject:      subject.Name,
		Count:        input.Count,
	})
	if genErr != nil {
		return nil, s.generationFailed(userID, genErr)
	}

	now := time.Now().UTC()
	questions := make([]model.Question, 0, len(generated))
	for _, g := range generated {
		question := model.Question{
			ID:            uuid.NewString(),
			UserID:        userID,
			SubjectID:     &subject.ID,
			SubjectName:   subject.Name,
			Question:      g.Question,
			Options:       g.Options,
			CorrectOption: g.CorrectAnswerIndex,
			Explanation:   g.Explanation,
			Source:        model.QuestionSourceGenerated,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.questionRepo.Create(ctx, &question); err != nil {
			return nil, apperrors.Internal("failed to save generated questions")
		}
		questions = append(questions, question)
	}
	return questions, nil
}

func (s *GenerationService) GenerateFlashcards(ctx context.Context, userID string, input GenerateInput) ([]model.Flashcard, *apperrors.APIError) {
	if apiErr := input.validate(); apiErr != nil {
		return nil, apiErr
	}

	subject, err := s.subjectRepo.GetByID(ctx, userID, input.SubjectID)
	if err == repository.ErrNotFound {
		return nil, apperrors.BadRequest("validation_error", "subject does not exist")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to look up subject")
	}

	generated, genErr := s.client.GenerateFlashcards(ctx, generator.Request{
		DocumentText: input.DocumentText,
		Subject:      subject.Name,
		Count:        input.Count,
	})
	if genErr != nil {
		return nil, s.generationFailed(userID, genErr)
	}

	now := time.Now().UTC()
	cards := make([]model.Flashcard, 0, len(generated))
	for _, g := range generated {
		card := model.Flashcard{
			ID:        uuid.NewString(),
			UserID:    userID,
			Subject:   subject.Name,
			Front:     g.Front,
			Back:      g.Back,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.cardRepo.Create(ctx, &card); err != nil {
			return nil, apperrors.Internal("failed to save generated flashcards")
		}
		cards = append(cards, card)
	}
	return cards, nil
}

func (s *GenerationService) generationFailed(userID string, err error) *apperrors.APIError {
	s.logger.Error("content generation failed", "user", userID, "error", err)
	if errors.Is(err, generator.ErrBadResponse) {
		return apperrors.BadGateway("generation_failed", "could not generate content")
	}
	return apperrors.BadGateway("generation_failed", "content service is unavailable")
}
