package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "studyplan/backend/internal/errors"
	"studyplan/backend/internal/model"
	"studyplan/backend/internal/repository"
)

type QuestionService struct {
	questionRepo *repository.QuestionRepository
	subjectRepo  *repository.SubjectRepository
}

func NewQuestionService(questionRepo *repository.QuestionRepository, subjectRepo *repository.SubjectRepository) *QuestionService {
	return &QuestionService{questionRepo: questionRepo, subjectRepo: subjectRepo}
}

type QuestionInput struct {
	SubjectID     string
	Topic         string
	Question      string
	Options       []string
	CorrectOption int
	Explanation   string
}

func (input QuestionInput) validate() *apperrors.APIError {
	if strings.TrimSpace(input.Question) == "" {
		return apperrors.BadRequest("validation_error", "question text is required")
	}
	if len(input.Options) < 2 {
		return apperrors.BadRequest("validation_error", "at least two options are required")
	}
	for _, option := range input.Options {
		if strings.TrimSpace(option) == "" {
			return apperrors.BadRequest("validation_error", "options must not be empty")
		}
	}
	if input.CorrectOption < 0 || input.CorrectOption >= len(input.Options) {
		return apperrors.BadRequest("validation_error", "correctOption must index into options")
	}
	return nil
}

func (s *QuestionService) Create(ctx context.Context, userID string, input QuestionInput) (*model.Question, *apperrors.APIError) {
	if apiErr := input.validate(); apiErr != nil {
		return nil, apiErr
	}

	subject, apiErr := s.resolveSubject(ctx, userID, input.SubjectID)
	if apiErr != nil {
		return nil, apiErr
	}

	now := time.Now().UTC()
	question := model.Question{
		ID:            uuid.NewString(),
		UserID:        userID,
		SubjectID:     &subject.ID,
		SubjectName:   subject.Name,
		Topic:         input.Topic,
		Question:      input.Question,
		Options:       input.Options,
		CorrectOption: input.CorrectOption,
		Explanation:   input.Explanation,
		Source:        model.QuestionSourceManual,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.questionRepo.Create(ctx, &question); err != nil {
		return nil, apperrors.Internal("failed to create question")
	}
	return &question, nil
}

func (s *QuestionService) List(ctx context.Context, userID string) ([]model.Question, *apperrors.APIError) {
	questions, err := s.questionRepo.List(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to load questions")
	}
	return questions, nil
}

func (s *QuestionService) Update(ctx context.Context, userID, id string, input QuestionInput) (*model.Question, *apperrors.APIError) {
	if apiErr := input.validate(); apiErr != nil {
		return nil, apiErr
	}

	question, apiErr := s.get(ctx, userID, id)
	if apiErr != nil {
		return nil, apiErr
	}

	subject, apiErr := s.resolveSubject(ctx, userID, input.SubjectID)
	if apiErr != nil {
		return nil, apiErr
	}

	question.SubjectID = &subject.ID
	question.SubjectName = subject.Name
	question.Topic = input.Topic
	question.Question = input.Question
	question.Options = input.Options
	question.CorrectOption = input.CorrectOption
	question.Explanation = input.Explanation
	question.UpdatedAt = time.Now().UTC()

	if err := s.questionRepo.Update(ctx, question); err != nil {
		return nil, apperrors.Internal("failed to update question")
	}
	return question, nil
}

func (s *QuestionService) Delete(ctx context.Context, userID, id string) *apperrors.APIError {
	err := s.questionRepo.Delete(ctx, userID, id)
	if err == repository.ErrNotFound {
		return apperrors.NotFound("question_not_found", "question not found")
	}
	if err != nil {
		return apperrors.Internal("failed to delete question")
	}
	return nil
}

// Answer records a practice-mode attempt outside any exam: the pool
// item itself is mutated in place, an idempotent overwrite of the
// answered/correct flags.
func (s *QuestionService) Answer(ctx context.Context, userID, id string, optionIndex int) (*model.Question, *apperrors.APIError) {
	question, apiErr := s.get(ctx, userID, id)
	if apiErr != nil {
		return nil, apiErr
	}

	if optionIndex < 0 || optionIndex >= len(question.Options) {
		return nil, apperrors.BadRequest("validation_error", "optionIndex must index into options")
	}

	question.Answered = true
	question.Correct = optionIndex == question.CorrectOption
	question.UpdatedAt = time.Now().UTC()

	if err := s.questionRepo.Update(ctx, question); err != nil {
		return nil, apperrors.Internal("failed to save answer")
	}
	return question, nil
}

func (s *QuestionService) get(ctx context.Context, userID, id string) (*model.Question, *apperrors.APIError) {
	question, err := s.questionRepo.GetByID(ctx, userID, id)
	if err == repository.ErrNotFound {
		return nil, apperrors.NotFound("question_not_found", "question not found")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to load question")
	}
	return question, nil
}

func (s *QuestionService) resolveSubject(ctx context.Context, userID, subjectID string) (*model.Subject, *apperrors.APIError) {
	if subjectID == "" {
		return nil, apperrors.BadRequest("validation_error", "subjectId is required")
	}
	subject, err := s.subjectRepo.GetByID(ctx, userID, subjectID)
	if err == repository.ErrNotFound {
		return nil, apperrors.BadRequest("validation_error", "subject does not exist")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to look up subject")
	}
	return subject, nil
}
