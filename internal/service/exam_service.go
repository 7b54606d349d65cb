package service

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "studyplan/backend/internal/errors"
	"studyplan/backend/internal/exam"
	"studyplan/backend/internal/model"
	"studyplan/backend/internal/repository"
)

type ExamService struct {
	examRepo      *repository.ExamRepository
	questionRepo  *repository.QuestionRepository
	activity      *ActivityService
	pointsPerExam int
	logger        *slog.Logger
}

func NewExamService(
	examRepo *repository.ExamRepository,
	questionRepo *repository.QuestionRepository,
	activity *ActivityService,
	pointsPerExam int,
	logger *slog.Logger,
) *ExamService {
	return &ExamService{
		examRepo:      examRepo,
		questionRepo:  questionRepo,
		activity:      activity,
		pointsPerExam: pointsPerExam,
		logger:        logger,
	}
}

type StartExamInput struct {
	Title          string
	SubjectIDs     []string
	OnlyUnanswered bool
	Count          int
}

type FinishExamView struct {
	Session      *exam.Session `json:"session"`
	Score        int           `json:"score"`
	CorrectCount int           `json:"correctCount"`
	TotalCount   int           `json:"totalCount"`
	Warning      string        `json:"warning,omitempty"`
}

func (s *ExamService) Start(ctx context.Context, userID string, input StartExamInput) (*exam.Session, *apperrors.APIError) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = "Exam " + time.Now().UTC().Format("2006-01-02 15:04")
	}

	pool, err := s.questionRepo.List(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to load question pool")
	}

	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	session, startErr := exam.Start(
		uuid.NewString(),
		title,
		pool,
		exam.Filters{SubjectIDs: input.SubjectIDs, OnlyUnanswered: input.OnlyUnanswered},
		input.Count,
		rng,
		time.Now().UTC(),
	)
	if startErr != nil {
		switch startErr {
		case exam.ErrInsufficientQuestions:
			return nil, apperrors.BadRequest("insufficient_questions", "not enough questions match the selected filters")
		case exam.ErrInvalidCount:
			return nil, apperrors.BadRequest("validation_error", "count must be at least 1")
		default:
			return nil, apperrors.Internal("failed to start exam")
		}
	}

	if err := s.examRepo.Insert(ctx, userID, session); err != nil {
		return nil, apperrors.Internal("failed to save exam session")
	}
	return session, nil
}

func (s *ExamService) Answer(ctx context.Context, userID, examID string, index, optionIndex int) (*exam.Session, *apperrors.APIError) {
	session, apiErr := s.get(ctx, userID, examID)
	if apiErr != nil {
		return nil, apiErr
	}

	if err := session.Answer(index, optionIndex); err != nil {
		return nil, answerError(err)
	}

	if err := s.examRepo.Update(ctx, userID, session); err != nil {
		return nil, apperrors.Internal("failed to save answer")
	}
	return session, nil
}

func (s *ExamService) Finish(ctx context.Context, userID, examID string, confirmUnanswered bool) (*FinishExamView, *apperrors.APIError) {
	session, apiErr := s.get(ctx, userID, examID)
	if apiErr != nil {
		return nil, apiErr
	}

	result, err := session.Finish(confirmUnanswered, time.Now().UTC())
	if err != nil {
		var unanswered *exam.UnansweredError
		if errors.As(err, &unanswered) {
			return nil, apperrors.Conflict("unanswered_questions", "some questions are unanswered", map[string]interface{}{
				"unansweredCount": unanswered.Count,
			})
		}
		if err == exam.ErrSessionFinished {
			return nil, apperrors.Conflict("exam_finished", "exam is already finished", nil)
		}
		return nil, apperrors.Internal("failed to finish exam")
	}

	view := &FinishExamView{
		Session:      session,
		Score:        result.Score,
		CorrectCount: result.CorrectCount,
		TotalCount:   result.TotalCount,
	}

	// The score was already computed in memory; persistence failure is
	// a warning, not a rollback.
	if err := s.examRepo.Update(ctx, userID, session); err != nil {
		s.logger.Error("exam session save failed", "user", userID, "exam", examID, "error", err)
		view.Warning = "your exam result could not be saved"
	}

	// Write the exam answers back onto the shared pool items.
	for _, update := range result.PoolUpdates {
		if err := s.questionRepo.MarkAnswered(ctx, userID, update.QuestionID, update.Correct); err != nil {
			s.logger.Warn("pool write-back failed", "user", userID, "question", update.QuestionID, "error", err)
		}
	}

	s.activity.Emit(ctx, userID, model.ActivityExamCompleted, s.pointsPerExam, map[string]interface{}{
		"score": result.Score,
		"total": result.TotalCount,
	})

	return view, nil
}

func (s *ExamService) Get(ctx context.Context, userID, examID string) (*exam.Session, *apperrors.APIError) {
	return s.get(ctx, userID, examID)
}

func (s *ExamService) List(ctx context.Context, userID string, limit int) ([]exam.Session, *apperrors.APIError) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	sessions, err := s.examRepo.List(ctx, userID, limit)
	if err != nil {
		return nil, apperrors.Internal("failed to load exam history")
	}
	return sessions, nil
}

func (s *ExamService) get(ctx context.Context, userID, examID string) (*exam.Session, *apperrors.APIError) {
	session, err := s.examRepo.GetByID(ctx, userID, examID)
	if err == repository.ErrNotFound {
		return nil, apperrors.NotFound("exam_not_found", "exam session not found")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to load exam session")
	}
	return session, nil
}

func answerError(err error) *apperrors.APIError {
	switch err {
	case exam.ErrSessionFinished:
		return apperrors.Conflict("exam_finished", "exam is already finished", nil)
	case exam.ErrIndexOutOfRange, exam.ErrOptionOutOfRange:
		return apperrors.BadRequest("validation_error", err.Error())
	default:
		return apperrors.Internal(err.Error())
	}
}
