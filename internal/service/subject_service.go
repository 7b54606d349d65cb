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

type SubjectService struct {
	subjectRepo *repository.SubjectRepository
}

func NewSubjectService(subjectRepo *repository.SubjectRepository) *SubjectService {
	return &SubjectService{subjectRepo: subjectRepo}
}

func (s *SubjectService) Create(ctx context.Context, userID, name, color string) (*model.Subject, *apperrors.APIError) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.BadRequest("validation_error", "subject name is required")
	}

	now := time.Now().UTC()
	subject := model.Subject{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		Color:     color,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.subjectRepo.Create(ctx, &subject); err != nil {
		return nil, apperrors.Internal("failed to create subject")
	}
	return &subject, nil
}

func (s *SubjectService) List(ctx context.Context, userID string) ([]model.Subject, *apperrors.APIError) {
	subjects, err := s.subjectRepo.List(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to load subjects")
	}
	return subjects, nil
}

func (s *SubjectService) Update(ctx context.Context, userID, id, name, color string) (*model.Subject, *apperrors.APIError) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.BadRequest("validation_error", "subject name is required")
	}

	subject, err := s.subjectRepo.GetByID(ctx, userID, id)
	if err == repository.ErrNotFound {
		return nil, apperrors.NotFound("subject_not_found", "subject not found")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to load subject")
	}

	subject.Name = name
	subject.Color = color
	subject.UpdatedAt = time.Now().UTC()

	if err := s.subjectRepo.Update(ctx, subject); err != nil {
		return nil, apperrors.Internal("failed to update subject")
	}
	return subject, nil
}

// Delete removes the subject. History rows keep their denormalized
// subject name; their subject_id is nulled by the schema.
func (s *SubjectService) Delete(ctx context.Context, userID, id string) *apperrors.APIError {
	err := s.subjectRepo.Delete(ctx, userID, id)
	if err == repository.ErrNotFound {
		return apperrors.NotFound("subject_not_found", "subject not found")
	}
	if err != nil {
		return apperrors.Internal("failed to delete subject")
	}
	return nil
}
