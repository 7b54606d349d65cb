package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "studyplan/backend/internal/errors"
	"studyplan/backend/internal/model"
	"studyplan/backend/internal/repository"
)

type GroupService struct {
	groupRepo *repository.GroupRepository
}

func NewGroupService(groupRepo *repository.GroupRepository) *GroupService {
	return &GroupService{groupRepo: groupRepo}
}

func (s *GroupService) Create(ctx context.Context, userID, name string) (*model.Group, *apperrors.APIError) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.BadRequest("validation_error", "group name is required")
	}

	code, err := inviteCode()
	if err != nil {
		return nil, apperrors.Internal("failed to generate invite code")
	}

	group := model.Group{
		ID:         uuid.NewString(),
		Name:       name,
		OwnerID:    userID,
		InviteCode: code,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.groupRepo.Create(ctx, &group); err != nil {
		return nil, apperrors.Internal("failed to create group")
	}
	if err := s.groupRepo.AddMember(ctx, group.ID, userID); err != nil {
		return nil, apperrors.Internal("failed to join group")
	}
	return &group, nil
}

func (s *GroupService) Join(ctx context.Context, userID, code string) (*model.Group, *apperrors.APIError) {
	group, err := s.groupRepo.GetByInviteCode(ctx, strings.TrimSpace(code))
	if err == repository.ErrNotFound {
		return nil, apperrors.NotFound("group_not_found", "no group with that invite code")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to look up group")
	}

	if err := s.groupRepo.AddMember(ctx, group.ID, userID); err != nil {
		return nil, apperrors.Internal("failed to join group")
	}
	return group, nil
}

func (s *GroupService) ListMine(ctx context.Context, userID string) ([]model.Group, *apperrors.APIError) {
	groups, err := s.groupRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to load groups")
	}
	return groups, nil
}

func inviteCode() (string, error) {
	raw := make([]byte, 4)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}
