package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "studyplan/backend/internal/errors"
	"studyplan/backend/internal/model"
	"studyplan/backend/internal/repository"
)

// ActivityService is the gamification ledger. Emit fans one logical
// event out as one durable row per group membership. Emission is
// fire-and-forget: failures are logged and never surface to the caller,
// points being a secondary layer on top of the real work.
type ActivityService struct {
	groupRepo *repository.GroupRepository
	logger    *slog.Logger
}

func NewActivityService(groupRepo *repository.GroupRepository, logger *slog.Logger) *ActivityService {
	return &ActivityService{groupRepo: groupRepo, logger: logger}
}

func (s *ActivityService) Emit(ctx context.Context, userID, activityType string, points int, metadata map[string]interface{}) {
	groups, err := s.groupRepo.ListForUser(ctx, userID)
	if err != nil {
		s.logger.Warn("activity fan-out skipped", "user", userID, "type", activityType, "error", err)
		return
	}

	encoded := ""
	if metadata != nil {
		if raw, marshalErr := json.Marshal(metadata); marshalErr == nil {
			encoded = string(raw)
		}
	}

	now := time.Now().UTC()
	for _, group := range groups {
		event := model.ActivityEvent{
			ID:           uuid.NewString(),
			UserID:       userID,
			GroupID:      group.ID,
			ActivityType: activityType,
			Points:       points,
			Metadata:     encoded,
			CreatedAt:    now,
		}
		if err := s.groupRepo.InsertActivityEvent(ctx, &event); err != nil {
			s.logger.Warn("activity event dropped", "user", userID, "group", group.ID, "type", activityType, "error", err)
		}
	}
}

func (s *ActivityService) Leaderboard(ctx context.Context, userID, groupID string) ([]model.LeaderboardEntry, *apperrors.APIError) {
	member, err := s.groupRepo.IsMember(ctx, groupID, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to check membership")
	}
	if !member {
		return nil, apperrors.Forbidden("you are not a member of this group")
	}

	entries, err := s.groupRepo.Leaderboard(ctx, groupID)
	if err != nil {
		return nil, apperrors.Internal("failed to load leaderboard")
	}
	return entries, nil
}
