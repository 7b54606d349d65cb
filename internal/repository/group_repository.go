package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"studyplan/backend/internal/model"
)

type GroupRepository struct {
	db *sql.DB
}

func NewGroupRepository(db *sql.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

func (r *GroupRepository) Create(ctx context.Context, group *model.Group) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO groups (id, name, owner_id, invite_code, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		group.ID,
		group.Name,
		group.OwnerID,
		group.InviteCode,
		group.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}

func (r *GroupRepository) GetByInviteCode(ctx context.Context, inviteCode string) (*model.Group, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT id, name, owner_id, invite_code, created_at
		 FROM groups WHERE invite_code = ?`,
		inviteCode,
	)
	return scanGroup(row)
}

func (r *GroupRepository) GetByID(ctx context.Context, id string) (*model.Group, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT id, name, owner_id, invite_code, created_at
		 FROM groups WHERE id = ?`,
		id,
	)
	return scanGroup(row)
}

func (r *GroupRepository) AddMember(ctx context.Context, groupID, userID string) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO group_members (group_id, user_id, joined_at)
		 VALUES (?, ?, ?)`,
		groupID,
		userID,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("add group member: %w", err)
	}
	return nil
}

func (r *GroupRepository) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM group_members WHERE group_id = ? AND user_id = ?`,
		groupID,
		userID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check group membership: %w", err)
	}
	return count > 0, nil
}

// ListForUser returns every group the user belongs to; the fan-out
// target set for activity events.
func (r *GroupRepository) ListForUser(ctx context.Context, userID string) ([]model.Group, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT g.id, g.name, g.owner_id, g.invite_code, g.created_at
		 FROM groups g
		 JOIN group_members m ON m.group_id = g.id
		 WHERE m.user_id = ?
		 ORDER BY g.name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	groups := make([]model.Group, 0)
	for rows.Next() {
		group, scanErr := scanGroup(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		groups = append(groups, *group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}
	return groups, nil
}

func (r *GroupRepository) InsertActivityEvent(ctx context.Context, event *model.ActivityEvent) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO activity_events (id, user_id, group_id, activity_type, points, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.UserID,
		event.GroupID,
		event.ActivityType,
		event.Points,
		event.Metadata,
		event.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert activity event: %w", err)
	}
	return nil
}

func (r *GroupRepository) Leaderboard(ctx context.Context, groupID string) ([]model.LeaderboardEntry, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT u.id, u.email, COALESCE(SUM(e.points), 0) AS points
		 FROM group_members m
		 JOIN users u ON u.id = m.user_id
		 LEFT JOIN activity_events e ON e.group_id = m.group_id AND e.user_id = m.user_id
		 WHERE m.group_id = ?
		 GROUP BY u.id, u.email
		 ORDER BY points DESC, u.email`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	entries := make([]model.LeaderboardEntry, 0)
	for rows.Next() {
		var entry model.LeaderboardEntry
		if err := rows.Scan(&entry.UserID, &entry.Email, &entry.Points); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard: %w", err)
	}
	return entries, nil
}

func scanGroup(s scanner) (*model.Group, error) {
	group := model.Group{}
	var createdAt string

	err := s.Scan(&group.ID, &group.Name, &group.OwnerID, &group.InviteCode, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan group: %w", err)
	}

	parsedCreatedAt, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse group created_at: %w", err)
	}
	group.CreatedAt = parsedCreatedAt

	return &group, nil
}
