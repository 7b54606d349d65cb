package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"studyplan/backend/internal/model"
)

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Insert(ctx context.Context, record *model.StudySessionRecord) error {
	var subjectID interface{}
	if record.SubjectID != nil {
		subjectID = *record.SubjectID
	}

	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO study_sessions (
			id, user_id, subject_id, subject_name, topic, duration_minutes,
			timer_mode, started_at, completed_at, notes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.UserID,
		subjectID,
		record.SubjectName,
		record.Topic,
		record.DurationMinutes,
		record.TimerMode,
		record.StartedAt.UTC().Format(time.RFC3339Nano),
		record.CompletedAt.UTC().Format(time.RFC3339Nano),
		record.Notes,
		record.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert study session: %w", err)
	}
	return nil
}

func (r *SessionRepository) List(ctx context.Context, userID string, limit int) ([]model.StudySessionRecord, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, user_id, subject_id, subject_name, topic, duration_minutes,
		        timer_mode, started_at, completed_at, notes, created_at
		 FROM study_sessions
		 WHERE user_id = ?
		 ORDER BY completed_at DESC
		 LIMIT ?`,
		userID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list study sessions: %w", err)
	}
	defer rows.Close()

	records := make([]model.StudySessionRecord, 0, limit)
	for rows.Next() {
		record, scanErr := scanStudySession(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate study sessions: %w", err)
	}
	return records, nil
}

// CountCompletedSince feeds the sessionsCompletedToday counter: the
// caller passes local midnight and gets the day's completed sessions.
func (r *SessionRepository) CountCompletedSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM study_sessions WHERE user_id = ? AND completed_at >= ?`,
		userID,
		since.UTC().Format(time.RFC3339Nano),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count study sessions: %w", err)
	}
	return count, nil
}

func scanStudySession(s scanner) (*model.StudySessionRecord, error) {
	record := model.StudySessionRecord{}
	var subjectID sql.NullString
	var startedAt, completedAt, createdAt string

	err := s.Scan(
		&record.ID,
		&record.UserID,
		&subjectID,
		&record.SubjectName,
		&record.Topic,
		&record.DurationMinutes,
		&record.TimerMode,
		&startedAt,
		&completedAt,
		&record.Notes,
		&createdAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan study session: %w", err)
	}

	if subjectID.Valid {
		value := subjectID.String
		record.SubjectID = &value
	}

	parsedStartedAt, err := parseTime(startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse study session started_at: %w", err)
	}
	record.StartedAt = parsedStartedAt

	parsedCompletedAt, err := parseTime(completedAt)
	if err != nil {
		return nil, fmt.Errorf("parse study session completed_at: %w", err)
	}
	record.CompletedAt = parsedCompletedAt

	parsedCreatedAt, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse study session created_at: %w", err)
	}
	record.CreatedAt = parsedCreatedAt

	return &record, nil
}
