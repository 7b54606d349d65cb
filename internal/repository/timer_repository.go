package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"studyplan/backend/internal/model"
	"studyplan/backend/internal/timer"
)

type TimerRepository struct {
	db *sql.DB
}

func NewTimerRepository(db *sql.DB) *TimerRepository {
	return &TimerRepository{db: db}
}

func (r *TimerRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return tx, nil
}

func (r *TimerRepository) CreateInitialState(ctx context.Context, userID string) error {
	cfg := timer.Preset(timer.ModePomodoro)
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO timer_states (
			user_id, phase, running, seconds_remaining, mode,
			work_minutes, break_minutes, long_break_minutes, version, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID,
		timer.PhaseIdle,
		0,
		cfg.WorkMinutes*60,
		cfg.Mode,
		cfg.WorkMinutes,
		cfg.BreakMinutes,
		cfg.LongBreakMinutes,
		1,
		now,
	)
	if err != nil {
		return fmt.Errorf("create initial timer state: %w", err)
	}
	return nil
}

func (r *TimerRepository) GetStateTx(ctx context.Context, tx *sql.Tx, userID string) (*model.TimerState, error) {
	row := tx.QueryRowContext(
		ctx,
		`SELECT user_id, phase, running, seconds_remaining, mode,
		        work_minutes, break_minutes, long_break_minutes,
		        draft_subject_id, draft_subject_name, draft_topic, draft_notes, draft_started_at,
		        version, updated_at
		 FROM timer_states WHERE user_id = ?`,
		userID,
	)
	return scanTimerState(row)
}

func (r *TimerRepository) UpdateStateTx(ctx context.Context, tx *sql.Tx, state *model.TimerState) error {
	var draftSubjectID, draftSubjectName, draftTopic, draftNotes, draftStartedAt interface{}
	if state.DraftStartedAt != nil {
		draftSubjectID = state.DraftSubjectID
		draftSubjectName = state.DraftSubjectName
		draftTopic = state.DraftTopic
		draftNotes = state.DraftNotes
		draftStartedAt = state.DraftStartedAt.UTC().Format(time.RFC3339Nano)
	}

	running := 0
	if state.Running {
		running = 1
	}

	_, err := tx.ExecContext(
		ctx,
		`UPDATE timer_states
		 SET phase = ?,
		     running = ?,
		     seconds_remaining = ?,
		     mode = ?,
		     work_minutes = ?,
		     break_minutes = ?,
		     long_break_minutes = ?,
		     draft_subject_id = ?,
		     draft_subject_name = ?,
		     draft_topic = ?,
		     draft_notes = ?,
		     draft_started_at = ?,
		     version = ?,
		     updated_at = ?
		 WHERE user_id = ?`,
		state.Phase,
		running,
		state.SecondsRemaining,
		state.Mode,
		state.WorkMinutes,
		state.BreakMinutes,
		state.LongBreakMinutes,
		draftSubjectID,
		draftSubjectName,
		draftTopic,
		draftNotes,
		draftStartedAt,
		state.Version,
		state.UpdatedAt.UTC().Format(time.RFC3339Nano),
		state.UserID,
	)
	if err != nil {
		return fmt.Errorf("update timer state: %w", err)
	}
	return nil
}

func scanTimerState(s scanner) (*model.TimerState, error) {
	state := model.TimerState{}
	var running int
	var draftSubjectID, draftSubjectName, draftTopic, draftNotes, draftStartedAt sql.NullString
	var updatedAt string

	err := s.Scan(
		&state.UserID,
		&state.Phase,
		&running,
		&state.SecondsRemaining,
		&state.Mode,
		&state.WorkMinutes,
		&state.BreakMinutes,
		&state.LongBreakMinutes,
		&draftSubjectID,
		&draftSubjectName,
		&draftTopic,
		&draftNotes,
		&draftStartedAt,
		&state.Version,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan timer state: %w", err)
	}

	state.Running = running != 0
	state.DraftSubjectID = draftSubjectID.String
	state.DraftSubjectName = draftSubjectName.String
	state.DraftTopic = draftTopic.String
	state.DraftNotes = draftNotes.String

	if draftStartedAt.Valid {
		parsed, parseErr := parseTime(draftStartedAt.String)
		if parseErr != nil {
			return nil, fmt.Errorf("parse draft started_at: %w", parseErr)
		}
		state.DraftStartedAt = &parsed
	}

	parsedUpdatedAt, parseErr := parseTime(updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parse timer state updated_at: %w", parseErr)
	}
	state.UpdatedAt = parsedUpdatedAt
	return &state, nil
}
