package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"studyplan/backend/internal/exam"
	"studyplan/backend/internal/model"
)

type ExamRepository struct {
	db *sql.DB
}

func NewExamRepository(db *sql.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

func (r *ExamRepository) Insert(ctx context.Context, userID string, session *exam.Session) error {
	questions, answers, err := marshalExam(session)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = r.db.ExecContext(
		ctx,
		`INSERT INTO exam_sessions (
			id, user_id, title, questions, answers, start_time, end_time, score, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		userID,
		session.Title,
		questions,
		answers,
		session.StartTime.UTC().Format(time.RFC3339Nano),
		nullableTime(session.EndTime),
		nullableInt(session.Score),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("insert exam session: %w", err)
	}
	return nil
}

func (r *ExamRepository) Update(ctx context.Context, userID string, session *exam.Session) error {
	questions, answers, err := marshalExam(session)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(
		ctx,
		`UPDATE exam_sessions
		 SET questions = ?, answers = ?, end_time = ?, score = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		questions,
		answers,
		nullableTime(session.EndTime),
		nullableInt(session.Score),
		time.Now().UTC().Format(time.RFC3339Nano),
		session.ID,
		userID,
	)
	if err != nil {
		return fmt.Errorf("update exam session: %w", err)
	}
	return requireRow(result)
}

func (r *ExamRepository) GetByID(ctx context.Context, userID, id string) (*exam.Session, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT id, title, questions, answers, start_time, end_time, score
		 FROM exam_sessions WHERE id = ? AND user_id = ?`,
		id,
		userID,
	)
	return scanExamSession(row)
}

func (r *ExamRepository) List(ctx context.Context, userID string, limit int) ([]exam.Session, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, title, questions, answers, start_time, end_time, score
		 FROM exam_sessions
		 WHERE user_id = ?
		 ORDER BY start_time DESC
		 LIMIT ?`,
		userID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list exam sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]exam.Session, 0, limit)
	for rows.Next() {
		session, scanErr := scanExamSession(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exam sessions: %w", err)
	}
	return sessions, nil
}

func marshalExam(session *exam.Session) (string, string, error) {
	questions, err := json.Marshal(session.Questions)
	if err != nil {
		return "", "", fmt.Errorf("marshal exam questions: %w", err)
	}
	answers, err := json.Marshal(session.Answers)
	if err != nil {
		return "", "", fmt.Errorf("marshal exam answers: %w", err)
	}
	return string(questions), string(answers), nil
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func scanExamSession(s scanner) (*exam.Session, error) {
	session := exam.Session{}
	var questions, answers, startTime string
	var endTime sql.NullString
	var score sql.NullInt64

	err := s.Scan(&session.ID, &session.Title, &questions, &answers, &startTime, &endTime, &score)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan exam session: %w", err)
	}

	if err := json.Unmarshal([]byte(questions), &session.Questions); err != nil {
		return nil, fmt.Errorf("unmarshal exam questions: %w", err)
	}
	if session.Questions == nil {
		session.Questions = []model.Question{}
	}
	if err := json.Unmarshal([]byte(answers), &session.Answers); err != nil {
		return nil, fmt.Errorf("unmarshal exam answers: %w", err)
	}

	parsedStartTime, err := parseTime(startTime)
	if err != nil {
		return nil, fmt.Errorf("parse exam start_time: %w", err)
	}
	session.StartTime = parsedStartTime

	if endTime.Valid {
		parsedEndTime, parseErr := parseTime(endTime.String)
		if parseErr != nil {
			return nil, fmt.Errorf("parse exam end_time: %w", parseErr)
		}
		session.EndTime = &parsedEndTime
	}
	if score.Valid {
		value := int(score.Int64)
		session.Score = &value
	}

	return &session, nil
}
