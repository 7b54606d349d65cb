package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"studyplan/backend/internal/model"
)

type QuestionRepository struct {
	db *sql.DB
}

func NewQuestionRepository(db *sql.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

func (r *QuestionRepository) Create(ctx context.Context, question *model.Question) error {
	options, err := json.Marshal(question.Options)
	if err != nil {
		return fmt.Errorf("marshal question options: %w", err)
	}

	var subjectID interface{}
	if question.SubjectID != nil {
		subjectID = *question.SubjectID
	}

	_, err = r.db.ExecContext(
		ctx,
		`INSERT INTO questions (
			id, user_id, subject_id, subject_name, topic, question, options,
			correct_option, explanation, answered, correct, source, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		question.ID,
		question.UserID,
		subjectID,
		question.SubjectName,
		question.Topic,
		question.Question,
		string(options),
		question.CorrectOption,
		question.Explanation,
		boolToInt(question.Answered),
		boolToInt(question.Correct),
		question.Source,
		question.CreatedAt.UTC().Format(time.RFC3339Nano),
		question.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

func (r *QuestionRepository) GetByID(ctx context.Context, userID, id string) (*model.Question, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT id, user_id, subject_id, subject_name, topic, question, options,
		        correct_option, explanation, answered, correct, source, created_at, updated_at
		 FROM questions WHERE id = ? AND user_id = ?`,
		id,
		userID,
	)
	return scanQuestion(row)
}

func (r *QuestionRepository) List(ctx context.Context, userID string) ([]model.Question, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, user_id, subject_id, subject_name, topic, question, options,
		        correct_option, explanation, answered, correct, source, created_at, updated_at
		 FROM questions WHERE user_id = ? ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	questions := make([]model.Question, 0)
	for rows.Next() {
		question, scanErr := scanQuestion(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		questions = append(questions, *question)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return questions, nil
}

func (r *QuestionRepository) Update(ctx context.Context, question *model.Question) error {
	options, err := json.Marshal(question.Options)
	if err != nil {
		return fmt.Errorf("marshal question options: %w", err)
	}

	var subjectID interface{}
	if question.SubjectID != nil {
		subjectID = *question.SubjectID
	}

	result, err := r.db.ExecContext(
		ctx,
		`UPDATE questions
		 SET subject_id = ?, subject_name = ?, topic = ?, question = ?, options = ?,
		     correct_option = ?, explanation = ?, answered = ?, correct = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		subjectID,
		question.SubjectName,
		question.Topic,
		question.Question,
		string(options),
		question.CorrectOption,
		question.Explanation,
		boolToInt(question.Answered),
		boolToInt(question.Correct),
		question.UpdatedAt.UTC().Format(time.RFC3339Nano),
		question.ID,
		question.UserID,
	)
	if err != nil {
		return fmt.Errorf("update question: %w", err)
	}
	return requireRow(result)
}

// MarkAnswered is the pool write-back: flips the answered/correct flags
// on one pool item without touching its content.
func (r *QuestionRepository) MarkAnswered(ctx context.Context, userID, id string, correct bool) error {
	_, err := r.db.ExecContext(
		ctx,
		`UPDATE questions SET answered = 1, correct = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		boolToInt(correct),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		userID,
	)
	if err != nil {
		return fmt.Errorf("mark question answered: %w", err)
	}
	return nil
}

func (r *QuestionRepository) Delete(ctx context.Context, userID, id string) error {
	result, err := r.db.ExecContext(
		ctx,
		`DELETE FROM questions WHERE id = ? AND user_id = ?`,
		id,
		userID,
	)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	return requireRow(result)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func scanQuestion(s scanner) (*model.Question, error) {
	question := model.Question{}
	var subjectID sql.NullString
	var options string
	var answered, correct int
	var createdAt, updatedAt string

	err := s.Scan(
		&question.ID,
		&question.UserID,
		&subjectID,
		&question.SubjectName,
		&question.Topic,
		&question.Question,
		&options,
		&question.CorrectOption,
		&question.Explanation,
		&answered,
		&correct,
		&question.Source,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan question: %w", err)
	}

	if subjectID.Valid {
		value := subjectID.String
		question.SubjectID = &value
	}
	if err := json.Unmarshal([]byte(options), &question.Options); err != nil {
		return nil, fmt.Errorf("unmarshal question options: %w", err)
	}
	question.Answered = answered != 0
	question.Correct = correct != 0

	parsedCreatedAt, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse question created_at: %w", err)
	}
	question.CreatedAt = parsedCreatedAt

	parsedUpdatedAt, err := parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse question updated_at: %w", err)
	}
	question.UpdatedAt = parsedUpdatedAt

	return &question, nil
}
