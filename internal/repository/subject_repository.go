package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"studyplan/backend/internal/model"
)

type SubjectRepository struct {
	db *sql.DB
}

func NewSubjectRepository(db *sql.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

func (r *SubjectRepository) Create(ctx context.Context, subject *model.Subject) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO subjects (id, user_id, name, color, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		subject.ID,
		subject.UserID,
		subject.Name,
		subject.Color,
		subject.CreatedAt.UTC().Format(time.RFC3339Nano),
		subject.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

func (r *SubjectRepository) GetByID(ctx context.Context, userID, id string) (*model.Subject, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT id, user_id, name, color, created_at, updated_at
		 FROM subjects WHERE id = ? AND user_id = ?`,
		id,
		userID,
	)
	return scanSubject(row)
}

func (r *SubjectRepository) List(ctx context.Context, userID string) ([]model.Subject, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, user_id, name, color, created_at, updated_at
		 FROM subjects WHERE user_id = ? ORDER BY name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()

	subjects := make([]model.Subject, 0)
	for rows.Next() {
		subject, scanErr := scanSubject(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		subjects = append(subjects, *subject)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subjects: %w", err)
	}
	return subjects, nil
}

func (r *SubjectRepository) Update(ctx context.Context, subject *model.Subject) error {
	result, err := r.db.ExecContext(
		ctx,
		`UPDATE subjects SET name = ?, color = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		subject.Name,
		subject.Color,
		subject.UpdatedAt.UTC().Format(time.RFC3339Nano),
		subject.ID,
		subject.UserID,
	)
	if err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	return requireRow(result)
}

func (r *SubjectRepository) Delete(ctx context.Context, userID, id string) error {
	result, err := r.db.ExecContext(
		ctx,
		`DELETE FROM subjects WHERE id = ? AND user_id = ?`,
		id,
		userID,
	)
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSubject(s scanner) (*model.Subject, error) {
	subject := model.Subject{}
	var createdAt, updatedAt string

	err := s.Scan(&subject.ID, &subject.UserID, &subject.Name, &subject.Color, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan subject: %w", err)
	}

	parsedCreatedAt, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse subject created_at: %w", err)
	}
	subject.CreatedAt = parsedCreatedAt

	parsedUpdatedAt, err := parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse subject updated_at: %w", err)
	}
	subject.UpdatedAt = parsedUpdatedAt

	return &subject, nil
}
