package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"studyplan/backend/internal/model"
)

type FlashcardRepository struct {
	db *sql.DB
}

func NewFlashcardRepository(db *sql.DB) *FlashcardRepository {
	return &FlashcardRepository{db: db}
}

func (r *FlashcardRepository) Create(ctx context.Context, card *model.Flashcard) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO flashcards (
			id, user_id, subject, front, back, difficulty,
			review_count, correct_count, last_reviewed_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		card.ID,
		card.UserID,
		card.Subject,
		card.Front,
		card.Back,
		card.Difficulty,
		card.ReviewCount,
		card.CorrectCount,
		nullableTime(card.LastReviewedAt),
		card.CreatedAt.UTC().Format(time.RFC3339Nano),
		card.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert flashcard: %w", err)
	}
	return nil
}

func (r *FlashcardRepository) GetByID(ctx context.Context, userID, id string) (*model.Flashcard, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT id, user_id, subject, front, back, difficulty,
		        review_count, correct_count, last_reviewed_at, created_at, updated_at
		 FROM flashcards WHERE id = ? AND user_id = ?`,
		id,
		userID,
	)
	return scanFlashcard(row)
}

func (r *FlashcardRepository) List(ctx context.Context, userID string) ([]model.Flashcard, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, user_id, subject, front, back, difficulty,
		        review_count, correct_count, last_reviewed_at, created_at, updated_at
		 FROM flashcards WHERE user_id = ? ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list flashcards: %w", err)
	}
	defer rows.Close()

	cards := make([]model.Flashcard, 0)
	for rows.Next() {
		card, scanErr := scanFlashcard(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		cards = append(cards, *card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flashcards: %w", err)
	}
	return cards, nil
}

func (r *FlashcardRepository) Update(ctx context.Context, card *model.Flashcard) error {
	result, err := r.db.ExecContext(
		ctx,
		`UPDATE flashcards
		 SET subject = ?, front = ?, back = ?, difficulty = ?,
		     review_count = ?, correct_count = ?, last_reviewed_at = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		card.Subject,
		card.Front,
		card.Back,
		card.Difficulty,
		card.ReviewCount,
		card.CorrectCount,
		nullableTime(card.LastReviewedAt),
		card.UpdatedAt.UTC().Format(time.RFC3339Nano),
		card.ID,
		card.UserID,
	)
	if err != nil {
		return fmt.Errorf("update flashcard: %w", err)
	}
	return requireRow(result)
}

func (r *FlashcardRepository) Delete(ctx context.Context, userID, id string) error {
	result, err := r.db.ExecContext(
		ctx,
		`DELETE FROM flashcards WHERE id = ? AND user_id = ?`,
		id,
		userID,
	)
	if err != nil {
		return fmt.Errorf("delete flashcard: %w", err)
	}
	return requireRow(result)
}

// ResetStats zeroes the review counters on every card the user owns.
func (r *FlashcardRepository) ResetStats(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(
		ctx,
		`UPDATE flashcards
		 SET review_count = 0, correct_count = 0, last_reviewed_at = NULL, updated_at = ?
		 WHERE user_id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		userID,
	)
	if err != nil {
		return fmt.Errorf("reset flashcard stats: %w", err)
	}
	return nil
}

func scanFlashcard(s scanner) (*model.Flashcard, error) {
	card := model.Flashcard{}
	var lastReviewedAt sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(
		&card.ID,
		&card.UserID,
		&card.Subject,
		&card.Front,
		&card.Back,
		&card.Difficulty,
		&card.ReviewCount,
		&card.CorrectCount,
		&lastReviewedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan flashcard: %w", err)
	}

	if lastReviewedAt.Valid {
		parsed, parseErr := parseTime(lastReviewedAt.String)
		if parseErr != nil {
			return nil, fmt.Errorf("parse flashcard last_reviewed_at: %w", parseErr)
		}
		card.LastReviewedAt = &parsed
	}

	parsedCreatedAt, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse flashcard created_at: %w", err)
	}
	card.CreatedAt = parsedCreatedAt

	parsedUpdatedAt, err := parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse flashcard updated_at: %w", err)
	}
	card.UpdatedAt = parsedUpdatedAt

	return &card, nil
}
