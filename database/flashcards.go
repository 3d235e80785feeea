package database

import (
	"database/sql"
	"newton/models"
	"time"
)

// ==================== FLASHCARD OPERATIONS ====================

const flashcardColumns = `id, user_id, note_id, front, back, stability, difficulty, due_at,
	last_review_at, review_count, created_at, updated_at`

func scanFlashcard(row interface{ Scan(...any) error }) (*models.Flashcard, error) {
	var card models.Flashcard
	var noteID sql.NullString
	var lastReviewAt sql.NullTime

	if err := row.Scan(
		&card.ID, &card.UserID, &noteID, &card.Front, &card.Back,
		&card.Stability, &card.Difficulty, &card.DueAt, &lastReviewAt,
		&card.ReviewCount, &card.CreatedAt, &card.UpdatedAt,
	); err != nil {
		return nil, err
	}

	card.NoteID = noteID.String
	card.LastReviewAt = timePtr(lastReviewAt)
	return &card, nil
}

func (r *Repository) queryFlashcards(query string, args ...any) ([]models.Flashcard, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cards := make([]models.Flashcard, 0)
	for rows.Next() {
		card, err := scanFlashcard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, *card)
	}
	return cards, rows.Err()
}

// CreateFlashcards inserts cards in a single transaction
func (r *Repository) CreateFlashcards(cards []models.Flashcard) error {
	if len(cards) == 0 {
		return nil
	}
	return r.inTx(func(tx *txn) error {
		return insertFlashcards(tx, cards)
	})
}

func insertFlashcards(e execer, cards []models.Flashcard) error {
	for _, card := range cards {
		if _, err := e.Exec(`
			INSERT INTO flashcards (`+flashcardColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			card.ID, card.UserID, nullString(card.NoteID), card.Front, card.Back,
			card.Stability, card.Difficulty, utc(card.DueAt), nullTime(card.LastReviewAt),
			card.ReviewCount, utc(card.CreatedAt), utc(card.UpdatedAt),
		); err != nil {
			return err
		}
	}
	return nil
}

// GetFlashcard retrieves a card owned by userID
func (r *Repository) GetFlashcard(userID, cardID string) (*models.Flashcard, error) {
	card, err := scanFlashcard(r.db.QueryRow(`
		SELECT `+flashcardColumns+`
		FROM flashcards
		WHERE id = ? AND user_id = ?
	`, cardID, userID))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return card, nil
}

// ListFlashcards retrieves a user's cards, optionally limited to one note
func (r *Repository) ListFlashcards(userID, noteID string, limit, offset int) ([]models.Flashcard, error) {
	if noteID != "" {
		return r.queryFlashcards(`
			SELECT `+flashcardColumns+`
			FROM flashcards
			WHERE user_id = ? AND note_id = ?
			ORDER BY created_at ASC
			LIMIT ? OFFSET ?
		`, userID, noteID, limit, offset)
	}
	return r.queryFlashcards(`
		SELECT `+flashcardColumns+`
		FROM flashcards
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
}

// ListDueFlashcards retrieves cards due at or before now, most overdue first
func (r *Repository) ListDueFlashcards(userID string, now time.Time, limit int) ([]models.Flashcard, error) {
	return r.queryFlashcards(`
		SELECT `+flashcardColumns+`
		FROM flashcards
		WHERE user_id = ? AND due_at <= ?
		ORDER BY due_at ASC
		LIMIT ?
	`, userID, utc(now), limit)
}

// UpdateFlashcardContent replaces the front and back of a card
func (r *Repository) UpdateFlashcardContent(userID, cardID, front, back string) error {
	return rowsAffected(r.db.Exec(`
		UPDATE flashcards SET
			front = ?,
			back = ?,
			updated_at = ?
		WHERE id = ? AND user_id = ?
	`, front, back, utc(time.Now()), cardID, userID))
}

// SaveFlashcardReview persists the scheduling state after a review
func (r *Repository) SaveFlashcardReview(card *models.Flashcard) error {
	return rowsAffected(r.db.Exec(`
		UPDATE flashcards SET
			stability = ?,
			difficulty = ?,
			due_at = ?,
			last_review_at = ?,
			review_count = ?,
			updated_at = ?
		WHERE id = ? AND user_id = ?
	`, card.Stability, card.Difficulty, utc(card.DueAt), nullTime(card.LastReviewAt),
		card.ReviewCount, utc(card.UpdatedAt), card.ID, card.UserID))
}

// DeleteFlashcard removes a card
func (r *Repository) DeleteFlashcard(userID, cardID string) error {
	return rowsAffected(r.db.Exec(`DELETE FROM flashcards WHERE id = ? AND user_id = ?`, cardID, userID))
}
