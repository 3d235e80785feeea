package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"newton/models"
	"time"
)

// ==================== NOTE OPERATIONS ====================

const noteColumns = `id, user_id, title, content, summary, source, upload_id, quiz, created_at, updated_at`

func scanNote(row interface{ Scan(...any) error }) (*models.Note, error) {
	var note models.Note
	var source string
	var uploadID, quiz sql.NullString

	if err := row.Scan(
		&note.ID, &note.UserID, &note.Title, &note.Content, &note.Summary,
		&source, &uploadID, &quiz, &note.CreatedAt, &note.UpdatedAt,
	); err != nil {
		return nil, err
	}

	note.Source = models.NoteSource(source)
	note.UploadID = uploadID.String
	if quiz.Valid && quiz.String != "" {
		if err := json.Unmarshal([]byte(quiz.String), &note.Quiz); err != nil {
			return nil, fmt.Errorf("failed to decode quiz for note %s: %w", note.ID, err)
		}
	}
	return &note, nil
}

func encodeQuiz(quiz []models.QuizQuestion) (any, error) {
	if len(quiz) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(quiz)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// GetNote retrieves a note owned by userID
func (r *Repository) GetNote(userID, noteID string) (*models.Note, error) {
	note, err := scanNote(r.db.QueryRow(`
		SELECT `+noteColumns+`
		FROM notes
		WHERE id = ? AND user_id = ?
	`, noteID, userID))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return note, nil
}

// CreateNote inserts a new note
func (r *Repository) CreateNote(note *models.Note) error {
	return insertNote(r.db, note)
}

func insertNote(e execer, note *models.Note) error {
	quiz, err := encodeQuiz(note.Quiz)
	if err != nil {
		return err
	}

	_, err = e.Exec(`
		INSERT INTO notes (`+noteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		note.ID, note.UserID, note.Title, note.Content, note.Summary,
		string(note.Source), nullString(note.UploadID), quiz,
		utc(note.CreatedAt), utc(note.UpdatedAt),
	)
	return err
}

// UpdateNote updates a note's title and content
func (r *Repository) UpdateNote(userID, noteID, title, content string) error {
	return rowsAffected(r.db.Exec(`
		UPDATE notes SET
			title = ?,
			content = ?,
			updated_at = ?
		WHERE id = ? AND user_id = ?
	`, title, content, utc(time.Now()), noteID, userID))
}

// SetNoteQuiz replaces the quiz stored on a note
func (r *Repository) SetNoteQuiz(userID, noteID string, quiz []models.QuizQuestion) error {
	encoded, err := encodeQuiz(quiz)
	if err != nil {
		return err
	}
	return rowsAffected(r.db.Exec(`
		UPDATE notes SET
			quiz = ?,
			updated_at = ?
		WHERE id = ? AND user_id = ?
	`, encoded, utc(time.Now()), noteID, userID))
}

// ListNotes retrieves a user's notes, newest first (paginated)
func (r *Repository) ListNotes(userID string, limit, offset int) ([]models.Note, error) {
	rows, err := r.db.Query(`
		SELECT `+noteColumns+`
		FROM notes
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := make([]models.Note, 0)
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		// Don't ship content or quiz in list view
		note.Content = ""
		note.Quiz = nil
		notes = append(notes, *note)
	}

	return notes, rows.Err()
}

// DeleteNote removes a note and its flashcards
func (r *Repository) DeleteNote(userID, noteID string) error {
	if err := rowsAffected(r.db.Exec(`
		DELETE FROM notes WHERE id = ? AND user_id = ?
	`, noteID, userID)); err != nil {
		return err
	}

	_, err := r.db.Exec(`DELETE FROM flashcards WHERE note_id = ? AND user_id = ?`, noteID, userID)
	return err
}
