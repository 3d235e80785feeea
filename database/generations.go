package database

import (
	"newton/models"
	"time"

	"github.com/google/uuid"
)

// ==================== GENERATION LOG ====================

// SaveGeneratedNote stores a generated note, its flashcards and a generations
// row in one transaction. A note made from an upload also completes the upload.
func (r *Repository) SaveGeneratedNote(note *models.Note, cards []models.Flashcard) error {
	return r.inTx(func(tx *txn) error {
		if err := insertNote(tx, note); err != nil {
			return err
		}
		if err := insertFlashcards(tx, cards); err != nil {
			return err
		}

		if _, err := tx.Exec(`
			INSERT INTO generations (id, user_id, note_id, upload_id, source, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, uuid.New().String(), note.UserID, note.ID, nullString(note.UploadID),
			string(note.Source), utc(note.CreatedAt)); err != nil {
			return err
		}

		if note.UploadID == "" {
			return nil
		}
		return rowsAffected(tx.Exec(`
			UPDATE uploads SET
				status = ?,
				note_id = ?,
				error = NULL,
				updated_at = ?
			WHERE id = ? AND user_id = ?
		`, string(models.ProcessingCompleted), note.ID, utc(time.Now()), note.UploadID, note.UserID))
	})
}

// CountGenerationsSince counts notes generated at or after since. Rows are
// never deleted, so removing a note does not give quota back.
func (r *Repository) CountGenerationsSince(userID string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*)
		FROM generations
		WHERE user_id = ? AND created_at >= ?
	`, userID, utc(since)).Scan(&count)
	return count, err
}

// CountInFlightUploads counts uploads that will still produce a note. With
// ahead set, only uploads queued before it are counted.
func (r *Repository) CountInFlightUploads(userID string, ahead *models.Upload) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM uploads
		WHERE user_id = ? AND status IN (?, ?, ?)`
	args := []any{userID, string(models.ProcessingPending), string(models.ProcessingProcessing),
		string(models.ProcessingFailed)}

	if ahead != nil {
		query += ` AND (created_at < ? OR (created_at = ? AND id < ?))`
		args = append(args, utc(ahead.CreatedAt), utc(ahead.CreatedAt), ahead.ID)
	}

	var count int
	err := r.db.QueryRow(query, args...).Scan(&count)
	return count, err
}
