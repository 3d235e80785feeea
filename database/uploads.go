package database

import (
	"database/sql"
	"newton/models"
	"time"
)

// ==================== UPLOAD OPERATIONS ====================

const uploadColumns = `id, user_id, kind, filename, mime_type, size_bytes, storage_path, source_url,
	transcript, status, retry_count, last_attempt_at, error, note_id, created_at, updated_at`

func scanUpload(row interface{ Scan(...any) error }) (*models.Upload, error) {
	var upload models.Upload
	var kind, status string
	var lastAttemptAt sql.NullTime
	var uploadErr, noteID sql.NullString

	if err := row.Scan(
		&upload.ID, &upload.UserID, &kind, &upload.Filename, &upload.MimeType,
		&upload.SizeBytes, &upload.StoragePath, &upload.SourceURL, &upload.Transcript,
		&status, &upload.RetryCount, &lastAttemptAt, &uploadErr, &noteID,
		&upload.CreatedAt, &upload.UpdatedAt,
	); err != nil {
		return nil, err
	}

	upload.Kind = models.UploadKind(kind)
	upload.Status = models.ProcessingStatus(status)
	upload.LastAttemptAt = timePtr(lastAttemptAt)
	upload.Error = uploadErr.String
	upload.NoteID = noteID.String
	return &upload, nil
}

// CreateUpload inserts a pending upload
func (r *Repository) CreateUpload(upload *models.Upload) error {
	if upload.Status == "" {
		upload.Status = models.ProcessingPending
	}

	_, err := r.db.Exec(`
		INSERT INTO uploads (id, user_id, kind, filename, mime_type, size_bytes, storage_path,
			source_url, transcript, status, retry_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
	`,
		upload.ID, upload.UserID, string(upload.Kind), upload.Filename, upload.MimeType,
		upload.SizeBytes, upload.StoragePath, upload.SourceURL, upload.Transcript,
		string(upload.Status), utc(upload.CreatedAt), utc(upload.UpdatedAt),
	)
	return err
}

// GetUpload retrieves an upload owned by userID
func (r *Repository) GetUpload(userID, uploadID string) (*models.Upload, error) {
	upload, err := scanUpload(r.db.QueryRow(`
		SELECT `+uploadColumns+`
		FROM uploads
		WHERE id = ? AND user_id = ?
	`, uploadID, userID))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return upload, nil
}

// GetUploadByID retrieves an upload regardless of owner (worker use only)
func (r *Repository) GetUploadByID(uploadID string) (*models.Upload, error) {
	upload, err := scanUpload(r.db.QueryRow(`
		SELECT `+uploadColumns+`
		FROM uploads
		WHERE id = ?
	`, uploadID))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return upload, nil
}

// ListUploads retrieves a user's uploads, newest first
func (r *Repository) ListUploads(userID string, limit, offset int) ([]models.Upload, error) {
	rows, err := r.db.Query(`
		SELECT `+uploadColumns+`
		FROM uploads
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	uploads := make([]models.Upload, 0)
	for rows.Next() {
		upload, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, *upload)
	}
	return uploads, rows.Err()
}

// GetPendingUploads retrieves uploads waiting for a first attempt or a retry,
// oldest first
func (r *Repository) GetPendingUploads(limit int) ([]models.Upload, error) {
	rows, err := r.db.Query(`
		SELECT `+uploadColumns+`
		FROM uploads
		WHERE status IN (?, ?)
		ORDER BY updated_at ASC
		LIMIT ?
	`, string(models.ProcessingPending), string(models.ProcessingFailed), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var uploads []models.Upload
	for rows.Next() {
		upload, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, *upload)
	}
	return uploads, rows.Err()
}

// ClaimUpload moves a pending or failed upload to processing.
// Returns false when another worker got there first.
func (r *Repository) ClaimUpload(uploadID string) (bool, error) {
	now := utc(time.Now())
	err := rowsAffected(r.db.Exec(`
		UPDATE uploads SET
			status = ?,
			last_attempt_at = ?,
			updated_at = ?
		WHERE id = ? AND status IN (?, ?)
	`, string(models.ProcessingProcessing), now, now, uploadID,
		string(models.ProcessingPending), string(models.ProcessingFailed)))
	if IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

// SetUploadTranscript stores extracted text so retries skip transcription
func (r *Repository) SetUploadTranscript(uploadID, transcript string) error {
	_, err := r.db.Exec(`
		UPDATE uploads SET transcript = ?, updated_at = ? WHERE id = ?
	`, transcript, utc(time.Now()), uploadID)
	return err
}

// MarkUploadFailed records a failed attempt and increments the retry count.
// Failed uploads are picked up again by the worker until MaxProcessingRetries
// is reached, then abandoned.
func (r *Repository) MarkUploadFailed(uploadID, errorMsg string) error {
	_, err := r.db.Exec(`
		UPDATE uploads SET
			status = CASE
				WHEN retry_count + 1 >= ? THEN ?
				ELSE ?
			END,
			retry_count = retry_count + 1,
			error = ?,
			updated_at = ?
		WHERE id = ?
	`, models.MaxProcessingRetries, string(models.ProcessingAbandoned),
		string(models.ProcessingFailed), errorMsg, utc(time.Now()), uploadID)
	return err
}

// AbandonUpload stops processing an upload that can never succeed
func (r *Repository) AbandonUpload(uploadID, errorMsg string) error {
	_, err := r.db.Exec(`
		UPDATE uploads SET
			status = ?,
			error = ?,
			updated_at = ?
		WHERE id = ?
	`, string(models.ProcessingAbandoned), errorMsg, utc(time.Now()), uploadID)
	return err
}

// RetryUpload resets a failed or abandoned upload back to pending
func (r *Repository) RetryUpload(userID, uploadID string) error {
	return rowsAffected(r.db.Exec(`
		UPDATE uploads SET
			status = ?,
			retry_count = 0,
			error = NULL,
			updated_at = ?
		WHERE id = ? AND user_id = ? AND status IN (?, ?)
	`, string(models.ProcessingPending), utc(time.Now()), uploadID, userID,
		string(models.ProcessingFailed), string(models.ProcessingAbandoned)))
}

// ResetStuckUploads returns uploads left in processing (e.g. after a crash) to pending
func (r *Repository) ResetStuckUploads(olderThan time.Time) (int64, error) {
	res, err := r.db.Exec(`
		UPDATE uploads SET status = ?
		WHERE status = ? AND last_attempt_at < ?
	`, string(models.ProcessingPending), string(models.ProcessingProcessing), utc(olderThan))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteUpload removes an upload row
func (r *Repository) DeleteUpload(userID, uploadID string) error {
	return rowsAffected(r.db.Exec(`DELETE FROM uploads WHERE id = ? AND user_id = ?`, uploadID, userID))
}
