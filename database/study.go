package database

import (
	"database/sql"
	"newton/models"
	"strings"
	"time"
)

// ==================== STUDY SESSION OPERATIONS ====================

const sessionColumns = `id, user_id, note_id, room_id, started_at, last_heartbeat_at, ended_at, duration_seconds`

func scanSession(row interface{ Scan(...any) error }) (*models.StudySession, error) {
	var s models.StudySession
	var noteID, roomID sql.NullString
	var endedAt sql.NullTime

	if err := row.Scan(
		&s.ID, &s.UserID, &noteID, &roomID, &s.StartedAt,
		&s.LastHeartbeatAt, &endedAt, &s.DurationSeconds,
	); err != nil {
		return nil, err
	}

	s.NoteID = noteID.String
	s.RoomID = roomID.String
	s.EndedAt = timePtr(endedAt)
	return &s, nil
}

func (r *Repository) querySessions(query string, args ...any) ([]models.StudySession, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.StudySession, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// CreateSession inserts an open study session
func (r *Repository) CreateSession(s *models.StudySession) error {
	_, err := r.db.Exec(`
		INSERT INTO study_sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, NULL, 0)
	`, s.ID, s.UserID, nullString(s.NoteID), nullString(s.RoomID), utc(s.StartedAt), utc(s.LastHeartbeatAt))
	return err
}

// GetSession retrieves a session owned by userID
func (r *Repository) GetSession(userID, sessionID string) (*models.StudySession, error) {
	s, err := scanSession(r.db.QueryRow(`
		SELECT `+sessionColumns+`
		FROM study_sessions
		WHERE id = ? AND user_id = ?
	`, sessionID, userID))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetOpenSessions retrieves a user's sessions that have not ended
func (r *Repository) GetOpenSessions(userID string) ([]models.StudySession, error) {
	return r.querySessions(`
		SELECT `+sessionColumns+`
		FROM study_sessions
		WHERE user_id = ? AND ended_at IS NULL
		ORDER BY started_at ASC
	`, userID)
}

// ListSessions retrieves a user's most recent sessions
func (r *Repository) ListSessions(userID string, limit int) ([]models.StudySession, error) {
	return r.querySessions(`
		SELECT `+sessionColumns+`
		FROM study_sessions
		WHERE user_id = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, userID, limit)
}

// GetStaleSessions retrieves open sessions whose last heartbeat is before cutoff
func (r *Repository) GetStaleSessions(cutoff time.Time, limit int) ([]models.StudySession, error) {
	return r.querySessions(`
		SELECT `+sessionColumns+`
		FROM study_sessions
		WHERE ended_at IS NULL AND last_heartbeat_at < ?
		ORDER BY last_heartbeat_at ASC
		LIMIT ?
	`, utc(cutoff), limit)
}

// TouchSession records a heartbeat on an open session
func (r *Repository) TouchSession(userID, sessionID string, at time.Time) error {
	return rowsAffected(r.db.Exec(`
		UPDATE study_sessions SET last_heartbeat_at = ?
		WHERE id = ? AND user_id = ? AND ended_at IS NULL
	`, utc(at), sessionID, userID))
}

// EndSession closes an open session. Returns sql.ErrNoRows if it was already closed,
// so concurrent stop calls fold the duration into stats only once.
func (r *Repository) EndSession(sessionID string, endedAt time.Time, durationSeconds int) error {
	return rowsAffected(r.db.Exec(`
		UPDATE study_sessions SET
			ended_at = ?,
			duration_seconds = ?
		WHERE id = ? AND ended_at IS NULL
	`, utc(endedAt), durationSeconds, sessionID))
}

// SumStudySeconds totals ended session time per user for sessions started in [from, to)
func (r *Repository) SumStudySeconds(userIDs []string, from, to time.Time) (map[string]int64, error) {
	totals := make(map[string]int64, len(userIDs))
	if len(userIDs) == 0 {
		return totals, nil
	}

	args := make([]any, 0, len(userIDs)+2)
	for _, id := range userIDs {
		args = append(args, id)
	}
	args = append(args, utc(from), utc(to))

	rows, err := r.db.Query(`
		SELECT user_id, COALESCE(SUM(duration_seconds), 0)
		FROM study_sessions
		WHERE user_id IN (`+placeholders(len(userIDs))+`)
			AND ended_at IS NOT NULL
			AND started_at >= ? AND started_at < ?
		GROUP BY user_id
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var userID string
		var total int64
		if err := rows.Scan(&userID, &total); err != nil {
			return nil, err
		}
		totals[userID] = total
	}
	return totals, rows.Err()
}

// ==================== STUDY STATS OPERATIONS ====================

// GetStudyStats retrieves a user's aggregate stats (nil if they never studied)
func (r *Repository) GetStudyStats(userID string) (*models.StudyStats, error) {
	var stats models.StudyStats
	err := r.db.QueryRow(`
		SELECT user_id, total_seconds, sessions_count, current_streak, longest_streak,
			last_study_date, updated_at
		FROM study_stats
		WHERE user_id = ?
	`, userID).Scan(
		&stats.UserID, &stats.TotalSeconds, &stats.SessionsCount, &stats.CurrentStreak,
		&stats.LongestStreak, &stats.LastStudyDate, &stats.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// SaveStudyStats inserts or replaces a user's aggregate stats
func (r *Repository) SaveStudyStats(stats *models.StudyStats) error {
	_, err := r.db.Exec(`
		INSERT INTO study_stats (user_id, total_seconds, sessions_count, current_streak,
			longest_streak, last_study_date, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			total_seconds = excluded.total_seconds,
			sessions_count = excluded.sessions_count,
			current_streak = excluded.current_streak,
			longest_streak = excluded.longest_streak,
			last_study_date = excluded.last_study_date,
			updated_at = excluded.updated_at
	`, stats.UserID, stats.TotalSeconds, stats.SessionsCount, stats.CurrentStreak,
		stats.LongestStreak, stats.LastStudyDate, utc(stats.UpdatedAt))
	return err
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
