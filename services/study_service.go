package services

import (
	"fmt"
	"log/slog"
	"newton/database"
	"newton/models"
	"time"

	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// StudyService tracks study sessions and folds them into per-user stats
type StudyService struct {
	repo  StudyRepository
	grace time.Duration
	now   func() time.Time
}

// NewStudyService creates a new study service. grace is how long after the
// last heartbeat a session still counts as studied time.
func NewStudyService(repo StudyRepository, grace time.Duration) *StudyService {
	return &StudyService{
		repo:  repo,
		grace: grace,
		now:   time.Now,
	}
}

// ==================== SESSION OPERATIONS ====================

// Start opens a session, closing any session the user left open
func (ss *StudyService) Start(userID string, req models.StartSessionRequest) (*models.StudySession, error) {
	if req.RoomID != "" {
		ok, err := ss.repo.IsRoomParticipant(req.RoomID, userID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrRoomNotFound
		}
	}

	now := ss.now().UTC()

	open, err := ss.repo.GetOpenSessions(userID)
	if err != nil {
		return nil, err
	}
	for i := range open {
		if _, err := ss.finish(&open[i], now); err != nil {
			return nil, err
		}
	}

	session := &models.StudySession{
		ID:              uuid.New().String(),
		UserID:          userID,
		NoteID:          req.NoteID,
		RoomID:          req.RoomID,
		StartedAt:       now,
		LastHeartbeatAt: now,
	}
	if err := ss.repo.CreateSession(session); err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	return session, nil
}

// Heartbeat marks an open session as still active
func (ss *StudyService) Heartbeat(userID, sessionID string) (*models.StudySession, error) {
	session, err := ss.get(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Open() {
		return nil, ErrSessionEnded
	}

	now := ss.now().UTC()
	err = ss.repo.TouchSession(userID, sessionID, now)
	if database.IsNotFound(err) {
		return nil, ErrSessionEnded
	}
	if err != nil {
		return nil, err
	}
	session.LastHeartbeatAt = now
	return session, nil
}

// Stop ends a session and returns it with the updated stats
func (ss *StudyService) Stop(userID, sessionID string) (*models.StudySession, *models.StudyStats, error) {
	session, err := ss.get(userID, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if !session.Open() {
		return nil, nil, ErrSessionEnded
	}

	stats, err := ss.finish(session, ss.now().UTC())
	if err != nil {
		return nil, nil, err
	}
	return session, stats, nil
}

// List returns the user's most recent sessions
func (ss *StudyService) List(userID string, limit int) ([]models.StudySession, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return ss.repo.ListSessions(userID, limit)
}

// Stats returns the user's aggregate stats, zero-valued if they never studied
func (ss *StudyService) Stats(userID string) (*models.StudyStats, error) {
	stats, err := ss.repo.GetStudyStats(userID)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		stats = &models.StudyStats{UserID: userID}
	}
	stats.CurrentStreak = visibleStreak(stats, ss.now().UTC())
	return stats, nil
}

// CloseStaleSessions ends sessions whose last heartbeat is older than ttl.
// Returns how many were closed.
func (ss *StudyService) CloseStaleSessions(ttl time.Duration, batch int) (int, error) {
	now := ss.now().UTC()
	stale, err := ss.repo.GetStaleSessions(now.Add(-ttl), batch)
	if err != nil {
		return 0, err
	}

	closed := 0
	for i := range stale {
		if _, err := ss.finish(&stale[i], now); err != nil {
			slog.Warn("Failed to close stale session", "session_id", stale[i].ID, "error", err)
			continue
		}
		closed++
	}
	return closed, nil
}

func (ss *StudyService) get(userID, sessionID string) (*models.StudySession, error) {
	session, err := ss.repo.GetSession(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// finish ends a session at now, clamped to the last heartbeat plus grace,
// and folds it into the user's stats. A session that was already ended by
// someone else is left alone.
func (ss *StudyService) finish(session *models.StudySession, now time.Time) (*models.StudyStats, error) {
	end := now
	if limit := session.LastHeartbeatAt.Add(ss.grace); end.After(limit) {
		end = limit
	}
	if end.Before(session.StartedAt) {
		end = session.StartedAt
	}
	duration := int(end.Sub(session.StartedAt).Seconds())

	err := ss.repo.EndSession(session.ID, end, duration)
	if database.IsNotFound(err) {
		return nil, ErrSessionEnded
	}
	if err != nil {
		return nil, fmt.Errorf("failed to end session: %w", err)
	}
	session.EndedAt = &end
	session.DurationSeconds = duration

	stats, err := ss.repo.GetStudyStats(session.UserID)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		stats = &models.StudyStats{UserID: session.UserID}
	}

	stats.TotalSeconds += int64(duration)
	stats.SessionsCount++
	if duration > 0 {
		applyStudyDay(stats, end.Format(dateLayout))
	}
	stats.UpdatedAt = now

	if err := ss.repo.SaveStudyStats(stats); err != nil {
		return nil, fmt.Errorf("failed to save stats: %w", err)
	}
	return stats, nil
}

// applyStudyDay advances the streak for a study day given as YYYY-MM-DD (UTC).
// The same day keeps the streak, the next day extends it, a gap resets it to 1.
// Days earlier than the last recorded one do not change the streak.
func applyStudyDay(stats *models.StudyStats, day string) {
	if stats.LastStudyDate == "" {
		stats.CurrentStreak = 1
		stats.LastStudyDate = day
	} else {
		last, errLast := time.Parse(dateLayout, stats.LastStudyDate)
		current, errCur := time.Parse(dateLayout, day)
		switch {
		case errLast != nil || errCur != nil:
			stats.CurrentStreak = 1
			stats.LastStudyDate = day
		case current.Equal(last) || current.Before(last):
			if stats.CurrentStreak == 0 {
				stats.CurrentStreak = 1
			}
		case current.Equal(last.AddDate(0, 0, 1)):
			stats.CurrentStreak++
			stats.LastStudyDate = day
		default:
			stats.CurrentStreak = 1
			stats.LastStudyDate = day
		}
	}

	if stats.CurrentStreak > stats.LongestStreak {
		stats.LongestStreak = stats.CurrentStreak
	}
}

// visibleStreak is the streak as seen today: it lapses once a full day
// passes without study
func visibleStreak(stats *models.StudyStats, now time.Time) int {
	if stats.LastStudyDate == "" {
		return 0
	}
	last, err := time.Parse(dateLayout, stats.LastStudyDate)
	if err != nil {
		return 0
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if today.Sub(last) > 24*time.Hour {
		return 0
	}
	return stats.CurrentStreak
}
