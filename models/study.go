package models

import "time"

type StudySession struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	NoteID          string     `json:"note_id,omitempty"`
	RoomID          string     `json:"room_id,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	LastHeartbeatAt time.Time  `json:"last_heartbeat_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationSeconds int        `json:"duration_seconds"`
}

func (s *StudySession) Open() bool {
	return s.EndedAt == nil
}

type StudyStats struct {
	UserID        string    `json:"user_id"`
	TotalSeconds  int64     `json:"total_seconds"`
	SessionsCount int       `json:"sessions_count"`
	CurrentStreak int       `json:"current_streak"`
	LongestStreak int       `json:"longest_streak"`
	LastStudyDate string    `json:"last_study_date,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type StartSessionRequest struct {
	NoteID string `json:"note_id"`
	RoomID string `json:"room_id"`
}
