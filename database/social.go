package database

import (
	"database/sql"
	"newton/models"
	"time"
)

// ==================== FRIENDSHIP OPERATIONS ====================

const friendshipColumns = `id, requester_id, addressee_id, status, created_at, updated_at`

func scanFriendship(row interface{ Scan(...any) error }) (*models.Friendship, error) {
	var f models.Friendship
	var status string
	if err := row.Scan(&f.ID, &f.RequesterID, &f.AddresseeID, &status, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	f.Status = models.FriendshipStatus(status)
	return &f, nil
}

// GetFriendshipBetween finds the friendship between two users in either direction
func (r *Repository) GetFriendshipBetween(a, b string) (*models.Friendship, error) {
	f, err := scanFriendship(r.db.QueryRow(`
		SELECT `+friendshipColumns+`
		FROM friendships
		WHERE (requester_id = ? AND addressee_id = ?)
			OR (requester_id = ? AND addressee_id = ?)
		LIMIT 1
	`, a, b, b, a))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// GetFriendship retrieves a friendship the user is party to
func (r *Repository) GetFriendship(userID, friendshipID string) (*models.Friendship, error) {
	f, err := scanFriendship(r.db.QueryRow(`
		SELECT `+friendshipColumns+`
		FROM friendships
		WHERE id = ? AND (requester_id = ? OR addressee_id = ?)
	`, friendshipID, userID, userID))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// CreateFriendship inserts a pending request
func (r *Repository) CreateFriendship(f *models.Friendship) error {
	_, err := r.db.Exec(`
		INSERT INTO friendships (`+friendshipColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
	`, f.ID, f.RequesterID, f.AddresseeID, string(f.Status), utc(f.CreatedAt), utc(f.UpdatedAt))
	return err
}

// ReopenFriendship turns a rejected friendship back into a pending request from requesterID
func (r *Repository) ReopenFriendship(friendshipID, requesterID, addresseeID string) error {
	return rowsAffected(r.db.Exec(`
		UPDATE friendships SET
			requester_id = ?,
			addressee_id = ?,
			status = ?,
			updated_at = ?
		WHERE id = ? AND status = ?
	`, requesterID, addresseeID, string(models.FriendshipPending), utc(time.Now()),
		friendshipID, string(models.FriendshipRejected)))
}

// SetFriendshipStatus answers a pending request addressed to addresseeID
func (r *Repository) SetFriendshipStatus(friendshipID, addresseeID string, status models.FriendshipStatus) error {
	return rowsAffected(r.db.Exec(`
		UPDATE friendships SET
			status = ?,
			updated_at = ?
		WHERE id = ? AND addressee_id = ? AND status = ?
	`, string(status), utc(time.Now()), friendshipID, addresseeID, string(models.FriendshipPending)))
}

// DeleteFriendship removes a friendship either party belongs to
func (r *Repository) DeleteFriendship(userID, friendshipID string) error {
	return rowsAffected(r.db.Exec(`
		DELETE FROM friendships
		WHERE id = ? AND (requester_id = ? OR addressee_id = ?)
	`, friendshipID, userID, userID))
}

// ListFriendships lists friendships involving userID with the given status.
// For pending, only requests addressed to the user are returned.
func (r *Repository) ListFriendships(userID string, status models.FriendshipStatus) ([]models.Friendship, error) {
	query := `
		SELECT ` + friendshipColumns + `
		FROM friendships
		WHERE status = ? AND (requester_id = ? OR addressee_id = ?)
		ORDER BY updated_at DESC
	`
	args := []any{string(status), userID, userID}
	if status == models.FriendshipPending {
		query = `
			SELECT ` + friendshipColumns + `
			FROM friendships
			WHERE status = ? AND addressee_id = ?
			ORDER BY created_at DESC
		`
		args = []any{string(status), userID}
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	friendships := make([]models.Friendship, 0)
	for rows.Next() {
		f, err := scanFriendship(rows)
		if err != nil {
			return nil, err
		}
		friendships = append(friendships, *f)
	}
	return friendships, rows.Err()
}

// ==================== ROOM OPERATIONS ====================

const roomColumns = `id, host_id, name, code, status, max_participants, created_at, updated_at`

func scanRoom(row interface{ Scan(...any) error }) (*models.Room, error) {
	var room models.Room
	var status string
	if err := row.Scan(
		&room.ID, &room.HostID, &room.Name, &room.Code, &status,
		&room.MaxParticipants, &room.CreatedAt, &room.UpdatedAt,
	); err != nil {
		return nil, err
	}
	room.Status = models.RoomStatus(status)
	return &room, nil
}

// CreateRoom inserts a room and adds the host as its first participant
func (r *Repository) CreateRoom(room *models.Room) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(r.db.Rebind(`
		INSERT INTO rooms (`+roomColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), room.ID, room.HostID, room.Name, room.Code, string(room.Status),
		room.MaxParticipants, utc(room.CreatedAt), utc(room.UpdatedAt)); err != nil {
		return err
	}

	if _, err := tx.Exec(r.db.Rebind(`
		INSERT INTO room_participants (room_id, user_id, joined_at)
		VALUES (?, ?, ?)
	`), room.ID, room.HostID, utc(room.CreatedAt)); err != nil {
		return err
	}

	return tx.Commit()
}

// RoomCodeExists reports whether a join code is taken
func (r *Repository) RoomCodeExists(code string) (bool, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM rooms WHERE code = ?`, code).Scan(&n)
	return n > 0, err
}

// GetRoom retrieves a room by id
func (r *Repository) GetRoom(roomID string) (*models.Room, error) {
	room, err := scanRoom(r.db.QueryRow(`SELECT `+roomColumns+` FROM rooms WHERE id = ?`, roomID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return room, nil
}

// GetRoomByCode retrieves a room by join code
func (r *Repository) GetRoomByCode(code string) (*models.Room, error) {
	room, err := scanRoom(r.db.QueryRow(`SELECT `+roomColumns+` FROM rooms WHERE code = ?`, code))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return room, nil
}

// ListUserRooms lists rooms the user is currently in
func (r *Repository) ListUserRooms(userID string) ([]models.Room, error) {
	rows, err := r.db.Query(`
		SELECT r.id, r.host_id, r.name, r.code, r.status, r.max_participants, r.created_at, r.updated_at
		FROM rooms r
		JOIN room_participants p ON p.room_id = r.id
		WHERE p.user_id = ? AND p.left_at IS NULL
		ORDER BY r.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms := make([]models.Room, 0)
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, *room)
	}
	return rooms, rows.Err()
}

// ListRoomParticipants lists participants who have not left
func (r *Repository) ListRoomParticipants(roomID string) ([]models.RoomParticipant, error) {
	rows, err := r.db.Query(`
		SELECT room_id, user_id, joined_at, left_at
		FROM room_participants
		WHERE room_id = ? AND left_at IS NULL
		ORDER BY joined_at ASC
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := make([]models.RoomParticipant, 0)
	for rows.Next() {
		var p models.RoomParticipant
		var leftAt sql.NullTime
		if err := rows.Scan(&p.RoomID, &p.UserID, &p.JoinedAt, &leftAt); err != nil {
			return nil, err
		}
		p.LeftAt = timePtr(leftAt)
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// IsRoomParticipant reports whether the user is currently in the room
func (r *Repository) IsRoomParticipant(roomID, userID string) (bool, error) {
	var n int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM room_participants
		WHERE room_id = ? AND user_id = ? AND left_at IS NULL
	`, roomID, userID).Scan(&n)
	return n > 0, err
}

// CountRoomParticipants counts participants who have not left
func (r *Repository) CountRoomParticipants(roomID string) (int, error) {
	var n int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM room_participants
		WHERE room_id = ? AND left_at IS NULL
	`, roomID).Scan(&n)
	return n, err
}

// JoinRoom adds the user to the room, or clears left_at when they rejoin
func (r *Repository) JoinRoom(roomID, userID string, at time.Time) error {
	_, err := r.db.Exec(`
		INSERT INTO room_participants (room_id, user_id, joined_at)
		VALUES (?, ?, ?)
		ON CONFLICT(room_id, user_id) DO UPDATE SET
			joined_at = excluded.joined_at,
			left_at = NULL
	`, roomID, userID, utc(at))
	return err
}

// LeaveRoom marks the user as having left
func (r *Repository) LeaveRoom(roomID, userID string, at time.Time) error {
	return rowsAffected(r.db.Exec(`
		UPDATE room_participants SET left_at = ?
		WHERE room_id = ? AND user_id = ? AND left_at IS NULL
	`, utc(at), roomID, userID))
}

// CloseRoom closes a room owned by hostID and checks everyone out
func (r *Repository) CloseRoom(roomID, hostID string, at time.Time) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(r.db.Rebind(`
		UPDATE rooms SET status = ?, updated_at = ?
		WHERE id = ? AND host_id = ? AND status = ?
	`), string(models.RoomClosed), utc(at), roomID, hostID, string(models.RoomOpen))
	if err := rowsAffected(res, err); err != nil {
		return err
	}

	if _, err := tx.Exec(r.db.Rebind(`
		UPDATE room_participants SET left_at = ?
		WHERE room_id = ? AND left_at IS NULL
	`), utc(at), roomID); err != nil {
		return err
	}

	return tx.Commit()
}

// ==================== CHALLENGE OPERATIONS ====================

const challengeColumns = `id, creator_id, title, goal_minutes, starts_at, ends_at, created_at`

func scanChallenge(row interface{ Scan(...any) error }) (*models.Challenge, error) {
	var c models.Challenge
	if err := row.Scan(&c.ID, &c.CreatorID, &c.Title, &c.GoalMinutes, &c.StartsAt, &c.EndsAt, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateChallenge inserts a challenge with its creator as the first participant
func (r *Repository) CreateChallenge(c *models.Challenge) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(r.db.Rebind(`
		INSERT INTO challenges (`+challengeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), c.ID, c.CreatorID, c.Title, c.GoalMinutes, utc(c.StartsAt), utc(c.EndsAt), utc(c.CreatedAt)); err != nil {
		return err
	}

	if _, err := tx.Exec(r.db.Rebind(`
		INSERT INTO challenge_participants (challenge_id, user_id, joined_at)
		VALUES (?, ?, ?)
	`), c.ID, c.CreatorID, utc(c.CreatedAt)); err != nil {
		return err
	}

	return tx.Commit()
}

// GetChallenge retrieves a challenge by id
func (r *Repository) GetChallenge(challengeID string) (*models.Challenge, error) {
	c, err := scanChallenge(r.db.QueryRow(`SELECT `+challengeColumns+` FROM challenges WHERE id = ?`, challengeID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListUserChallenges lists challenges the user has joined, soonest ending first
func (r *Repository) ListUserChallenges(userID string) ([]models.Challenge, error) {
	rows, err := r.db.Query(`
		SELECT c.id, c.creator_id, c.title, c.goal_minutes, c.starts_at, c.ends_at, c.created_at
		FROM challenges c
		JOIN challenge_participants p ON p.challenge_id = c.id
		WHERE p.user_id = ?
		ORDER BY c.ends_at ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	challenges := make([]models.Challenge, 0)
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		challenges = append(challenges, *c)
	}
	return challenges, rows.Err()
}

// JoinChallenge adds a participant; joining twice is a no-op
func (r *Repository) JoinChallenge(challengeID, userID string, at time.Time) error {
	_, err := r.db.Exec(`
		INSERT INTO challenge_participants (challenge_id, user_id, joined_at)
		VALUES (?, ?, ?)
		ON CONFLICT(challenge_id, user_id) DO NOTHING
	`, challengeID, userID, utc(at))
	return err
}

// LeaveChallenge removes a participant
func (r *Repository) LeaveChallenge(challengeID, userID string) error {
	return rowsAffected(r.db.Exec(`
		DELETE FROM challenge_participants WHERE challenge_id = ? AND user_id = ?
	`, challengeID, userID))
}

// IsChallengeParticipant reports whether the user joined the challenge
func (r *Repository) IsChallengeParticipant(challengeID, userID string) (bool, error) {
	var n int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM challenge_participants WHERE challenge_id = ? AND user_id = ?
	`, challengeID, userID).Scan(&n)
	return n > 0, err
}

// ListChallengeParticipants returns the user ids in a challenge
func (r *Repository) ListChallengeParticipants(challengeID string) ([]string, error) {
	rows, err := r.db.Query(`
		SELECT user_id FROM challenge_participants
		WHERE challenge_id = ?
		ORDER BY joined_at ASC
	`, challengeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
