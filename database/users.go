package database

import (
	"database/sql"
	"newton/models"
	"time"
)

// ==================== USER OPERATIONS ====================

// GetUser retrieves a user profile by ID
func (r *Repository) GetUser(userID string) (*models.User, error) {
	var user models.User

	err := r.db.QueryRow(`
		SELECT id, email, name, avatar_url, created_at, last_seen_at
		FROM users WHERE id = ?
	`, userID).Scan(
		&user.ID, &user.Email, &user.Name, &user.AvatarURL,
		&user.CreatedAt, &user.LastSeen,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// GetUsers retrieves profiles for a set of IDs, skipping unknown ones
func (r *Repository) GetUsers(userIDs []string) (map[string]models.User, error) {
	users := make(map[string]models.User, len(userIDs))
	for _, id := range userIDs {
		user, err := r.GetUser(id)
		if err != nil {
			return nil, err
		}
		if user != nil {
			users[id] = *user
		}
	}
	return users, nil
}

// UpsertUser creates or updates a user profile from auth claims
func (r *Repository) UpsertUser(user *models.User) error {
	now := utc(time.Now())
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.LastSeen = now

	_, err := r.db.Exec(`
		INSERT INTO users (id, email, name, avatar_url, created_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			name = CASE WHEN excluded.name <> '' THEN excluded.name ELSE users.name END,
			avatar_url = CASE WHEN excluded.avatar_url <> '' THEN excluded.avatar_url ELSE users.avatar_url END,
			last_seen_at = excluded.last_seen_at
	`,
		user.ID, user.Email, user.Name, user.AvatarURL, utc(user.CreatedAt), now,
	)
	return err
}
