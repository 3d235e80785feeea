package models

import "time"

type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
	FriendshipRejected FriendshipStatus = "rejected"
)

type Friendship struct {
	ID          string           `json:"id"`
	RequesterID string           `json:"requester_id"`
	AddresseeID string           `json:"addressee_id"`
	Status      FriendshipStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Other returns the id of the other party.
func (f *Friendship) Other(userID string) string {
	if f.RequesterID == userID {
		return f.AddresseeID
	}
	return f.RequesterID
}

type FriendRequest struct {
	AddresseeID string `json:"addressee_id" validate:"required,max=64"`
}

type RespondFriendRequest struct {
	Accept bool `json:"accept"`
}

type RoomStatus string

const (
	RoomOpen   RoomStatus = "open"
	RoomClosed RoomStatus = "closed"
)

type Room struct {
	ID              string            `json:"id"`
	HostID          string            `json:"host_id"`
	Name            string            `json:"name"`
	Code            string            `json:"code"`
	Status          RoomStatus        `json:"status"`
	MaxParticipants int               `json:"max_participants"`
	Participants    []RoomParticipant `json:"participants,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

type RoomParticipant struct {
	RoomID   string     `json:"room_id"`
	UserID   string     `json:"user_id"`
	JoinedAt time.Time  `json:"joined_at"`
	LeftAt   *time.Time `json:"left_at,omitempty"`
}

type CreateRoomRequest struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
}

type JoinRoomRequest struct {
	Code string `json:"code" validate:"required,roomcode"`
}

type Challenge struct {
	ID          string    `json:"id"`
	CreatorID   string    `json:"creator_id"`
	Title       string    `json:"title"`
	GoalMinutes int       `json:"goal_minutes"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// Active reports whether now falls inside the challenge window.
func (c *Challenge) Active(now time.Time) bool {
	return !now.Before(c.StartsAt) && now.Before(c.EndsAt)
}

type CreateChallengeRequest struct {
	Title       string    `json:"title" validate:"required,min=2,max=120"`
	GoalMinutes int       `json:"goal_minutes" validate:"required,gt=0,lte=100000"`
	StartsAt    time.Time `json:"starts_at" validate:"required"`
	EndsAt      time.Time `json:"ends_at" validate:"required,gtfield=StartsAt"`
}

type LeaderboardEntry struct {
	UserID       string `json:"user_id"`
	Name         string `json:"name,omitempty"`
	StudySeconds int64  `json:"study_seconds"`
	Completed    bool   `json:"completed"`
	Rank         int    `json:"rank"`
}
