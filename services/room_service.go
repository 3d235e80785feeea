package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"newton/database"
	"newton/models"
	"time"

	"github.com/google/uuid"
)

const (
	roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	roomCodeLength   = 6
	roomCodeAttempts = 5
)

var errNoRoomCode = errors.New("could not allocate a unique room code")

// RoomService handles study rooms
type RoomService struct {
	repo         RoomRepository
	entitlements EntitlementChecker
	newCode      func() (string, error)
	now          func() time.Time
}

// NewRoomService creates a new room service
func NewRoomService(repo RoomRepository, entitlements EntitlementChecker) *RoomService {
	return &RoomService{
		repo:         repo,
		entitlements: entitlements,
		newCode:      generateRoomCode,
		now:          time.Now,
	}
}

func generateRoomCode() (string, error) {
	code := make([]byte, roomCodeLength)
	alphabetSize := big.NewInt(int64(len(roomCodeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", err
		}
		code[i] = roomCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}

// Create opens a room hosted by userID. Capacity comes from the host's plan.
func (rs *RoomService) Create(userID string, req models.CreateRoomRequest) (*models.Room, error) {
	ent, err := rs.entitlements.Entitlements(userID)
	if err != nil {
		return nil, err
	}

	code := ""
	for attempt := 0; attempt < roomCodeAttempts && code == ""; attempt++ {
		candidate, err := rs.newCode()
		if err != nil {
			return nil, err
		}
		exists, err := rs.repo.RoomCodeExists(candidate)
		if err != nil {
			return nil, err
		}
		if !exists {
			code = candidate
		}
	}
	if code == "" {
		return nil, errNoRoomCode
	}

	now := rs.now().UTC()
	room := &models.Room{
		ID:              uuid.New().String(),
		HostID:          userID,
		Name:            req.Name,
		Code:            code,
		Status:          models.RoomOpen,
		MaxParticipants: ent.Limits.MaxRoomParticipants,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := rs.repo.CreateRoom(room); err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	room.Participants = []models.RoomParticipant{{RoomID: room.ID, UserID: userID, JoinedAt: now}}
	return room, nil
}

// Join adds the user to the open room with the given code. Joining a room
// the user is already in is a no-op.
func (rs *RoomService) Join(userID, code string) (*models.Room, error) {
	room, err := rs.repo.GetRoomByCode(code)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	if room.Status != models.RoomOpen {
		return nil, ErrRoomClosed
	}

	inRoom, err := rs.repo.IsRoomParticipant(room.ID, userID)
	if err != nil {
		return nil, err
	}
	if !inRoom {
		if room.MaxParticipants != models.Unlimited {
			count, err := rs.repo.CountRoomParticipants(room.ID)
			if err != nil {
				return nil, err
			}
			if count >= room.MaxParticipants {
				return nil, ErrRoomFull
			}
		}
		if err := rs.repo.JoinRoom(room.ID, userID, rs.now().UTC()); err != nil {
			return nil, fmt.Errorf("failed to join room: %w", err)
		}
	}

	return rs.withParticipants(room)
}

// Leave removes the user from a room
func (rs *RoomService) Leave(userID, roomID string) error {
	err := rs.repo.LeaveRoom(roomID, userID, rs.now().UTC())
	if database.IsNotFound(err) {
		return ErrRoomNotFound
	}
	return err
}

// Close ends a room and checks everyone out; host only
func (rs *RoomService) Close(userID, roomID string) error {
	room, err := rs.repo.GetRoom(roomID)
	if err != nil {
		return err
	}
	if room == nil {
		return ErrRoomNotFound
	}
	if room.HostID != userID {
		return ErrForbidden
	}
	if room.Status == models.RoomClosed {
		return ErrRoomClosed
	}

	err = rs.repo.CloseRoom(roomID, userID, rs.now().UTC())
	if database.IsNotFound(err) {
		return ErrRoomClosed
	}
	return err
}

// Get returns a room with its active participants. Only the host and
// participants can see it.
func (rs *RoomService) Get(userID, roomID string) (*models.Room, error) {
	room, err := rs.repo.GetRoom(roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	if room.HostID != userID {
		inRoom, err := rs.repo.IsRoomParticipant(roomID, userID)
		if err != nil {
			return nil, err
		}
		if !inRoom {
			return nil, ErrRoomNotFound
		}
	}
	return rs.withParticipants(room)
}

// List returns the rooms the user is currently in
func (rs *RoomService) List(userID string) ([]models.Room, error) {
	return rs.repo.ListUserRooms(userID)
}

func (rs *RoomService) withParticipants(room *models.Room) (*models.Room, error) {
	participants, err := rs.repo.ListRoomParticipants(room.ID)
	if err != nil {
		return nil, err
	}
	room.Participants = participants
	return room, nil
}
