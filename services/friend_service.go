package services

import (
	"fmt"
	"newton/database"
	"newton/mailer"
	"newton/models"
	"time"

	"github.com/google/uuid"
)

// FriendEntry is a friendship with the other party's profile
type FriendEntry struct {
	models.Friendship
	Friend *models.User `json:"friend,omitempty"`
}

// FriendService handles friend requests and friend lists
type FriendService struct {
	repo     FriendRepository
	notifier Notifier
	now      func() time.Time
}

// NewFriendService creates a new friend service; notifier may be nil
func NewFriendService(repo FriendRepository, notifier Notifier) *FriendService {
	return &FriendService{
		repo:     repo,
		notifier: notifier,
		now:      time.Now,
	}
}

// SendRequest asks addresseeID to become friends. A previously rejected
// request between the two users is reopened as pending.
func (fs *FriendService) SendRequest(userID, addresseeID string) (*models.Friendship, error) {
	if userID == addresseeID {
		return nil, ErrCannotFriendSelf
	}

	addressee, err := fs.repo.GetUser(addresseeID)
	if err != nil {
		return nil, err
	}
	if addressee == nil {
		return nil, ErrUserNotFound
	}

	existing, err := fs.repo.GetFriendshipBetween(userID, addresseeID)
	if err != nil {
		return nil, err
	}

	now := fs.now().UTC()
	var friendship *models.Friendship

	switch {
	case existing == nil:
		friendship = &models.Friendship{
			ID:          uuid.New().String(),
			RequesterID: userID,
			AddresseeID: addresseeID,
			Status:      models.FriendshipPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := fs.repo.CreateFriendship(friendship); err != nil {
			return nil, fmt.Errorf("failed to create friend request: %w", err)
		}
	case existing.Status == models.FriendshipRejected:
		if err := fs.repo.ReopenFriendship(existing.ID, userID, addresseeID); err != nil {
			return nil, fmt.Errorf("failed to reopen friend request: %w", err)
		}
		friendship = existing
		friendship.RequesterID = userID
		friendship.AddresseeID = addresseeID
		friendship.Status = models.FriendshipPending
		friendship.UpdatedAt = now
	default:
		return nil, ErrFriendshipExists
	}

	fs.notifyRequest(userID, addressee)
	return friendship, nil
}

func (fs *FriendService) notifyRequest(requesterID string, addressee *models.User) {
	if fs.notifier == nil || addressee.Email == "" {
		return
	}
	fromName := ""
	if requester, err := fs.repo.GetUser(requesterID); err == nil && requester != nil {
		fromName = requester.Name
	}
	fs.notifier.NotifyFriendRequest(mailer.Recipient{Email: addressee.Email, Name: addressee.Name}, fromName)
}

// Respond accepts or rejects a pending request. Only the addressee may respond.
func (fs *FriendService) Respond(userID, friendshipID string, accept bool) (*models.Friendship, error) {
	friendship, err := fs.repo.GetFriendship(userID, friendshipID)
	if err != nil {
		return nil, err
	}
	if friendship == nil {
		return nil, ErrFriendshipNotFound
	}
	if friendship.AddresseeID != userID {
		return nil, ErrForbidden
	}
	if friendship.Status != models.FriendshipPending {
		return nil, ErrFriendshipNotPending
	}

	status := models.FriendshipRejected
	if accept {
		status = models.FriendshipAccepted
	}

	err = fs.repo.SetFriendshipStatus(friendshipID, userID, status)
	if database.IsNotFound(err) {
		return nil, ErrFriendshipNotPending
	}
	if err != nil {
		return nil, err
	}

	friendship.Status = status
	friendship.UpdatedAt = fs.now().UTC()
	return friendship, nil
}

// Remove deletes a friendship or request; either side may do so
func (fs *FriendService) Remove(userID, friendshipID string) error {
	err := fs.repo.DeleteFriendship(userID, friendshipID)
	if database.IsNotFound(err) {
		return ErrFriendshipNotFound
	}
	return err
}

// ListFriends returns accepted friendships with friend profiles
func (fs *FriendService) ListFriends(userID string) ([]FriendEntry, error) {
	return fs.list(userID, models.FriendshipAccepted)
}

// ListRequests returns pending requests addressed to the user
func (fs *FriendService) ListRequests(userID string) ([]FriendEntry, error) {
	return fs.list(userID, models.FriendshipPending)
}

func (fs *FriendService) list(userID string, status models.FriendshipStatus) ([]FriendEntry, error) {
	friendships, err := fs.repo.ListFriendships(userID, status)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(friendships))
	for i := range friendships {
		ids = append(ids, friendships[i].Other(userID))
	}
	users, err := fs.repo.GetUsers(ids)
	if err != nil {
		return nil, err
	}

	entries := make([]FriendEntry, 0, len(friendships))
	for _, f := range friendships {
		entry := FriendEntry{Friendship: f}
		if u, ok := users[f.Other(userID)]; ok {
			entry.Friend = &u
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
