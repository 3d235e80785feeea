package services

import (
	"fmt"
	"newton/database"
	"newton/models"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ChallengeService handles study challenges and their leaderboards
type ChallengeService struct {
	repo ChallengeRepository
	now  func() time.Time
}

// NewChallengeService creates a new challenge service
func NewChallengeService(repo ChallengeRepository) *ChallengeService {
	return &ChallengeService{
		repo: repo,
		now:  time.Now,
	}
}

// Create starts a challenge with the creator as its first participant
func (cs *ChallengeService) Create(userID string, req models.CreateChallengeRequest) (*models.Challenge, error) {
	if req.GoalMinutes <= 0 || !req.EndsAt.After(req.StartsAt) {
		return nil, ErrInvalidChallenge
	}

	challenge := &models.Challenge{
		ID:          uuid.New().String(),
		CreatorID:   userID,
		Title:       req.Title,
		GoalMinutes: req.GoalMinutes,
		StartsAt:    req.StartsAt.UTC(),
		EndsAt:      req.EndsAt.UTC(),
		CreatedAt:   cs.now().UTC(),
	}
	if err := cs.repo.CreateChallenge(challenge); err != nil {
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}
	return challenge, nil
}

// Get retrieves a challenge
func (cs *ChallengeService) Get(challengeID string) (*models.Challenge, error) {
	challenge, err := cs.repo.GetChallenge(challengeID)
	if err != nil {
		return nil, err
	}
	if challenge == nil {
		return nil, ErrChallengeNotFound
	}
	return challenge, nil
}

// List returns the challenges the user joined
func (cs *ChallengeService) List(userID string) ([]models.Challenge, error) {
	return cs.repo.ListUserChallenges(userID)
}

// Join adds the user to a challenge that has not ended; joining twice is a no-op
func (cs *ChallengeService) Join(userID, challengeID string) (*models.Challenge, error) {
	challenge, err := cs.Get(challengeID)
	if err != nil {
		return nil, err
	}
	now := cs.now().UTC()
	if !now.Before(challenge.EndsAt) {
		return nil, ErrChallengeEnded
	}
	if err := cs.repo.JoinChallenge(challengeID, userID, now); err != nil {
		return nil, fmt.Errorf("failed to join challenge: %w", err)
	}
	return challenge, nil
}

// Leave removes the user from a challenge
func (cs *ChallengeService) Leave(userID, challengeID string) error {
	err := cs.repo.LeaveChallenge(challengeID, userID)
	if database.IsNotFound(err) {
		return ErrChallengeNotFound
	}
	return err
}

// Leaderboard ranks participants by study time inside the challenge window
func (cs *ChallengeService) Leaderboard(challengeID string) (*models.Challenge, []models.LeaderboardEntry, error) {
	challenge, err := cs.Get(challengeID)
	if err != nil {
		return nil, nil, err
	}

	participants, err := cs.repo.ListChallengeParticipants(challengeID)
	if err != nil {
		return nil, nil, err
	}
	totals, err := cs.repo.SumStudySeconds(participants, challenge.StartsAt, challenge.EndsAt)
	if err != nil {
		return nil, nil, err
	}
	users, err := cs.repo.GetUsers(participants)
	if err != nil {
		return nil, nil, err
	}

	goal := int64(challenge.GoalMinutes) * 60
	entries := make([]models.LeaderboardEntry, 0, len(participants))
	for _, id := range participants {
		entries = append(entries, models.LeaderboardEntry{
			UserID:       id,
			Name:         users[id].Name,
			StudySeconds: totals[id],
			Completed:    totals[id] >= goal,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].StudySeconds != entries[j].StudySeconds {
			return entries[i].StudySeconds > entries[j].StudySeconds
		}
		return entries[i].UserID < entries[j].UserID
	})

	// Ties share a rank
	for i := range entries {
		if i > 0 && entries[i].StudySeconds == entries[i-1].StudySeconds {
			entries[i].Rank = entries[i-1].Rank
		} else {
			entries[i].Rank = i + 1
		}
	}

	return challenge, entries, nil
}
