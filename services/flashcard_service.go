package services

import (
	"fmt"
	"newton/database"
	"newton/models"
	"newton/pkg/fsrs"
	"time"

	"github.com/google/uuid"
)

// FlashcardService handles flashcard CRUD and review scheduling
type FlashcardService struct {
	repo   FlashcardRepository
	params *fsrs.Params
	now    func() time.Time
}

// NewFlashcardService creates a new flashcard service
func NewFlashcardService(repo FlashcardRepository) *FlashcardService {
	return &FlashcardService{
		repo:   repo,
		params: fsrs.DefaultParams(),
		now:    time.Now,
	}
}

// newFlashcard builds a card that is due immediately
func newFlashcard(userID, noteID, front, back string, now time.Time) models.Flashcard {
	return models.Flashcard{
		ID:         uuid.New().String(),
		UserID:     userID,
		NoteID:     noteID,
		Front:      front,
		Back:       back,
		Difficulty: fsrs.InitialDifficulty,
		DueAt:      now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// List retrieves cards, optionally restricted to one note
func (fs *FlashcardService) List(userID, noteID string, limit, offset int) ([]models.Flashcard, error) {
	if limit < 1 || limit > 200 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return fs.repo.ListFlashcards(userID, noteID, limit, offset)
}

// Due retrieves cards whose review is due now, oldest first
func (fs *FlashcardService) Due(userID string, limit int) ([]models.Flashcard, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	return fs.repo.ListDueFlashcards(userID, fs.now().UTC(), limit)
}

// Get retrieves a single card
func (fs *FlashcardService) Get(userID, cardID string) (*models.Flashcard, error) {
	card, err := fs.repo.GetFlashcard(userID, cardID)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, ErrFlashcardNotFound
	}
	return card, nil
}

// Create adds a manual card, attached to a note the user owns when note_id is set
func (fs *FlashcardService) Create(userID string, req models.CreateFlashcardRequest) (*models.Flashcard, error) {
	if req.NoteID != "" {
		note, err := fs.repo.GetNote(userID, req.NoteID)
		if err != nil {
			return nil, err
		}
		if note == nil {
			return nil, ErrNoteNotFound
		}
	}

	card := newFlashcard(userID, req.NoteID, req.Front, req.Back, fs.now().UTC())
	if err := fs.repo.CreateFlashcards([]models.Flashcard{card}); err != nil {
		return nil, fmt.Errorf("failed to create flashcard: %w", err)
	}
	return &card, nil
}

// Update replaces the front and back of a card
func (fs *FlashcardService) Update(userID, cardID string, req models.UpdateFlashcardRequest) (*models.Flashcard, error) {
	err := fs.repo.UpdateFlashcardContent(userID, cardID, req.Front, req.Back)
	if database.IsNotFound(err) {
		return nil, ErrFlashcardNotFound
	}
	if err != nil {
		return nil, err
	}
	return fs.Get(userID, cardID)
}

// Delete removes a card
func (fs *FlashcardService) Delete(userID, cardID string) error {
	err := fs.repo.DeleteFlashcard(userID, cardID)
	if database.IsNotFound(err) {
		return ErrFlashcardNotFound
	}
	return err
}

// Review records a rating and schedules the next review
func (fs *FlashcardService) Review(userID, cardID string, rating fsrs.Rating) (*models.Flashcard, error) {
	card, err := fs.Get(userID, cardID)
	if err != nil {
		return nil, err
	}

	now := fs.now().UTC()
	current := fsrs.CardState{Stability: card.Stability, Difficulty: card.Difficulty}
	if card.LastReviewAt != nil {
		current.LastReview = *card.LastReviewAt
	}
	next := fs.params.NextState(current, rating, now)

	card.Stability = next.Stability
	card.Difficulty = next.Difficulty
	card.LastReviewAt = &now
	card.DueAt = fsrs.NextDueDate(now, next.Stability)
	card.ReviewCount++
	card.UpdatedAt = now

	if err := fs.repo.SaveFlashcardReview(card); err != nil {
		return nil, fmt.Errorf("failed to save review: %w", err)
	}
	return card, nil
}
