package services

import (
	"context"
	"newton/database"
	"newton/models"
	"time"

	"github.com/google/uuid"
)

// NoteService handles business logic for notes
type NoteService struct {
	repo       NoteRepository
	generation *GenerationService
}

// NewNoteService creates a new note service
func NewNoteService(repo NoteRepository, generation *GenerationService) *NoteService {
	return &NoteService{
		repo:       repo,
		generation: generation,
	}
}

// Get retrieves a note the user owns
func (ns *NoteService) Get(userID, noteID string) (*models.Note, error) {
	note, err := ns.repo.GetNote(userID, noteID)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, ErrNoteNotFound
	}
	return note, nil
}

// List retrieves the user's notes with pagination, newest first
func (ns *NoteService) List(userID string, limit, offset int) ([]models.Note, error) {
	// Validate and normalize pagination params
	if limit < 1 || limit > 100 {
		limit = 30
	}
	if offset < 0 {
		offset = 0
	}

	return ns.repo.ListNotes(userID, limit, offset)
}

// Create saves a manually written note
func (ns *NoteService) Create(userID string, req models.CreateNoteRequest) (*models.Note, error) {
	now := time.Now().UTC()
	note := &models.Note{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     req.Title,
		Content:   req.Content,
		Source:    models.NoteSourceManual,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := ns.repo.CreateNote(note); err != nil {
		return nil, err
	}
	return note, nil
}

// Update replaces a note's title and content
func (ns *NoteService) Update(userID, noteID string, req models.UpdateNoteRequest) (*models.Note, error) {
	err := ns.repo.UpdateNote(userID, noteID, req.Title, req.Content)
	if database.IsNotFound(err) {
		return nil, ErrNoteNotFound
	}
	if err != nil {
		return nil, err
	}
	return ns.Get(userID, noteID)
}

// Delete removes a note together with its flashcards
func (ns *NoteService) Delete(userID, noteID string) error {
	err := ns.repo.DeleteNote(userID, noteID)
	if database.IsNotFound(err) {
		return ErrNoteNotFound
	}
	return err
}

// Generate creates a note, quiz and flashcards from pasted text
func (ns *NoteService) Generate(ctx context.Context, userID string, req models.GenerateNoteRequest) (*models.Note, error) {
	return ns.generation.Generate(ctx, userID, req.Text, req.Title, models.NoteSourceText)
}

// GenerateQuiz (re)generates the quiz stored on a note
func (ns *NoteService) GenerateQuiz(ctx context.Context, userID, noteID string, questions int) ([]models.QuizQuestion, error) {
	note, err := ns.Get(userID, noteID)
	if err != nil {
		return nil, err
	}

	source := note.Content
	if source == "" {
		source = note.Summary
	}
	if source == "" {
		source = note.Title
	}

	quiz, err := ns.generation.GenerateQuiz(ctx, userID, source, questions)
	if err != nil {
		return nil, err
	}

	err = ns.repo.SetNoteQuiz(userID, noteID, quiz)
	if database.IsNotFound(err) {
		return nil, ErrNoteNotFound
	}
	if err != nil {
		return nil, err
	}
	return quiz, nil
}

// GetQuiz returns the quiz stored on a note
func (ns *NoteService) GetQuiz(userID, noteID string) ([]models.QuizQuestion, error) {
	note, err := ns.Get(userID, noteID)
	if err != nil {
		return nil, err
	}
	if len(note.Quiz) == 0 {
		return nil, ErrQuizNotFound
	}
	return note.Quiz, nil
}
