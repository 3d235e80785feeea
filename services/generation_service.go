package services

import (
	"context"
	"fmt"
	"log/slog"
	"newton/models"
	"newton/pkg/ai"
	"newton/ratelimit"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// StudyPack is everything generated from one source
type StudyPack struct {
	Note       *ai.NoteDraft
	Quiz       []ai.QuizQuestion
	Flashcards []ai.CardDraft
}

// GenerationService enforces generation quotas and produces study packs
type GenerationService struct {
	repo         NoteRepository
	generator    Generator
	entitlements EntitlementChecker
	limiter      ratelimit.Limiter
	now          func() time.Time
}

// NewGenerationService creates a new generation service
func NewGenerationService(repo NoteRepository, generator Generator, entitlements EntitlementChecker, limiter ratelimit.Limiter) *GenerationService {
	return &GenerationService{
		repo:         repo,
		generator:    generator,
		entitlements: entitlements,
		limiter:      limiter,
		now:          time.Now,
	}
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// ==================== QUOTA OPERATIONS ====================

// CheckQuota returns the user's entitlements if another generated note fits
// in this month's quota. Uploads still waiting to be processed count as used.
func (g *GenerationService) CheckQuota(userID string) (*models.Entitlements, error) {
	return g.checkQuota(userID, nil)
}

// CheckUploadQuota is CheckQuota for an upload about to be processed. Only
// the uploads queued ahead of it count as used.
func (g *GenerationService) CheckUploadQuota(upload *models.Upload) (*models.Entitlements, error) {
	return g.checkQuota(upload.UserID, upload)
}

func (g *GenerationService) checkQuota(userID string, upload *models.Upload) (*models.Entitlements, error) {
	ent, err := g.entitlements.Entitlements(userID)
	if err != nil {
		return nil, err
	}
	if ent.Limits.NotesPerMonth == models.Unlimited {
		return ent, nil
	}

	generated, err := g.repo.CountGenerationsSince(userID, monthStart(g.now()))
	if err != nil {
		return nil, fmt.Errorf("failed to count generations: %w", err)
	}
	queued, err := g.repo.CountInFlightUploads(userID, upload)
	if err != nil {
		return nil, fmt.Errorf("failed to count queued uploads: %w", err)
	}
	if !models.Allows(ent.Limits.NotesPerMonth, generated+queued) {
		return nil, ErrQuotaExceeded
	}
	return ent, nil
}

// Throttle applies the per-minute generation limit of the user's plan
func (g *GenerationService) Throttle(ctx context.Context, userID string, limits models.Limits) error {
	if g.limiter == nil {
		return nil
	}
	res, err := g.limiter.Allow(ctx, "generate:"+userID, limits.GenerationsPerMinute, time.Minute)
	if err != nil {
		// Fail open
		slog.Warn("Rate limiter unavailable", "user_id", userID, "error", err)
		return nil
	}
	if !res.Allowed {
		return &RateLimitError{RetryAfter: res.RetryAfter}
	}
	return nil
}

// Admit runs the quota check and the rate limit for one user-initiated generation
func (g *GenerationService) Admit(ctx context.Context, userID string) (*models.Entitlements, error) {
	ent, err := g.CheckQuota(userID)
	if err != nil {
		return nil, err
	}
	if err := g.Throttle(ctx, userID, ent.Limits); err != nil {
		return nil, err
	}
	return ent, nil
}

// ==================== GENERATION OPERATIONS ====================

// GenerateStudyPack asks for the note, quiz and flashcards concurrently and
// fails as a whole on the first error
func (g *GenerationService) GenerateStudyPack(ctx context.Context, source, titleHint string, limits models.Limits) (*StudyPack, error) {
	if g.generator == nil {
		return nil, ErrGenerationDisabled
	}
	pack := &StudyPack{}
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		note, err := g.generator.GenerateNote(ctx, source, titleHint)
		if err != nil {
			return fmt.Errorf("note: %w", err)
		}
		pack.Note = note
		return nil
	})

	if limits.QuizQuestions > 0 {
		eg.Go(func() error {
			quiz, err := g.generator.GenerateQuiz(ctx, source, limits.QuizQuestions)
			if err != nil {
				return fmt.Errorf("quiz: %w", err)
			}
			pack.Quiz = quiz
			return nil
		})
	}

	if limits.FlashcardsPerNote > 0 {
		eg.Go(func() error {
			cards, err := g.generator.GenerateFlashcards(ctx, source, limits.FlashcardsPerNote)
			if err != nil {
				return fmt.Errorf("flashcards: %w", err)
			}
			pack.Flashcards = cards
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return pack, nil
}

// SaveStudyPack persists the generated note with its quiz and flashcards.
// A note made from an upload also completes that upload.
func (g *GenerationService) SaveStudyPack(userID string, source models.NoteSource, uploadID string, pack *StudyPack) (*models.Note, error) {
	now := g.now().UTC()
	note := &models.Note{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     pack.Note.Title,
		Content:   pack.Note.Content,
		Summary:   pack.Note.Summary,
		Source:    source,
		UploadID:  uploadID,
		Quiz:      toQuiz(pack.Quiz),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if note.Title == "" {
		note.Title = "Untitled note"
	}

	cards := make([]models.Flashcard, 0, len(pack.Flashcards))
	for _, c := range pack.Flashcards {
		cards = append(cards, newFlashcard(userID, note.ID, c.Front, c.Back, now))
	}
	if err := g.repo.SaveGeneratedNote(note, cards); err != nil {
		return nil, fmt.Errorf("failed to save study pack: %w", err)
	}

	return note, nil
}

// Generate is the user-facing path: admit, generate, save
func (g *GenerationService) Generate(ctx context.Context, userID, source, titleHint string, noteSource models.NoteSource) (*models.Note, error) {
	ent, err := g.Admit(ctx, userID)
	if err != nil {
		return nil, err
	}
	pack, err := g.GenerateStudyPack(ctx, source, titleHint, ent.Limits)
	if err != nil {
		return nil, err
	}
	return g.SaveStudyPack(userID, noteSource, "", pack)
}

// GenerateQuiz produces a quiz for existing note content
func (g *GenerationService) GenerateQuiz(ctx context.Context, userID, content string, questions int) ([]models.QuizQuestion, error) {
	if g.generator == nil {
		return nil, ErrGenerationDisabled
	}
	ent, err := g.entitlements.Entitlements(userID)
	if err != nil {
		return nil, err
	}
	if err := g.Throttle(ctx, userID, ent.Limits); err != nil {
		return nil, err
	}

	if questions <= 0 || questions > ent.Limits.QuizQuestions {
		questions = ent.Limits.QuizQuestions
	}
	if questions <= 0 {
		return nil, ErrFeatureNotInPlan
	}

	quiz, err := g.generator.GenerateQuiz(ctx, content, questions)
	if err != nil {
		return nil, err
	}
	return toQuiz(quiz), nil
}

func toQuiz(in []ai.QuizQuestion) []models.QuizQuestion {
	if len(in) == 0 {
		return nil
	}
	out := make([]models.QuizQuestion, 0, len(in))
	for _, q := range in {
		out = append(out, models.QuizQuestion{
			Question:    q.Question,
			Options:     q.Options,
			AnswerIndex: q.AnswerIndex,
			Explanation: q.Explanation,
		})
	}
	return out
}
