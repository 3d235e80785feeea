package app

import (
	"log/slog"
	"newton/config"
	"newton/database"
	"newton/pkg/whop"
	"newton/ratelimit"
	"newton/services"
	"newton/storage"
	"newton/validator"
	"time"
)

// Deps are the external collaborators the services are built from.
// Optional ones may be left nil.
type Deps struct {
	Catalog           *config.PlanCatalog
	Blobs             storage.Provider
	Verifier          *whop.Verifier
	Generator         services.Generator
	Checkout          services.CheckoutClient
	Notifier          services.Notifier
	Limiter           ratelimit.Limiter
	JWTSecret         string
	JWTAudience       string
	CheckoutReturnURL string
	MaxUploadBytes    int64
	SessionGrace      time.Duration
}

// App holds all application dependencies
// This struct is the central point for dependency injection
type App struct {
	Repo          *database.Repository
	Verifier      *whop.Verifier
	Auth          *services.AuthService
	Subscriptions *services.SubscriptionService
	Generation    *services.GenerationService
	Notes         *services.NoteService
	Uploads       *services.UploadService
	Flashcards    *services.FlashcardService
	Study         *services.StudyService
	Friends       *services.FriendService
	Rooms         *services.RoomService
	Challenges    *services.ChallengeService
	Validator     *validator.Validator
	Logger        *slog.Logger
}

// New creates a new App instance with all services wired to repo
func New(repo *database.Repository, deps Deps, logger *slog.Logger) *App {
	catalog := deps.Catalog
	if catalog == nil {
		catalog = config.DefaultPlanCatalog()
	}

	subscriptions := services.NewSubscriptionService(repo, catalog, deps.Checkout, deps.Notifier, deps.CheckoutReturnURL)
	generation := services.NewGenerationService(repo, deps.Generator, subscriptions, deps.Limiter)

	return &App{
		Repo:          repo,
		Verifier:      deps.Verifier,
		Auth:          services.NewAuthService(repo, deps.JWTSecret, deps.JWTAudience),
		Subscriptions: subscriptions,
		Generation:    generation,
		Notes:         services.NewNoteService(repo, generation),
		Uploads:       services.NewUploadService(repo, deps.Blobs, generation, nil, deps.MaxUploadBytes),
		Flashcards:    services.NewFlashcardService(repo),
		Study:         services.NewStudyService(repo, deps.SessionGrace),
		Friends:       services.NewFriendService(repo, deps.Notifier),
		Rooms:         services.NewRoomService(repo, subscriptions),
		Challenges:    services.NewChallengeService(repo),
		Validator:     validator.New(),
		Logger:        logger,
	}
}
