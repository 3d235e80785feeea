package setup

import (
	"newton/app"
	"newton/handlers"
	"newton/middleware"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(fiberApp *fiber.App, application *app.App) {

	// Public routes, registered before the /api group so its auth never runs for them
	fiberApp.Get("/health", handlers.Health(application))
	fiberApp.Get("/api/time", handlers.ServerTime)
	fiberApp.Post("/api/whop", handlers.WhopWebhook(application))

	// Protected API routes
	api := fiberApp.Group("/api", middleware.AuthRequired(application.Auth), limiter.New(limiter.Config{
		Max:        100,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			if userID, ok := c.Locals("userID").(string); ok {
				return "user:" + userID
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Rate limit exceeded for your account",
			})
		},
	}))

	api.Get("/me", handlers.Me(application))

	api.Get("/subscriptions", handlers.GetSubscription(application))
	api.Get("/subscriptions/events", handlers.ListSubscriptionEvents(application))
	api.Post("/subscriptions/checkout", handlers.CreateCheckout(application))

	api.Get("/notes", handlers.ListNotes(application))
	api.Post("/notes", handlers.CreateNote(application))
	api.Post("/notes/generate", handlers.GenerateNote(application))
	api.Get("/notes/:id", handlers.GetNote(application))
	api.Put("/notes/:id", handlers.UpdateNote(application))
	api.Delete("/notes/:id", handlers.DeleteNote(application))
	api.Get("/notes/:id/quiz", handlers.GetQuiz(application))
	api.Post("/notes/:id/quiz", handlers.GenerateQuiz(application))

	api.Post("/uploads", handlers.CreateUpload(application))
	api.Post("/uploads/youtube", handlers.ImportYouTube(application))
	api.Get("/uploads", handlers.ListUploads(application))
	api.Get("/uploads/:id", handlers.GetUpload(application))
	api.Post("/uploads/:id/retry", handlers.RetryUpload(application))
	api.Delete("/uploads/:id", handlers.DeleteUpload(application))

	api.Get("/flashcards", handlers.ListFlashcards(application))
	api.Get("/flashcards/due", handlers.DueFlashcards(application))
	api.Post("/flashcards", handlers.CreateFlashcard(application))
	api.Put("/flashcards/:id", handlers.UpdateFlashcard(application))
	api.Delete("/flashcards/:id", handlers.DeleteFlashcard(application))
	api.Post("/flashcards/:id/review", handlers.ReviewFlashcard(application))

	api.Post("/study/sessions", handlers.StartSession(application))
	api.Get("/study/sessions", handlers.ListSessions(application))
	api.Post("/study/sessions/:id/heartbeat", handlers.Heartbeat(application))
	api.Post("/study/sessions/:id/stop", handlers.StopSession(application))
	api.Get("/study/stats", handlers.GetStudyStats(application))

	api.Get("/friends", handlers.ListFriends(application))
	api.Get("/friends/requests", handlers.ListFriendRequests(application))
	api.Post("/friends/requests", handlers.SendFriendRequest(application))
	api.Post("/friends/requests/:id/respond", handlers.RespondFriendRequest(application))
	api.Delete("/friends/:id", handlers.RemoveFriend(application))

	api.Get("/rooms", handlers.ListRooms(application))
	api.Post("/rooms", handlers.CreateRoom(application))
	api.Post("/rooms/join", handlers.JoinRoom(application))
	api.Get("/rooms/:id", handlers.GetRoom(application))
	api.Post("/rooms/:id/leave", handlers.LeaveRoom(application))
	api.Post("/rooms/:id/close", handlers.CloseRoom(application))

	api.Get("/challenges", handlers.ListChallenges(application))
	api.Post("/challenges", handlers.CreateChallenge(application))
	api.Get("/challenges/:id", handlers.GetChallenge(application))
	api.Post("/challenges/:id/join", handlers.JoinChallenge(application))
	api.Post("/challenges/:id/leave", handlers.LeaveChallenge(application))
	api.Get("/challenges/:id/leaderboard", handlers.ChallengeLeaderboard(application))
}
