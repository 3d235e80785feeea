package handlers

import (
	"newton/app"
	"newton/middleware"
	"newton/models"

	"github.com/gofiber/fiber/v2"
)

// StartSession opens a study session, closing any the user left open
func StartSession(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.StartSessionRequest
		if len(c.Body()) > 0 {
			if ok, err := parseBody(c, a, &req); !ok {
				return err
			}
		}

		session, err := a.Study.Start(middleware.GetUserID(c), req)
		if err != nil {
			return serviceError(c, "Failed to start study session", err)
		}
		return created(c, fiber.Map{"session": session})
	}
}

// Heartbeat keeps a study session alive
func Heartbeat(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := a.Study.Heartbeat(middleware.GetUserID(c), c.Params("id"))
		if err != nil {
			return serviceError(c, "Failed to record heartbeat", err)
		}
		return success(c, fiber.Map{"session": session})
	}
}

// StopSession ends a study session and folds it into the user's stats
func StopSession(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, stats, err := a.Study.Stop(middleware.GetUserID(c), c.Params("id"))
		if err != nil {
			return serviceError(c, "Failed to stop study session", err)
		}
		return success(c, fiber.Map{
			"session": session,
			"stats":   stats,
		})
	}
}

// ListSessions returns the user's recent study sessions
func ListSessions(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessions, err := a.Study.List(middleware.GetUserID(c), c.QueryInt("limit", 20))
		if err != nil {
			return serverErrorWithDetails(c, "Failed to fetch study sessions", err)
		}
		return success(c, fiber.Map{"sessions": sessions})
	}
}

// GetStudyStats returns totals and streaks
func GetStudyStats(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stats, err := a.Study.Stats(middleware.GetUserID(c))
		if err != nil {
			return serverErrorWithDetails(c, "Failed to fetch study stats", err)
		}
		return success(c, fiber.Map{"stats": stats})
	}
}
