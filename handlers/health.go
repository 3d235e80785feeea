package handlers

import (
	"newton/app"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Health reports whether the database is reachable
func Health(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := a.Repo.Ping(c.UserContext()); err != nil {
			a.Logger.Error("Health check failed", "error", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return success(c, fiber.Map{"status": "ok"})
	}
}

// ServerTime returns the server clock and the UTC day streaks are counted in
func ServerTime(c *fiber.Ctx) error {
	now := time.Now().UTC()

	return c.JSON(fiber.Map{
		"timestamp":  now.Unix(),
		"iso":        now.Format(time.RFC3339),
		"study_date": now.Format(time.DateOnly),
	})
}
