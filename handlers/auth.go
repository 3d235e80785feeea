package handlers

import (
	"newton/app"
	"newton/middleware"

	"github.com/gofiber/fiber/v2"
)

// Me returns the signed-in user's profile, creating it on first sight
func Me(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := a.Auth.Me(middleware.GetUserInfo(c))
		if err != nil {
			return serviceError(c, "Failed to load profile", err)
		}

		ent, err := a.Subscriptions.Entitlements(user.ID)
		if err != nil {
			return serverErrorWithDetails(c, "Failed to load entitlements", err)
		}

		return success(c, fiber.Map{
			"user":         user,
			"entitlements": ent,
		})
	}
}
