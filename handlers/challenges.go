package handlers

import (
	"newton/app"
	"newton/middleware"
	"newton/models"

	"github.com/gofiber/fiber/v2"
)

// ListChallenges returns the challenges the user has joined
func ListChallenges(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		challenges, err := a.Challenges.List(middleware.GetUserID(c))
		if err != nil {
			return serverErrorWithDetails(c, "Failed to fetch challenges", err)
		}
		return success(c, fiber.Map{"challenges": challenges})
	}
}

// CreateChallenge starts a study challenge with the creator as first participant
func CreateChallenge(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.CreateChallengeRequest
		if ok, err := parseBody(c, a, &req); !ok {
			return err
		}

		challenge, err := a.Challenges.Create(middleware.GetUserID(c), req)
		if err != nil {
			return serviceError(c, "Failed to create challenge", err)
		}
		return created(c, fiber.Map{"challenge": challenge})
	}
}

// GetChallenge returns a challenge
func GetChallenge(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		challenge, err := a.Challenges.Get(c.Params("id"))
		if err != nil {
			return serviceError(c, "Failed to fetch challenge", err)
		}
		return success(c, fiber.Map{"challenge": challenge})
	}
}

// JoinChallenge adds the user to a running or upcoming challenge
func JoinChallenge(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		challenge, err := a.Challenges.Join(middleware.GetUserID(c), c.Params("id"))
		if err != nil {
			return serviceError(c, "Failed to join challenge", err)
		}
		return success(c, fiber.Map{"challenge": challenge})
	}
}

// LeaveChallenge removes the user from a challenge
func LeaveChallenge(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := a.Challenges.Leave(middleware.GetUserID(c), c.Params("id")); err != nil {
			return serviceError(c, "Failed to leave challenge", err)
		}
		return success(c, fiber.Map{"message": "Left challenge"})
	}
}

// ChallengeLeaderboard ranks participants by study time inside the challenge window
func ChallengeLeaderboard(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		challenge, entries, err := a.Challenges.Leaderboard(c.Params("id"))
		if err != nil {
			return serviceError(c, "Failed to build leaderboard", err)
		}
		return success(c, fiber.Map{
			"challenge":   challenge,
			"leaderboard": entries,
		})
	}
}
