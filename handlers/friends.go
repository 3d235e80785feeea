package handlers

import (
	"newton/app"
	"newton/middleware"
	"newton/models"

	"github.com/gofiber/fiber/v2"
)

// ListFriends returns accepted friendships with the friend's profile
func ListFriends(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		friends, err := a.Friends.ListFriends(middleware.GetUserID(c))
		if err != nil {
			return serverErrorWithDetails(c, "Failed to fetch friends", err)
		}
		return success(c, fiber.Map{"friends": friends})
	}
}

// ListFriendRequests returns pending requests in either direction
func ListFriendRequests(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		requests, err := a.Friends.ListRequests(middleware.GetUserID(c))
		if err != nil {
			return serverErrorWithDetails(c, "Failed to fetch friend requests", err)
		}
		return success(c, fiber.Map{"requests": requests})
	}
}

// SendFriendRequest asks another user to be friends
func SendFriendRequest(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.FriendRequest
		if ok, err := parseBody(c, a, &req); !ok {
			return err
		}

		friendship, err := a.Friends.SendRequest(middleware.GetUserID(c), req.AddresseeID)
		if err != nil {
			return serviceError(c, "Failed to send friend request", err)
		}
		return created(c, fiber.Map{"friendship": friendship})
	}
}

// RespondFriendRequest accepts or rejects a request addressed to the user
func RespondFriendRequest(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.RespondFriendRequest
		if ok, err := parseBody(c, a, &req); !ok {
			return err
		}

		friendship, err := a.Friends.Respond(middleware.GetUserID(c), c.Params("id"), req.Accept)
		if err != nil {
			return serviceError(c, "Failed to respond to friend request", err)
		}
		return success(c, fiber.Map{"friendship": friendship})
	}
}

// RemoveFriend deletes a friendship from either side
func RemoveFriend(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := a.Friends.Remove(middleware.GetUserID(c), c.Params("id")); err != nil {
			return serviceError(c, "Failed to remove friend", err)
		}
		return success(c, fiber.Map{"message": "Friend removed successfully"})
	}
}
