package handlers

import (
	"newton/app"
	"newton/middleware"
	"newton/models"

	"github.com/gofiber/fiber/v2"
)

// ListRooms returns the rooms the user is in
func ListRooms(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rooms, err := a.Rooms.List(middleware.GetUserID(c))
		if err != nil {
			return serverErrorWithDetails(c, "Failed to fetch rooms", err)
		}
		return success(c, fiber.Map{"rooms": rooms})
	}
}

// CreateRoom opens a study room hosted by the user
func CreateRoom(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.CreateRoomRequest
		if ok, err := parseBody(c, a, &req); !ok {
			return err
		}

		room, err := a.Rooms.Create(middleware.GetUserID(c), req)
		if err != nil {
			return serviceError(c, "Failed to create room", err)
		}
		return created(c, fiber.Map{"room": room})
	}
}

// JoinRoom joins an open room by its code
func JoinRoom(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.JoinRoomRequest
		if ok, err := parseBody(c, a, &req); !ok {
			return err
		}

		room, err := a.Rooms.Join(middleware.GetUserID(c), req.Code)
		if err != nil {
			return serviceError(c, "Failed to join room", err)
		}
		return success(c, fiber.Map{"room": room})
	}
}

// GetRoom returns a room with its active participants
func GetRoom(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		room, err := a.Rooms.Get(middleware.GetUserID(c), c.Params("id"))
		if err != nil {
			return serviceError(c, "Failed to fetch room", err)
		}
		return success(c, fiber.Map{"room": room})
	}
}

// LeaveRoom removes the user from a room
func LeaveRoom(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := a.Rooms.Leave(middleware.GetUserID(c), c.Params("id")); err != nil {
			return serviceError(c, "Failed to leave room", err)
		}
		return success(c, fiber.Map{"message": "Left room"})
	}
}

// CloseRoom closes a room; only the host may do so
func CloseRoom(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := a.Rooms.Close(middleware.GetUserID(c), c.Params("id")); err != nil {
			return serviceError(c, "Failed to close room", err)
		}
		return success(c, fiber.Map{"message": "Room closed"})
	}
}
