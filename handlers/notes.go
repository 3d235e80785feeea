package handlers

import (
	"newton/app"
	"newton/middleware"
	"newton/models"

	"github.com/gofiber/fiber/v2"
)

// ListNotes retrieves the user's notes, newest first
func ListNotes(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset := pagination(c)

		notes, err := a.Notes.List(middleware.GetUserID(c), limit, offset)
		if err != nil {
			return serverErrorWithDetails(c, "Failed to fetch notes", err)
		}

		return success(c, fiber.Map{
			"notes":  notes,
			"limit":  limit,
			"offset": offset,
		})
	}
}

// GetNote retrieves a single note
func GetNote(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		note, err := a.Notes.Get(middleware.GetUserID(c), c.Params("id"))
		if err != nil {
			return serviceError(c, "Failed to fetch note", err)
		}
		return success(c, fiber.Map{"note": note})
	}
}

// CreateNote saves a manually written note
func CreateNote(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.CreateNoteRequest
		if ok, err := parseBody(c, a, &req); !ok {
			return err
		}

		note, err := a.Notes.Create(middleware.GetUserID(c), req)
		if err != nil {
			return serverErrorWithDetails(c, "Failed to save note", err)
		}
		return created(c, fiber.Map{"note": note})
	}
}

// UpdateNote replaces a note's title and content
func UpdateNote(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.UpdateNoteRequest
		if ok, err := parseBody(c, a, &req); !ok {
			return err
		}

		note, err := a.Notes.Update(middleware.GetUserID(c), c.Params("id"), req)
		if err != nil {
			return serviceError(c, "Failed to update note", err)
		}
		return success(c, fiber.Map{"note": note})
	}
}

// DeleteNote removes a note and its flashcards
func DeleteNote(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := a.Notes.Delete(middleware.GetUserID(c), c.Params("id")); err != nil {
			return serviceError(c, "Failed to delete note", err)
		}
		return success(c, fiber.Map{"message": "Note deleted successfully"})
	}
}

// GenerateNote creates a note, quiz and flashcards from pasted text
func GenerateNote(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.GenerateNoteRequest
		if ok, err := parseBody(c, a, &req); !ok {
			return err
		}

		note, err := a.Notes.Generate(c.UserContext(), middleware.GetUserID(c), req)
		if err != nil {
			return serviceError(c, "Failed to generate note", err)
		}
		return created(c, fiber.Map{"note": note})
	}
}

// GenerateQuiz (re)generates the quiz stored on a note
func GenerateQuiz(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.GenerateQuizRequest
		if len(c.Body()) > 0 {
			if ok, err := parseBody(c, a, &req); !ok {
				return err
			}
		}

		quiz, err := a.Notes.GenerateQuiz(c.UserContext(), middleware.GetUserID(c), c.Params("id"), req.Questions)
		if err != nil {
			return serviceError(c, "Failed to generate quiz", err)
		}
		return success(c, fiber.Map{"quiz": quiz})
	}
}

// GetQuiz returns the quiz stored on a note
func GetQuiz(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		quiz, err := a.Notes.GetQuiz(middleware.GetUserID(c), c.Params("id"))
		if err != nil {
			return serviceError(c, "Failed to fetch quiz", err)
		}
		return success(c, fiber.Map{"quiz": quiz})
	}
}
