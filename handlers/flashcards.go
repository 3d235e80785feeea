package handlers

import (
	"newton/app"
	"newton/middleware"
	"newton/models"
	"newton/pkg/fsrs"

	"github.com/gofiber/fiber/v2"
)

// ListFlashcards lists cards, optionally only those of one note
func ListFlashcards(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset := pagination(c)

		cards, err := a.Flashcards.List(middleware.GetUserID(c), c.Query("note_id"), limit, offset)
		if err != nil {
			return serverErrorWithDetails(c, "Failed to fetch flashcards", err)
		}
		return success(c, fiber.Map{"flashcards": cards})
	}
}

// DueFlashcards lists cards due for review now
func DueFlashcards(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cards, err := a.Flashcards.Due(middleware.GetUserID(c), c.QueryInt("limit", 50))
		if err != nil {
			return serverErrorWithDetails(c, "Failed to fetch due flashcards", err)
		}
		return success(c, fiber.Map{"flashcards": cards})
	}
}

// CreateFlashcard adds a manual card
func CreateFlashcard(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.CreateFlashcardRequest
		if ok, err := parseBody(c, a, &req); !ok {
			return err
		}

		card, err := a.Flashcards.Create(middleware.GetUserID(c), req)
		if err != nil {
			return serviceError(c, "Failed to create flashcard", err)
		}
		return created(c, fiber.Map{"flashcard": card})
	}
}

// UpdateFlashcard edits a card's front and back
func UpdateFlashcard(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.UpdateFlashcardRequest
		if ok, err := parseBody(c, a, &req); !ok {
			return err
		}

		card, err := a.Flashcards.Update(middleware.GetUserID(c), c.Params("id"), req)
		if err != nil {
			return serviceError(c, "Failed to update flashcard", err)
		}
		return success(c, fiber.Map{"flashcard": card})
	}
}

// DeleteFlashcard removes a card
func DeleteFlashcard(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := a.Flashcards.Delete(middleware.GetUserID(c), c.Params("id")); err != nil {
			return serviceError(c, "Failed to delete flashcard", err)
		}
		return success(c, fiber.Map{"message": "Flashcard deleted successfully"})
	}
}

// ReviewFlashcard records a review and schedules the next one
func ReviewFlashcard(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.ReviewFlashcardRequest
		if ok, err := parseBody(c, a, &req); !ok {
			return err
		}

		card, err := a.Flashcards.Review(middleware.GetUserID(c), c.Params("id"), fsrs.Rating(req.Rating))
		if err != nil {
			return serviceError(c, "Failed to review flashcard", err)
		}
		return success(c, fiber.Map{"flashcard": card})
	}
}
