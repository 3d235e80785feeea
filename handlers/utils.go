package handlers

import (
	"errors"
	"log/slog"
	"math"
	"newton/app"
	"newton/pkg/youtube"
	"newton/services"
	"newton/validator"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

func success(c *fiber.Ctx, data fiber.Map) error {
	return c.JSON(data)
}

func created(c *fiber.Ctx, data fiber.Map) error {
	return c.Status(fiber.StatusCreated).JSON(data)
}

func accepted(c *fiber.Ctx, data fiber.Map) error {
	return c.Status(fiber.StatusAccepted).JSON(data)
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": message})
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": message})
}

func forbidden(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": message})
}

func notFound(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": message})
}

func conflict(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": message})
}

func tooManyRequests(c *fiber.Ctx, rle *services.RateLimitError) error {
	seconds := int(math.Ceil(rle.RetryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	c.Set(fiber.HeaderRetryAfter, strconv.Itoa(seconds))
	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"error":       rle.Error(),
		"retry_after": seconds,
	})
}

func validationError(c *fiber.Ctx, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Validation failed",
			"details": verrs,
		})
	}
	return badRequest(c, err.Error())
}

func serverError(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": message})
}

func serverErrorWithDetails(c *fiber.Ctx, message string, err error) error {
	requestID := ""
	if id, ok := c.Locals("requestID").(string); ok {
		requestID = id
	}

	slog.Error("server error",
		"request_id", requestID,
		"method", c.Method(),
		"path", c.Path(),
		"message", message,
		"error", err,
	)

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": message})
}

// parseBody decodes and validates a JSON body. On failure the error response
// has already been written and the returned error must be returned as-is.
func parseBody(c *fiber.Ctx, a *app.App, out any) (bool, error) {
	if err := c.BodyParser(out); err != nil {
		return false, badRequest(c, "Invalid request body")
	}
	if err := a.Validator.Validate(out); err != nil {
		return false, validationError(c, err)
	}
	return true, nil
}

// serviceError maps service sentinel errors to responses; anything unknown
// is logged and returned as a 500 with message
func serviceError(c *fiber.Ctx, message string, err error) error {
	if rle, ok := services.IsRateLimited(err); ok {
		return tooManyRequests(c, rle)
	}

	switch {
	case errors.Is(err, services.ErrUnauthorized),
		errors.Is(err, services.ErrInvalidToken):
		return unauthorized(c, err.Error())

	case errors.Is(err, services.ErrForbidden),
		errors.Is(err, services.ErrQuotaExceeded),
		errors.Is(err, services.ErrFeatureNotInPlan),
		errors.Is(err, services.ErrUploadTooLarge),
		errors.Is(err, services.ErrRoomFull):
		return forbidden(c, err.Error())

	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrNoteNotFound),
		errors.Is(err, services.ErrQuizNotFound),
		errors.Is(err, services.ErrUploadNotFound),
		errors.Is(err, services.ErrFlashcardNotFound),
		errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, services.ErrFriendshipNotFound),
		errors.Is(err, services.ErrRoomNotFound),
		errors.Is(err, services.ErrChallengeNotFound):
		return notFound(c, err.Error())

	case errors.Is(err, services.ErrFriendshipExists),
		errors.Is(err, services.ErrFriendshipNotPending),
		errors.Is(err, services.ErrUploadNotRetryable),
		errors.Is(err, services.ErrSessionEnded),
		errors.Is(err, services.ErrRoomClosed),
		errors.Is(err, services.ErrChallengeEnded):
		return conflict(c, err.Error())

	case errors.Is(err, services.ErrUnknownPlan),
		errors.Is(err, services.ErrUnsupportedUpload),
		errors.Is(err, services.ErrCannotFriendSelf),
		errors.Is(err, services.ErrInvalidChallenge),
		errors.Is(err, youtube.ErrInvalidURL):
		return badRequest(c, err.Error())

	case errors.Is(err, services.ErrCheckoutDisabled),
		errors.Is(err, services.ErrGenerationDisabled):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	}

	return serverErrorWithDetails(c, message, err)
}

func pagination(c *fiber.Ctx) (limit, offset int) {
	return c.QueryInt("limit", 30), c.QueryInt("offset", 0)
}
