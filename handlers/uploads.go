package handlers

import (
	"newton/app"
	"newton/middleware"
	"newton/models"

	"github.com/gofiber/fiber/v2"
)

// CreateUpload accepts a PDF or audio file for background processing
func CreateUpload(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return badRequest(c, "A file is required in the 'file' field")
		}

		f, err := fh.Open()
		if err != nil {
			return badRequest(c, "Failed to read uploaded file")
		}
		defer f.Close()

		upload, err := a.Uploads.CreateFromFile(c.UserContext(), middleware.GetUserID(c), fh.Filename, fh.Size, f)
		if err != nil {
			return serviceError(c, "Failed to save upload", err)
		}
		return accepted(c, fiber.Map{"upload": upload})
	}
}

// ImportYouTube queues a YouTube video for note generation
func ImportYouTube(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.YouTubeImportRequest
		if ok, err := parseBody(c, a, &req); !ok {
			return err
		}

		upload, err := a.Uploads.CreateFromYouTube(c.UserContext(), middleware.GetUserID(c), req)
		if err != nil {
			return serviceError(c, "Failed to import video", err)
		}
		return accepted(c, fiber.Map{"upload": upload})
	}
}

// ListUploads retrieves the user's uploads, newest first
func ListUploads(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset := pagination(c)

		uploads, err := a.Uploads.List(middleware.GetUserID(c), limit, offset)
		if err != nil {
			return serverErrorWithDetails(c, "Failed to fetch uploads", err)
		}
		return success(c, fiber.Map{"uploads": uploads})
	}
}

// GetUpload returns an upload with its processing status
func GetUpload(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		upload, err := a.Uploads.Get(middleware.GetUserID(c), c.Params("id"))
		if err != nil {
			return serviceError(c, "Failed to fetch upload", err)
		}
		return success(c, fiber.Map{"upload": upload})
	}
}

// RetryUpload puts a failed or abandoned upload back in the queue
func RetryUpload(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		upload, err := a.Uploads.Retry(middleware.GetUserID(c), c.Params("id"))
		if err != nil {
			return serviceError(c, "Failed to retry upload", err)
		}
		return accepted(c, fiber.Map{"upload": upload})
	}
}

// DeleteUpload removes an upload and its stored file
func DeleteUpload(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := a.Uploads.Delete(c.UserContext(), middleware.GetUserID(c), c.Params("id")); err != nil {
			return serviceError(c, "Failed to delete upload", err)
		}
		return success(c, fiber.Map{"message": "Upload deleted successfully"})
	}
}
