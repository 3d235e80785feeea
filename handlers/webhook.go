package handlers

import (
	"newton/app"
	"newton/pkg/whop"

	"github.com/gofiber/fiber/v2"
)

// WhopWebhook verifies and applies a Whop membership webhook delivery.
// The raw body is verified before it is decoded.
func WhopWebhook(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if a.Verifier == nil {
			return serverError(c, "Webhook verification is not configured")
		}

		body := c.Body()
		if err := a.Verifier.Verify(c.Get(whop.SignatureHeader), c.Get(whop.TimestampHeader), body); err != nil {
			a.Logger.WarnContext(c.UserContext(), "Rejected webhook delivery", "error", err, "ip", c.IP())
			return badRequest(c, err.Error())
		}

		event, err := whop.ParseEvent(body)
		if err != nil {
			return badRequest(c, "Invalid webhook payload")
		}

		outcome, err := a.Subscriptions.HandleWebhookEvent(c.UserContext(), event)
		if err != nil {
			// Non-2xx makes Whop redeliver
			return serverErrorWithDetails(c, "Failed to process webhook", err)
		}

		a.Logger.InfoContext(c.UserContext(), "Webhook processed",
			"type", outcome.EventType,
			"membership_id", outcome.MembershipID,
			"upserted", outcome.Upserted,
		)
		return success(c, fiber.Map{"received": true})
	}
}
