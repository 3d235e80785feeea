package handlers

import (
	"newton/app"
	"newton/middleware"
	"newton/models"

	"github.com/gofiber/fiber/v2"
)

// GetSubscription returns the user's entitlements and latest subscription
func GetSubscription(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ent, latest, err := a.Subscriptions.Status(middleware.GetUserID(c))
		if err != nil {
			return serverErrorWithDetails(c, "Failed to load subscription", err)
		}

		return success(c, fiber.Map{
			"entitlements": ent,
			"subscription": latest,
		})
	}
}

// ListSubscriptionEvents returns the webhook audit trail for the user
func ListSubscriptionEvents(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		events, err := a.Subscriptions.ListEvents(middleware.GetUserID(c), c.QueryInt("limit", 50))
		if err != nil {
			return serverErrorWithDetails(c, "Failed to load subscription events", err)
		}
		return success(c, fiber.Map{"events": events})
	}
}

// CreateCheckout opens a Whop checkout for a paid plan
func CreateCheckout(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.CheckoutRequest
		if ok, err := parseBody(c, a, &req); !ok {
			return err
		}

		session, err := a.Subscriptions.CreateCheckout(c.UserContext(), middleware.GetUserID(c), models.Tier(req.Plan))
		if err != nil {
			return serviceError(c, "Failed to create checkout", err)
		}

		return created(c, fiber.Map{
			"checkout_id":  session.ID,
			"plan_id":      session.PlanID,
			"purchase_url": session.PurchaseURL,
		})
	}
}
