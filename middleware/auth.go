package middleware

import (
	"newton/services"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// AccessTokenCookie is the cookie the Supabase client stores the session in
const AccessTokenCookie = "sb-access-token"

// TokenVerifier validates a Supabase access token
type TokenVerifier interface {
	VerifyToken(token string) (*services.UserInfo, error)
}

// AuthRequired creates an authentication middleware that requires a valid
// Supabase access token, as a Bearer header or the sb-access-token cookie
func AuthRequired(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(AccessTokenCookie)

		if authHeader := c.Get("Authorization"); authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid authorization header format",
				})
			}
			token = parts[1]
		}

		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing authorization",
			})
		}

		info, err := verifier.VerifyToken(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals("userID", info.ID)
		c.Locals("userEmail", info.Email)
		c.Locals("userInfo", info)

		return c.Next()
	}
}

func GetUserID(c *fiber.Ctx) string {
	userID, ok := c.Locals("userID").(string)
	if !ok {
		return ""
	}
	return userID
}

func GetUserEmail(c *fiber.Ctx) string {
	email, ok := c.Locals("userEmail").(string)
	if !ok {
		return ""
	}
	return email
}

func GetUserInfo(c *fiber.Ctx) *services.UserInfo {
	info, _ := c.Locals("userInfo").(*services.UserInfo)
	return info
}
