package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// LocalUserID fiber locals key of the authenticated user id
const LocalUserID = "userID"

// TokenFromRequest reads the token from the Authorization header, the
// access_token cookie or the token query parameter, in that order.
// Browsers cannot set headers on a WebSocket upgrade, hence the query.
func TokenFromRequest(c *fiber.Ctx) (string, error) {
	if header := c.Get("Authorization"); header != "" {
		parts := strings.Split(header, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return "", errors.New("invalid authorization header format")
		}
		return parts[1], nil
	}
	if cookie := c.Cookies("access_token"); cookie != "" {
		return cookie, nil
	}
	if query := c.Query("token"); query != "" {
		return query, nil
	}
	return "", errors.New("missing authorization token")
}

// AuthMiddleware JWT authentication. A nil manager lets every request through.
func AuthMiddleware(jwtManager *JWTManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if jwtManager == nil {
			return c.Next()
		}

		token, err := TokenFromRequest(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		claims, err := jwtManager.ValidateAccessToken(token)
		if err != nil {
			if errors.Is(err, ErrExpiredToken) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "token expired",
					"code":  "TOKEN_EXPIRED",
				})
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid token",
			})
		}

		c.Locals(LocalUserID, claims.UserID)
		c.Locals("claims", claims)

		return c.Next()
	}
}

// UserID authenticated user id, or "" on unauthenticated routes
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}
