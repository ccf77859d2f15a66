package middleware

import (
	"context"
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"realtime-canvas/internal/auth"
)

// MemberChecker room membership lookup
type MemberChecker interface {
	IsMember(ctx context.Context, roomID, userID string) (bool, error)
}

// RoomMiddleware room permission middleware
type RoomMiddleware struct {
	members MemberChecker
}

// NewRoomMiddleware creates a RoomMiddleware
func NewRoomMiddleware(members MemberChecker) *RoomMiddleware {
	return &RoomMiddleware{members: members}
}

// requestRoom roomId from the path, then the form or query.
func requestRoom(c *fiber.Ctx) string {
	if id := c.Params("roomId"); id != "" {
		return id
	}
	return c.FormValue("roomId")
}

// requestUser the token identity wins over the userId form or query field.
func requestUser(c *fiber.Ctx) string {
	if id := auth.UserID(c); id != "" {
		return id
	}
	return c.FormValue("userId")
}

// RequireMembership the caller must belong to the room
func (m *RoomMiddleware) RequireMembership() fiber.Handler {
	return func(c *fiber.Ctx) error {
		roomID := requestRoom(c)
		userID := requestUser(c)
		if roomID == "" || userID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "roomId and userId are required",
			})
		}

		ok, err := m.members.IsMember(c.UserContext(), roomID, userID)
		if err != nil {
			log.Error().Err(err).Str("module", "middleware").Str("room", roomID).Msg("membership check failed")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "membership check unavailable",
			})
		}
		if !ok {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "not a room member",
			})
		}

		c.Locals("roomID", roomID)
		return c.Next()
	}
}

// RequireAdminToken X-Admin-Token must equal token. An empty token disables the route.
func RequireAdminToken(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token == "" {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "admin endpoints are disabled",
			})
		}
		given := c.Get("X-Admin-Token")
		if subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid admin token",
			})
		}
		return c.Next()
	}
}
