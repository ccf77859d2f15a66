package handler

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"realtime-canvas/internal/collab"
	"realtime-canvas/internal/repository"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 500
)

// PresenceLister cluster-wide room membership, e.g. Redis
type PresenceLister interface {
	Members(ctx context.Context, roomID string) ([]string, error)
}

// AdminHandler operator endpoints
type AdminHandler struct {
	coord    *collab.Coordinator
	repos    *repository.Set
	presence PresenceLister
}

// NewAdminHandler creates an AdminHandler. presence may be nil.
func NewAdminHandler(coord *collab.Coordinator, repos *repository.Set, presence PresenceLister) *AdminHandler {
	return &AdminHandler{coord: coord, repos: repos, presence: presence}
}

// Rebuild reloads every cache from the store
func (h *AdminHandler) Rebuild(c *fiber.Ctx) error {
	stats, err := h.coord.Rebuild(c.UserContext())
	if err != nil {
		log.Error().Err(err).Str("module", "handler.admin").Msg("rebuild failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "rebuild failed",
		})
	}
	return c.JSON(stats)
}

// Rooms live rooms of this process
func (h *AdminHandler) Rooms(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"rooms": h.coord.Registry().Rooms(),
	})
}

// Presence users of a room across every server
func (h *AdminHandler) Presence(c *fiber.Ctx) error {
	if h.presence == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "presence is not configured",
		})
	}
	roomID := c.Params("roomId")
	users, err := h.presence.Members(c.UserContext(), roomID)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "presence lookup failed",
		})
	}
	return c.JSON(fiber.Map{
		"roomId": roomID,
		"local":  h.coord.Registry().Users(roomID),
		"users":  users,
	})
}

// Activity newest log entries of a project
func (h *AdminHandler) Activity(c *fiber.Ctx) error {
	roomID := c.Params("roomId")
	projectID := c.Query("projectId")
	if projectID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "projectId is required",
		})
	}

	limit := c.QueryInt("limit", defaultActivityLimit)
	if limit <= 0 || limit > maxActivityLimit {
		limit = defaultActivityLimit
	}

	entries, err := h.repos.Activity.Recent(c.UserContext(), roomID, projectID, limit)
	if err != nil {
		log.Error().Err(err).Str("module", "handler.admin").Str("room", roomID).Msg("activity query failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load activity",
		})
	}
	return c.JSON(fiber.Map{
		"roomId":    roomID,
		"projectId": projectID,
		"entries":   entries,
	})
}

// AddMemberRequest member grant
type AddMemberRequest struct {
	UserID string `json:"userId"`
}

// AddMember grants room membership
func (h *AdminHandler) AddMember(c *fiber.Ctx) error {
	var req AddMemberRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.UserID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "userId is required",
		})
	}

	roomID := c.Params("roomId")
	if err := h.repos.Members.AddMember(c.UserContext(), roomID, req.UserID); err != nil {
		log.Error().Err(err).Str("module", "handler.admin").Str("room", roomID).Msg("add member failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to add member",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"roomId": roomID,
		"userId": req.UserID,
	})
}

// AddProject creates a project in a room
func (h *AdminHandler) AddProject(c *fiber.Ctx) error {
	var req repository.ProjectInfo
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "name is required",
		})
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	roomID := c.Params("roomId")
	if err := h.repos.Members.AddProject(c.UserContext(), roomID, req); err != nil {
		log.Error().Err(err).Str("module", "handler.admin").Str("room", roomID).Msg("add project failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to add project",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(req)
}
