package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Pinger anything with a reachability check, e.g. the Redis presence mirror
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnStater reports a client connection state, e.g. the gRPC summarizer
type ConnStater interface {
	State() string
}

// HealthHandler health checks
type HealthHandler struct {
	db    *gorm.DB
	ai    ConnStater
	redis Pinger
}

// NewHealthHandler creates a HealthHandler. ai and redis may be nil when disabled.
func NewHealthHandler(db *gorm.DB, ai ConnStater, redis Pinger) *HealthHandler {
	return &HealthHandler{db: db, ai: ai, redis: redis}
}

// ComponentCheck component status
type ComponentCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse health reply
type HealthResponse struct {
	Status    string                    `json:"status"`
	Timestamp string                    `json:"timestamp"`
	Checks    map[string]ComponentCheck `json:"checks"`
}

func (h *HealthHandler) pingDB(ctx context.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Check database, summarizer and redis
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Checks:    make(map[string]ComponentCheck),
	}

	dbStart := time.Now()
	if err := h.pingDB(ctx); err != nil {
		response.Status = "unhealthy"
		response.Checks["database"] = ComponentCheck{
			Status: "unhealthy",
			Error:  "database ping failed",
		}
	} else {
		response.Checks["database"] = ComponentCheck{
			Status:  "healthy",
			Latency: time.Since(dbStart).String(),
		}
	}

	// summarizer and presence are optional, so they only degrade
	if h.ai != nil {
		switch state := h.ai.State(); state {
		case "READY", "IDLE", "CONNECTING":
			response.Checks["ai_server"] = ComponentCheck{Status: "healthy"}
		default:
			response.Checks["ai_server"] = ComponentCheck{
				Status: "degraded",
				Error:  "AI server " + state,
			}
		}
	} else {
		response.Checks["ai_server"] = ComponentCheck{Status: "not_configured"}
	}

	if h.redis != nil {
		redisStart := time.Now()
		if err := h.redis.Ping(ctx); err != nil {
			response.Checks["redis"] = ComponentCheck{
				Status: "degraded",
				Error:  "redis unreachable",
			}
		} else {
			response.Checks["redis"] = ComponentCheck{
				Status:  "healthy",
				Latency: time.Since(redisStart).String(),
			}
		}
	} else {
		response.Checks["redis"] = ComponentCheck{Status: "not_configured"}
	}

	statusCode := fiber.StatusOK
	if response.Status == "unhealthy" {
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(response)
}

// Liveness liveness probe
func (h *HealthHandler) Liveness(c *fiber.Ctx) error {
	return c.SendString("OK")
}

// Readiness readiness probe (database only)
func (h *HealthHandler) Readiness(c *fiber.Ctx) error {
	if err := h.pingDB(c.UserContext()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).SendString("NOT READY")
	}
	return c.SendString("READY")
}
