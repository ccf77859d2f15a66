package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"realtime-canvas/internal/ai"
	"realtime-canvas/internal/auth"
	"realtime-canvas/internal/canvas"
	"realtime-canvas/internal/collab"
	"realtime-canvas/internal/config"
	"realtime-canvas/internal/handler"
	"realtime-canvas/internal/hub"
	"realtime-canvas/internal/middleware"
	"realtime-canvas/internal/presence"
	"realtime-canvas/internal/repository"
	"realtime-canvas/internal/storage"
	"realtime-canvas/internal/store"
)

// Server Fiber server wrapper
type Server struct {
	app   *fiber.App
	cfg   *config.Config
	coord *collab.Coordinator
	repos *repository.Set

	canvasWSHandler *handler.CanvasWSHandler
	imageHandler    *handler.ImageHandler
	healthHandler   *handler.HealthHandler
	adminHandler    *handler.AdminHandler
	roomMiddleware  *middleware.RoomMiddleware
	jwtManager      *auth.JWTManager

	summarizer *ai.GrpcSummarizer
	presence   *presence.Manager
}

// Deps optional collaborators. Nil fields are built from cfg.
type Deps struct {
	Summarizer *ai.GrpcSummarizer
	Presence   *presence.Manager
	S3         *storage.S3Service
}

// New wires the store, caches, fabric and handlers.
func New(cfg *config.Config, db *gorm.DB, deps Deps) *Server {
	// multipart overhead on top of the image limit
	bodyLimit := cfg.Canvas.MaxImageSize + 1024*1024

	app := fiber.New(fiber.Config{
		AppName:               "Realtime Canvas",
		ServerHeader:          "Fiber",
		StrictRouting:         true,
		CaseSensitive:         true,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		Prefork:               false, // breaks WebSocket
		ReadBufferSize:        16384,
		WriteBufferSize:       16384,
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
	})

	var jwtManager *auth.JWTManager
	if cfg.Auth.Required() {
		jwtManager = auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry)
		log.Info().Str("module", "server").Msg("token authentication enabled")
	}

	if deps.S3 == nil && cfg.S3.Configured() {
		s3Service, err := storage.NewS3Service(context.Background(), cfg.S3)
		if err != nil {
			log.Warn().Err(err).Str("module", "server").Msg("s3 init failed, images stay inline")
		} else {
			deps.S3 = s3Service
		}
	}
	if deps.Presence == nil && cfg.Redis.Enabled {
		hostname, _ := os.Hostname()
		deps.Presence = presence.NewManager(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, hostname)
	}
	if deps.Summarizer == nil && cfg.AI.Enabled {
		summarizer, err := ai.NewGrpcSummarizer(cfg.AI.ServerAddr)
		if err != nil {
			log.Warn().Err(err).Str("module", "server").Msg("summarizer init failed, summaries disabled")
		} else {
			deps.Summarizer = summarizer
		}
	}

	repos := repository.NewSet(store.New(db))
	opts := collab.Options{
		StoreTimeout:   cfg.Canvas.StoreTimeout,
		MinStrokeData:  cfg.Canvas.MinStrokeDataSize,
		SummaryTimeout: cfg.AI.Timeout,
	}
	// typed nils must not leak into the interfaces
	if deps.Summarizer != nil {
		opts.Summarizer = deps.Summarizer
	}
	if deps.Presence != nil {
		opts.Presence = deps.Presence
	}
	if deps.S3 != nil {
		opts.Objects = deps.S3
	}
	coord := collab.NewCoordinator(canvas.NewCaches(), repos, hub.NewFabric(hub.NewRegistry()), opts)

	var aiState handler.ConnStater
	if deps.Summarizer != nil {
		aiState = deps.Summarizer
	}
	var redisPing handler.Pinger
	var presenceList handler.PresenceLister
	if deps.Presence != nil {
		redisPing = deps.Presence
		presenceList = deps.Presence
	}

	return &Server{
		app:             app,
		cfg:             cfg,
		coord:           coord,
		repos:           repos,
		canvasWSHandler: handler.NewCanvasWSHandler(coord, cfg.WebSocket),
		imageHandler:    handler.NewImageHandler(coord, repos.Images, deps.S3, cfg.Canvas.MaxImageSize),
		healthHandler:   handler.NewHealthHandler(db, aiState, redisPing),
		adminHandler:    handler.NewAdminHandler(coord, repos, presenceList),
		roomMiddleware:  middleware.NewRoomMiddleware(repos.Members),
		jwtManager:      jwtManager,
		summarizer:      deps.Summarizer,
		presence:        deps.Presence,
	}
}

// App underlying fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

// Coordinator sync core
func (s *Server) Coordinator() *collab.Coordinator {
	return s.coord
}

// SetupMiddleware installs recovery, logging and CORS
func (s *Server) SetupMiddleware() {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	s.app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	s.app.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORS.AllowOrigins,
		AllowHeaders:     s.cfg.CORS.AllowHeaders,
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: s.cfg.CORS.AllowOrigins != "*",
	}))
}

// SetupRoutes registers every route
func (s *Server) SetupRoutes() {
	s.app.Get("/health", s.healthHandler.Check)
	s.app.Get("/health/live", s.healthHandler.Liveness)
	s.app.Get("/health/ready", s.healthHandler.Readiness)

	uploadLimiter := limiter.New(limiter.Config{
		Max:        30,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests, please try again later",
			})
		},
	})

	imageGroup := s.app.Group("/api/image", auth.AuthMiddleware(s.jwtManager))
	imageGroup.Post("/upload", uploadLimiter, s.roomMiddleware.RequireMembership(), s.imageHandler.Upload)
	imageGroup.Get("/:roomId/:projectId/:nodeId", s.roomMiddleware.RequireMembership(), s.imageHandler.Download)

	adminGroup := s.app.Group("/admin", middleware.RequireAdminToken(s.cfg.Admin.Token))
	adminGroup.Post("/rebuild", s.adminHandler.Rebuild)
	adminGroup.Get("/rooms", s.adminHandler.Rooms)
	adminGroup.Get("/rooms/:roomId/presence", s.adminHandler.Presence)
	adminGroup.Get("/rooms/:roomId/activity", s.adminHandler.Activity)
	adminGroup.Post("/rooms/:roomId/members", s.adminHandler.AddMember)
	adminGroup.Post("/rooms/:roomId/projects", s.adminHandler.AddProject)

	s.app.Get("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		if s.jwtManager == nil {
			return c.Next()
		}

		// the upgrade is refused instead of answering JSON
		token, err := auth.TokenFromRequest(c)
		if err != nil {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		claims, err := s.jwtManager.ValidateAccessToken(token)
		if err != nil {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		c.Locals(auth.LocalUserID, claims.UserID)

		return c.Next()
	}, websocket.New(s.canvasWSHandler.HandleWebSocket, websocket.Config{
		ReadBufferSize:  s.cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: s.cfg.WebSocket.WriteBufferSize,
	}))
}

// Rebuild fills the caches from the store before traffic arrives.
func (s *Server) Rebuild(ctx context.Context) error {
	_, err := s.coord.Rebuild(ctx)
	return err
}

// Start listens until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info().Str("module", "server").Msg("shutting down")
		if err := s.Shutdown(); err != nil {
			log.Error().Err(err).Str("module", "server").Msg("shutdown failed")
		}
	}()

	log.Info().
		Str("module", "server").
		Str("addr", s.cfg.Server.Port).
		Bool("auth", s.jwtManager != nil).
		Bool("s3", s.cfg.S3.Configured()).
		Bool("redis", s.presence != nil).
		Bool("ai", s.summarizer != nil).
		Msg("realtime canvas starting")

	return s.app.Listen(s.cfg.Server.Port)
}

// Shutdown stops the listener and closes the optional clients.
func (s *Server) Shutdown() error {
	err := s.app.ShutdownWithTimeout(30 * time.Second)
	if s.summarizer != nil {
		_ = s.summarizer.Close()
	}
	if s.presence != nil {
		_ = s.presence.Close()
	}
	return err
}
