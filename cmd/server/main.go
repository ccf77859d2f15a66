package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"realtime-canvas/internal/config"
	"realtime-canvas/internal/database"
	"realtime-canvas/internal/server"
)

func main() {
	cfg := config.Load()
	config.SetupLogging(cfg.Log)

	db, err := database.ConnectDB()
	if err != nil {
		log.Fatal().Err(err).Str("module", "main").Msg("database connection failed")
	}
	defer database.Close()

	if err := database.Ping(); err != nil {
		log.Fatal().Err(err).Str("module", "main").Msg("database ping failed")
	}
	log.Info().Str("module", "main").Msg("database connected")

	srv := server.New(cfg, db, server.Deps{})
	srv.SetupMiddleware()
	srv.SetupRoutes()

	// the caches must be warm before the first join
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	err = srv.Rebuild(ctx)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Str("module", "main").Msg("cache rebuild failed")
	}

	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Str("module", "main").Msg("server failed")
	}
}
