package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"realtime-canvas/internal/canvas"
	"realtime-canvas/internal/config"
	"realtime-canvas/internal/database"
	"realtime-canvas/internal/model"
	"realtime-canvas/internal/repository"
	"realtime-canvas/internal/store"
)

func main() {
	dryRun := flag.Bool("rebuild-dry-run", false, "load every cache from the store and report the counts")
	flag.Parse()

	config.SetupLogging(config.LogConfig{Level: "info"})

	if err := godotenv.Load(); err != nil {
		log.Info().Str("module", "check_db").Msg("no .env file found, using environment variables")
	}

	db, err := gorm.Open(postgres.Open(database.LoadConfig().DSN()), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Str("module", "check_db").Msg("failed to connect to database")
	}

	fmt.Println("Connected to database")
	fmt.Println()

	missing := 0
	fmt.Printf("%-16s %10s\n", "TABLE", "ROWS")
	for _, m := range model.All() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(m); err != nil {
			log.Fatal().Err(err).Str("module", "check_db").Msg("failed to parse model")
		}
		table := stmt.Schema.Table

		if !db.Migrator().HasTable(m) {
			fmt.Printf("%-16s %10s\n", table, "missing")
			missing++
			continue
		}

		var count int64
		if err := db.Model(m).Count(&count).Error; err != nil {
			log.Fatal().Err(err).Str("module", "check_db").Str("table", table).Msg("failed to count rows")
		}
		fmt.Printf("%-16s %10d\n", table, count)
	}

	if missing > 0 {
		fmt.Printf("\n%d table(s) missing; start the server once to migrate\n", missing)
		os.Exit(1)
	}

	if !*dryRun {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	start := time.Now()
	stats, err := canvas.NewCaches().Rebuild(ctx, repository.NewSet(store.New(db)))
	if err != nil {
		log.Fatal().Err(err).Str("module", "check_db").Msg("rebuild failed")
	}

	fmt.Println()
	fmt.Printf("Rebuild OK in %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("  texts:   %d\n", stats.Texts)
	fmt.Printf("  polls:   %d\n", stats.Polls)
	fmt.Printf("  images:  %d\n", stats.Images)
	fmt.Printf("  strokes: %d\n", stats.Strokes)
}
