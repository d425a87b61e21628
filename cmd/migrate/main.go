// Command migrate applies Tessera schema migrations.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/tessera-io/tessera/internal/db"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		dbURL   = flag.String("db", "", "database URL (falls back to DATABASE_URL)")
		showVer = flag.Bool("version", false, "print current schema version and exit")
		list    = flag.Bool("list", false, "list bundled migrations and exit")
	)
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger()

	if *list {
		return listMigrations(logger)
	}

	url := *dbURL
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		logger.Error().Msg("database URL required: use -db flag or set DATABASE_URL")
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cfg := db.DefaultConfig(url)
	cfg.MaxConns = 5
	cfg.MinConns = 1

	database, err := db.New(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return 1
	}
	defer database.Close()

	if *showVer {
		version, err := database.CurrentVersion(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("failed to read schema version")
			return 1
		}
		fmt.Printf("schema version: %d\n", version)
		return 0
	}

	logger.Info().Msg("applying migrations")
	if err := database.Migrate(ctx); err != nil {
		logger.Error().Err(err).Msg("migration failed")
		return 1
	}

	version, err := database.CurrentVersion(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("could not read schema version")
		return 0
	}
	logger.Info().Int("version", version).Msg("migrations complete")
	return 0
}

func listMigrations(logger zerolog.Logger) int {
	migrations, err := db.GetMigrations()
	if err != nil {
		logger.Error().Err(err).Msg("failed to load migrations")
		return 1
	}

	if len(migrations) == 0 {
		fmt.Println("no migrations bundled")
		return 0
	}

	for _, m := range migrations {
		fmt.Printf("%03d  %s\n", m.Version, m.Name)
	}
	return 0
}
