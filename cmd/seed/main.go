package main

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"bookstream/internal/catalog"
	"bookstream/internal/config"
	"bookstream/internal/entity"
	"bookstream/internal/logging"
)

// seedBooks are inserted unless a book with the same title and author exists.
var seedBooks = []catalog.Book{
	{
		Title:       "A Carteira",
		Author:      "Machado de Assis",
		Year:        entity.IntPtr(1860),
		PageCount:   entity.IntPtr(4),
		Description: "Um conto de Machado de Assis.",
		Language:    "pt",
		Source:      string(entity.SourceLocal),
	},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(cfg.Logging)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	inserted, err := seed(ctx, catalog.NewPostgresRepo(pool), seedBooks)
	if err != nil {
		logging.Fatal().Err(err).Msg("seed failed")
	}
	logging.Info().Int("inserted", inserted).Int("total", len(seedBooks)).Msg("seed complete")
}

func seed(ctx context.Context, repo catalog.Repository, books []catalog.Book) (int, error) {
	inserted := 0
	for _, b := range books {
		existing, err := repo.List(ctx, catalog.SearchQuery{Q: b.Title})
		if err != nil {
			return inserted, err
		}
		if contains(existing, b) {
			logging.Info().Str("title", b.Title).Msg("already seeded")
			continue
		}
		if err := repo.Create(ctx, &b); err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

func contains(books []catalog.Book, b catalog.Book) bool {
	for _, e := range books {
		if strings.EqualFold(e.Title, b.Title) && strings.EqualFold(e.Author, b.Author) {
			return true
		}
	}
	return false
}
