package main

import (
	"os"

	"bookstream/internal/config"
)

func migrationsDir() string {
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return v
	}
	return "db/migrations"
}

// databaseDSN reads the same configuration as the API server, so
// BOOKSTREAM_DATABASE_DSN and the .env files apply here too.
func databaseDSN() (string, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	return cfg.Database.DSN, nil
}
