package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"tareas_api/internal/config"
	"tareas_api/internal/db"
	"tareas_api/internal/logger"
)

func main() {
	command := flag.String("command", db.MigrateStatus, "goose command: up, down or status")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", "error", err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, *command); err != nil {
		logger.Fatal("migration failed", "error", err)
	}
}
