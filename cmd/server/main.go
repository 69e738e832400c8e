package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/csg33k/taxforms/internal/adapters/sqlite"
	"github.com/csg33k/taxforms/internal/config"
	"github.com/csg33k/taxforms/internal/handlers"
	"github.com/csg33k/taxforms/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("error loading .env file", "err", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	repo, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer repo.Close()
	if err := repo.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("failed to create schema: %v", err)
	}

	svc := service.New(repo, service.Config{
		Workers:             cfg.BulkWorkers,
		Strict1099Threshold: cfg.Strict1099Threshold,
		DefaultTaxYear:      cfg.DefaultTaxYear,
	}, logger)
	h := handlers.New(repo, svc)

	log.Printf("Tax form generator running on http://localhost:%s", cfg.Port)
	log.Printf("Database: %s", cfg.DBPath)
	if err := http.ListenAndServe(":"+cfg.Port, h.Routes()); err != nil {
		log.Fatal(err)
	}
}
