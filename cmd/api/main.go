package main

import (
	"context"
	"log"

	"placement-backend/internal/bootstrap"
	"placement-backend/internal/shared/config"
	"placement-backend/internal/shared/server"
	"placement-backend/internal/shared/storage/db"
)

func main() {
	cfg := config.Load()
	app, err := bootstrap.Build(context.Background(), cfg, db.DefaultServerOptions())
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	addr := server.Addr(cfg.Port)
	log.Printf("Starting API server on %s", addr)

	if err := app.Router.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
