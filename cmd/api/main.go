package main

import (
	"log"

	"studyassist-backend/internal/bootstrap"
	"studyassist-backend/internal/shared/config"
	"studyassist-backend/internal/shared/server"
	"studyassist-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.Configure(cfg.LogFormat)

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}

	addr := server.Addr(cfg.Port)
	log.Printf("Starting API server on %s", addr)

	if err := app.Router.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
