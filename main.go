package main

import (
	"log"
	"os"

	"docforms/cmd"
	"docforms/internal/config"
	"docforms/internal/logger"
)

func main() {
	// Load configuration (.env, docforms.yaml, DOCFORMS_* variables)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger with configuration
	if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	log := logger.WithComponent("main")
	log.Debug().Msg("Starting docforms")

	cmd.Execute(cfg)

	log.Debug().Msg("docforms shutdown")
	os.Exit(0)
}
