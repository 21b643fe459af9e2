package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/dimenwarper/rootsearch/internal/server"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "rootsearch"})

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found, using environment")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv, err := server.NewServer(logger)
	if err != nil {
		logger.Fatal("failed to initialize server", "err", err)
	}
	r := srv.SetupRouter()

	logger.Info("starting server", "port", port)
	if err := r.Run(":" + port); err != nil {
		logger.Fatal("server exited", "err", err)
	}
}
