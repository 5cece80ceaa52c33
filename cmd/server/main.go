package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/ayoubladame458-sys/bias-detector-ai/internal/config"
	"github.com/ayoubladame458-sys/bias-detector-ai/internal/database"
	"github.com/ayoubladame458-sys/bias-detector-ai/internal/handler"
	"github.com/ayoubladame458-sys/bias-detector-ai/internal/ollama"
)

func main() {
	// Load .env file if exists
	godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Probe the inference backend. The service starts either way, analysis
	// endpoints return 503 until Ollama comes up.
	probe := ollama.NewClient(ollama.Config{
		BaseURL:        cfg.OllamaBaseURL,
		Model:          cfg.OllamaModel,
		EmbeddingModel: cfg.OllamaEmbeddingModel,
		ProbeTimeout:   cfg.ProbeTimeout,
	})
	status := probe.GetStatus(context.Background())
	log.Printf("Ollama status: %s (%s)", status.Status, status.Message)

	// Setup router
	r := handler.SetupRouter(cfg, db)

	// Start server
	addr := cfg.Host + ":" + cfg.Port
	log.Printf("Bias Detector starting on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
		os.Exit(1)
	}
}
