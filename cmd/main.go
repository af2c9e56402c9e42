package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"yakudo-bot/internal/config"
	"yakudo-bot/internal/database"
	"yakudo-bot/internal/handlers"
	"yakudo-bot/internal/misskey"
	"yakudo-bot/internal/services"
	"yakudo-bot/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	// Connect to database (retried with backoff) and run migrations
	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to run migrations: ", err)
	}

	// Initialize the Misskey client; invalid credentials are fatal
	client, err := misskey.New(cfg.Instance, cfg.Token, cfg.Secure)
	if err != nil {
		log.Fatal("Failed to initialize misskey client: ", err)
	}

	scores := services.NewScoresService(db)

	// Start background workers: note monitor, follow monitor, scheduler
	workers := worker.New(client, scores, cfg.Hashtag)
	workers.Start()

	setupGracefulShutdown(workers, db)

	runServer(cfg, scores, workers)
}

func setupGracefulShutdown(workers *worker.Service, db *gorm.DB) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Received shutdown signal, gracefully shutting down...")
		workers.Stop()
		database.Close(db)
		log.Println("Shutdown complete")
		os.Exit(0)
	}()
}

func runServer(cfg *config.Config, scores *services.ScoresService, workers *worker.Service) {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	statusHandler := handlers.NewStatusHandler(scores, workers)

	r.GET("/health", statusHandler.HealthCheck)
	r.GET("/api/status", statusHandler.GetStatus)
	r.GET("/api/scores/today", statusHandler.GetTodayScores)

	log.Printf("Starting status server on %s", cfg.HTTPAddr)
	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatal("Failed to start status server: ", err)
	}
}
