package main

import (
	"context"
	"log"
	"os"

	"github.com/gofiber/fiber/v2"

	"warmbox/config"
	"warmbox/mailer"
	"warmbox/middleware"
	"warmbox/routes"
	"warmbox/utils"
	"warmbox/warmup"
	"warmbox/worker"
)

func main() {
	logger := log.New(os.Stdout, "WARMBOX: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	if err := utils.InitLogging(); err != nil {
		logger.Printf("Failed to initialize error reporting: %v", err)
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Create Fiber app
	app := fiber.New()
	app.Use(middleware.CORS())

	// Wire the warmup engine: gorm storage + SMTP/IMAP transport
	mailClient := mailer.NewClient(log.New(os.Stdout, "MAILER: ", log.LstdFlags))
	engine := warmup.NewEngine(
		warmup.NewGormStore(config.DB),
		mailClient,
		log.New(os.Stdout, "WARMUP: ", log.LstdFlags),
	)

	// Start the cycle worker
	hub := worker.NewHub()
	warmupWorker := worker.NewWarmupWorker(engine, hub, logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go warmupWorker.Start(ctx)

	// Setup routes
	routes.SetupRoutes(app, config.DB, engine, mailClient, hub)

	// Start server
	logger.Printf("Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
