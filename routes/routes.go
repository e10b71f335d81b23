package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"gorm.io/gorm"

	controller "warmbox/controllers"
	"warmbox/mailer"
	"warmbox/middleware"
	"warmbox/warmup"
	"warmbox/worker"
)

func SetupAuthRoutes(app *fiber.App) {
	auth := app.Group("/auth", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Public auth endpoints
	auth.Post("/register", controller.Register)
	auth.Post("/login", controller.Login)
	auth.Post("/refresh", controller.RefreshToken)

	// Google OAuth routes
	auth.Get("/google", controller.GoogleOAuth)
	auth.Get("/google/callback", controller.GoogleOAuthCallback)

	// Protected auth endpoints
	protectedAuth := auth.Group("", middleware.Protected())
	protectedAuth.Post("/logout", controller.Logout)
	protectedAuth.Post("/change-password", controller.ChangePassword)
	protectedAuth.Get("/me", controller.GetCurrentUser)
}

func SetupAPIRoutes(app *fiber.App, db *gorm.DB, engine *warmup.Engine, mc *mailer.Client, hub *worker.Hub) {
	accountController := controller.NewAccountController(db, mc, log.New(os.Stdout, "ACCOUNT: ", log.LstdFlags))
	warmupController := controller.NewWarmupController(db, engine, hub, log.New(os.Stdout, "WARMUP: ", log.LstdFlags))
	dnsController := controller.NewDNSController(db, log.New(os.Stdout, "DNS: ", log.LstdFlags))

	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Email account routes
	account := api.Group("/accounts")
	account.Post("/", accountController.CreateEmailAccount)
	account.Get("/", accountController.GetEmailAccounts)
	account.Get("/:id", accountController.GetEmailAccount)
	account.Put("/:id", accountController.UpdateEmailAccount)
	account.Delete("/:id", accountController.DeleteEmailAccount)
	account.Post("/:id/verify", middleware.ManualRunRateLimiter(), accountController.VerifyEmailAccount)

	// DNS record routes
	account.Get("/:id/dns", dnsController.GetDNSRecords)
	account.Post("/:id/dns/verify", dnsController.VerifyDNSRecords)

	// Warmup routes
	wu := api.Group("/warmup")
	wu.Get("/configs", warmupController.GetWarmupConfigs)
	wu.Post("/configs", warmupController.CreateWarmupConfig)
	wu.Get("/configs/:id", warmupController.GetWarmupConfig)
	wu.Put("/configs/:id", warmupController.UpdateWarmupConfig)
	wu.Post("/toggle/:id", warmupController.ToggleWarmup)
	wu.Post("/run/:id", middleware.ManualRunRateLimiter(), warmupController.RunWarmupForAccount)
	wu.Post("/run", middleware.AdminOnly(), warmupController.RunWarmupCycle)
	wu.Get("/status/:id", warmupController.GetWarmupStatus)
	wu.Get("/stats/:id", warmupController.GetWarmupStats)

	// WebSocket route for warmup cycle progress
	app.Get("/api/v1/warmup/progress", websocket.New(controller.HandleWarmupProgressWS(hub)))
}

func SetupRoutes(app *fiber.App, db *gorm.DB, engine *warmup.Engine, mc *mailer.Client, hub *worker.Hub) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	SetupAuthRoutes(app)
	SetupAPIRoutes(app, db, engine, mc, hub)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
