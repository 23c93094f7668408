package app

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"shopassist/internal/container"
	"shopassist/internal/handlers"
	"shopassist/internal/middleware"
)

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App, c *container.Container) {
	// Prometheus metrics endpoint (no auth required for scraping)
	metricsHandler := handlers.NewMetricsHandler()
	app.Get("/metrics", metricsHandler.GetMetrics)

	// Health check
	app.Get("/health", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"status":    "ok",
			"timestamp": time.Now(),
			"services":  c.HealthCheck(),
		})
	})

	api := app.Group("/api", middleware.PrometheusMiddleware())

	setupWebSocketRoutes(app, c)
	setupChatRoutes(api, c)
	setupAdminRoutes(api, c)
}

func setupWebSocketRoutes(app *fiber.App, c *container.Container) {
	wsHandler := handlers.NewWSHandler(c)
	wsRateLimiter := middleware.WebSocketRateLimiter(c.Redis, 30) // Max 30 connections per minute per IP

	app.Use("/ws", wsRateLimiter, func(ctx *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(ctx) {
			ctx.Locals("allowed", true)
			return ctx.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		wsHandler.HandleWebSocket(conn)
	}, websocket.Config{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}))
}

func setupChatRoutes(api fiber.Router, c *container.Container) {
	chatHandler := handlers.NewChatHandler(c)
	chatRateLimiter := middleware.RateLimiter(middleware.RateLimiterConfig{
		Redis:     c.Redis,
		Max:       60,
		Window:    time.Minute,
		KeyPrefix: "chat_limit:",
		Message:   "Too many messages, please slow down",
	})

	api.Post("/chat", chatRateLimiter, chatHandler.HandleChat)
	api.Get("/sessions", chatHandler.ListSessions)
}

func setupAdminRoutes(api fiber.Router, c *container.Container) {
	adminHandler := handlers.NewAdminHandler(c)
	adminRateLimiter := middleware.AdminRateLimiter(c.Redis, c.Config.AdminRateLimit, c.Config.AdminRateWindow)

	admin := api.Group("/admin", adminRateLimiter)

	admin.Get("/responses", adminHandler.ListResponses)
	admin.Put("/responses", adminHandler.UpsertResponse)
	admin.Delete("/responses/:trigger", adminHandler.DeleteResponse)
	admin.Post("/responses/import", adminHandler.ImportResponses)
	admin.Get("/responses/export", adminHandler.ExportResponses)

	admin.Get("/unknown-questions", adminHandler.ListUnknownQuestions)
	admin.Post("/unknown-questions/:normalized/promote", adminHandler.PromoteUnknownQuestion)
	admin.Delete("/unknown-questions/:normalized", adminHandler.DiscardUnknownQuestion)

	admin.Get("/products", adminHandler.ListProducts)
	admin.Post("/products", adminHandler.CreateProduct)
	admin.Put("/products/:id", adminHandler.UpdateProduct)
	admin.Delete("/products/:id", adminHandler.DeleteProduct)
	admin.Post("/products/import", adminHandler.ImportProducts)
	admin.Get("/products/export", adminHandler.ExportProducts)

	admin.Get("/site-content", adminHandler.ListSiteContent)
	admin.Post("/site-content", adminHandler.CreateSiteContent)
	admin.Delete("/site-content/:id", adminHandler.DeleteSiteContent)
	admin.Post("/site-content/import", adminHandler.ImportSiteContent)
	admin.Get("/site-content/export", adminHandler.ExportSiteContent)

	admin.Get("/quick-messages", adminHandler.ListQuickMessages)
	admin.Post("/quick-messages", adminHandler.CreateQuickMessage)
	admin.Delete("/quick-messages/:id", adminHandler.DeleteQuickMessage)
}
