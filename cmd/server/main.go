package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"

	"shopassist/internal/app"
	"shopassist/internal/config"
	"shopassist/internal/container"
	"shopassist/internal/models"
	"shopassist/internal/utils"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		utils.LogError(ctx, "invalid configuration", err)
		os.Exit(1)
	}

	c, err := container.New(cfg)
	if err != nil {
		utils.LogError(ctx, "failed to initialize services", err)
		os.Exit(1)
	}
	defer c.Close()

	fiberApp := fiber.New(fiber.Config{
		AppName: "shopassist",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if fiberErr, ok := err.(*fiber.Error); ok {
				code = fiberErr.Code
			}
			return c.Status(code).JSON(models.ErrorResponse{
				Error:   "internal_error",
				Message: err.Error(),
			})
		},
	})

	app.SetupRoutes(fiberApp, c)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		utils.LogInfo(ctx, "shutting down")
		fiberApp.Shutdown()
	}()

	utils.LogInfo(ctx, "server starting", slog.String("port", cfg.Port))
	if err := fiberApp.Listen(":" + cfg.Port); err != nil {
		utils.LogError(ctx, "server stopped", err)
		os.Exit(1)
	}
}
