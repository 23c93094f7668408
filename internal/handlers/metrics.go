package handlers

import (
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shopassist/internal/utils"
)

// MetricsHandler exposes the Prometheus scrape endpoint.
type MetricsHandler struct {
	handler fiber.Handler
}

func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{
		handler: adaptor.HTTPHandler(promhttp.Handler()),
	}
}

func (h *MetricsHandler) GetMetrics(c *fiber.Ctx) error {
	err := h.handler(c)
	if err != nil {
		utils.LogError(c.UserContext(), "metrics handler error", err,
			slog.Int("status", c.Response().StatusCode()),
		)
	}
	return err
}
