package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MahdiHaeri/Cloud-Practice-1/internal/store"
)

func RegisterRoutes(app *fiber.App, registry *prometheus.Registry, st store.Store, handler *Handler) {
	app.Get("/metrics", adaptor.HTTPHandler(
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		checks := map[string]string{
			"store": "ok",
		}
		status := "ok"
		code := fiber.StatusOK

		healthCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := st.HealthCheck(healthCtx); err != nil {
			checks["store"] = err.Error()
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		}

		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	})

	// API routes
	v1 := app.Group("/api/v1")
	v1.Get("/prices/latest", handler.LatestPriceHandler)
	v1.Get("/prices/history/:asset", handler.PriceHistoryHandler)
	v1.Get("/prices/range", handler.PriceRangeHandler)
	v1.Get("/arbitrage/:asset", handler.ArbitrageCheckHandler)
	v1.Get("/metrics", handler.MetricsSummaryHandler)
}
