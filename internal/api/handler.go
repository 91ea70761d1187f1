package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/MahdiHaeri/Cloud-Practice-1/internal/arbitrage"
	"github.com/MahdiHaeri/Cloud-Practice-1/pkg/model"
)

// PriceReader is the read-only slice of the store the API serves from.
type PriceReader interface {
	LatestPrice(ctx context.Context, exchange, symbol string) (*model.QuotedPrice, error)
	PriceHistory(ctx context.Context, asset string, limit int) ([]model.QuotedPrice, error)
	PricesByExchangeRange(ctx context.Context, exchange string, start, end time.Time) ([]model.QuotedPrice, error)
}

// SpreadChecker runs one on-demand comparison for an asset.
type SpreadChecker interface {
	Check(ctx context.Context, asset string) (arbitrage.Opportunity, error)
}

// MetricsReporter exposes the counters/gauges summary.
type MetricsReporter interface {
	Summary() map[string]any
}

// Handler serves the price query and reporting endpoints.
type Handler struct {
	logger  *zap.Logger
	prices  PriceReader
	checker SpreadChecker
	metrics MetricsReporter
}

func NewHandler(logger *zap.Logger, prices PriceReader, checker SpreadChecker, metrics MetricsReporter) *Handler {
	return &Handler{
		logger:  logger,
		prices:  prices,
		checker: checker,
		metrics: metrics,
	}
}

// LatestPriceHandler serves the newest snapshot for one exchange/symbol.
func (h *Handler) LatestPriceHandler(c *fiber.Ctx) error {
	exchange := c.Query("exchange")
	symbol := c.Query("symbol")
	if exchange == "" || symbol == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "exchange and symbol query parameters are required",
		})
	}

	price, err := h.prices.LatestPrice(c.Context(), exchange, symbol)
	if err != nil {
		h.logger.Error("api.latest_price.failed",
			zap.String("exchange", exchange),
			zap.String("symbol", symbol),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup failed"})
	}
	if price == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "no price recorded for this exchange and symbol",
		})
	}
	return c.JSON(price)
}

// PriceHistoryHandler serves snapshots for an asset, newest first.
func (h *Handler) PriceHistoryHandler(c *fiber.Ctx) error {
	asset := c.Params("asset")
	limit := c.QueryInt("limit", 100)

	prices, err := h.prices.PriceHistory(c.Context(), asset, limit)
	if err != nil {
		h.logger.Error("api.price_history.failed", zap.String("asset", asset), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup failed"})
	}
	return c.JSON(fiber.Map{
		"asset":  asset,
		"count":  len(prices),
		"prices": prices,
	})
}

// PriceRangeHandler serves one exchange's snapshots within a time range.
func (h *Handler) PriceRangeHandler(c *fiber.Ctx) error {
	exchange := c.Query("exchange")
	if exchange == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "exchange query parameter is required",
		})
	}

	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "start must be RFC3339"})
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "end must be RFC3339"})
	}
	if end.Before(start) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "end is before start"})
	}

	prices, err := h.prices.PricesByExchangeRange(c.Context(), exchange, start, end)
	if err != nil {
		h.logger.Error("api.price_range.failed", zap.String("exchange", exchange), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup failed"})
	}
	return c.JSON(fiber.Map{
		"exchange": exchange,
		"count":    len(prices),
		"prices":   prices,
	})
}

// ArbitrageCheckHandler runs one on-demand spread comparison.
func (h *Handler) ArbitrageCheckHandler(c *fiber.Ctx) error {
	asset := c.Params("asset")

	opp, err := h.checker.Check(c.Context(), asset)
	if err != nil {
		h.logger.Warn("api.arbitrage_check.failed", zap.String("asset", asset), zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(opp)
}

// MetricsSummaryHandler serves the JSON counters/gauges summary.
func (h *Handler) MetricsSummaryHandler(c *fiber.Ctx) error {
	return c.JSON(h.metrics.Summary())
}
