package exchange

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/MahdiHaeri/Cloud-Practice-1/internal/httpclient"
	"github.com/MahdiHaeri/Cloud-Practice-1/internal/metrics"
	"github.com/MahdiHaeri/Cloud-Practice-1/internal/rate"
	"github.com/MahdiHaeri/Cloud-Practice-1/pkg/model"
)

const (
	nobitexName        = "nobitex"
	nobitexQuoteSuffix = "IRT" // Nobitex quotes in Rial
	// nobitexUnitsPerToman converts Rial quotes into the Toman reference
	// unit. Venue-declared metadata, not a shared constant: a third
	// exchange may carry a different factor.
	nobitexUnitsPerToman = 10
)

type nobitexOrderbook struct {
	Status         string     `json:"status"`
	Bids           [][]string `json:"bids"`
	Asks           [][]string `json:"asks"`
	LastUpdate     int64      `json:"lastUpdate"`
	LastTradePrice string     `json:"lastTradePrice"`
}

// NobitexClient fetches quotes from the per-symbol Nobitex orderbook
// endpoint. Best bid/ask come from the top of book; prices arrive in Rial
// and are normalized to Toman.
type NobitexClient struct {
	logger  *zap.Logger
	exec    *httpclient.Executor
	metrics *metrics.Metrics
	baseURL string
}

// NewNobitexClient constructs a Nobitex client.
func NewNobitexClient(logger *zap.Logger, baseURL string, rateMgr *rate.Manager, m *metrics.Metrics) *NobitexClient {
	httpClient := &http.Client{Timeout: 10 * time.Second}
	return &NobitexClient{
		logger:  logger,
		exec:    httpclient.New(logger, rateMgr, httpClient, nobitexName),
		metrics: m,
		baseURL: baseURL,
	}
}

func (c *NobitexClient) Name() string { return nobitexName }

// Fetch retrieves the Nobitex orderbook for asset.
func (c *NobitexClient) Fetch(ctx context.Context, asset string) (*model.QuotedPrice, error) {
	symbol := strings.ToUpper(asset) + nobitexQuoteSuffix
	url := fmt.Sprintf("%s/v3/orderbook/%s", c.baseURL, symbol)

	var book nobitexOrderbook
	latency, err := c.exec.GetJSON(ctx, url, &book)
	if err != nil {
		c.metrics.RecordFailure(nobitexName, latency)
		return nil, classify(nobitexName, err)
	}

	// Nobitex reports unknown symbols as a 200 with a non-ok status.
	if !strings.EqualFold(book.Status, "ok") {
		c.metrics.RecordFailure(nobitexName, latency)
		c.logger.Warn("nobitex.symbol_not_listed",
			zap.String("symbol", symbol),
			zap.String("status", book.Status))
		return nil, &FetchError{
			Exchange: nobitexName,
			Kind:     FailureSymbolNotFound,
			Err:      fmt.Errorf("orderbook status %q for %s", book.Status, symbol),
		}
	}

	bid := topOfBook(book.Bids)
	ask := topOfBook(book.Asks)
	last := parsePrice(book.LastTradePrice)

	// An empty book still yields a quote when a last trade price exists.
	if !bid.Valid && !ask.Valid {
		bid = last
		ask = last
	}

	if !bid.Valid && !ask.Valid && !last.Valid {
		c.metrics.RecordFailure(nobitexName, latency)
		return nil, &FetchError{
			Exchange: nobitexName,
			Kind:     FailureUnparseable,
			Err:      fmt.Errorf("orderbook for %s carries no usable price fields", symbol),
		}
	}

	c.metrics.RecordSuccess(nobitexName, latency)

	return &model.QuotedPrice{
		Exchange:      nobitexName,
		Symbol:        symbol,
		Asset:         strings.ToUpper(asset),
		QuoteCurrency: nobitexQuoteSuffix,
		Bid:           toToman(bid, nobitexUnitsPerToman),
		Ask:           toToman(ask, nobitexUnitsPerToman),
		Last:          toToman(last, nobitexUnitsPerToman),
		ObservedAt:    time.Now().UTC(),
		FetchLatency:  latency,
	}, nil
}

// topOfBook extracts the price of the best level; levels arrive as
// [price, amount] string pairs.
func topOfBook(levels [][]string) decimal.NullDecimal {
	if len(levels) == 0 || len(levels[0]) == 0 {
		return decimal.NullDecimal{}
	}
	return parsePrice(levels[0][0])
}
