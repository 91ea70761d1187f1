package exchange

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MahdiHaeri/Cloud-Practice-1/internal/httpclient"
	"github.com/MahdiHaeri/Cloud-Practice-1/internal/metrics"
	"github.com/MahdiHaeri/Cloud-Practice-1/internal/rate"
	"github.com/MahdiHaeri/Cloud-Practice-1/pkg/model"
)

const (
	wallexName        = "wallex"
	wallexQuoteSuffix = "TMN" // Wallex quotes directly in Toman
)

type wallexResponse struct {
	Result *wallexResult `json:"result"`
}

type wallexResult struct {
	Markets []wallexMarket `json:"markets"`
}

type wallexMarket struct {
	Symbol     string           `json:"symbol"`
	BaseAsset  string           `json:"base_asset"`
	QuoteAsset string           `json:"quote_asset"`
	Price      string           `json:"price"`
	FairPrice  *wallexFairPrice `json:"fair_price"`
}

type wallexFairPrice struct {
	Bid string `json:"bid"`
	Ask string `json:"ask"`
}

// WallexClient fetches quotes from the Wallex market listing endpoint.
// Wallex returns every market in one response, so the client scans the
// listing for the requested symbol.
type WallexClient struct {
	logger  *zap.Logger
	exec    *httpclient.Executor
	metrics *metrics.Metrics
	baseURL string
}

// NewWallexClient constructs a Wallex client.
func NewWallexClient(logger *zap.Logger, baseURL string, rateMgr *rate.Manager, m *metrics.Metrics) *WallexClient {
	httpClient := &http.Client{Timeout: 10 * time.Second}
	return &WallexClient{
		logger:  logger,
		exec:    httpclient.New(logger, rateMgr, httpClient, wallexName),
		metrics: m,
		baseURL: baseURL,
	}
}

func (c *WallexClient) Name() string { return wallexName }

// Fetch retrieves the Wallex market listing and extracts the quote for
// asset. The fair bid/ask pair is preferred; the last trade price fills in
// for both sides when Wallex does not expose one.
func (c *WallexClient) Fetch(ctx context.Context, asset string) (*model.QuotedPrice, error) {
	symbol := strings.ToUpper(asset) + wallexQuoteSuffix
	url := fmt.Sprintf("%s/hector/web/v1/markets", c.baseURL)

	var resp wallexResponse
	latency, err := c.exec.GetJSON(ctx, url, &resp)
	if err != nil {
		c.metrics.RecordFailure(wallexName, latency)
		return nil, classify(wallexName, err)
	}

	if resp.Result == nil || len(resp.Result.Markets) == 0 {
		c.metrics.RecordFailure(wallexName, latency)
		return nil, &FetchError{
			Exchange: wallexName,
			Kind:     FailureUnparseable,
			Err:      fmt.Errorf("markets listing empty"),
		}
	}

	// Linear scan, case-insensitive, first match wins.
	var market *wallexMarket
	for i := range resp.Result.Markets {
		if strings.EqualFold(resp.Result.Markets[i].Symbol, symbol) {
			market = &resp.Result.Markets[i]
			break
		}
	}
	if market == nil {
		c.metrics.RecordFailure(wallexName, latency)
		c.logger.Warn("wallex.symbol_not_listed", zap.String("symbol", symbol))
		return nil, &FetchError{
			Exchange: wallexName,
			Kind:     FailureSymbolNotFound,
			Err:      fmt.Errorf("symbol %s not listed", symbol),
		}
	}

	last := parsePrice(market.Price)
	bid := last
	ask := last
	if market.FairPrice != nil {
		if fair := parsePrice(market.FairPrice.Bid); fair.Valid {
			bid = fair
		}
		if fair := parsePrice(market.FairPrice.Ask); fair.Valid {
			ask = fair
		}
	}

	if !bid.Valid && !ask.Valid && !last.Valid {
		c.metrics.RecordFailure(wallexName, latency)
		return nil, &FetchError{
			Exchange: wallexName,
			Kind:     FailureUnparseable,
			Err:      fmt.Errorf("market %s carries no usable price fields", symbol),
		}
	}

	c.metrics.RecordSuccess(wallexName, latency)

	return &model.QuotedPrice{
		Exchange:      wallexName,
		Symbol:        symbol,
		Asset:         strings.ToUpper(asset),
		QuoteCurrency: wallexQuoteSuffix,
		Bid:           bid,
		Ask:           ask,
		Last:          last,
		ObservedAt:    time.Now().UTC(),
		FetchLatency:  latency,
	}, nil
}
