package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

// discoveryWindow is the trailing window for the discovery-rate gauge.
const discoveryWindow = 60 * time.Second

// Metrics is the single process-wide instrumentation instance. It keeps
// authoritative counters/gauges in memory (served as JSON by the summary
// endpoint) and mirrors every update into a dedicated Prometheus registry.
// All update paths are safe for concurrent use by both exchange fetch
// goroutines.
type Metrics struct {
	registry *prometheus.Registry
	now      func() time.Time

	requestsTotal *prometheus.CounterVec
	responseTime  *prometheus.HistogramVec
	latestPrice   *prometheus.GaugeVec

	checksTotal      prometheus.Counter
	discoveriesTotal prometheus.Counter
	latestSpreadPct  prometheus.Gauge
	latestProfitAmt  prometheus.Gauge
	discoveryGauge   prometheus.Gauge

	checks      atomic.Int64
	discoveries atomic.Int64

	// reset-based trailing-window rate: advisory, not billing-grade
	rateCount   atomic.Int64
	rateResetAt atomic.Int64 // unix millis of the last window reset

	mu           sync.RWMutex
	exchanges    map[string]*exchangeStats
	latestSpread decimal.Decimal
	latestProfit decimal.Decimal
}

type exchangeStats struct {
	success atomic.Int64
	failure atomic.Int64

	mu        sync.RWMutex
	latestBid decimal.NullDecimal
	latestAsk decimal.NullDecimal
}

// New creates a Metrics instance with its own Prometheus registry.
// Exchange names may be pre-registered; unknown names are added lazily.
func New(exchanges ...string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		now:      time.Now,
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exchange_requests_total",
				Help: "Total number of exchange API requests by outcome.",
			},
			[]string{"exchange", "outcome"},
		),
		responseTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "exchange_response_time_seconds",
				Help:    "Duration of exchange API requests in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms → ~16s
			},
			[]string{"exchange"},
		),
		latestPrice: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "exchange_latest_price_toman",
				Help: "Latest observed bid/ask price per exchange, in Toman.",
			},
			[]string{"exchange", "side"},
		),
		checksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "arbitrage_checks_total",
			Help: "Total number of arbitrage checks performed.",
		}),
		discoveriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "arbitrage_opportunities_total",
			Help: "Total number of arbitrage opportunities discovered.",
		}),
		latestSpreadPct: factory.NewGauge(prometheus.GaugeOpts{
			Name: "arbitrage_latest_spread_percent",
			Help: "Latest observed spread percentage.",
		}),
		latestProfitAmt: factory.NewGauge(prometheus.GaugeOpts{
			Name: "arbitrage_latest_profit_toman",
			Help: "Latest observed profit amount in Toman.",
		}),
		discoveryGauge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "arbitrage_discovery_rate_per_minute",
			Help: "Opportunities discovered within the trailing 60s window.",
		}),
		exchanges: make(map[string]*exchangeStats),
	}

	for _, name := range exchanges {
		m.exchanges[name] = &exchangeStats{}
	}
	m.rateResetAt.Store(m.now().UnixMilli())

	return m
}

// Registry exposes the Prometheus registry for the /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) stats(exchange string) *exchangeStats {
	m.mu.RLock()
	s, ok := m.exchanges[exchange]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.exchanges[exchange]; ok {
		return s
	}
	s = &exchangeStats{}
	m.exchanges[exchange] = s
	return s
}

// RecordSuccess counts one successful fetch and its latency.
func (m *Metrics) RecordSuccess(exchange string, latency time.Duration) {
	m.stats(exchange).success.Add(1)
	m.requestsTotal.WithLabelValues(exchange, "success").Inc()
	m.responseTime.WithLabelValues(exchange).Observe(latency.Seconds())
}

// RecordFailure counts one failed fetch and its latency.
func (m *Metrics) RecordFailure(exchange string, latency time.Duration) {
	m.stats(exchange).failure.Add(1)
	m.requestsTotal.WithLabelValues(exchange, "failure").Inc()
	m.responseTime.WithLabelValues(exchange).Observe(latency.Seconds())
}

// SetLatestQuote moves the latest bid/ask gauges for an exchange. Absent
// fields leave the previous gauge value in place.
func (m *Metrics) SetLatestQuote(exchange string, bid, ask decimal.NullDecimal) {
	s := m.stats(exchange)

	s.mu.Lock()
	if bid.Valid {
		s.latestBid = bid
	}
	if ask.Valid {
		s.latestAsk = ask
	}
	s.mu.Unlock()

	if bid.Valid {
		m.latestPrice.WithLabelValues(exchange, "bid").Set(bid.Decimal.InexactFloat64())
	}
	if ask.Valid {
		m.latestPrice.WithLabelValues(exchange, "ask").Set(ask.Decimal.InexactFloat64())
	}
}

// RecordCheck counts one spread computation.
func (m *Metrics) RecordCheck() {
	m.checks.Add(1)
	m.checksTotal.Inc()
}

// RecordDiscovery counts one discovered opportunity and moves the latest
// spread/profit gauges and the trailing-window discovery rate.
func (m *Metrics) RecordDiscovery(spreadPercent, profit decimal.Decimal) {
	m.discoveries.Add(1)
	m.discoveriesTotal.Inc()

	m.mu.Lock()
	m.latestSpread = spreadPercent
	m.latestProfit = profit
	m.mu.Unlock()

	m.latestSpreadPct.Set(spreadPercent.InexactFloat64())
	m.latestProfitAmt.Set(profit.InexactFloat64())

	m.bumpDiscoveryRate()
}

// bumpDiscoveryRate implements the reset-based trailing window: once the
// window has fully elapsed since the last reset, the counter restarts at 1.
func (m *Metrics) bumpDiscoveryRate() {
	nowMs := m.now().UnixMilli()
	if nowMs-m.rateResetAt.Load() > discoveryWindow.Milliseconds() {
		m.rateCount.Store(1)
		m.rateResetAt.Store(nowMs)
	} else {
		m.rateCount.Add(1)
	}
	m.discoveryGauge.Set(float64(m.rateCount.Load()))
}

// DiscoveryRate returns the discovery count within the current window.
func (m *Metrics) DiscoveryRate() int64 {
	return m.rateCount.Load()
}

// Checks returns the total number of arbitrage checks performed.
func (m *Metrics) Checks() int64 {
	return m.checks.Load()
}

// Discoveries returns the total number of opportunities discovered.
func (m *Metrics) Discoveries() int64 {
	return m.discoveries.Load()
}

// Summary returns the nested counters/gauges view served by the reporting
// endpoint.
func (m *Metrics) Summary() map[string]any {
	out := make(map[string]any)

	m.mu.RLock()
	defer m.mu.RUnlock()

	for name, s := range m.exchanges {
		s.mu.RLock()
		out[name] = map[string]any{
			"successful_requests": s.success.Load(),
			"failed_requests":     s.failure.Load(),
			"latest_bid":          s.latestBid,
			"latest_ask":          s.latestAsk,
		}
		s.mu.RUnlock()
	}

	out["arbitrage"] = map[string]any{
		"total_checks":              m.checks.Load(),
		"opportunities_discovered":  m.discoveries.Load(),
		"discovery_rate_per_minute": m.rateCount.Load(),
		"latest_spread_percentage":  m.latestSpread,
		"latest_profit_amount":      m.latestProfit,
	}

	return out
}
