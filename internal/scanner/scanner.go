// Package scanner drives the arbitrage detection pipeline: fetch both
// exchanges concurrently, persist what succeeded, compare when both
// sides arrived, and alert on a profitable spread.
package scanner

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/MahdiHaeri/Cloud-Practice-1/internal/alert"
	"github.com/MahdiHaeri/Cloud-Practice-1/internal/arbitrage"
	"github.com/MahdiHaeri/Cloud-Practice-1/internal/exchange"
	"github.com/MahdiHaeri/Cloud-Practice-1/internal/metrics"
	"github.com/MahdiHaeri/Cloud-Practice-1/internal/store"
	"github.com/MahdiHaeri/Cloud-Practice-1/pkg/model"
)

// SubscriberSource supplies the active-subscriber snapshot at alert time.
type SubscriberSource interface {
	Active(ctx context.Context) ([]model.Subscriber, error)
}

// Alerter fans one opportunity out to subscribers.
type Alerter interface {
	Send(ctx context.Context, opp arbitrage.Opportunity, subs []model.Subscriber) []alert.Outcome
}

// OpportunityPublisher emits opportunities onto the event bus.
type OpportunityPublisher interface {
	PublishOpportunity(ctx context.Context, opp arbitrage.Opportunity) error
}

// Scanner runs the per-tick pipeline over a fixed asset list.
type Scanner struct {
	logger       *zap.Logger
	clientA      exchange.Client
	clientB      exchange.Client
	store        store.Store
	metrics      *metrics.Metrics
	alerter      Alerter
	subscribers  SubscriberSource
	publisher    OpportunityPublisher
	assets       []string
	pollInterval time.Duration
	fetchTimeout time.Duration
	running      atomic.Bool
	stopCh       chan struct{}
}

// New constructs a Scanner. publisher may be nil when no event bus is
// configured.
func New(
	logger *zap.Logger,
	clientA, clientB exchange.Client,
	st store.Store,
	m *metrics.Metrics,
	alerter Alerter,
	subscribers SubscriberSource,
	publisher OpportunityPublisher,
	assets []string,
	pollInterval, fetchTimeout time.Duration,
) *Scanner {
	return &Scanner{
		logger:       logger,
		clientA:      clientA,
		clientB:      clientB,
		store:        st,
		metrics:      m,
		alerter:      alerter,
		subscribers:  subscribers,
		publisher:    publisher,
		assets:       assets,
		pollInterval: pollInterval,
		fetchTimeout: fetchTimeout,
		stopCh:       make(chan struct{}),
	}
}

// Start begins periodic scanning. A tick still in flight when the next
// fires is not stacked; the new trigger is skipped.
func (s *Scanner) Start(ctx context.Context) {
	s.logger.Info("scanner.started",
		zap.Strings("assets", s.assets),
		zap.Duration("interval", s.pollInterval))

	go s.tick(ctx)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			go s.tick(ctx)
		case <-ctx.Done():
			s.logger.Info("scanner.stopped (context cancelled)")
			return
		case <-s.stopCh:
			s.logger.Info("scanner.stopped (manual stop)")
			return
		}
	}
}

// Stop signals the scanner to stop gracefully.
func (s *Scanner) Stop() {
	close(s.stopCh)
}

func (s *Scanner) tick(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Debug("scanner.tick_skipped (previous tick still running)")
		return
	}
	defer s.running.Store(false)

	for _, asset := range s.assets {
		s.RunOnce(ctx, asset)
	}
}

type fetchResult struct {
	quote *model.QuotedPrice
	err   error
}

// RunOnce executes one pipeline pass for a single asset.
func (s *Scanner) RunOnce(ctx context.Context, asset string) {
	resA, resB := s.fetchBoth(ctx, asset)

	if resA.err != nil {
		s.logger.Warn("scanner.fetch_failed",
			zap.String("exchange", s.clientA.Name()),
			zap.String("asset", asset),
			zap.Error(resA.err))
	}
	if resB.err != nil {
		s.logger.Warn("scanner.fetch_failed",
			zap.String("exchange", s.clientB.Name()),
			zap.String("asset", asset),
			zap.Error(resB.err))
	}

	// Spread detection needs both sides; a one-sided tick has already
	// persisted what it could.
	if resA.err != nil || resB.err != nil {
		return
	}

	s.metrics.RecordCheck()
	opp := arbitrage.Compute(resA.quote, resB.quote)
	if !opp.HasOpportunity {
		return
	}

	best := bestLeg(opp)
	s.metrics.RecordDiscovery(best.ProfitPercent, best.Profit)
	s.logger.Info("scanner.opportunity_found",
		zap.String("symbol", opp.Symbol),
		zap.Int("legs", len(opp.Legs)),
		zap.String("best_profit", best.Profit.String()),
		zap.String("best_profit_percent", best.ProfitPercent.String()))

	if s.publisher != nil {
		if err := s.publisher.PublishOpportunity(ctx, opp); err != nil {
			s.logger.Warn("scanner.publish_failed", zap.String("symbol", opp.Symbol), zap.Error(err))
		}
	}

	s.dispatchAlerts(ctx, opp)
}

// Check runs one on-demand comparison for the API surface. Unlike a
// scheduled tick it surfaces fetch errors to the caller.
func (s *Scanner) Check(ctx context.Context, asset string) (arbitrage.Opportunity, error) {
	resA, resB := s.fetchBoth(ctx, asset)
	if resA.err != nil {
		return arbitrage.Opportunity{}, resA.err
	}
	if resB.err != nil {
		return arbitrage.Opportunity{}, resB.err
	}

	s.metrics.RecordCheck()
	opp := arbitrage.Compute(resA.quote, resB.quote)
	if opp.HasOpportunity {
		best := bestLeg(opp)
		s.metrics.RecordDiscovery(best.ProfitPercent, best.Profit)
	}
	return opp, nil
}

// fetchBoth issues both fetches concurrently and joins on both
// completing. Each side persists its own result the moment it lands,
// never waiting on the other exchange.
func (s *Scanner) fetchBoth(ctx context.Context, asset string) (fetchResult, fetchResult) {
	chA := make(chan fetchResult, 1)
	chB := make(chan fetchResult, 1)

	go func() { chA <- s.fetchOne(ctx, s.clientA, asset) }()
	go func() { chB <- s.fetchOne(ctx, s.clientB, asset) }()

	return <-chA, <-chB
}

func (s *Scanner) fetchOne(ctx context.Context, client exchange.Client, asset string) fetchResult {
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	quote, err := client.Fetch(fetchCtx, asset)
	if err != nil {
		return fetchResult{err: err}
	}

	s.metrics.SetLatestQuote(quote.Exchange, quote.Bid, quote.Ask)

	// A store failure degrades persistence only; the quote still feeds
	// this tick's spread check.
	if err := s.store.SavePrice(ctx, quote); err != nil {
		s.logger.Warn("scanner.persist_failed",
			zap.String("exchange", quote.Exchange),
			zap.String("symbol", quote.Symbol),
			zap.Error(err))
	}

	return fetchResult{quote: quote}
}

func (s *Scanner) dispatchAlerts(ctx context.Context, opp arbitrage.Opportunity) {
	subs, err := s.subscribers.Active(ctx)
	if err != nil {
		s.logger.Warn("scanner.subscriber_snapshot_failed", zap.Error(err))
		return
	}
	if len(subs) == 0 {
		return
	}

	outcomes := s.alerter.Send(ctx, opp, subs)
	delivered := 0
	for _, o := range outcomes {
		if o.Delivered {
			delivered++
		}
	}
	s.logger.Info("scanner.alerts_dispatched",
		zap.String("symbol", opp.Symbol),
		zap.Int("delivered", delivered),
		zap.Int("failed", len(outcomes)-delivered))
}

// bestLeg picks the leg with the highest profit percentage for the
// latest spread/profit gauges.
func bestLeg(opp arbitrage.Opportunity) arbitrage.Leg {
	best := opp.Legs[0]
	for _, leg := range opp.Legs[1:] {
		if leg.ProfitPercent.GreaterThan(best.ProfitPercent) {
			best = leg
		}
	}
	return best
}
