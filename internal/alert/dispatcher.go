// Package alert fans a detected opportunity out to active subscribers.
package alert

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MahdiHaeri/Cloud-Practice-1/internal/arbitrage"
	"github.com/MahdiHaeri/Cloud-Practice-1/pkg/model"
)

const (
	defaultSendTimeout   = 10 * time.Second
	defaultMaxConcurrent = 8
)

// Transport delivers one text message to one chat.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Recorder stamps a subscriber's last successful delivery.
type Recorder interface {
	MarkNotified(ctx context.Context, chatID int64, at time.Time) error
}

// Outcome is the per-subscriber delivery result.
type Outcome struct {
	ChatID    int64
	Delivered bool
	Err       error
}

// Dispatcher sends one message per opportunity to every subscriber in
// the snapshot. Deliveries are independent: one failure never stops the
// rest, and a hung send is cut off by its own timeout.
type Dispatcher struct {
	logger        *zap.Logger
	transport     Transport
	recorder      Recorder
	sendTimeout   time.Duration
	maxConcurrent int
}

func NewDispatcher(logger *zap.Logger, transport Transport, recorder Recorder) *Dispatcher {
	return &Dispatcher{
		logger:        logger,
		transport:     transport,
		recorder:      recorder,
		sendTimeout:   defaultSendTimeout,
		maxConcurrent: defaultMaxConcurrent,
	}
}

// Send formats the opportunity once and delivers it to each subscriber.
// The returned slice is positionally aligned with subs.
func (d *Dispatcher) Send(ctx context.Context, opp arbitrage.Opportunity, subs []model.Subscriber) []Outcome {
	if len(subs) == 0 {
		return nil
	}

	d.logger.Info("alert.dispatching",
		zap.String("symbol", opp.Symbol),
		zap.Int("subscribers", len(subs)))

	message := FormatMessage(opp, time.Now())
	outcomes := make([]Outcome, len(subs))

	// Plain group, not WithContext: one failed send must not cancel
	// the rest.
	var g errgroup.Group
	g.SetLimit(d.maxConcurrent)

	for i, sub := range subs {
		i, sub := i, sub
		g.Go(func() error {
			outcomes[i] = d.deliver(ctx, sub.ChatID, message)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (d *Dispatcher) deliver(ctx context.Context, chatID int64, message string) Outcome {
	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	if err := d.transport.SendMessage(sendCtx, chatID, message); err != nil {
		d.logger.Warn("alert.delivery_failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return Outcome{ChatID: chatID, Err: err}
	}

	if err := d.recorder.MarkNotified(ctx, chatID, time.Now().UTC()); err != nil {
		// Delivery already happened; the missing stamp only affects /status.
		d.logger.Warn("alert.mark_notified_failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}

	d.logger.Debug("alert.delivered", zap.Int64("chat_id", chatID))
	return Outcome{ChatID: chatID, Delivered: true}
}
