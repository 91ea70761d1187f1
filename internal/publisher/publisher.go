// Package publisher emits detected opportunities onto the event bus so
// downstream consumers (dashboards, execution research) can react
// without polling this service.
package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/MahdiHaeri/Cloud-Practice-1/internal/arbitrage"
)

const SubjectOpportunity = "evt.arbitrage.opportunity.v1"

// OpportunityEvent is the canonical envelope for a detected spread.
type OpportunityEvent struct {
	ID          uuid.UUID             `json:"id"`
	EventType   string                `json:"eventType"`
	Version     string                `json:"version"`
	Service     string                `json:"service"`
	Timestamp   time.Time             `json:"timestamp"`
	Opportunity arbitrage.Opportunity `json:"opportunity"`
}

// Publisher wraps a NATS connection with JetStream enabled.
type Publisher struct {
	logger  *zap.Logger
	nc      *nats.Conn
	js      nats.JetStreamContext
	service string
}

// New creates a Publisher on an established NATS connection.
func New(logger *zap.Logger, nc *nats.Conn, service string) (*Publisher, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}
	return &Publisher{logger: logger, nc: nc, js: js, service: service}, nil
}

// PublishOpportunity emits one opportunity event. Publish failures are
// reported to the caller but carry no pipeline consequence.
func (p *Publisher) PublishOpportunity(ctx context.Context, opp arbitrage.Opportunity) error {
	event := OpportunityEvent{
		ID:          uuid.New(),
		EventType:   "arbitrage.opportunity",
		Version:     "1.0.0",
		Service:     p.service,
		Timestamp:   time.Now().UTC(),
		Opportunity: opp,
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("publisher.marshal_failed",
			zap.String("subject", SubjectOpportunity),
			zap.Error(err))
		return err
	}

	msg := &nats.Msg{
		Subject: SubjectOpportunity,
		Data:    data,
		Header: nats.Header{
			"event_type":   []string{event.EventType},
			"service":      []string{p.service},
			"content_type": []string{"application/json"},
		},
	}

	if _, err := p.js.PublishMsg(msg); err != nil {
		p.logger.Error("publisher.publish_failed",
			zap.String("subject", SubjectOpportunity),
			zap.String("symbol", opp.Symbol),
			zap.Error(err))
		return err
	}

	p.logger.Info("publisher.publish_success",
		zap.String("subject", SubjectOpportunity),
		zap.String("symbol", opp.Symbol),
		zap.Int("legs", len(opp.Legs)))
	return nil
}

func (p *Publisher) Close() {
	if p.nc != nil && p.nc.IsConnected() {
		p.nc.Close()
	}
}
