// Package subscriber manages the set of chats that receive spread alerts.
package subscriber

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/MahdiHaeri/Cloud-Practice-1/pkg/model"
)

// Outcome reports what a Subscribe call actually did.
type Outcome string

const (
	OutcomeCreated       Outcome = "created"
	OutcomeReactivated   Outcome = "reactivated"
	OutcomeAlreadyActive Outcome = "already_active"
)

// Registry is the Postgres-backed subscription store.
type Registry struct {
	pg     *pgxpool.Pool
	logger *zap.Logger
}

func NewRegistry(pg *pgxpool.Pool, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{pg: pg, logger: logger}
}

// Subscribe activates a chat, inserting it on first contact and
// reactivating it after an unsubscribe.
func (r *Registry) Subscribe(ctx context.Context, sub model.Subscriber) (Outcome, error) {
	existing, err := r.Get(ctx, sub.ChatID)
	if err != nil {
		return "", err
	}

	if existing == nil {
		_, err := r.pg.Exec(ctx, `
			INSERT INTO market.telegram_subscriber (
				chat_id, username, first_name, last_name, active, subscribed_at
			)
			VALUES ($1, $2, $3, $4, TRUE, NOW())
		`, sub.ChatID, sub.Username, sub.FirstName, sub.LastName)
		if err != nil {
			r.logger.Error("subscriber.insert_failed", zap.Int64("chat_id", sub.ChatID), zap.Error(err))
			return "", err
		}
		return OutcomeCreated, nil
	}

	if existing.Active {
		return OutcomeAlreadyActive, nil
	}

	_, err = r.pg.Exec(ctx, `
		UPDATE market.telegram_subscriber
		SET active = TRUE, subscribed_at = NOW(),
		    username = $2, first_name = $3, last_name = $4
		WHERE chat_id = $1
	`, sub.ChatID, sub.Username, sub.FirstName, sub.LastName)
	if err != nil {
		r.logger.Error("subscriber.reactivate_failed", zap.Int64("chat_id", sub.ChatID), zap.Error(err))
		return "", err
	}
	return OutcomeReactivated, nil
}

// Unsubscribe deactivates a chat. The returned flag tells whether the
// chat was active before the call.
func (r *Registry) Unsubscribe(ctx context.Context, chatID int64) (bool, error) {
	tag, err := r.pg.Exec(ctx, `
		UPDATE market.telegram_subscriber
		SET active = FALSE
		WHERE chat_id = $1 AND active = TRUE
	`, chatID)
	if err != nil {
		r.logger.Error("subscriber.unsubscribe_failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Get fetches one subscriber; a nil result with a nil error means the
// chat has never subscribed.
func (r *Registry) Get(ctx context.Context, chatID int64) (*model.Subscriber, error) {
	row := r.pg.QueryRow(ctx, `
		SELECT chat_id, username, first_name, last_name, active, subscribed_at, last_notified_at
		FROM market.telegram_subscriber
		WHERE chat_id = $1
	`, chatID)

	var sub model.Subscriber
	err := row.Scan(&sub.ChatID, &sub.Username, &sub.FirstName, &sub.LastName,
		&sub.Active, &sub.SubscribedAt, &sub.LastNotifiedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("subscriber lookup failed: %w", err)
	}
	return &sub, nil
}

// Active returns the snapshot of subscribers eligible for alerts.
func (r *Registry) Active(ctx context.Context) ([]model.Subscriber, error) {
	rows, err := r.pg.Query(ctx, `
		SELECT chat_id, username, first_name, last_name, active, subscribed_at, last_notified_at
		FROM market.telegram_subscriber
		WHERE active = TRUE
		ORDER BY subscribed_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []model.Subscriber
	for rows.Next() {
		var sub model.Subscriber
		if err := rows.Scan(&sub.ChatID, &sub.Username, &sub.FirstName, &sub.LastName,
			&sub.Active, &sub.SubscribedAt, &sub.LastNotifiedAt); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// MarkNotified stamps the last successful delivery time.
func (r *Registry) MarkNotified(ctx context.Context, chatID int64, at time.Time) error {
	_, err := r.pg.Exec(ctx, `
		UPDATE market.telegram_subscriber
		SET last_notified_at = $2
		WHERE chat_id = $1
	`, chatID, at)
	if err != nil {
		r.logger.Error("subscriber.mark_notified_failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	return err
}
