package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MahdiHaeri/Cloud-Practice-1/internal/subscriber"
	"github.com/MahdiHaeri/Cloud-Practice-1/pkg/model"
)

const pollTimeout = 30 * time.Second

const welcomeMessage = `👋 Welcome to Crypto Arbitrage Alert Bot!

I monitor cryptocurrency prices across Wallex and Nobitex exchanges and notify you when profitable arbitrage opportunities appear.

*Available Commands:*
/subscribe - Subscribe to arbitrage alerts
/unsubscribe - Unsubscribe from alerts
/status - Check your subscription status
/help - Show this help message

Get started by using /subscribe command!`

const helpMessage = `📖 *Help - Crypto Arbitrage Bot*

*Commands:*
/start - Show welcome message
/subscribe - Subscribe to arbitrage notifications
/unsubscribe - Stop receiving notifications
/status - Check your subscription status
/help - Show this help message

*What is Arbitrage?*
Arbitrage is when you buy a cryptocurrency on one exchange at a lower price and sell it on another exchange at a higher price, making a profit from the price difference.

*How it works:*
1. Subscribe using /subscribe
2. Receive instant notifications when opportunities appear
3. Execute trades quickly to capture profits

⚠️ *Disclaimer:* This bot provides information only. Always do your own research and trade at your own risk.`

const unknownCommandMessage = `ℹ️ I didn't understand that command.

Use /help to see available commands.`

// Bot runs the long-poll command loop for subscription management.
type Bot struct {
	logger   *zap.Logger
	client   *Client
	registry *subscriber.Registry
}

func NewBot(logger *zap.Logger, client *Client, registry *subscriber.Registry) *Bot {
	return &Bot{logger: logger, client: client, registry: registry}
}

// Run long-polls until ctx is cancelled. Poll failures back off briefly
// and the loop keeps going.
func (b *Bot) Run(ctx context.Context) {
	b.logger.Info("telegram.bot_started")
	var offset int64

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("telegram.bot_stopped")
			return
		default:
		}

		updates, err := b.client.GetUpdates(ctx, offset, pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				b.logger.Info("telegram.bot_stopped")
				return
			}
			b.logger.Warn("telegram.poll_failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			if u.Message == nil {
				continue
			}
			b.handleMessage(ctx, u.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *Message) {
	chatID := msg.Chat.ID
	command := msg.Text
	if i := strings.IndexByte(command, '@'); i > 0 {
		command = command[:i]
	}

	var reply string
	switch strings.TrimSpace(command) {
	case "/start":
		reply = welcomeMessage
	case "/help":
		reply = helpMessage
	case "/subscribe":
		reply = b.subscribe(ctx, msg.Chat)
		b.logger.Info("telegram.user_subscribed", zap.Int64("chat_id", chatID))
	case "/unsubscribe":
		reply = b.unsubscribe(ctx, chatID)
		b.logger.Info("telegram.user_unsubscribed", zap.Int64("chat_id", chatID))
	case "/status":
		reply = b.status(ctx, chatID)
	default:
		reply = unknownCommandMessage
	}

	if err := b.client.SendMessage(ctx, chatID, reply); err != nil {
		b.logger.Warn("telegram.reply_failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) subscribe(ctx context.Context, chat Chat) string {
	outcome, err := b.registry.Subscribe(ctx, model.Subscriber{
		ChatID:    chat.ID,
		Username:  chat.Username,
		FirstName: chat.FirstName,
		LastName:  chat.LastName,
	})
	if err != nil {
		b.logger.Error("telegram.subscribe_failed", zap.Int64("chat_id", chat.ID), zap.Error(err))
		return "❌ Failed to subscribe. Please try again later."
	}

	switch outcome {
	case subscriber.OutcomeAlreadyActive:
		return "✅ You are already subscribed to arbitrage notifications!"
	case subscriber.OutcomeReactivated:
		return "✅ Welcome back! You have been re-subscribed to arbitrage notifications."
	default:
		return "✅ Successfully subscribed! You will receive notifications when arbitrage opportunities are found."
	}
}

func (b *Bot) unsubscribe(ctx context.Context, chatID int64) string {
	wasActive, err := b.registry.Unsubscribe(ctx, chatID)
	if err != nil {
		b.logger.Error("telegram.unsubscribe_failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return "❌ Failed to unsubscribe. Please try again later."
	}
	if !wasActive {
		return "ℹ️ You are not currently subscribed."
	}
	return "✅ Successfully unsubscribed. You will no longer receive arbitrage notifications."
}

func (b *Bot) status(ctx context.Context, chatID int64) string {
	sub, err := b.registry.Get(ctx, chatID)
	if err != nil {
		b.logger.Error("telegram.status_failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return "❌ Failed to look up your subscription. Please try again later."
	}
	if sub == nil || !sub.Active {
		return "ℹ️ You are not currently subscribed. Use /subscribe to start receiving notifications."
	}

	var sb strings.Builder
	sb.WriteString("📊 *Subscription Status*\n\n")
	sb.WriteString("✅ Status: Active\n")
	fmt.Fprintf(&sb, "📅 Subscribed: %s\n", sub.SubscribedAt.Format("2006-01-02 15:04:05"))
	if sub.LastNotifiedAt != nil {
		fmt.Fprintf(&sb, "🔔 Last Notification: %s\n", sub.LastNotifiedAt.Format("2006-01-02 15:04:05"))
	}
	return sb.String()
}
