package model

import "time"

// Subscriber is a Telegram chat registered for arbitrage alerts.
type Subscriber struct {
	ChatID         int64      `json:"chatId"`
	Username       string     `json:"username,omitempty"`
	FirstName      string     `json:"firstName,omitempty"`
	LastName       string     `json:"lastName,omitempty"`
	Active         bool       `json:"active"`
	SubscribedAt   time.Time  `json:"subscribedAt"`
	LastNotifiedAt *time.Time `json:"lastNotifiedAt,omitempty"`
}
