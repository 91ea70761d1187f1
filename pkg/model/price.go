package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuotedPrice is one normalized price snapshot for an asset on a single
// exchange. Bid/Ask/Last are already converted to Toman; a NullDecimal with
// Valid=false means the field was missing from the venue payload, which is
// not the same thing as zero.
type QuotedPrice struct {
	Exchange      string              `json:"exchange"`
	Symbol        string              `json:"symbol"`
	Asset         string              `json:"asset"`
	QuoteCurrency string              `json:"quoteCurrency"` // venue-native minor unit, e.g. "TMN", "IRT"
	Bid           decimal.NullDecimal `json:"bid"`
	Ask           decimal.NullDecimal `json:"ask"`
	Last          decimal.NullDecimal `json:"last"`
	ObservedAt    time.Time           `json:"observedAt"`
	FetchLatency  time.Duration       `json:"fetchLatencyNs"`
}

// LatencyMillis returns the fetch latency in whole milliseconds, the unit
// the store persists.
func (q QuotedPrice) LatencyMillis() int64 {
	return q.FetchLatency.Milliseconds()
}
