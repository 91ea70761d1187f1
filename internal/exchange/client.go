package exchange

import (
	"context"
	"errors"
	"fmt"

	"github.com/MahdiHaeri/Cloud-Practice-1/internal/httpclient"
	"github.com/MahdiHaeri/Cloud-Practice-1/pkg/model"
)

// Client fetches the current market quote for an asset from one exchange.
// Each implementation owns its own symbol construction (the venue's quote
// currency suffix and casing) and payload parsing, and declares the factor
// between its native minor unit and the Toman reference unit.
type Client interface {
	// Name returns the lowercase exchange identity used in metrics labels
	// and store keys.
	Name() string

	// Fetch retrieves and normalizes the venue's quote for asset. On
	// failure it returns a *FetchError; a failure on one exchange never
	// prevents the caller from processing the other's result. The returned
	// quote may carry absent optional fields, never zero stand-ins.
	Fetch(ctx context.Context, asset string) (*model.QuotedPrice, error)
}

// FailureKind classifies why a fetch produced no quote.
type FailureKind string

const (
	// FailureTransport covers network errors and timeouts.
	FailureTransport FailureKind = "transport"
	// FailureBadStatus covers non-2xx responses and venue-reported error
	// statuses.
	FailureBadStatus FailureKind = "bad_status"
	// FailureUnparseable covers malformed bodies and payloads whose
	// required price fields are entirely absent.
	FailureUnparseable FailureKind = "unparseable"
	// FailureSymbolNotFound means the venue does not list the asset.
	FailureSymbolNotFound FailureKind = "symbol_not_found"
)

// FetchError is the failure value every Client returns. None of its kinds
// are retryable within the same tick.
type FetchError struct {
	Exchange string
	Kind     FailureKind
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s fetch failed (%s)", e.Exchange, e.Kind)
	}
	return fmt.Sprintf("%s fetch failed (%s): %v", e.Exchange, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// classify maps an executor error onto the fetch failure taxonomy.
func classify(exchange string, err error) *FetchError {
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		return &FetchError{Exchange: exchange, Kind: FailureBadStatus, Err: err}
	}
	var decodeErr *httpclient.DecodeError
	if errors.As(err, &decodeErr) {
		return &FetchError{Exchange: exchange, Kind: FailureUnparseable, Err: err}
	}
	return &FetchError{Exchange: exchange, Kind: FailureTransport, Err: err}
}
