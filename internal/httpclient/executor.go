package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/MahdiHaeri/Cloud-Practice-1/internal/rate"
)

// StatusError is returned when the venue answers with a non-2xx status.
type StatusError struct {
	Venue  string
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d", e.Venue, e.Status)
}

// DecodeError is returned when a 2xx body cannot be decoded into the
// expected shape.
type DecodeError struct {
	Venue string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s response decode failed: %v", e.Venue, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Executor performs rate-limited, single-attempt JSON GETs against a venue
// API and reports how long the round trip took. Poll loops re-fetch on
// their own schedule, so a failed call is never retried here.
type Executor struct {
	logger   *zap.Logger
	rateMgr  *rate.Manager
	http     *http.Client
	venueTag string
}

// New creates an Executor for one venue. rateMgr may be nil to disable
// client-side rate limiting.
func New(logger *zap.Logger, rateMgr *rate.Manager, httpClient *http.Client, venueTag string) *Executor {
	return &Executor{
		logger:   logger,
		rateMgr:  rateMgr,
		http:     httpClient,
		venueTag: venueTag,
	}
}

// GetJSON fetches url and decodes the JSON response into out. The returned
// duration covers the full round trip including body read, regardless of
// outcome. Errors are *StatusError, *DecodeError, or a wrapped transport
// error.
func (e *Executor) GetJSON(ctx context.Context, url string, out any) (time.Duration, error) {
	if e.rateMgr != nil {
		if err := e.rateMgr.Wait(ctx, e.venueTag); err != nil {
			return 0, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := e.http.Do(req)
	if err != nil {
		elapsed := time.Since(start)
		e.logger.Warn(e.venueTag+".http_failed",
			zap.String("url", url),
			zap.Duration("latency", elapsed),
			zap.Error(err))
		return elapsed, fmt.Errorf("%s request failed: %w", e.venueTag, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)
	elapsed := time.Since(start)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		e.logger.Warn(e.venueTag+".non_2xx",
			zap.Int("status", resp.StatusCode),
			zap.String("url", url),
			zap.Duration("latency", elapsed))
		return elapsed, &StatusError{Venue: e.venueTag, Status: resp.StatusCode, Body: body}
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			e.logger.Warn(e.venueTag+".decode_failed",
				zap.String("url", url),
				zap.Error(err))
			return elapsed, &DecodeError{Venue: e.venueTag, Err: err}
		}
	}

	e.logger.Debug(e.venueTag+".http_success",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", elapsed))

	return elapsed, nil
}
