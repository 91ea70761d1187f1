package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MahdiHaeri/Cloud-Practice-1/pkg/model"
)

// latestTTL bounds how long a cached latest quote is served without a
// fresh write behind it.
const latestTTL = 5 * time.Minute

// Store defines the contract for caching and persisting price snapshots.
type Store interface {
	SavePrice(ctx context.Context, price *model.QuotedPrice) error
	LatestPrice(ctx context.Context, exchange, symbol string) (*model.QuotedPrice, error)
	PriceHistory(ctx context.Context, asset string, limit int) ([]model.QuotedPrice, error)
	PricesByExchangeRange(ctx context.Context, exchange string, start, end time.Time) ([]model.QuotedPrice, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest any) error
	HealthCheck(ctx context.Context) error
	Close() error
}

type HybridStore struct {
	redis  *redis.Client
	PG     *pgxpool.Pool
	logger *zap.Logger
}

type PGPoolConfig struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// NewHybrid creates a Redis-first, Postgres-backed store.
func NewHybrid(redisAddr string, redisDB int, pgURL string, pgPoolConfig PGPoolConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
		DB:   redisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	var pgPool *pgxpool.Pool
	if pgURL != "" {
		cfg, err := pgxpool.ParseConfig(pgURL)
		if err != nil {
			return nil, fmt.Errorf("invalid pg config: %w", err)
		}
		if pgPoolConfig.MaxConns > 0 {
			cfg.MaxConns = pgPoolConfig.MaxConns
		}
		if pgPoolConfig.MinConns > 0 {
			cfg.MinConns = pgPoolConfig.MinConns
		}
		if pgPoolConfig.MaxConnLifetime > 0 {
			cfg.MaxConnLifetime = pgPoolConfig.MaxConnLifetime
		}
		if pgPoolConfig.MaxConnIdleTime > 0 {
			cfg.MaxConnIdleTime = pgPoolConfig.MaxConnIdleTime
		}
		if pgPoolConfig.HealthCheckPeriod > 0 {
			cfg.HealthCheckPeriod = pgPoolConfig.HealthCheckPeriod
		}
		pgPool, err = pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
	}

	return &HybridStore{redis: rdb, PG: pgPool, logger: logger}, nil
}

func latestKey(exchange, symbol string) string {
	return fmt.Sprintf("price:latest:%s:%s", exchange, symbol)
}

// SavePrice appends an immutable snapshot row and refreshes the latest
// cache. A cache failure is logged and swallowed; the row is the record.
func (s *HybridStore) SavePrice(ctx context.Context, price *model.QuotedPrice) error {
	if s.PG != nil {
		_, err := s.PG.Exec(ctx, `
			INSERT INTO market.exchange_price (
				exchange, symbol, asset, quote_currency,
				bid, ask, last, observed_at, fetch_latency_ms
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, price.Exchange, price.Symbol, price.Asset, price.QuoteCurrency,
			price.Bid, price.Ask, price.Last, price.ObservedAt, price.LatencyMillis())
		if err != nil {
			s.logger.Error("store.pg.insert_price_failed",
				zap.String("exchange", price.Exchange),
				zap.String("symbol", price.Symbol),
				zap.Error(err))
			return err
		}
	}

	if err := s.SetJSON(ctx, latestKey(price.Exchange, price.Symbol), price, latestTTL); err != nil {
		s.logger.Warn("store.redis.cache_latest_failed",
			zap.String("exchange", price.Exchange),
			zap.String("symbol", price.Symbol),
			zap.Error(err))
	}
	return nil
}

// LatestPrice serves the most recent snapshot, cache first with a
// Postgres fallback. A nil result with a nil error means no data yet.
func (s *HybridStore) LatestPrice(ctx context.Context, exchange, symbol string) (*model.QuotedPrice, error) {
	var cached model.QuotedPrice
	err := s.GetJSON(ctx, latestKey(exchange, symbol), &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, redis.Nil) {
		s.logger.Warn("store.redis.read_latest_failed",
			zap.String("exchange", exchange),
			zap.String("symbol", symbol),
			zap.Error(err))
	}

	if s.PG == nil {
		return nil, nil
	}

	row := s.PG.QueryRow(ctx, `
		SELECT exchange, symbol, asset, quote_currency, bid, ask, last, observed_at, fetch_latency_ms
		FROM market.exchange_price
		WHERE exchange = $1 AND symbol = $2
		ORDER BY observed_at DESC
		LIMIT 1;
	`, exchange, symbol)

	price, err := scanPrice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("LatestPrice scan failed: %w", err)
	}
	return price, nil
}

// PriceHistory returns snapshots for an asset across all exchanges,
// newest first.
func (s *HybridStore) PriceHistory(ctx context.Context, asset string, limit int) ([]model.QuotedPrice, error) {
	if s.PG == nil {
		return nil, fmt.Errorf("postgres unavailable")
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.PG.Query(ctx, `
		SELECT exchange, symbol, asset, quote_currency, bid, ask, last, observed_at, fetch_latency_ms
		FROM market.exchange_price
		WHERE UPPER(asset) = UPPER($1)
		ORDER BY observed_at DESC
		LIMIT $2;
	`, asset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPrices(rows)
}

// PricesByExchangeRange returns one exchange's snapshots within
// [start, end], oldest first.
func (s *HybridStore) PricesByExchangeRange(ctx context.Context, exchange string, start, end time.Time) ([]model.QuotedPrice, error) {
	if s.PG == nil {
		return nil, fmt.Errorf("postgres unavailable")
	}
	rows, err := s.PG.Query(ctx, `
		SELECT exchange, symbol, asset, quote_currency, bid, ask, last, observed_at, fetch_latency_ms
		FROM market.exchange_price
		WHERE exchange = $1 AND observed_at BETWEEN $2 AND $3
		ORDER BY observed_at ASC;
	`, exchange, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPrices(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrice(row rowScanner) (*model.QuotedPrice, error) {
	var p model.QuotedPrice
	var latencyMs int64
	if err := row.Scan(&p.Exchange, &p.Symbol, &p.Asset, &p.QuoteCurrency,
		&p.Bid, &p.Ask, &p.Last, &p.ObservedAt, &latencyMs); err != nil {
		return nil, err
	}
	p.FetchLatency = time.Duration(latencyMs) * time.Millisecond
	return &p, nil
}

func collectPrices(rows pgx.Rows) ([]model.QuotedPrice, error) {
	var results []model.QuotedPrice
	for rows.Next() {
		p, err := scanPrice(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *p)
	}
	return results, rows.Err()
}

func (s *HybridStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, key, data, ttl).Err()
}

func (s *HybridStore) GetJSON(ctx context.Context, key string, dest any) error {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (s *HybridStore) HealthCheck(ctx context.Context) error {
	if s.redis == nil {
		return fmt.Errorf("redis not initialized")
	}
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	if s.PG != nil {
		if err := s.PG.Ping(ctx); err != nil {
			return fmt.Errorf("postgres ping failed: %w", err)
		}
	}
	return nil
}

func (s *HybridStore) Close() error {
	if s.PG != nil {
		s.PG.Close()
	}
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}
