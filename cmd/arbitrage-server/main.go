package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"

	"github.com/MahdiHaeri/Cloud-Practice-1/internal/alert"
	"github.com/MahdiHaeri/Cloud-Practice-1/internal/api"
	"github.com/MahdiHaeri/Cloud-Practice-1/internal/arbitrage"
	"github.com/MahdiHaeri/Cloud-Practice-1/internal/config"
	"github.com/MahdiHaeri/Cloud-Practice-1/internal/exchange"
	"github.com/MahdiHaeri/Cloud-Practice-1/internal/jobs"
	"github.com/MahdiHaeri/Cloud-Practice-1/internal/metrics"
	"github.com/MahdiHaeri/Cloud-Practice-1/internal/publisher"
	"github.com/MahdiHaeri/Cloud-Practice-1/internal/rate"
	"github.com/MahdiHaeri/Cloud-Practice-1/internal/scanner"
	internalsecrets "github.com/MahdiHaeri/Cloud-Practice-1/internal/secrets"
	"github.com/MahdiHaeri/Cloud-Practice-1/internal/store"
	"github.com/MahdiHaeri/Cloud-Practice-1/internal/subscriber"
	"github.com/MahdiHaeri/Cloud-Practice-1/internal/telegram"
	"github.com/MahdiHaeri/Cloud-Practice-1/pkg/logger"
	"github.com/MahdiHaeri/Cloud-Practice-1/pkg/model"
	"github.com/MahdiHaeri/Cloud-Practice-1/pkg/secrets"
	"github.com/MahdiHaeri/Cloud-Practice-1/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Load configuration ---
	cfg := config.Load()

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	defer logger.Sync()
	logg := logger.S()
	logg.Info("starting [arbitrage-server]...")
	logg.Info("connection to DSN: ", utils.MaskDSN(cfg.DatabaseURL))

	// --- Metrics ---
	m := metrics.New("wallex", "nobitex")

	// --- Rate limiter ---
	rateMgr := rate.NewManager(rate.Config{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	})

	// --- Store (Redis + Postgres hybrid) ---
	st, err := store.NewHybrid(cfg.RedisAddr, cfg.RedisDB, cfg.DatabaseURL, store.PGPoolConfig{
		MaxConns:          int32(cfg.PGMaxConns),
		MinConns:          int32(cfg.PGMinConns),
		MaxConnLifetime:   cfg.PGMaxConnLifetime,
		MaxConnIdleTime:   cfg.PGMaxConnIdleTime,
		HealthCheckPeriod: cfg.PGHealthCheckPeriod,
	}, logg.Desugar())
	if err != nil {
		logg.Fatalw("failed to init store", "error", err)
	}

	// --- Exchange clients ---
	wallex := exchange.NewWallexClient(logg.Desugar(), cfg.WallexBaseURL, rateMgr, m)
	nobitex := exchange.NewNobitexClient(logg.Desugar(), cfg.NobitexBaseURL, rateMgr, m)

	// --- NATS publisher (optional) ---
	var pub scanner.OpportunityPublisher
	var nc *nats.Conn
	if cfg.NATSURL != "" {
		nc, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			logg.Warnw("failed to connect to NATS; running without event bus", "error", err)
		} else {
			p, err := publisher.New(logg.Desugar(), nc, cfg.ServiceName)
			if err != nil {
				logg.Warnw("failed to init publisher; running without event bus", "error", err)
			} else {
				pub = p
			}
		}
	}

	// --- Subscriber registry + Telegram bot ---
	registry := subscriber.NewRegistry(st.(*store.HybridStore).PG, logg.Desugar())

	var alerter scanner.Alerter = noopAlerter{}
	if cfg.TelegramEnabled {
		token, err := resolveTelegramToken(ctx, cfg)
		if err != nil {
			logg.Warnw("telegram token unavailable; alerts disabled", "error", err)
		} else {
			tgClient := telegram.NewClient(logg.Desugar(), token, "")
			alerter = alert.NewDispatcher(logg.Desugar(), tgClient, registry)

			bot := telegram.NewBot(logg.Desugar(), tgClient, registry)
			go bot.Run(ctx)
		}
	} else {
		logg.Warn("TELEGRAM_ENABLED=false; alerts disabled")
	}

	// --- Scanner ---
	scan := scanner.New(
		logg.Desugar(),
		wallex,
		nobitex,
		st,
		m,
		alerter,
		registry,
		pub,
		cfg.Assets,
		cfg.PollInterval,
		cfg.FetchTimeout,
	)
	go scan.Start(ctx)

	// --- Snapshot retention job ---
	var retention *jobs.PriceRetention
	if pg := st.(*store.HybridStore).PG; pg != nil {
		retention = jobs.NewPriceRetention(logg.Desugar(), pg, cfg.RetentionMaxAge, cfg.RetentionInterval)
		go retention.Start(ctx)
	}

	// --- Fiber HTTP Server ---
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	})

	handler := api.NewHandler(logg.Desugar(), st, scan, m)
	api.RegisterRoutes(app, m.Registry(), st, handler)

	go func() {
		logg.Infof("HTTP API listening on :%d", cfg.Port)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logg.Fatalw("fiber.listen_failed", "error", err)
		}
	}()

	logg.Infow("[arbitrage-server] running",
		"env", cfg.Env,
		"assets", cfg.Assets,
		"poll_interval", cfg.PollInterval)

	<-ctx.Done()
	logg.Info("shutting down [arbitrage-server]...")

	scan.Stop()
	if retention != nil {
		retention.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warnw("fiber.shutdown_failed", "error", err)
	}
	if nc != nil {
		if err := nc.Drain(); err != nil {
			logg.Warnw("nats.drain_failed", "error", err)
		}
	}
	if err := st.Close(); err != nil {
		logg.Warnw("store.close_failed", "error", err)
	}
}

// resolveTelegramToken prefers AWS Secrets Manager when enabled and
// falls back to the TELEGRAM_TOKEN environment variable.
func resolveTelegramToken(ctx context.Context, cfg *config.Config) (string, error) {
	if cfg.TelegramTokenFromAWS {
		awsProvider, err := secrets.NewAWSProvider(cfg.AWSRegion)
		if err != nil {
			return "", fmt.Errorf("create AWS Secrets Manager provider: %w", err)
		}
		cache := secrets.NewCache[string](cfg.CacheTTL)
		resolver := internalsecrets.NewTokenResolver(logger.L(), cfg.Env, awsProvider, cache)
		return resolver.BotToken(ctx)
	}
	if cfg.TelegramToken != "" {
		return cfg.TelegramToken, nil
	}
	return "", fmt.Errorf("neither TELEGRAM_TOKEN_FROM_AWS nor TELEGRAM_TOKEN configured")
}

// noopAlerter stands in when Telegram delivery is disabled.
type noopAlerter struct{}

func (noopAlerter) Send(context.Context, arbitrage.Opportunity, []model.Subscriber) []alert.Outcome {
	return nil
}
