// Package api provides the HTTP server and the bootstrap logic for CareSignal.
//
// It exposes endpoints for chatting, managing emergency profiles and tracking alerts,
// and wires the store, classifier, notification and alert modules together.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/BTreeMap/CareSignal/internal/alert"
	"github.com/BTreeMap/CareSignal/internal/chat"
	"github.com/BTreeMap/CareSignal/internal/distress"
	"github.com/BTreeMap/CareSignal/internal/genai"
	"github.com/BTreeMap/CareSignal/internal/notify"
	"github.com/BTreeMap/CareSignal/internal/scheduler"
	"github.com/BTreeMap/CareSignal/internal/store"
)

// Default server configuration
const (
	DefaultAddr               = ":8080"
	DefaultRateLimit          = "60-M"
	DefaultSessionIdleTimeout = 2 * time.Hour
	DefaultAlertRetention     = 24 * time.Hour
	shutdownTimeout           = 10 * time.Second
)

// Opts holds configuration for the API server.
type Opts struct {
	Addr               string
	Strategy           distress.Strategy
	CooldownPeriod     time.Duration
	HistoryLimit       int
	RedisAddr          string
	RateLimit          string
	SessionIdleTimeout time.Duration
	AlertRetention     time.Duration
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithStrategy selects the distress classifier.
func WithStrategy(s distress.Strategy) Option {
	return func(o *Opts) { o.Strategy = s }
}

// WithCooldownPeriod sets the minimum interval between alerts for one session.
func WithCooldownPeriod(d time.Duration) Option {
	return func(o *Opts) { o.CooldownPeriod = d }
}

// WithHistoryLimit sets how many recent messages accompany a completion request.
func WithHistoryLimit(n int) Option {
	return func(o *Opts) { o.HistoryLimit = n }
}

// WithRedisAddr shares alert cooldowns and rate limits through Redis.
func WithRedisAddr(addr string) Option {
	return func(o *Opts) { o.RedisAddr = addr }
}

// WithRateLimit sets the per-client rate in limiter format, e.g. "60-M".
func WithRateLimit(rate string) Option {
	return func(o *Opts) { o.RateLimit = rate }
}

func WithSessionIdleTimeout(d time.Duration) Option {
	return func(o *Opts) { o.SessionIdleTimeout = d }
}

func WithAlertRetention(d time.Duration) Option {
	return func(o *Opts) { o.AlertRetention = d }
}

func defaultOpts() Opts {
	return Opts{
		Addr:               DefaultAddr,
		Strategy:           distress.StrategyScore,
		CooldownPeriod:     alert.DefaultCooldownPeriod,
		HistoryLimit:       chat.DefaultHistoryLimit,
		RateLimit:          DefaultRateLimit,
		SessionIdleTimeout: DefaultSessionIdleTimeout,
		AlertRetention:     DefaultAlertRetention,
	}
}

// Run builds every module from its options and serves HTTP until SIGINT or SIGTERM.
func Run(storeOpts []store.Option, genaiOpts []genai.Option, notifyOpts []notify.Option, apiOpts []Option) error {
	cfg := defaultOpts()
	for _, opt := range apiOpts {
		opt(&cfg)
	}
	slog.Debug("api.Run: configuration", "addr", cfg.Addr, "strategy", cfg.Strategy, "cooldown", cfg.CooldownPeriod,
		"historyLimit", cfg.HistoryLimit, "redis_set", cfg.RedisAddr != "", "rateLimit", cfg.RateLimit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(storeOpts...)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	var gen *genai.Client
	if gen, err = genai.NewClient(genaiOpts...); err != nil {
		if !errors.Is(err, genai.ErrNoAPIKey) {
			return fmt.Errorf("failed to create GenAI client: %w", err)
		}
		slog.Warn("api.Run: OpenAI API key not set, replies will use the fallback message")
		gen = nil
	}

	strategy := cfg.Strategy
	var asker distress.YesNoAsker
	if gen != nil {
		asker = gen
	} else if strategy == distress.StrategyModel {
		slog.Warn("api.Run: model classifier needs an OpenAI key, falling back to score strategy")
		strategy = distress.StrategyScore
	}
	factory, err := distress.NewFactory(strategy, asker)
	if err != nil {
		return fmt.Errorf("failed to build classifier: %w", err)
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		slog.Info("api.Run: using Redis for cooldowns and rate limits", "addr", cfg.RedisAddr)
	}

	var cooldown alert.Cooldown = alert.NewLocalCooldown(time.Minute)
	if rdb != nil {
		cooldown = alert.NewRedisCooldown(rdb, "caresignal:cooldown:")
	}
	orch := alert.NewOrchestrator(notify.NewNotifier(notifyOpts...),
		alert.WithCooldown(cooldown),
		alert.WithCooldownPeriod(cfg.CooldownPeriod),
		alert.WithReceipts(st),
	)

	chatOpts := []chat.Option{chat.WithAlerter(orch), chat.WithHistoryLimit(cfg.HistoryLimit)}
	if gen != nil {
		chatOpts = append(chatOpts, chat.WithCompleter(gen))
	}
	sessions := chat.NewManager(st, factory, chatOpts...)

	limitStore, err := newLimiterStore(rdb)
	if err != nil {
		return err
	}
	srv, err := NewServer(st, sessions, orch, WithLimiter(limitStore, cfg.RateLimit))
	if err != nil {
		return err
	}

	sched := scheduler.NewScheduler()
	if err := sched.AddJob("purge-alerts", "@every 10m", func() {
		orch.PurgeOlderThan(time.Now().Add(-cfg.AlertRetention))
	}); err != nil {
		return err
	}
	if err := sched.AddJob("evict-sessions", "@every 5m", func() {
		sessions.EvictIdle(cfg.SessionIdleTimeout)
	}); err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("CareSignal API running", "addr", cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		<-sched.Stop().Done()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		slog.Info("api.Run: shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("api.Run: HTTP shutdown failed", "error", err)
	}
	<-sched.Stop().Done()
	// Let in-flight alert dispatches record their receipts before the store closes.
	orch.Wait()
	return nil
}

func newLimiterStore(rdb *redis.Client) (limiter.Store, error) {
	if rdb == nil {
		return memory.NewStore(), nil
	}
	s, err := sredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: "caresignal:limiter"})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis rate limit store: %w", err)
	}
	return s, nil
}
