// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/andres-erbsen/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/topbags/internal/aggregator"
	"github.com/rovshanmuradov/topbags/internal/api"
	"github.com/rovshanmuradov/topbags/internal/bags"
	"github.com/rovshanmuradov/topbags/internal/birdeye"
	"github.com/rovshanmuradov/topbags/internal/cache"
	"github.com/rovshanmuradov/topbags/internal/config"
	"github.com/rovshanmuradov/topbags/internal/details"
	"github.com/rovshanmuradov/topbags/internal/earnings"
	"github.com/rovshanmuradov/topbags/internal/events"
	"github.com/rovshanmuradov/topbags/internal/market"
	"github.com/rovshanmuradov/topbags/internal/metrics"
	"github.com/rovshanmuradov/topbags/internal/oracle"
	"github.com/rovshanmuradov/topbags/internal/state"
	"github.com/rovshanmuradov/topbags/internal/tokenlist"
	"github.com/rovshanmuradov/topbags/internal/upstream"
)

// CacheKeyPrefix namespaces every redis key of the service.
const CacheKeyPrefix = "topbags:"

// App holds the wired service graph.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	Metrics  *metrics.Collector
	Bus      *events.Bus
	Oracle   *oracle.Oracle
	Store    *state.Store
	Runner   *aggregator.Runner
	Poller   *aggregator.Poller
	TokenSrc aggregator.TokenSource
	Cache    cache.Store
	Handler  *api.Handler
}

// New builds every component from cfg. Nothing is started.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{
		cfg:     cfg,
		logger:  logger,
		Metrics: metrics.NewCollector(),
		Bus:     events.NewBus(logger, 256),
		Store:   state.NewStore(logger),
	}

	client := func(source string, perMinute int, opts ...upstream.Option) *upstream.Client {
		opts = append(opts,
			upstream.WithTimeout(cfg.RequestTimeout),
			upstream.WithRateLimit(perMinute),
			upstream.WithMetrics(a.Metrics),
		)
		return upstream.NewClient(source, logger, opts...)
	}

	// SOL/USD
	a.Oracle = oracle.New(
		oracle.NewCoinGecko(cfg.CoinGeckoURL, client("coingecko", 30)),
		logger,
		oracle.WithTTL(cfg.RateTTL),
		oracle.WithMetrics(a.Metrics),
		oracle.WithBus(a.Bus),
	)

	// Upstreams
	bagsUpstream := client("bags", bags.RateLimit, upstream.WithHeader("x-api-key", cfg.BagsAPIKey))
	bagsClient := bags.NewClient(cfg.BagsEndpoints[0], bagsUpstream, logger)
	dex := market.NewFetcher(cfg.DexScreenerURL, client("dexscreener", market.RateLimit), logger)

	var be details.MarketFallback
	if cfg.BirdeyeAPIKey != "" {
		be = birdeye.NewClient(cfg.BirdeyeURL, cfg.BirdeyeAPIKey,
			client("birdeye", 60, upstream.WithHeader("X-API-KEY", cfg.BirdeyeAPIKey)), logger)
	}

	// Earnings
	lifetime := earnings.NewLifetimeFeesSource(bagsClient, a.Oracle, logger)
	var earn earnings.Source
	if cfg.ProxyURL != "" {
		earn = earnings.NewChain(logger,
			earnings.NewProxySource(cfg.ProxyURL, client("proxy", 0), logger),
			lifetime,
		)
	} else {
		earn = earnings.NewChain(logger,
			earnings.NewClaimStatsSource(claimEndpoints(cfg.BagsEndpoints), bagsUpstream, a.Oracle, logger),
			lifetime,
		)
	}

	// Token list
	remote := tokenlist.New(bagsClient, logger,
		tokenlist.WithTTL(cfg.TokenListTTL),
		tokenlist.WithMetrics(a.Metrics),
	)
	if cfg.UseRemoteTokenList {
		a.TokenSrc = remote
	} else {
		a.TokenSrc = aggregator.StaticTokens(cfg.Tokens)
	}

	// Aggregation
	agg := aggregator.New(dex, earn, logger,
		aggregator.WithStagger(cfg.Stagger),
		aggregator.WithMetrics(a.Metrics),
	)
	policy := aggregator.DefaultRetryPolicy()
	policy.MaxTries = cfg.Retries
	a.Runner = aggregator.NewRunner(agg, a.TokenSrc, policy, logger)
	a.Poller = aggregator.NewPoller(a.Runner, a.Store, a.Bus, cfg.PollInterval, logger)

	// Response cache
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisURL, CacheKeyPrefix)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		a.Cache = rc
	} else {
		a.Cache = cache.NewMemory(clock.New())
	}

	a.Handler = api.NewHandler(api.Deps{
		Fees:    lifetime,
		Details: details.NewService(bagsClient, dex, be, lifetime, logger),
		Tokens:  remote,
		Store:   a.Store,
		Cache:   a.Cache,
		Metrics: a.Metrics,
	}, logger)

	logger.Debug("Service graph built",
		zap.Bool("remote_token_list", cfg.UseRemoteTokenList),
		zap.Int("static_tokens", len(cfg.Tokens)),
		zap.Bool("birdeye", be != nil),
		zap.Bool("proxy", cfg.ProxyURL != ""),
		zap.Bool("redis", cfg.RedisURL != ""))

	return a, nil
}

// claimEndpoints names each configured base URL by its host.
func claimEndpoints(bases []string) []earnings.Endpoint {
	out := make([]earnings.Endpoint, 0, len(bases))
	for _, b := range bases {
		name := b
		if u, err := url.Parse(b); err == nil && u.Host != "" {
			name = u.Host
		}
		out = append(out, earnings.Endpoint{Name: name, BaseURL: b})
	}
	return out
}

// Serve runs the poller and the HTTP API until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Poller.Start(ctx)
		return nil
	})
	g.Go(func() error {
		srv := api.NewServer(a.cfg.ListenAddr, api.NewRouter(a.Handler, a.cfg.AllowOrigins), a.logger)
		return srv.Run(ctx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Snapshot runs one batch synchronously and stores it.
func (a *App) Snapshot(ctx context.Context) error {
	return a.Poller.RefreshNow(ctx)
}

// Close drains the event bus and releases the cache.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.Bus.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("event bus: %w", err))
	}
	if err := a.Cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("cache: %w", err))
	}
	return errors.Join(errs...)
}

// SyncLogger flushes logger, ignoring the errors terminals return for stdout.
func SyncLogger(logger *zap.Logger) {
	if err := logger.Sync(); err != nil {
		if !os.IsNotExist(err) &&
			err.Error() != "sync /dev/stdout: invalid argument" &&
			err.Error() != "sync /dev/stderr: inappropriate ioctl for device" {
			fmt.Fprintf(os.Stderr, "failed to sync logger during shutdown: %v\n", err)
		}
	}
}

// ShutdownTimeout bounds Close during process exit.
const ShutdownTimeout = 5 * time.Second
