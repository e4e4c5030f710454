package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-fleet/internal/accounts"
	"github.com/mselser95/polymarket-fleet/internal/dispatch"
	"github.com/mselser95/polymarket-fleet/internal/registry"
	"github.com/mselser95/polymarket-fleet/internal/scanner"
	"github.com/mselser95/polymarket-fleet/internal/scheduler"
	"github.com/mselser95/polymarket-fleet/internal/trader"
	"github.com/mselser95/polymarket-fleet/pkg/cache"
	"github.com/mselser95/polymarket-fleet/pkg/config"
	"github.com/mselser95/polymarket-fleet/pkg/healthprobe"
	"github.com/mselser95/polymarket-fleet/pkg/httpserver"
	"github.com/mselser95/polymarket-fleet/pkg/wallet"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	store, err := setupStore(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup store: %w", err)
	}

	marketCache, err := setupCache(logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	scan := setupScanner(cfg, logger, marketCache)
	reg := registry.New(store, traderFactory(cfg, logger), logger)
	dispatcher := dispatch.New(cfg.DispatchWorkers, logger)

	sched := scheduler.New(reg, scan, dispatcher, scheduler.StrategyConfig{
		OrderAmountUSD:  cfg.OrderAmountUSD,
		PriceThreshold:  cfg.PriceThreshold,
		CheckWindow:     cfg.CheckWindow,
		MonitorInterval: cfg.MonitorInterval,
		RedeemInterval:  cfg.RedeemInterval,
	}, cfg.OrderTimeout, cfg.SweepTimeout, logger)

	healthChecker := setupHealthChecker(sched)
	httpServer, err := setupHTTPServer(cfg, logger, healthChecker, store, sched)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup http server: %w", err)
	}

	return &App{
		cfg:           cfg,
		opts:          opts,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		store:         store,
		marketCache:   marketCache,
		scan:          scan,
		registry:      reg,
		dispatcher:    dispatcher,
		sched:         sched,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupStore(cfg *config.Config, logger *zap.Logger) (accounts.Store, error) {
	if cfg.StorageMode == "postgres" {
		return accounts.NewPostgresStore(&accounts.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
	}
	return accounts.NewFileStore(cfg.AccountsFile, logger)
}

func setupCache(logger *zap.Logger) (cache.Cache, error) {
	return cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10000,
		MaxCost:     1000,
		BufferItems: 64,
		Logger:      logger,
	})
}

func setupScanner(cfg *config.Config, logger *zap.Logger, marketCache cache.Cache) *scanner.Scanner {
	gamma := scanner.NewGammaClient(cfg.PolymarketGammaURL, logger)
	clob := scanner.NewCLOBClient(cfg.PolymarketCLOBURL, logger)
	return scanner.New(gamma, clob, marketCache, logger)
}

func traderFactory(cfg *config.Config, logger *zap.Logger) registry.TraderFactory {
	traderCfg := trader.Config{
		CLOBURL:      cfg.PolymarketCLOBURL,
		DataURL:      cfg.PolymarketDataURL,
		PolygonRPC:   cfg.PolygonRPCURL,
		OrderTimeout: cfg.OrderTimeout,
	}
	return func(account accounts.Account) (trader.Trader, error) {
		return trader.New(account, traderCfg, logger)
	}
}

func setupHealthChecker(sched *scheduler.Scheduler) *healthprobe.HealthChecker {
	return healthprobe.New(func() (string, int) {
		return string(sched.CurrentState()), len(sched.RunningAccounts())
	})
}

func setupHTTPServer(
	cfg *config.Config,
	logger *zap.Logger,
	healthChecker *healthprobe.HealthChecker,
	store accounts.Store,
	sched *scheduler.Scheduler,
) (*httpserver.Server, error) {
	walletClient, err := wallet.NewClient(cfg.PolygonRPCURL, logger)
	if err != nil {
		return nil, fmt.Errorf("create wallet client: %w", err)
	}

	balance := func(r *http.Request, account accounts.Account) (float64, error) {
		address := account.ProxyWallet
		if address == "" {
			return 0, fmt.Errorf("account %d has no wallet address on record", account.ID)
		}
		return walletClient.USDCBalance(r.Context(), common.HexToAddress(address))
	}

	api := httpserver.NewAPIHandler(store, sched, balance, logger)

	return httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		API:           api,
	}), nil
}
