package app

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-fleet/internal/accounts"
)

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("storage-mode", a.cfg.StorageMode),
		zap.Float64("price-threshold", a.cfg.PriceThreshold),
		zap.String("log-level", a.cfg.LogLevel))

	err := a.startComponents()
	if err != nil {
		return err
	}

	a.healthChecker.SetReady(true)

	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort),
		zap.String("gamma-url", a.cfg.PolymarketGammaURL))

	return a.waitForShutdown()
}

func (a *App) startComponents() error {
	// Start HTTP server
	a.wg.Add(1)
	go a.runHTTPServer()

	// Give HTTP server a moment to start
	time.Sleep(100 * time.Millisecond)

	if a.opts.ArmAllActive {
		a.armActiveAccounts()
	}

	a.sched.StartAutoMonitoring()

	return nil
}

// armActiveAccounts arms every active account from the store. Failures
// are logged per account and do not block startup.
func (a *App) armActiveAccounts() {
	active, err := a.store.ListActive(a.ctx)
	if err != nil {
		a.logger.Error("list-active-accounts-failed", zap.Error(err))
		return
	}

	armed := 0
	for _, account := range active {
		err := a.sched.StartAccount(a.ctx, account.ID)
		if err != nil {
			a.logger.Warn("account-arm-failed",
				zap.Int64("account_id", account.ID),
				zap.String("name", account.Name),
				zap.Error(err))
			a.markAccountError(account)
			continue
		}
		armed++
	}

	a.logger.Info("active-accounts-armed",
		zap.Int("armed", armed),
		zap.Int("active", len(active)))
}

func (a *App) markAccountError(account accounts.Account) {
	err := a.store.UpdateStatus(a.ctx, account.ID, accounts.StatusError)
	if err != nil {
		a.logger.Warn("account-status-update-failed",
			zap.Int64("account_id", account.ID),
			zap.Error(err))
	}
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
