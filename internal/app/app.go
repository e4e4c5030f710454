package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-fleet/internal/accounts"
	"github.com/mselser95/polymarket-fleet/internal/dispatch"
	"github.com/mselser95/polymarket-fleet/internal/registry"
	"github.com/mselser95/polymarket-fleet/internal/scanner"
	"github.com/mselser95/polymarket-fleet/internal/scheduler"
	"github.com/mselser95/polymarket-fleet/pkg/cache"
	"github.com/mselser95/polymarket-fleet/pkg/config"
	"github.com/mselser95/polymarket-fleet/pkg/healthprobe"
	"github.com/mselser95/polymarket-fleet/pkg/httpserver"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	opts          *Options
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	store         accounts.Store
	marketCache   cache.Cache
	scan          *scanner.Scanner
	registry      *registry.Registry
	dispatcher    *dispatch.Dispatcher
	sched         *scheduler.Scheduler
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// Options holds application options.
type Options struct {
	// ArmAllActive arms every active account and starts the monitor
	// loop immediately instead of waiting for API calls.
	ArmAllActive bool
}
