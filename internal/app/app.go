// Package app wires configuration, storage, providers and services into one application.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketlens/internal/common"
	"github.com/ternarybob/marketlens/internal/eodhd"
	"github.com/ternarybob/marketlens/internal/finnhub"
	"github.com/ternarybob/marketlens/internal/gnews"
	"github.com/ternarybob/marketlens/internal/gtrends"
	"github.com/ternarybob/marketlens/internal/handlers"
	"github.com/ternarybob/marketlens/internal/interfaces"
	"github.com/ternarybob/marketlens/internal/services/analysis"
	"github.com/ternarybob/marketlens/internal/services/competitors"
	"github.com/ternarybob/marketlens/internal/services/conversation"
	"github.com/ternarybob/marketlens/internal/services/dispatch"
	"github.com/ternarybob/marketlens/internal/services/fetch"
	"github.com/ternarybob/marketlens/internal/services/insight"
	"github.com/ternarybob/marketlens/internal/services/keyword"
	"github.com/ternarybob/marketlens/internal/services/llm"
	"github.com/ternarybob/marketlens/internal/services/report"
	"github.com/ternarybob/marketlens/internal/services/scheduler"
	"github.com/ternarybob/marketlens/internal/services/ticker"
	"github.com/ternarybob/marketlens/internal/services/toptrends"
	"github.com/ternarybob/marketlens/internal/services/transform"
	"github.com/ternarybob/marketlens/internal/storage/badger"
	"github.com/ternarybob/marketlens/internal/warehouse"
	"github.com/ternarybob/marketlens/internal/yahoo"
)

// Scheduler job names
const (
	RefreshJobName      = "refresh_top_terms"   // Reloads the top terms snapshot
	SessionSweepJobName = "sweep_idle_sessions" // Purges idle conversation sessions
)

// App holds all application components and dependencies
type App struct {
	Config    *common.Config
	Logger    arbor.ILogger
	ctx       context.Context
	cancelCtx context.CancelFunc
	DB        *badger.BadgerDB

	// Providers
	LLM       *llm.ProviderFactory
	Trends    interfaces.TrendsProvider
	News      interfaces.NewsProvider
	Prices    interfaces.PriceProvider
	Warehouse interfaces.Warehouse

	// Services
	Sessions   *conversation.Manager
	TopTerms   *toptrends.Service
	Analysis   *analysis.Service
	Dispatcher *dispatch.Dispatcher
	Reports    *report.Service
	Scheduler  *scheduler.Service

	// HTTP handlers
	APIHandler       *handlers.APIHandler
	AnalysisHandler  *handlers.AnalysisHandler
	SessionHandler   *handlers.SessionHandler
	ReportHandler    *handlers.ReportHandler
	TrendsHandler    *handlers.TrendsHandler
	SchedulerHandler *handlers.SchedulerHandler
	WSHandler        *handlers.WebSocketHandler
}

// New initializes the application. The warehouse is optional: failing to reach it
// leaves general trends reporting no data rather than aborting startup.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config:    cfg,
		Logger:    logger,
		ctx:       ctx,
		cancelCtx: cancel,
	}

	if err := app.initDatabase(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initProviders(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	app.initServices()
	app.initHandlers()

	logger.Info().
		Str("llm", string(cfg.LLM.DefaultProvider)).
		Str("prices", cfg.Prices.Provider).
		Str("news", cfg.News.Provider).
		Bool("warehouse", app.Warehouse != nil).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase opens the Badger store used for sessions and the top terms snapshot
func (a *App) initDatabase() error {
	db, err := badger.NewBadgerDB(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return err
	}
	a.DB = db
	return nil
}

// initProviders builds the external data providers selected by config
func (a *App) initProviders() error {
	cfg := a.Config

	a.LLM = llm.NewProviderFactory(cfg, a.Logger)
	a.Trends = gtrends.NewClient(&cfg.Trends, a.Logger)

	switch cfg.News.Provider {
	case "finnhub":
		a.News = finnhub.NewClient(cfg.News.APIKey, cfg.News.Max, a.Logger)
	default:
		a.News = gnews.NewClient(cfg.News.APIKey,
			gnews.WithBaseURL(cfg.News.BaseURL),
			gnews.WithSearchDefaults(cfg.News.Language, cfg.News.Country, cfg.News.Max),
			gnews.WithLogger(a.Logger),
		)
	}
	if cfg.News.APIKey == "" {
		a.Logger.Warn().Str("provider", cfg.News.Provider).Msg("News API key not configured, news will be unavailable")
	}

	switch cfg.Prices.Provider {
	case "eodhd":
		if cfg.Prices.APIKey == "" {
			return fmt.Errorf("prices.provider is eodhd but no EODHD API key is configured")
		}
		a.Prices = eodhd.NewClient(cfg.Prices.APIKey,
			eodhd.WithBaseURL(cfg.Prices.BaseURL),
			eodhd.WithLogger(a.Logger),
		)
	default:
		a.Prices = yahoo.NewClient(a.Logger)
	}

	if cfg.Warehouse.Enabled {
		wh, err := warehouse.NewBigQuery(a.ctx, &cfg.Warehouse, a.Logger)
		if err != nil {
			a.Logger.Warn().Err(err).Msg("Warehouse unavailable, general trends will use the stored snapshot")
		} else {
			a.Warehouse = wh
		}
	}

	return nil
}

// initServices wires the orchestration services over the providers
func (a *App) initServices() {
	cfg := a.Config
	logger := a.Logger

	var sessionStorage interfaces.SessionStorage
	if cfg.Session.Persist {
		sessionStorage = badger.NewSessionStorage(a.DB, logger)
	}
	a.Sessions = conversation.NewManager(a.LLM, sessionStorage, &cfg.Session, logger)

	a.TopTerms = toptrends.NewService(a.Warehouse, badger.NewSnapshotStorage(a.DB, logger), a.LLM, &cfg.Warehouse, logger)
	a.TopTerms.Load(a.ctx)

	transformer := transform.NewService(logger)
	tickers := ticker.NewResolver(a.Prices, &cfg.Ticker, logger)
	competitorSuggester := competitors.NewSuggester(logger)
	keywords := keyword.NewSuggester(logger)
	trendFetcher := fetch.NewTrendFetcher(a.Trends, cfg.Trends.ProviderLimits, logger)
	newsFetcher := fetch.NewNewsFetcher(a.News, transformer, cfg.News.ProviderLimits, logger)
	priceFetcher := fetch.NewPriceFetcher(a.Prices, &cfg.Prices, logger)

	a.Analysis = analysis.NewService(
		tickers,
		competitorSuggester,
		keywords,
		trendFetcher,
		newsFetcher,
		priceFetcher,
		insight.NewSynthesizer(logger),
		logger,
	)

	a.Dispatcher = dispatch.NewDispatcher(
		a.Analysis,
		a.TopTerms,
		tickers,
		competitorSuggester,
		keywords,
		newsFetcher,
		priceFetcher,
		logger,
	)

	a.Reports = report.NewService(logger)

	a.Scheduler = scheduler.NewService(logger)
	if a.Warehouse != nil && cfg.Warehouse.RefreshSchedule != "" {
		timeout := common.ParseDurationOr(cfg.Warehouse.Timeout, time.Minute)
		if err := a.Scheduler.RegisterJob(RefreshJobName, cfg.Warehouse.RefreshSchedule,
			"Reload the top search terms snapshot from the warehouse", timeout, a.TopTerms.Refresh); err != nil {
			logger.Warn().Err(err).Msg("Failed to register top terms refresh job")
		}
	}
	if cfg.Session.IdleTTL != "" && cfg.Session.SweepSchedule != "" {
		if err := a.Scheduler.RegisterJob(SessionSweepJobName, cfg.Session.SweepSchedule,
			"Purge conversation sessions idle longer than "+cfg.Session.IdleTTL, time.Minute, a.Sessions.Sweep); err != nil {
			logger.Warn().Err(err).Msg("Failed to register session sweep job")
		}
	}
}

// initHandlers builds the HTTP handlers
func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.Config, a.Logger)
	a.AnalysisHandler = handlers.NewAnalysisHandler(a.Sessions, a.Analysis, a.Dispatcher, a.Logger)
	a.SessionHandler = handlers.NewSessionHandler(a.Sessions, a.Logger)
	a.ReportHandler = handlers.NewReportHandler(a.Reports, a.Logger)
	a.TrendsHandler = handlers.NewTrendsHandler(a.TopTerms, a.Logger)
	a.SchedulerHandler = handlers.NewSchedulerHandler(a.Scheduler, a.Logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.Sessions, a.Dispatcher, a.Logger)
}

// Context is cancelled by Close. An App built without New reports context.Background.
func (a *App) Context() context.Context {
	if a.ctx == nil {
		return context.Background()
	}
	return a.ctx
}

// StartBackground starts scheduled jobs. Only the server runs them.
func (a *App) StartBackground() {
	a.Scheduler.Start()
}

// Close releases application resources in reverse order of creation
func (a *App) Close() error {
	if a.cancelCtx != nil {
		a.cancelCtx()
	}

	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}

	if a.Warehouse != nil {
		if err := a.Warehouse.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close warehouse client")
		}
	}

	if a.LLM != nil {
		if err := a.LLM.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM service")
		}
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
