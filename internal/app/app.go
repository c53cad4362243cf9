package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"stockchart/internal/cache"
	"stockchart/internal/chart"
	"stockchart/internal/config"
	"stockchart/internal/entitlement"
	"stockchart/internal/fetcher"
	"stockchart/internal/quotestream"
	"stockchart/internal/service"
	"stockchart/internal/storage"
	"stockchart/internal/version"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	// Out receives command output. Logs go to the logger's own writer.
	Out io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{
		Config: cfg,
		Logger: logger.With().Str("component", "app").Logger(),
		Out:    os.Stdout,
	}
}

func (a *App) newClient() *fetcher.Client {
	userAgent := a.Config.API.UserAgent
	if userAgent == "" {
		userAgent = version.UserAgent()
	}
	return fetcher.NewClient(fetcher.Options{
		BaseURL:   a.Config.API.BaseURL,
		Timeout:   a.Config.API.RequestTimeout,
		UserAgent: userAgent,
		Retry: fetcher.RetryOptions{
			MaxAttempts: a.Config.API.RetryAttempts,
			BaseDelay:   a.Config.API.RetryBaseDelay,
			MaxDelay:    a.Config.API.RetryMaxDelay,
		},
	}, a.Logger)
}

func (a *App) newStream() service.Subscriber {
	if !a.Config.Stream.Enabled {
		return nil
	}
	return quotestream.New(quotestream.Options{
		URL:              a.Config.StreamURL(),
		HandshakeTimeout: a.Config.Stream.HandshakeTimeout,
		ReadTimeout:      a.Config.Stream.ReadTimeout,
	}, a.Logger)
}

func (a *App) newRenderer() *chart.Renderer {
	return chart.NewRenderer(chart.Options{
		Width:     a.Config.Chart.Width,
		Height:    a.Config.Chart.Height,
		Format:    a.Config.Chart.Format,
		UpColor:   a.Config.Chart.UpColor,
		DownColor: a.Config.Chart.DownColor,
		Gate:      entitlement.NewGate(entitlement.ParseTier(a.Config.Entitlement.RequiredTier)),
	}, a.Logger)
}

// cacheHandle bundles the opened series cache with its backend.
type cacheHandle struct {
	series *cache.SeriesCache
	locker storage.AdvisoryLocker
	close  func()
}

func (a *App) openCache(ctx context.Context) (*cacheHandle, error) {
	opts := cache.Options{MinDailyPoints: a.Config.Cache.MinDailyPoints}

	switch a.Config.Cache.Driver {
	case config.CacheSQLite:
		store, err := storage.OpenSQLite(ctx, a.Config.Cache.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &cacheHandle{
			series: cache.New(store, opts, a.Logger),
			close:  func() { store.Close() },
		}, nil
	case config.CachePostgres:
		store, err := storage.OpenPostgres(ctx, a.Config.Database)
		if err != nil {
			return nil, err
		}
		return &cacheHandle{
			series: cache.New(store, opts, a.Logger),
			locker: store,
			close:  store.Close,
		}, nil
	case config.CacheMemory, "":
		a.Logger.Debug().Msg("cache.driver is memory; history is not persisted between runs")
		return &cacheHandle{
			series: cache.New(cache.NewMemoryKV(), opts, a.Logger),
			close:  func() {},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported cache driver %q", a.Config.Cache.Driver)
	}
}

func (a *App) newDetail(symbol string, history fetcher.HistoryFetcher, prices fetcher.PriceFetcher, seriesCache *cache.SeriesCache) (*service.Detail, error) {
	return service.NewDetail(symbol, service.Dependencies{
		History:  history,
		Prices:   prices,
		Cache:    seriesCache,
		Stream:   a.newStream(),
		Renderer: a.newRenderer(),
	}, service.Options{PollInterval: a.Config.Poller.Interval}, a.Logger)
}

// withSignals cancels ctx on SIGINT or SIGTERM.
func withSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
}

// WindowOptions configure the window command.
type WindowOptions struct {
	Symbol   string
	Interval string
	CSVPath  string
}

// ChartOptions configure the chart command.
type ChartOptions struct {
	Symbol   string
	Interval string
	Variant  string
	Tier     string
	Out      string
}

// WarmOptions configure the cache warm command.
type WarmOptions struct {
	Once    bool
	Symbols []string
}

// SimulateOptions configure an offline render over synthetic history.
type SimulateOptions struct {
	Symbol     string
	Interval   string
	Points     int
	StartPrice float64
	Seed       int64
	Variant    string
	Tier       string
	Out        string
}
