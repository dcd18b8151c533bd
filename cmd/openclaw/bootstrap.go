package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"openclaw-agent/internal/analyst"
	"openclaw-agent/internal/backtest"
	"openclaw-agent/internal/backtest/backtestobs"
	"openclaw-agent/internal/broker/alpaca"
	"openclaw-agent/internal/broker/brokerobs"
	"openclaw-agent/internal/broker/static"
	"openclaw-agent/internal/interfaces"
	"openclaw-agent/internal/llm/llmobs"
	"openclaw-agent/internal/llm/noop"
	"openclaw-agent/internal/llm/openai"
	"openclaw-agent/internal/logger"
	"openclaw-agent/internal/notify"
	"openclaw-agent/internal/notify/notifyobs"
	"openclaw-agent/internal/regime"
	"openclaw-agent/internal/repository"
	"openclaw-agent/internal/scanner"
	"openclaw-agent/internal/store"
	"openclaw-agent/internal/tradelog"
	"openclaw-agent/internal/trader"
)

// staticSeed fixes the synthetic price series of the offline broker.
const staticSeed = 7

// app holds every wired service for one process.
type app struct {
	cfg        *store.Config
	broker     interfaces.Broker
	notifier   interfaces.Notifier
	journal    *tradelog.Journal
	results    interfaces.ResultStore
	backtester interfaces.Backtester
	scanner    *scanner.Scanner
	analyst    *analyst.Analyst
	trader     *trader.Trader
	pool       *pgxpool.Pool
}

// initializeSystem loads the environment and starts logging. The logger
// sets tracing up from the same environment.
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// loadConfig reads path, falling back to the built-in defaults when the
// file does not exist.
func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn(ctx, "Config file not found, using defaults", "path", path)
		cfg = store.Default()
		cfg.Secrets = store.SecretsFromEnv()
		return cfg, nil
	}
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err)
		return nil, err
	}
	return cfg, nil
}

func newApp(ctx context.Context, cfg *store.Config) (*app, error) {
	a := &app{cfg: cfg}

	brk, err := initializeBroker(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.broker = brk
	a.notifier = initializeNotifier(ctx, cfg)
	commentator := initializeCommentator(ctx, cfg)

	a.journal = tradelog.New(cfg.Storage.LogDir)
	compressOldLogs(ctx, a.journal, cfg.Storage.LogRetention)

	if err := a.initializeResults(ctx); err != nil {
		return nil, err
	}

	simCfg, err := cfg.SimulatorConfig()
	if err != nil {
		a.close()
		return nil, err
	}
	opts := []backtest.RunnerOption{
		backtest.WithBenchmark(cfg.Benchmark),
		backtest.WithConcurrency(cfg.Backtest.Concurrency),
		backtest.WithCommentator(commentator),
		backtest.WithResultStore(a.results),
	}
	if cfg.Backtest.CSVDir != "" {
		opts = append(opts, backtest.WithCSVDir(cfg.Backtest.CSVDir))
	}
	runner, err := backtest.NewRunner(brk, simCfg, cfg.Watchlist, opts...)
	if err != nil {
		a.close()
		return nil, err
	}
	a.backtester = backtestobs.Wrap(runner)

	exec := trader.NewExecutor(brk, a.journal)
	a.scanner = scanner.New(scannerConfig(cfg), brk, exec, a.notifier, scanner.WithDecisionJournal(a.journal))
	a.analyst = analyst.New(brk, commentator, cfg.Scanner.LookbackDays)
	a.trader = trader.New(brk, exec, a.notifier)
	return a, nil
}

func scannerConfig(cfg *store.Config) scanner.Config {
	sc := scanner.DefaultConfig(cfg.Watchlist)
	sc.Benchmark = cfg.Benchmark
	sc.LookbackDays = cfg.Scanner.LookbackDays
	sc.MinBars = cfg.Scanner.MinBars
	sc.Report = cfg.Scanner.Report
	sc.MaxBuys = cfg.Scanner.MaxBuys
	sc.MinScore = cfg.Scanner.MinScore
	sc.BuyQty = cfg.Scanner.BuyQty
	sc.Concurrency = cfg.Backtest.Concurrency
	sc.Policy = cfg.Policy
	sc.Regime = regime.New(cfg.Simulation.RegimeWindow)
	return sc
}

func (a *app) close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

// compressOldLogs gzips journal files older than the retention window.
func compressOldLogs(ctx context.Context, j *tradelog.Journal, retentionDays int) {
	if retentionDays <= 0 {
		return
	}
	n, err := j.CompressOlder(retentionDays)
	if err != nil {
		logger.Warn(ctx, "Failed to compress old logs", "error", err)
		return
	}
	if n > 0 {
		logger.Info(ctx, "Compressed old journal files", "count", n, "dir", j.Dir())
	}
}

// initializeBroker returns the market data and order backend, wrapped with
// observability.
func initializeBroker(ctx context.Context, cfg *store.Config) (interfaces.Broker, error) {
	if cfg.Mode == "DRY_RUN" {
		logger.Warn(ctx, "Running in DRY_RUN mode - orders will be simulated")
	}

	var brk interfaces.Broker
	if cfg.DataSource == "LIVE" {
		a, err := alpaca.New(alpaca.Params{
			Mode:       cfg.Mode,
			KeyID:      cfg.Secrets.AlpacaKey,
			Secret:     cfg.Secrets.AlpacaSecret,
			TradingURL: cfg.Secrets.AlpacaBaseURL,
			CacheTTL:   cfg.Cache.TTL,
		})
		if err != nil {
			return nil, fmt.Errorf("alpaca: %w", err)
		}
		logger.Info(ctx, "Using LIVE market data from Alpaca")
		brk = a
	} else {
		logger.Info(ctx, "Using STATIC synthetic market data")
		brk = static.New(staticSeed, cfg.Backtest.InitialCapital)
	}
	return brokerobs.Wrap(brk), nil
}

// initializeCommentator returns the Groq commentator when enabled and
// keyed, otherwise one that stays silent.
func initializeCommentator(ctx context.Context, cfg *store.Config) interfaces.Commentator {
	var c interfaces.Commentator = noop.New()
	if cfg.LLM.Enabled {
		g, err := openai.New(openai.Params{
			APIKey:      cfg.Secrets.GroqKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		})
		if err != nil {
			logger.Warn(ctx, "LLM commentary disabled", "error", err)
		} else {
			c = g
		}
	}
	return llmobs.Wrap(c)
}

func initializeNotifier(ctx context.Context, cfg *store.Config) interfaces.Notifier {
	var targets notify.Multi
	if cfg.Notify.Telegram {
		t, err := notify.NewTelegram(notify.TelegramParams{
			Token:  cfg.Secrets.TelegramToken,
			ChatID: cfg.Secrets.ChatID,
		})
		if err != nil {
			logger.Warn(ctx, "Telegram notifications disabled", "error", err)
		} else {
			targets = append(targets, t)
		}
	}
	// reports always reach somebody
	if cfg.Notify.Console || len(targets) == 0 {
		targets = append(targets, notify.NewConsole(os.Stdout))
	}
	return notifyobs.Wrap(targets)
}

func (a *app) initializeResults(ctx context.Context) error {
	if a.cfg.Storage.Driver != "postgres" {
		a.results = repository.NewInMemoryRunRepository()
		return nil
	}
	if a.cfg.Secrets.DatabaseURL == "" {
		return errors.New("storage.driver is postgres but DATABASE_URL is not set")
	}
	pool, err := repository.NewPool(ctx, a.cfg.Secrets.DatabaseURL, repository.PoolConfigFromEnv())
	if err != nil {
		return err
	}
	if err := repository.Migrate(ctx, pool); err != nil {
		pool.Close()
		return err
	}
	a.pool = pool
	a.results = repository.NewPostgresRunRepository(pool)
	logger.Info(ctx, "Backtest results stored in PostgreSQL")
	return nil
}
