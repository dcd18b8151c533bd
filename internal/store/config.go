package store

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"openclaw-agent/internal/backtest"
	"openclaw-agent/internal/policy"
	"openclaw-agent/internal/regime"
	"openclaw-agent/internal/types"
)

type Config struct {
	Mode       string   `yaml:"mode"`
	DataSource string   `yaml:"data_source"`
	Watchlist  []string `yaml:"watchlist"`
	Benchmark  string   `yaml:"benchmark"`

	Backtest struct {
		Start          string  `yaml:"start"`
		InitialCapital float64 `yaml:"initial_capital"`
		Concurrency    int     `yaml:"concurrency"`
		CSVDir         string  `yaml:"csv_dir"`
	} `yaml:"backtest"`

	Simulation struct {
		MaxPositions     int     `yaml:"max_positions"`
		MaxEntriesPerDay int     `yaml:"max_entries_per_day"`
		MinScore         int     `yaml:"min_score"`
		MinCashFraction  float64 `yaml:"min_cash_fraction"`
		MinBars          int     `yaml:"min_bars"`
		MinHistory       int     `yaml:"min_history"`
		RegimeWindow     int     `yaml:"regime_window"`
	} `yaml:"simulation"`

	Policy policy.Policy `yaml:"policy"`

	Scanner struct {
		LookbackDays int `yaml:"lookback_days"`
		MinBars      int `yaml:"min_bars"`
		Report       int `yaml:"report"`
		MaxBuys      int `yaml:"max_buys"`
		MinScore     int `yaml:"min_score"`
		BuyQty       int `yaml:"buy_qty"`
	} `yaml:"scanner"`

	LLM struct {
		Enabled     bool    `yaml:"enabled"`
		BaseURL     string  `yaml:"base_url"`
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
	} `yaml:"llm"`

	Notify struct {
		Telegram bool `yaml:"telegram"`
		Console  bool `yaml:"console"`
	} `yaml:"notify"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Storage struct {
		Driver       string `yaml:"driver"`
		LogDir       string `yaml:"log_dir"`
		LogRetention int    `yaml:"log_retention_days"`
	} `yaml:"storage"`

	Cache struct {
		TTL time.Duration `yaml:"ttl"`
	} `yaml:"cache"`

	Secrets Secrets `yaml:"-"`
}

// Secrets come from the environment only, never from the YAML file.
type Secrets struct {
	AlpacaKey     string
	AlpacaSecret  string
	AlpacaBaseURL string
	GroqKey       string
	TelegramToken string
	ChatID        string
	DatabaseURL   string
}

func SecretsFromEnv() Secrets {
	return Secrets{
		AlpacaKey:     os.Getenv("ALPACA_API_KEY"),
		AlpacaSecret:  os.Getenv("ALPACA_SECRET_KEY"),
		AlpacaBaseURL: os.Getenv("ALPACA_BASE_URL"),
		GroqKey:       os.Getenv("GROQ_API_KEY"),
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		ChatID:        os.Getenv("CHAT_ID"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
	}
}

var DefaultWatchlist = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA",
	"META", "TSLA", "AMD", "NFLX", "CRM",
	"SHOP", "SQ", "COIN", "PLTR", "UBER",
	"SNAP", "SPOT", "ZM", "RBLX", "PYPL",
}

// Default is the configuration used when no file is given.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = "DRY_RUN"
	}
	if c.DataSource == "" {
		c.DataSource = "STATIC"
	}
	if len(c.Watchlist) == 0 {
		c.Watchlist = append([]string(nil), DefaultWatchlist...)
	}
	c.Watchlist = normalizeSymbols(c.Watchlist)
	if c.Benchmark == "" {
		c.Benchmark = "SPY"
	}

	def := backtest.DefaultConfig()
	if c.Backtest.Start == "" {
		c.Backtest.Start = "2024-08-01"
	}
	if c.Backtest.InitialCapital == 0 {
		c.Backtest.InitialCapital = def.InitialCapital
	}
	if c.Backtest.Concurrency == 0 {
		c.Backtest.Concurrency = 4
	}

	s := &c.Simulation
	if s.MaxPositions == 0 {
		s.MaxPositions = def.MaxPositions
	}
	if s.MaxEntriesPerDay == 0 {
		s.MaxEntriesPerDay = def.MaxEntriesPerDay
	}
	if s.MinScore == 0 {
		s.MinScore = def.MinScore
	}
	if s.MinCashFraction == 0 {
		s.MinCashFraction = def.MinCashFraction
	}
	if s.MinBars == 0 {
		s.MinBars = def.MinBars
	}
	if s.MinHistory == 0 {
		s.MinHistory = def.MinHistory
	}
	if s.RegimeWindow == 0 {
		s.RegimeWindow = regime.DefaultWindow
	}

	p, dp := &c.Policy, policy.Default()
	if p.TakeProfitPct == 0 {
		p.TakeProfitPct = dp.TakeProfitPct
	}
	if p.StopLossPct == 0 {
		p.StopLossPct = dp.StopLossPct
	}
	if p.MaxHoldDays == 0 {
		p.MaxHoldDays = dp.MaxHoldDays
	}
	if p.InvestFraction == 0 {
		p.InvestFraction = dp.InvestFraction
	}
	if p.CashDivisor == 0 {
		p.CashDivisor = dp.CashDivisor
	}

	sc := &c.Scanner
	if sc.LookbackDays == 0 {
		sc.LookbackDays = 60
	}
	if sc.MinBars == 0 {
		sc.MinBars = 10
	}
	if sc.Report == 0 {
		sc.Report = 5
	}
	if sc.MaxBuys == 0 {
		sc.MaxBuys = 3
	}
	if sc.MinScore == 0 {
		sc.MinScore = 50
	}
	if sc.BuyQty == 0 {
		sc.BuyQty = 2
	}

	if c.LLM.Model == "" {
		c.LLM.Model = "llama-3.3-70b-versatile"
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 300
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.LogDir == "" {
		c.Storage.LogDir = "logs"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 5 * time.Minute
	}
}

// normalizeSymbols upper-cases and trims each symbol and drops repeats,
// keeping the first occurrence.
func normalizeSymbols(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if c.DataSource != "STATIC" && c.DataSource != "LIVE" {
		return fmt.Errorf("invalid data_source '%s': must be 'STATIC' or 'LIVE'", c.DataSource)
	}
	if len(c.Watchlist) == 0 {
		return errors.New("watchlist cannot be empty")
	}
	for _, sym := range c.Watchlist {
		if sym == "" {
			return errors.New("watchlist contains an empty symbol")
		}
	}
	if _, err := types.ParseDay(c.Backtest.Start); err != nil {
		return fmt.Errorf("backtest.start must be YYYY-MM-DD, got '%s'", c.Backtest.Start)
	}
	if c.Storage.Driver != "memory" && c.Storage.Driver != "postgres" {
		return fmt.Errorf("storage.driver must be 'memory' or 'postgres', got '%s'", c.Storage.Driver)
	}
	if c.Scanner.BuyQty <= 0 || c.Scanner.MinBars <= 0 || c.Scanner.LookbackDays <= 0 {
		return errors.New("scanner.buy_qty, scanner.min_bars and scanner.lookback_days must be positive")
	}
	if _, err := c.SimulatorConfig(); err != nil {
		return err
	}
	return nil
}

// SimulatorConfig maps the backtest and simulation sections onto the
// simulator's own configuration and validates it.
func (c *Config) SimulatorConfig() (backtest.Config, error) {
	cfg := backtest.Config{
		InitialCapital:   c.Backtest.InitialCapital,
		MaxPositions:     c.Simulation.MaxPositions,
		MaxEntriesPerDay: c.Simulation.MaxEntriesPerDay,
		MinScore:         c.Simulation.MinScore,
		MinCashFraction:  c.Simulation.MinCashFraction,
		MinBars:          c.Simulation.MinBars,
		MinHistory:       c.Simulation.MinHistory,
		Policy:           c.Policy,
		Regime:           regime.New(c.Simulation.RegimeWindow),
	}
	if err := cfg.Validate(); err != nil {
		return backtest.Config{}, fmt.Errorf("simulation: %w", err)
	}
	return cfg, nil
}

// BacktestStart is the configured first day of a default backtest range.
func (c *Config) BacktestStart() time.Time {
	d, _ := types.ParseDay(c.Backtest.Start)
	return d
}

// LoadConfig reads path, applies defaults and validates. Secrets are read
// from the environment.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	c.Secrets = SecretsFromEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}
