// Package config
package config

import (
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

/*
YAML config example:
db_conn_str: "host=localhost port=5432 user=postgres dbname=stockalert sslmode=disable"
tickers: ["AAPL", "MSFT", "NVDA"]
benchmark: "SPY"
regime_index: "QQQ"
scan_frequency: "W-MON"
max_open_positions: 25
max_trades_per_scan: 10
max_per_strategy_default: 5
max_per_strategy:
  "52-Week High": 3
sim:
  capital_per_trade: 3000
  rr_ratio: 2.0
  max_days: 45
*/

// Config is the full process configuration. Strategy numerics live in Sim
// and are passed by value into the simulator, never read from ambient state.
type Config struct {
	Mode           string    `yaml:"mode"`
	From           time.Time `yaml:"-"`
	To             time.Time `yaml:"-"`
	ScanFrequency  string    `yaml:"scan_frequency"`
	StrategyFilter string    `yaml:"strategy_filter"`
	OutFile        string    `yaml:"out_file"`

	Tickers     []string `yaml:"tickers"`
	TickersFile string   `yaml:"tickers_file"`
	Benchmark   string   `yaml:"benchmark"`
	RegimeIndex string   `yaml:"regime_index"`

	DBConnStr string `yaml:"db_conn_str"`
	DBMaxOpen int    `yaml:"db_max_open"`
	DBMaxIdle int    `yaml:"db_max_idle"`

	AlpacaAPIKey    string `yaml:"-"`
	AlpacaAPISecret string `yaml:"-"`

	TelegramToken  string `yaml:"-"`
	TelegramChatID string `yaml:"-"`

	MaxOpenPositions int     `yaml:"max_open_positions"`
	MaxTradesPerScan int     `yaml:"max_trades_per_scan"`
	MinLiquidityUSD  float64 `yaml:"min_liquidity_usd"`

	// MaxPerStrategy caps concurrently open positions per strategy; a cap
	// of 0 disables the strategy outright. Strategies absent from the map
	// fall back to MaxPerStrategyDefault.
	MaxPerStrategy        map[string]int `yaml:"max_per_strategy"`
	MaxPerStrategyDefault int            `yaml:"max_per_strategy_default"`

	Sim SimConfig `yaml:"sim"`
}

// SimConfig carries every numeric knob the trade state machine reads.
// The exact values are empirically tuned; treat them as inputs to preserve,
// not constants to rederive.
type SimConfig struct {
	CapitalPerTrade float64 `yaml:"capital_per_trade"`
	RRRatio         float64 `yaml:"rr_ratio"`
	MaxDays         int     `yaml:"max_days"`

	RequireConfirmationBar     bool    `yaml:"require_confirmation_bar"`
	ConfirmationMaxGapPct      float64 `yaml:"confirmation_max_gap_pct"`
	ConfirmationMinVolumeRatio float64 `yaml:"confirmation_min_volume_ratio"`

	MinHoldingDays    int     `yaml:"min_holding_days"`
	CatastrophicLossR float64 `yaml:"catastrophic_loss_r"`

	PartialExitEnabled  bool    `yaml:"partial_exit_enabled"`
	PartialExitSize     float64 `yaml:"partial_exit_size"`
	MomentumPartialSize float64 `yaml:"momentum_partial_size"`

	MaxHoldingMeanReversion int `yaml:"max_holding_mean_reversion"`
	MaxHoldingMomentum      int `yaml:"max_holding_momentum"`

	TrailATRMultiple float64 `yaml:"trail_atr_multiple"`

	Swing SwingConfig `yaml:"swing"`
}

// SwingConfig parametrizes the ATR-stop swing family.
type SwingConfig struct {
	StopATRMultiple  float64 `yaml:"stop_atr_multiple"`
	SwingLowBuffer   float64 `yaml:"swing_low_buffer"`
	PartialRTrigger  float64 `yaml:"partial_r_trigger"`
	PartialSize      float64 `yaml:"partial_size"`
	BreakevenLock    float64 `yaml:"breakeven_lock"`
	TrailATRMultiple float64 `yaml:"trail_atr_multiple"`
	MaxHoldingDays   int     `yaml:"max_holding_days"`
}

// DefaultSimConfig returns the tuned production parameters.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		CapitalPerTrade: 3000,
		RRRatio:         2.0,
		MaxDays:         45,

		RequireConfirmationBar:     true,
		ConfirmationMaxGapPct:      3.0,
		ConfirmationMinVolumeRatio: 0.8,

		MinHoldingDays:    5,
		CatastrophicLossR: 1.5,

		PartialExitEnabled:  true,
		PartialExitSize:     0.4,
		MomentumPartialSize: 0.3,

		MaxHoldingMeanReversion: 10,
		MaxHoldingMomentum:      30,

		TrailATRMultiple: 2.5,

		Swing: SwingConfig{
			StopATRMultiple:  2.5,
			SwingLowBuffer:   0.5,
			PartialRTrigger:  2.0,
			PartialSize:      0.4,
			BreakevenLock:    1.0,
			TrailATRMultiple: 3.0,
			MaxHoldingDays:   60,
		},
	}
}

// StrategyCap returns the open-position cap for one strategy: the explicit
// per-strategy entry when configured, the default otherwise.
func (c Config) StrategyCap(strategy string) int {
	if cap, ok := c.MaxPerStrategy[strategy]; ok {
		return cap
	}
	return c.MaxPerStrategyDefault
}

// MustLoadConfig loads configuration from flags, the optional YAML file, and
// the environment, exiting on malformed input.
func MustLoadConfig() Config {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config | %v", err)
	}
	return cfg
}

func loadConfig() (Config, error) {
	// Optional .env for API keys and DB conn string.
	_ = godotenv.Load()

	mode := flag.String("mode", "backtest", "Mode: backtest or scan")
	from := flag.String("from", time.Now().AddDate(-2, 0, 0).Format("2006-01-02"), "Backtest start date (YYYY-MM-DD)")
	to := flag.String("to", time.Now().Format("2006-01-02"), "Backtest end date (YYYY-MM-DD)")
	scanFrequency := flag.String("scan-frequency", "B", "Scan frequency: B (daily) or W-MON..W-FRI (weekly)")
	strategyFilter := flag.String("strategy", "", "Restrict the backtest to a single strategy (empty = all)")
	outFile := flag.String("out", "backtest_trades.csv", "Output CSV path for the trade ledger")
	tickersFlag := flag.String("tickers", "", "Comma-separated ticker universe (overrides tickers file)")
	tickersFile := flag.String("tickers-file", "data/universe.csv", "CSV file with the ticker universe")
	benchmark := flag.String("benchmark", "SPY", "Benchmark index for the market regime filter")
	regimeIndex := flag.String("regime-index", "QQQ", "Index used by the bull/sideways/bear classifier")
	maxOpen := flag.Int("max-open-positions", 25, "Global cap on concurrently open positions")
	maxPerScan := flag.Int("max-trades-per-scan", 10, "Cap on new trades admitted per scan date")
	maxPerStrategy := flag.Int("max-per-strategy", 5, "Default cap on concurrently open positions per strategy (per-strategy overrides via YAML)")
	minLiquidity := flag.Float64("min-liquidity-usd", 30_000_000, "Minimum 20-day average dollar volume")
	configFile := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	fromTime, err := time.Parse("2006-01-02", *from)
	if err != nil {
		return Config{}, err
	}
	toTime, err := time.Parse("2006-01-02", *to)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Mode:             *mode,
		From:             fromTime,
		To:               toTime,
		ScanFrequency:    *scanFrequency,
		StrategyFilter:   *strategyFilter,
		OutFile:          *outFile,
		TickersFile:      *tickersFile,
		Benchmark:        *benchmark,
		RegimeIndex:      *regimeIndex,
		DBConnStr:        os.Getenv("DB_CONN_STR"),
		DBMaxOpen:        10,
		DBMaxIdle:        5,
		AlpacaAPIKey:     os.Getenv("ALPACA_API_KEY"),
		AlpacaAPISecret:  os.Getenv("ALPACA_API_SECRET"),
		TelegramToken:    os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
		MaxOpenPositions: *maxOpen,
		MaxTradesPerScan: *maxPerScan,
		MinLiquidityUSD:  *minLiquidity,

		MaxPerStrategyDefault: *maxPerStrategy,

		Sim: DefaultSimConfig(),
	}

	if *tickersFlag != "" {
		cfg.Tickers = strings.Split(*tickersFlag, ",")
	}

	if *configFile != "" {
		data, err := os.ReadFile(*configFile)
		if err != nil {
			return Config{}, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}
