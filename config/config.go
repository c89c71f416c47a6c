package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log       Logger    `mapstructure:"logger"`
	API       API       `mapstructure:"api"`
	Cache     Cache     `mapstructure:"cache"`
	Binance   Binance   `mapstructure:"binance"`
	Backtest  Backtest  `mapstructure:"backtest"`
	Optimizer Optimizer `mapstructure:"optimizer"`
}

type Logger struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type API struct {
	Port             int           `mapstructure:"port"`
	MaxRequestPerSec int           `mapstructure:"max_request_per_sec"`
	RateLimitExpire  time.Duration `mapstructure:"rate_limit_expire"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	OptimizeTimeout  time.Duration `mapstructure:"optimize_timeout"`
	MaxBody          string        `mapstructure:"max_body"`
}

type Cache struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
	IndicatorTTL      time.Duration `mapstructure:"indicator_ttl"`
}

type Binance struct {
	BaseURL          string        `mapstructure:"base_url"`
	BaseTimeout      time.Duration `mapstructure:"base_timeout"`
	MaxRequestPerMin int           `mapstructure:"max_request_per_min"`
	MaxWeightPerMin  int           `mapstructure:"max_weight_per_min"`
	PageLimit        int           `mapstructure:"page_limit"`
}

// Backtest holds the simulation defaults a strategy document may override.
type Backtest struct {
	InitialCapital        float64 `mapstructure:"initial_capital"`
	Commission            float64 `mapstructure:"commission"`
	Slippage              float64 `mapstructure:"slippage"`
	PositionSizePct       float64 `mapstructure:"position_size_pct"`
	MaxDailyLoss          float64 `mapstructure:"max_daily_loss"`
	BuyOrderLimit         int     `mapstructure:"buy_order_limit"`
	ShortOrderLimit       int     `mapstructure:"short_order_limit"`
	FeePerTrade           float64 `mapstructure:"fee_per_trade"`
	TradingStart          string  `mapstructure:"trading_start"`
	TradingEnd            string  `mapstructure:"trading_end"`
	TrailingGuardTime     string  `mapstructure:"trailing_guard_time"`
	CandleLengthLimit     float64 `mapstructure:"candle_length_limit"`
	ResetOrderLimitsDaily bool    `mapstructure:"reset_order_limits_daily"`
	Timezone              string  `mapstructure:"timezone"`
}

type Optimizer struct {
	PopulationSize int     `mapstructure:"population_size"`
	Generations    int     `mapstructure:"generations"`
	MutationRate   float64 `mapstructure:"mutation_rate"`
	CrossoverRate  float64 `mapstructure:"crossover_rate"`
	ElitismPct     float64 `mapstructure:"elitism_pct"`
	MaxWorkers     int     `mapstructure:"max_workers"`
	Seed           int64   `mapstructure:"seed"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")

	v.SetDefault("api.port", 8080)
	v.SetDefault("api.max_request_per_sec", 5)
	v.SetDefault("api.rate_limit_expire", 3*time.Minute)
	v.SetDefault("api.request_timeout", time.Minute)
	v.SetDefault("api.optimize_timeout", 30*time.Minute)
	v.SetDefault("api.max_body", "50M")

	v.SetDefault("cache.default_expiration", 30*time.Minute)
	v.SetDefault("cache.cleanup_interval", 10*time.Minute)
	v.SetDefault("cache.indicator_ttl", 30*time.Minute)

	v.SetDefault("binance.base_url", "https://api.binance.com")
	v.SetDefault("binance.base_timeout", 10*time.Second)
	v.SetDefault("binance.max_request_per_min", 600)
	v.SetDefault("binance.max_weight_per_min", 6000)
	v.SetDefault("binance.page_limit", 1000)

	v.SetDefault("backtest.initial_capital", 100000.0)
	v.SetDefault("backtest.position_size_pct", 100.0)
	v.SetDefault("backtest.buy_order_limit", 100)
	v.SetDefault("backtest.short_order_limit", 100)
	v.SetDefault("backtest.fee_per_trade", 0.5)
	v.SetDefault("backtest.trading_start", "09:00")
	v.SetDefault("backtest.trading_end", "14:30")
	v.SetDefault("backtest.trailing_guard_time", "14:29:00")
	v.SetDefault("backtest.timezone", "Asia/Ho_Chi_Minh")

	v.SetDefault("optimizer.population_size", 50)
	v.SetDefault("optimizer.generations", 20)
	v.SetDefault("optimizer.mutation_rate", 0.1)
	v.SetDefault("optimizer.crossover_rate", 0.7)
	v.SetDefault("optimizer.elitism_pct", 0.1)
}

// Load reads .env, then config.yaml from the working directory, then
// environment overrides such as BACKTEST_FEE_PER_TRADE.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file loaded:", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AddConfigPath(".")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Println("No config file loaded:", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
