package dto

import (
	"math"
	"time"
)

type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// Sign is +1 for long and -1 for short.
func (d Direction) Sign() float64 {
	if d == DirectionShort {
		return -1
	}
	return 1
}

type ExitReason string

const (
	ExitStopLoss     ExitReason = "stop_loss"
	ExitTrailingStop ExitReason = "trailing_stop"
	ExitTakeProfit   ExitReason = "take_profit"
	ExitEndOfData    ExitReason = "end_of_data"
)

// ExitRule maps a favorable-profit bracket [Min, Max) to exit distances in
// price points. A nil Max is unbounded. When TrailingPct is set the trailing
// distance is that percentage of the favorable profit instead of Trailing.
type ExitRule struct {
	Min         float64  `json:"min" yaml:"min"`
	Max         *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	TakeProfit  *float64 `json:"take_profit,omitempty" yaml:"take_profit,omitempty"`
	StopLoss    float64  `json:"stop_loss" yaml:"stop_loss"`
	Trailing    float64  `json:"trailing,omitempty" yaml:"trailing,omitempty"`
	TrailingPct float64  `json:"trailing_pct,omitempty" yaml:"trailing_pct,omitempty"`
}

// Upper returns the exclusive upper bound of the bracket.
func (r ExitRule) Upper() float64 {
	if r.Max == nil {
		return math.Inf(1)
	}
	return *r.Max
}

func (r ExitRule) Contains(profit float64) bool {
	return r.Min <= profit && profit < r.Upper()
}

// TrailingDistance is the trailing-stop distance for the given favorable profit.
func (r ExitRule) TrailingDistance(profit float64) float64 {
	if r.TrailingPct > 0 {
		return profit / 100 * r.TrailingPct
	}
	return r.Trailing
}

// TradingWindow is a time-of-day range, both ends inclusive, "HH:MM" or
// "HH:MM:SS". An empty window is open all day.
type TradingWindow struct {
	Start string `json:"start,omitempty" yaml:"start,omitempty"`
	End   string `json:"end,omitempty" yaml:"end,omitempty"`
}

// SimulationParams configures one simulation run.
type SimulationParams struct {
	InitialCapital        float64       `json:"initial_capital" validate:"gt=0"`
	Commission            float64       `json:"commission" validate:"gte=0"`
	Slippage              float64       `json:"slippage" validate:"gte=0"`
	PositionSizePct       float64       `json:"position_size_pct" validate:"gt=0,lte=100"`
	MaxDailyLoss          float64       `json:"max_daily_loss" validate:"gte=0"`
	MaxPositions          int           `json:"max_positions" validate:"oneof=0 1"`
	BuyOrderLimit         int           `json:"buy_order_limit" validate:"gte=0"`
	ShortOrderLimit       int           `json:"short_order_limit" validate:"gte=0"`
	TradingWindow         TradingWindow `json:"trading_window"`
	FeePerTrade           float64       `json:"fee_per_trade" validate:"gte=0"`
	TrailingGuardTime     string        `json:"trailing_guard_time,omitempty"`
	CandleLengthLimit     float64       `json:"candle_length_limit" validate:"gte=0"`
	DisableLong           bool          `json:"disable_long"`
	DisableShort          bool          `json:"disable_short"`
	ResetOrderLimitsDaily bool          `json:"reset_order_limits_daily"`
	Timezone              string        `json:"timezone,omitempty"`
}

type Trade struct {
	EntryBar           int        `json:"entry_bar"`
	ExitBar            int        `json:"exit_bar"`
	EntryTime          time.Time  `json:"entry_time"`
	ExitTime           time.Time  `json:"exit_time"`
	Direction          Direction  `json:"direction"`
	EntryPrice         float64    `json:"entry_price"`
	ExitPrice          float64    `json:"exit_price"`
	Size               float64    `json:"size"`
	ProfitPoints       float64    `json:"profit_points"`
	ProfitValue        float64    `json:"profit_value"`
	ExitReason         ExitReason `json:"exit_reason"`
	BarsHeld           int        `json:"bars_held"`
	MaxFavorableProfit float64    `json:"max_favorable_profit"`
}

type EquityPoint struct {
	BarIndex int       `json:"bar_index"`
	Time     time.Time `json:"time"`
	Equity   float64   `json:"equity"`
	Capital  float64   `json:"capital"`
}

type Statistics struct {
	TotalTrades    int     `json:"total_trades"`
	WinningTrades  int     `json:"winning_trades"`
	LosingTrades   int     `json:"losing_trades"`
	WinRate        float64 `json:"win_rate"`
	GrossProfit    float64 `json:"gross_profit"`
	GrossLoss      float64 `json:"gross_loss"`
	ProfitFactor   float64 `json:"profit_factor"` // gross profit / gross loss, 0 without losses
	MaxDrawdown    float64 `json:"max_drawdown"`  // negative percentage
	SharpeRatio    float64 `json:"sharpe_ratio"`
	AvgWin         float64 `json:"avg_win"`
	AvgLoss        float64 `json:"avg_loss"`
	LargestWin     float64 `json:"largest_win"`
	LargestLoss    float64 `json:"largest_loss"`
	TotalPoints    float64 `json:"total_points"`
	AvgBarsHeld    float64 `json:"avg_bars_held"`
	InitialCapital float64 `json:"initial_capital"`
	FinalCapital   float64 `json:"final_capital"`
	TotalReturn    float64 `json:"total_return"`
}

// SimulationResult is the raw output of the trade simulator.
type SimulationResult struct {
	Trades      []Trade       `json:"trades"`
	EquityCurve []EquityPoint `json:"equity_curve"`
	SkippedBars int           `json:"skipped_bars"`
}

type BacktestResult struct {
	RunID       string        `json:"run_id"`
	Strategy    string        `json:"strategy,omitempty"`
	Symbol      string        `json:"symbol,omitempty"`
	StartTime   time.Time     `json:"start_time"`
	EndTime     time.Time     `json:"end_time"`
	Trades      []Trade       `json:"trades"`
	EquityCurve []EquityPoint `json:"equity_curve"`
	Statistics  Statistics    `json:"statistics"`
}

// BacktestRequest mendefinisikan parameter untuk menjalankan sebuah backtest.
type BacktestRequest struct {
	Candles        *CandleQuery   `json:"candles,omitempty" validate:"required_without=Series"`
	Series         *BarSeries     `json:"series,omitempty" validate:"required_without=Candles"`
	Strategy       StrategyConfig `json:"strategy" validate:"required"`
	InitialCapital float64        `json:"initial_capital" validate:"gte=0"`
}
