package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang-algotrade/internal/dto"
	"golang-algotrade/pkg/logger"
	"golang-algotrade/pkg/utils"
)

var (
	ErrSignalLength  = errors.New("signal length does not match bar count")
	ErrInvalidParams = errors.New("invalid simulation params")
)

// DefaultTrailingGuardTime is the closing-minute bar on which trailing exits
// are not taken. Set TrailingGuardTime to "none" to disable the guard.
const DefaultTrailingGuardTime = "14:29:00"

// Account owns the money side of a simulation: sizing, fills and realized P&L.
type Account interface {
	// CanEnter reports whether a new position may be opened at the given bar time.
	CanEnter(at time.Time) bool
	PositionSize(entryPrice float64) float64
	EntryFill(dir dto.Direction, price float64) float64
	ExitFill(dir dto.Direction, price float64) float64
	// Settle fills in ProfitValue and books it.
	Settle(trade *dto.Trade)
	Capital() float64
}

// PointsAccount trades one unit without costs and books profit in points.
type PointsAccount struct {
	capital float64
}

func NewPointsAccount(initial float64) *PointsAccount {
	return &PointsAccount{capital: initial}
}

func (a *PointsAccount) CanEnter(time.Time) bool                          { return true }
func (a *PointsAccount) PositionSize(float64) float64                     { return 1 }
func (a *PointsAccount) EntryFill(_ dto.Direction, price float64) float64 { return price }
func (a *PointsAccount) ExitFill(_ dto.Direction, price float64) float64  { return price }
func (a *PointsAccount) Capital() float64                                 { return a.capital }

func (a *PointsAccount) Settle(trade *dto.Trade) {
	trade.ProfitValue = trade.ProfitPoints * trade.Size
	a.capital += trade.ProfitValue
}

// State is everything that carries from one bar to the next.
type State struct {
	Position    *Position
	BuyOrders   int
	ShortOrders int
}

// ResetOrderCounts clears the per-side entry counters. Counters are never
// reset implicitly.
func (s *State) ResetOrderCounts() {
	s.BuyOrders = 0
	s.ShortOrders = 0
}

// Simulator walks a bar series once and produces trades. A Simulator is not
// safe for concurrent use; build one per run.
type Simulator struct {
	log     *logger.Logger
	series  *dto.BarSeries
	signals dto.SignalSet
	table   *ExitRuleTable
	params  dto.SimulationParams
	account Account

	loc         *time.Location
	windowStart int
	windowEnd   int
	guard       int
}

// NewSimulator validates every input before any bar is processed.
func NewSimulator(log *logger.Logger, series *dto.BarSeries, signals dto.SignalSet, table *ExitRuleTable, params dto.SimulationParams, account Account) (*Simulator, error) {
	if series.Len() == 0 {
		return nil, dto.ErrEmptySeries
	}
	if err := series.ValidateOrder(); err != nil {
		return nil, err
	}
	n := series.Len()
	if len(signals.Buy) != n || len(signals.Short) != n {
		return nil, fmt.Errorf("%w: bars=%d buy=%d short=%d", ErrSignalLength, n, len(signals.Buy), len(signals.Short))
	}
	if table == nil {
		return nil, fmt.Errorf("%w: nil table", ErrExitTable)
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	if params.MaxPositions > 1 {
		return nil, fmt.Errorf("%w: max_positions %d, only 1 is supported", ErrInvalidParams, params.MaxPositions)
	}
	if params.FeePerTrade < 0 || params.CandleLengthLimit < 0 || params.BuyOrderLimit < 0 || params.ShortOrderLimit < 0 {
		return nil, fmt.Errorf("%w: negative fee, candle limit or order limit", ErrInvalidParams)
	}
	if account == nil {
		account = NewPointsAccount(params.InitialCapital)
	}
	if log == nil {
		log = logger.NewNop()
	}

	s := &Simulator{
		log:       log,
		series:    series,
		signals:   signals,
		table:     table,
		params:    params,
		account:   account,
		windowEnd: 24*3600 - 1,
		guard:     -1,
	}

	var err error
	if s.loc, err = utils.LoadLocation(params.Timezone); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if params.TradingWindow.Start != "" {
		if s.windowStart, err = utils.ParseClock(params.TradingWindow.Start); err != nil {
			return nil, fmt.Errorf("%w: trading window start: %v", ErrInvalidParams, err)
		}
	}
	if params.TradingWindow.End != "" {
		if s.windowEnd, err = utils.ParseClock(params.TradingWindow.End); err != nil {
			return nil, fmt.Errorf("%w: trading window end: %v", ErrInvalidParams, err)
		}
	}
	if s.windowStart > s.windowEnd {
		return nil, fmt.Errorf("%w: trading window starts after it ends", ErrInvalidParams)
	}

	guard := params.TrailingGuardTime
	if guard == "" {
		guard = DefaultTrailingGuardTime
	}
	if !strings.EqualFold(guard, "none") {
		if s.guard, err = utils.ParseClock(guard); err != nil {
			return nil, fmt.Errorf("%w: trailing guard time: %v", ErrInvalidParams, err)
		}
	}

	return s, nil
}

func (s *Simulator) inWindow(sod int) bool {
	return sod >= s.windowStart && sod <= s.windowEnd
}

// Step processes bar i against the incoming state and returns the next state
// and the trade closed on this bar, if any. Bar i must be finite.
func (s *Simulator) Step(state State, i int) (State, *dto.Trade, error) {
	bar := s.series.Bars[i]
	at := bar.Timestamp()
	sod := utils.SecondsOfDay(at, s.loc)
	inWindow := s.inWindow(sod)

	if p := state.Position; p != nil {
		if err := p.Update(bar.High, bar.Low); err != nil {
			return state, nil, err
		}
		reason, price, ok := p.CheckExit(ExitCheck{
			Bar:       bar,
			Prev:      s.series.Bars[i-1],
			InWindow:  inWindow,
			GuardTime: sod == s.guard,
		})
		if !ok {
			return state, nil, nil
		}
		trade := p.Close(i, at, s.account.ExitFill(p.Direction, price), reason)
		s.account.Settle(&trade)
		state.Position = nil
		return state, &trade, nil
	}

	if !inWindow || !s.account.CanEnter(at) {
		return state, nil, nil
	}

	// A live buy signal claims the bar even when its order limit is used up.
	var dir dto.Direction
	switch {
	case s.signals.Buy[i-1] && !s.params.DisableLong:
		if !underLimit(state.BuyOrders, s.params.BuyOrderLimit) {
			return state, nil, nil
		}
		dir = dto.DirectionLong
	case s.signals.Short[i-1] && !s.params.DisableShort:
		if !underLimit(state.ShortOrders, s.params.ShortOrderLimit) {
			return state, nil, nil
		}
		dir = dto.DirectionShort
	default:
		return state, nil, nil
	}

	entry := s.account.EntryFill(dir, bar.Open)
	p, err := OpenPosition(dir, entry, i, at, s.account.PositionSize(entry), s.params.FeePerTrade, s.params.CandleLengthLimit, s.table)
	if err != nil {
		return state, nil, err
	}
	if dir == dto.DirectionLong {
		state.BuyOrders++
	} else {
		state.ShortOrders++
	}
	state.Position = p
	return state, nil, nil
}

// underLimit treats a zero limit as unlimited.
func underLimit(count, limit int) bool {
	return limit == 0 || count < limit
}

// Run simulates the whole series. An open position at the end is closed at
// the last close.
func (s *Simulator) Run(ctx context.Context) (*dto.SimulationResult, error) {
	bars := s.series.Bars
	n := len(bars)
	result := &dto.SimulationResult{
		Trades:      []dto.Trade{},
		EquityCurve: make([]dto.EquityPoint, 0, n),
	}

	state := State{}
	equity := s.account.Capital()
	result.EquityCurve = append(result.EquityCurve, s.point(0, bars[0].Timestamp(), equity))

	day := utils.DayKey(bars[0].Timestamp(), s.loc)
	lastFinite := 0
	for i := 1; i < n; i++ {
		if i%1024 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}

		at := bars[i].Timestamp()
		if s.params.ResetOrderLimitsDaily {
			if d := utils.DayKey(at, s.loc); d != day {
				day = d
				state.ResetOrderCounts()
			}
		}

		if !bars[i].IsFinite() {
			result.SkippedBars++
			s.log.WarnContext(ctx, "Skipping non-finite bar",
				logger.IntField("bar", i),
				logger.Field("time", bars[i].Time),
			)
			result.EquityCurve = append(result.EquityCurve, s.point(i, at, equity))
			continue
		}

		var (
			trade *dto.Trade
			err   error
		)
		state, trade, err = s.Step(state, i)
		if err != nil {
			return nil, fmt.Errorf("failed to simulate bar %d: %w", i, err)
		}
		if trade != nil {
			result.Trades = append(result.Trades, *trade)
		}

		equity = s.account.Capital()
		if p := state.Position; p != nil {
			equity += p.PointsAt(bars[i].Close) * p.Size
		}
		lastFinite = i
		result.EquityCurve = append(result.EquityCurve, s.point(i, at, equity))
	}

	if p := state.Position; p != nil {
		last := bars[lastFinite]
		trade := p.Close(lastFinite, last.Timestamp(), last.Close, dto.ExitEndOfData)
		s.account.Settle(&trade)
		result.Trades = append(result.Trades, trade)

		final := &result.EquityCurve[len(result.EquityCurve)-1]
		final.Capital = s.account.Capital()
		final.Equity = final.Capital

		s.log.DebugContext(ctx, "Closed open position at end of data",
			logger.StringField("direction", string(p.Direction)),
			logger.FloatField("profit_points", trade.ProfitPoints),
		)
	}

	return result, nil
}

func (s *Simulator) point(i int, at time.Time, equity float64) dto.EquityPoint {
	return dto.EquityPoint{
		BarIndex: i,
		Time:     at,
		Equity:   equity,
		Capital:  s.account.Capital(),
	}
}
