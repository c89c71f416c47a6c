package engine

import (
	"fmt"
	"math"
	"time"

	"golang-algotrade/internal/dto"
)

// Levels are the exit prices derived from the active bracket.
type Levels struct {
	TakeProfit *float64 `json:"take_profit,omitempty"`
	StopLoss   float64  `json:"stop_loss"`
	Trailing   float64  `json:"trailing"`
}

// Position is the single open trade of a simulation run. It is owned by
// exactly one run and never shared.
type Position struct {
	Direction  dto.Direction
	EntryPrice float64
	EntryBar   int
	EntryTime  time.Time
	Size       float64

	// FavorablePrice is the highest high since entry for a long and the
	// lowest low for a short.
	FavorablePrice float64
	// FavorableProfit only ever increases.
	FavorableProfit float64

	Levels Levels
	Rule   dto.ExitRule

	fee         float64
	candleLimit float64
	table       *ExitRuleTable
}

// OpenPosition creates a position at entryPrice and derives its initial levels.
func OpenPosition(dir dto.Direction, entryPrice float64, bar int, at time.Time, size float64, fee, candleLimit float64, table *ExitRuleTable) (*Position, error) {
	p := &Position{
		Direction:      dir,
		EntryPrice:     entryPrice,
		EntryBar:       bar,
		EntryTime:      at,
		Size:           size,
		FavorablePrice: entryPrice,
		fee:            fee,
		candleLimit:    candleLimit,
		table:          table,
	}
	if err := p.applyRule(); err != nil {
		return nil, err
	}
	return p, nil
}

// Update advances the favorable extreme with the bar's high/low, ratchets the
// favorable profit and re-derives the exit levels from it.
func (p *Position) Update(high, low float64) error {
	advance := p.candleLimit <= 0 || high-low <= p.candleLimit
	if advance {
		if p.Direction == dto.DirectionLong {
			p.FavorablePrice = math.Max(p.FavorablePrice, high)
		} else {
			p.FavorablePrice = math.Min(p.FavorablePrice, low)
		}
	}

	profit := (p.FavorablePrice - p.EntryPrice) * p.Direction.Sign()
	p.FavorableProfit = math.Max(p.FavorableProfit, profit-p.fee)
	return p.applyRule()
}

func (p *Position) applyRule() error {
	rule, ok := p.table.Lookup(p.FavorableProfit)
	if !ok {
		return fmt.Errorf("%w: no bracket for profit %v", ErrExitTable, p.FavorableProfit)
	}
	sign := p.Direction.Sign()
	p.Rule = rule
	p.Levels = Levels{
		StopLoss: p.EntryPrice - sign*rule.StopLoss,
		Trailing: p.FavorablePrice - sign*rule.TrailingDistance(p.FavorableProfit),
	}
	if rule.TakeProfit != nil {
		tp := p.EntryPrice + sign*(*rule.TakeProfit)
		p.Levels.TakeProfit = &tp
	}
	return nil
}

// ExitCheck carries the per-bar inputs of CheckExit.
type ExitCheck struct {
	Bar      dto.Bar
	Prev     dto.Bar
	InWindow bool
	// GuardTime marks the closing-minute bar on which trailing exits are suppressed.
	GuardTime bool
}

// CheckExit evaluates stop loss, trailing stop and take profit, in that
// order, and returns the first that triggers with its fill price.
func (p *Position) CheckExit(c ExitCheck) (dto.ExitReason, float64, bool) {
	if !c.InWindow {
		return "", 0, false
	}
	b := c.Bar
	if p.Direction == dto.DirectionLong {
		switch {
		case b.Low <= p.Levels.StopLoss:
			return dto.ExitStopLoss, b.Low, true
		case !c.GuardTime && b.Low <= p.Levels.Trailing:
			return dto.ExitTrailingStop, b.Low, true
		case p.Levels.TakeProfit != nil && b.High > *p.Levels.TakeProfit && b.Low > c.Prev.Low:
			return dto.ExitTakeProfit, b.High, true
		}
		return "", 0, false
	}

	switch {
	case b.High >= p.Levels.StopLoss:
		return dto.ExitStopLoss, b.High, true
	case !c.GuardTime && b.High >= p.Levels.Trailing:
		return dto.ExitTrailingStop, b.High, true
	case p.Levels.TakeProfit != nil && b.Low < *p.Levels.TakeProfit && b.High < c.Prev.High:
		return dto.ExitTakeProfit, b.Low, true
	}
	return "", 0, false
}

// PointsAt is the open profit in points at price, net of the per-trade fee.
func (p *Position) PointsAt(price float64) float64 {
	return (price-p.EntryPrice)*p.Direction.Sign() - p.fee
}

// Close converts the position into a trade record. ProfitValue is left for
// the account to settle.
func (p *Position) Close(bar int, at time.Time, price float64, reason dto.ExitReason) dto.Trade {
	return dto.Trade{
		EntryBar:           p.EntryBar,
		ExitBar:            bar,
		EntryTime:          p.EntryTime,
		ExitTime:           at,
		Direction:          p.Direction,
		EntryPrice:         p.EntryPrice,
		ExitPrice:          price,
		Size:               p.Size,
		ProfitPoints:       p.PointsAt(price),
		ExitReason:         reason,
		BarsHeld:           bar - p.EntryBar,
		MaxFavorableProfit: p.FavorableProfit,
	}
}
