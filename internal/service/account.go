package service

import (
	"time"

	"golang-algotrade/internal/dto"
	"golang-algotrade/pkg/utils"
)

// capitalAccount sizes positions from running capital, applies slippage and
// commission, and stops new entries for the rest of a day once that day's
// realized loss reaches max_daily_loss.
type capitalAccount struct {
	params  dto.SimulationParams
	loc     *time.Location
	capital float64
	daily   map[string]float64
}

func newCapitalAccount(params dto.SimulationParams, loc *time.Location) *capitalAccount {
	return &capitalAccount{
		params:  params,
		loc:     loc,
		capital: params.InitialCapital,
		daily:   make(map[string]float64),
	}
}

func (a *capitalAccount) CanEnter(at time.Time) bool {
	if a.capital <= 0 {
		return false
	}
	if a.params.MaxDailyLoss <= 0 {
		return true
	}
	return a.daily[utils.DayKey(at, a.loc)] > -a.params.MaxDailyLoss
}

func (a *capitalAccount) PositionSize(entryPrice float64) float64 {
	if entryPrice <= 0 {
		return 0
	}
	return a.capital * a.params.PositionSizePct / 100 / entryPrice
}

func (a *capitalAccount) EntryFill(dir dto.Direction, price float64) float64 {
	return price + dir.Sign()*a.params.Slippage
}

func (a *capitalAccount) ExitFill(dir dto.Direction, price float64) float64 {
	return price - dir.Sign()*a.params.Slippage
}

// Settle charges commission on both legs and books the result against the
// exit day.
func (a *capitalAccount) Settle(trade *dto.Trade) {
	trade.ProfitValue = trade.ProfitPoints*trade.Size - 2*a.params.Commission
	a.capital += trade.ProfitValue
	a.daily[utils.DayKey(trade.ExitTime, a.loc)] += trade.ProfitValue
}

func (a *capitalAccount) Capital() float64 {
	return a.capital
}
