package service

import (
	"math"
	"testing"

	"golang-algotrade/internal/dto"

	"github.com/stretchr/testify/assert"
)

func curve(equity ...float64) []dto.EquityPoint {
	out := make([]dto.EquityPoint, len(equity))
	for i, e := range equity {
		out[i] = dto.EquityPoint{BarIndex: i, Equity: e, Capital: e}
	}
	return out
}

func TestCalculateStatistics(t *testing.T) {
	trades := []dto.Trade{
		{ProfitValue: 30, ProfitPoints: 3, BarsHeld: 1},
		{ProfitValue: -10, ProfitPoints: -1, BarsHeld: 2},
		{ProfitValue: 20, ProfitPoints: 2, BarsHeld: 3},
		{ProfitValue: -20, ProfitPoints: -2, BarsHeld: 4},
	}

	st := calculateStatistics(trades, curve(1000, 1030, 1020, 1040, 1020), 1000)

	assert.Equal(t, 4, st.TotalTrades)
	assert.Equal(t, 2, st.WinningTrades)
	assert.Equal(t, 2, st.LosingTrades)
	assert.Equal(t, 50.0, st.WinRate)
	assert.Equal(t, 50.0, st.GrossProfit)
	assert.Equal(t, 30.0, st.GrossLoss)
	assert.InDelta(t, 50.0/30.0, st.ProfitFactor, 1e-12)
	assert.Equal(t, 25.0, st.AvgWin)
	assert.Equal(t, 15.0, st.AvgLoss)
	assert.Equal(t, 30.0, st.LargestWin)
	assert.Equal(t, 20.0, st.LargestLoss)
	assert.Equal(t, 2.0, st.TotalPoints)
	assert.Equal(t, 2.5, st.AvgBarsHeld)
	assert.Equal(t, 1020.0, st.FinalCapital)
	assert.InDelta(t, 2.0, st.TotalReturn, 1e-12)
	assert.InDelta(t, -20.0/1040*100, st.MaxDrawdown, 1e-9)
	assert.Greater(t, st.SharpeRatio, 0.0)
}

func TestCalculateStatisticsDegenerate(t *testing.T) {
	tests := []struct {
		name   string
		trades []dto.Trade
		curve  []dto.EquityPoint
		check  func(t *testing.T, st dto.Statistics)
	}{
		{
			name:  "no trades",
			curve: curve(1000, 1000, 1000),
			check: func(t *testing.T, st dto.Statistics) {
				assert.Equal(t, dto.Statistics{InitialCapital: 1000, FinalCapital: 1000}, st)
			},
		},
		{
			name:   "no losses gives zero profit factor",
			trades: []dto.Trade{{ProfitValue: 5}, {ProfitValue: 7}},
			curve:  curve(1000, 1005, 1012),
			check: func(t *testing.T, st dto.Statistics) {
				assert.Zero(t, st.ProfitFactor)
				assert.Equal(t, 100.0, st.WinRate)
				assert.Zero(t, st.MaxDrawdown)
			},
		},
		{
			name:   "break-even trade is neither a win nor a loss",
			trades: []dto.Trade{{ProfitValue: 0}, {ProfitValue: 4}},
			curve:  curve(1000, 1000, 1004),
			check: func(t *testing.T, st dto.Statistics) {
				assert.Equal(t, 2, st.TotalTrades)
				assert.Equal(t, 1, st.WinningTrades)
				assert.Zero(t, st.LosingTrades)
				assert.Equal(t, 50.0, st.WinRate)
				assert.Zero(t, st.AvgLoss)
			},
		},
		{
			name:  "single sample has no sharpe",
			curve: curve(1000, 1010),
			check: func(t *testing.T, st dto.Statistics) {
				assert.Zero(t, st.SharpeRatio)
			},
		},
		{
			name:  "zero equity never divides",
			curve: curve(0, 0, 10, 0),
			check: func(t *testing.T, st dto.Statistics) {
				assert.False(t, math.IsNaN(st.SharpeRatio) || math.IsInf(st.SharpeRatio, 0))
				assert.Equal(t, -100.0, st.MaxDrawdown)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, calculateStatistics(tt.trades, tt.curve, 1000))
		})
	}
}

func TestMaxDrawdownTracksRunningPeak(t *testing.T) {
	assert.InDelta(t, -50.0, maxDrawdown(curve(100, 200, 150, 100, 180)), 1e-12)
	assert.Zero(t, maxDrawdown(curve(100, 110, 120)))
	assert.Zero(t, maxDrawdown(nil))
}
