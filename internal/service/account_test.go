package service

import (
	"testing"
	"time"

	"golang-algotrade/internal/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapitalAccountFills(t *testing.T) {
	a := newCapitalAccount(dto.SimulationParams{InitialCapital: 100000, PositionSizePct: 50, Slippage: 0.5}, time.UTC)

	assert.InDelta(t, 250, a.PositionSize(200), 1e-9)
	assert.Zero(t, a.PositionSize(0))

	tests := []struct {
		dir       dto.Direction
		wantEntry float64
		wantExit  float64
	}{
		{dto.DirectionLong, 100.5, 99.5},
		{dto.DirectionShort, 99.5, 100.5},
	}
	for _, tt := range tests {
		t.Run(string(tt.dir), func(t *testing.T) {
			assert.Equal(t, tt.wantEntry, a.EntryFill(tt.dir, 100))
			assert.Equal(t, tt.wantExit, a.ExitFill(tt.dir, 100))
		})
	}
}

func TestCapitalAccountSettleChargesCommissionTwice(t *testing.T) {
	a := newCapitalAccount(dto.SimulationParams{InitialCapital: 100000, PositionSizePct: 100, Commission: 1}, time.UTC)

	trade := dto.Trade{ProfitPoints: 3, Size: 2, ExitTime: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)}
	a.Settle(&trade)

	assert.Equal(t, 4.0, trade.ProfitValue)
	assert.Equal(t, 100004.0, a.Capital())
}

func TestCapitalAccountDailyLossBreaker(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	require.NoError(t, err)

	a := newCapitalAccount(dto.SimulationParams{InitialCapital: 1000, PositionSizePct: 100, MaxDailyLoss: 10}, loc)
	day1 := time.Date(2024, 3, 4, 10, 0, 0, 0, loc)
	day2 := day1.AddDate(0, 0, 1)

	assert.True(t, a.CanEnter(day1))

	loss := dto.Trade{ProfitPoints: -6, Size: 1, ExitTime: day1}
	a.Settle(&loss)
	assert.True(t, a.CanEnter(day1), "loss below the limit")

	a.Settle(&dto.Trade{ProfitPoints: -4, Size: 1, ExitTime: day1.Add(time.Hour)})
	assert.False(t, a.CanEnter(day1.Add(2*time.Hour)), "loss reached the limit")
	assert.True(t, a.CanEnter(day2), "a new day starts fresh")
}

func TestCapitalAccountBreakerDisabled(t *testing.T) {
	a := newCapitalAccount(dto.SimulationParams{InitialCapital: 1000, PositionSizePct: 100}, time.UTC)
	at := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

	a.Settle(&dto.Trade{ProfitPoints: -500, Size: 1, ExitTime: at})
	assert.True(t, a.CanEnter(at))

	a.Settle(&dto.Trade{ProfitPoints: -500, Size: 1, ExitTime: at})
	assert.False(t, a.CanEnter(at), "no capital left")
}
