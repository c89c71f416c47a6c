package engine

import (
	"testing"
	"time"

	"golang-algotrade/internal/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultTable(t *testing.T) *ExitRuleTable {
	t.Helper()
	table, err := NewExitRuleTable(nil)
	require.NoError(t, err)
	return table
}

func TestPositionTrailingExample(t *testing.T) {
	p, err := OpenPosition(dto.DirectionLong, 1900, 1, time.Time{}, 1, 1, 0, defaultTable(t))
	require.NoError(t, err)

	require.NoError(t, p.Update(1930, 1925))

	assert.InDelta(t, 29, p.FavorableProfit, 1e-9)
	assert.InDelta(t, 1914.05, p.Levels.Trailing, 1e-9)
	assert.InDelta(t, 1890, p.Levels.StopLoss, 1e-9)
	assert.Nil(t, p.Levels.TakeProfit)
}

func TestPositionShortMirrorsLong(t *testing.T) {
	p, err := OpenPosition(dto.DirectionShort, 1900, 1, time.Time{}, 1, 1, 0, defaultTable(t))
	require.NoError(t, err)

	require.NoError(t, p.Update(1875, 1870))

	assert.InDelta(t, 1870, p.FavorablePrice, 1e-9)
	assert.InDelta(t, 29, p.FavorableProfit, 1e-9)
	assert.InDelta(t, 1885.95, p.Levels.Trailing, 1e-9)
	assert.InDelta(t, 1910, p.Levels.StopLoss, 1e-9)
}

func TestPositionFavorableProfitIsMonotonic(t *testing.T) {
	p, err := OpenPosition(dto.DirectionLong, 100, 1, time.Time{}, 1, 0.5, 0, defaultTable(t))
	require.NoError(t, err)

	highs := []float64{101, 104, 102, 99, 110, 95, 108, 111}
	prev := p.FavorableProfit
	for _, h := range highs {
		require.NoError(t, p.Update(h, h-3))
		assert.GreaterOrEqual(t, p.FavorableProfit, prev)
		prev = p.FavorableProfit
	}
	assert.InDelta(t, 10.5, p.FavorableProfit, 1e-9)
}

func TestPositionCandleLengthLimit(t *testing.T) {
	p, err := OpenPosition(dto.DirectionLong, 100, 1, time.Time{}, 1, 0, 5, defaultTable(t))
	require.NoError(t, err)

	require.NoError(t, p.Update(120, 100))
	assert.Equal(t, 100.0, p.FavorablePrice)
	assert.Equal(t, 0.0, p.FavorableProfit)

	require.NoError(t, p.Update(103, 99))
	assert.Equal(t, 103.0, p.FavorablePrice)
	assert.Equal(t, 3.0, p.FavorableProfit)
}

func TestPositionCheckExit(t *testing.T) {
	tp := 5.0
	tpTable, err := NewExitRuleTable([]dto.ExitRule{{Min: 0, TakeProfit: &tp, StopLoss: 10, Trailing: 20}})
	require.NoError(t, err)

	tests := []struct {
		name       string
		dir        dto.Direction
		table      *ExitRuleTable
		bar        dto.Bar
		prev       dto.Bar
		inWindow   bool
		guard      bool
		wantOK     bool
		wantReason dto.ExitReason
		wantPrice  float64
	}{
		{
			// profit 9 -> sl 98.8, trailing 99.5; low 98 hits both
			name: "stop loss wins over trailing", dir: dto.DirectionLong, table: defaultTable(t),
			bar: dto.Bar{Open: 105, High: 109, Low: 98, Close: 100}, inWindow: true,
			wantOK: true, wantReason: dto.ExitStopLoss, wantPrice: 98,
		},
		{
			name: "trailing stop", dir: dto.DirectionLong, table: defaultTable(t),
			bar: dto.Bar{Open: 105, High: 109, Low: 99, Close: 100}, inWindow: true,
			wantOK: true, wantReason: dto.ExitTrailingStop, wantPrice: 99,
		},
		{
			name: "trailing suppressed at guard time", dir: dto.DirectionLong, table: defaultTable(t),
			bar: dto.Bar{Open: 105, High: 109, Low: 99, Close: 100}, inWindow: true, guard: true,
		},
		{
			name: "outside trading window", dir: dto.DirectionLong, table: defaultTable(t),
			bar: dto.Bar{Open: 105, High: 109, Low: 90, Close: 95},
		},
		{
			name: "take profit", dir: dto.DirectionLong, table: tpTable,
			bar: dto.Bar{Open: 103, High: 106, Low: 101, Close: 104}, prev: dto.Bar{Low: 100}, inWindow: true,
			wantOK: true, wantReason: dto.ExitTakeProfit, wantPrice: 106,
		},
		{
			name: "take profit needs a higher low", dir: dto.DirectionLong, table: tpTable,
			bar: dto.Bar{Open: 103, High: 106, Low: 101, Close: 104}, prev: dto.Bar{Low: 102}, inWindow: true,
		},
		{
			name: "short stop loss fills at high", dir: dto.DirectionShort, table: defaultTable(t),
			bar: dto.Bar{Open: 105, High: 111, Low: 100, Close: 110}, inWindow: true,
			wantOK: true, wantReason: dto.ExitStopLoss, wantPrice: 111,
		},
		{
			name: "short take profit fills at low", dir: dto.DirectionShort, table: tpTable,
			bar: dto.Bar{Open: 97, High: 99, Low: 94, Close: 96}, prev: dto.Bar{High: 100}, inWindow: true,
			wantOK: true, wantReason: dto.ExitTakeProfit, wantPrice: 94,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := OpenPosition(tt.dir, 100, 1, time.Time{}, 1, 0, 0, tt.table)
			require.NoError(t, err)
			require.NoError(t, p.Update(tt.bar.High, tt.bar.Low))

			reason, price, ok := p.CheckExit(ExitCheck{Bar: tt.bar, Prev: tt.prev, InWindow: tt.inWindow, GuardTime: tt.guard})
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantReason, reason)
				assert.Equal(t, tt.wantPrice, price)
			}
		})
	}
}

func TestPositionClose(t *testing.T) {
	at := time.Unix(1_700_000_000, 0)
	p, err := OpenPosition(dto.DirectionShort, 50, 3, at, 2, 0.25, 0, defaultTable(t))
	require.NoError(t, err)

	trade := p.Close(7, at.Add(4*time.Minute), 48, dto.ExitTrailingStop)

	assert.Equal(t, 3, trade.EntryBar)
	assert.Equal(t, 7, trade.ExitBar)
	assert.Equal(t, 4, trade.BarsHeld)
	assert.Equal(t, 2.0, trade.Size)
	assert.InDelta(t, 1.75, trade.ProfitPoints, 1e-9)
	assert.Zero(t, trade.ProfitValue)
}
