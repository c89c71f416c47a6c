package strategy

import (
	"context"
	"testing"
	"time"

	"golang-algotrade/internal/dto"
	"golang-algotrade/pkg/cache"
	"golang-algotrade/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGenerator(c cache.Cache) *signalGenerator {
	return NewSignalGenerator(logger.NewNop(), c, time.Minute).(*signalGenerator)
}

func when(groups ...dto.ConditionGroup) dto.EntryConditions {
	return dto.EntryConditions{Long: groups}
}

func all(conds ...dto.Condition) dto.ConditionGroup {
	return dto.ConditionGroup{Conditions: conds}
}

func TestGenerateComparisons(t *testing.T) {
	series := seriesFromCloses(1, 2, 3, 4, 5, 4, 3, 2, 1)

	tests := []struct {
		name       string
		indicators []dto.IndicatorSpec
		conditions dto.EntryConditions
		want       []bool
	}{
		{
			name:       "field against constant",
			conditions: when(all(dto.Condition{Left: "close", Operator: ">", Right: "3"})),
			want:       []bool{false, false, false, true, true, true, false, false, false},
		},
		{
			name:       "offset reads earlier bar",
			conditions: when(all(dto.Condition{Left: "close", Operator: ">", Right: "close", RightOffset: 1})),
			want:       []bool{false, true, true, true, true, false, false, false, false},
		},
		{
			name: "and join",
			conditions: when(all(
				dto.Condition{Left: "close", Operator: ">=", Right: "2", Logic: "AND"},
				dto.Condition{Left: "close", Operator: "<=", Right: "3"},
			)),
			want: []bool{false, true, true, false, false, false, true, true, false},
		},
		{
			name: "or join",
			conditions: when(all(
				dto.Condition{Left: "close", Operator: "==", Right: "1", Logic: "or"},
				dto.Condition{Left: "close", Operator: "==", Right: "5"},
			)),
			want: []bool{false, false, false, false, true, false, false, false, true},
		},
		{
			name: "groups are or-ed",
			conditions: when(
				all(dto.Condition{Left: "close", Operator: "==", Right: "2"}),
				all(dto.Condition{Left: "close", Operator: "==", Right: "4"}),
			),
			want: []bool{false, true, false, true, false, true, false, true, false},
		},
		{
			name:       "warmup reads false",
			indicators: []dto.IndicatorSpec{{ID: "ma3", Type: "sma", Params: map[string]float64{"period": 3}}},
			conditions: when(all(dto.Condition{Left: "close", Operator: "!=", Right: "ma3"})),
			want:       []bool{false, false, true, true, true, true, true, true, true},
		},
		{
			name:       "empty group",
			conditions: when(all()),
			want:       make([]bool, 9),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := dto.StrategyConfig{Name: tt.name, Indicators: tt.indicators, EntryConditions: tt.conditions}
			signals, err := newTestGenerator(nil).Generate(context.Background(), series, cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, signals.Buy)
			assert.Equal(t, make([]bool, series.Len()), signals.Short)
		})
	}
}

func TestGenerateCross(t *testing.T) {
	series := seriesFromCloses(5, 4, 3, 4, 6, 7, 5, 3)
	cfg := dto.StrategyConfig{
		Name: "cross",
		EntryConditions: dto.EntryConditions{
			Long:  []dto.ConditionGroup{all(dto.Condition{Left: "close", Operator: "cross_above", Right: "4.5"})},
			Short: []dto.ConditionGroup{all(dto.Condition{Left: "close", Operator: "cross_below", Right: "4.5"})},
		},
	}

	signals, err := newTestGenerator(nil).Generate(context.Background(), series, cfg)
	require.NoError(t, err)

	assert.Equal(t, []bool{false, false, false, false, true, false, false, false}, signals.Buy)
	assert.Equal(t, []bool{false, true, false, false, false, false, false, true}, signals.Short)
}

func TestGenerateIndicatorOutputs(t *testing.T) {
	series := seriesFromCloses(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	cfg := dto.StrategyConfig{
		Name:       "donchian",
		Indicators: []dto.IndicatorSpec{{ID: "dc", Type: "donchian", Params: map[string]float64{"period": 3}}},
		EntryConditions: when(all(
			dto.Condition{Left: "high", Operator: ">=", Right: "dc.upper"},
		)),
	}

	signals, err := newTestGenerator(nil).Generate(context.Background(), series, cfg)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, true, true, true, true, true, true, true, true}, signals.Buy)
}

func TestGenerateErrors(t *testing.T) {
	series := seriesFromCloses(1, 2, 3)

	tests := []struct {
		name string
		cfg  dto.StrategyConfig
	}{
		{
			name: "unknown operand",
			cfg:  dto.StrategyConfig{EntryConditions: when(all(dto.Condition{Left: "vwap", Operator: ">", Right: "1"}))},
		},
		{
			name: "unknown output",
			cfg: dto.StrategyConfig{
				Indicators:      []dto.IndicatorSpec{{ID: "m", Type: "macd"}},
				EntryConditions: when(all(dto.Condition{Left: "m.upper", Operator: ">", Right: "0"})),
			},
		},
		{
			name: "unknown operator",
			cfg:  dto.StrategyConfig{EntryConditions: when(all(dto.Condition{Left: "close", Operator: "=~", Right: "1"}))},
		},
		{
			name: "duplicate id",
			cfg: dto.StrategyConfig{Indicators: []dto.IndicatorSpec{
				{ID: "x", Type: "sma"},
				{ID: "x", Type: "ema"},
			}},
		},
		{
			name: "unknown indicator",
			cfg:  dto.StrategyConfig{Indicators: []dto.IndicatorSpec{{ID: "x", Type: "zigzag"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestGenerator(nil).Generate(context.Background(), series, tt.cfg)
			assert.Error(t, err)
		})
	}

	_, err := newTestGenerator(nil).Generate(context.Background(), &dto.BarSeries{}, dto.StrategyConfig{})
	assert.ErrorIs(t, err, dto.ErrEmptySeries)
}

func TestGenerateMemoizesIndicators(t *testing.T) {
	c := cache.NewCache(time.Minute, time.Minute)
	g := newTestGenerator(c)

	series := seriesFromCloses(1, 2, 3, 4, 5, 6)
	series.ID = "01HZX0000000000000000000AA"
	cfg := dto.StrategyConfig{
		Name: "memo",
		Indicators: []dto.IndicatorSpec{
			{ID: "fast", Type: "ema", Params: map[string]float64{"period": 2}},
			{ID: "slow", Type: "EMA", Params: map[string]float64{"period": 4}},
			{ID: "again", Type: "ema", Params: map[string]float64{"period": 2}},
		},
		EntryConditions: when(all(dto.Condition{Left: "fast", Operator: ">", Right: "slow"})),
	}

	first, err := g.Generate(context.Background(), series, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, c.ItemCount())

	second, err := g.Generate(context.Background(), series, cfg)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 2, c.ItemCount())

	other := seriesFromCloses(1, 2, 3, 4, 5, 6)
	_, err = g.Generate(context.Background(), other, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, c.ItemCount(), "series without an id is not cached")
}

func TestCanonicalParams(t *testing.T) {
	assert.Equal(t, "fast=12,signal=9,slow=26", canonicalParams(map[string]float64{"slow": 26, "fast": 12, "signal": 9}))
	assert.Equal(t, "", canonicalParams(nil))
}
