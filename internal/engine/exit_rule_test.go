package engine

import (
	"testing"

	"golang-algotrade/internal/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultExitRulesCoverage(t *testing.T) {
	table, err := NewExitRuleTable(nil)
	require.NoError(t, err)

	for p := 0.0; p < 200; p += 0.25 {
		rule, ok := table.Lookup(p)
		require.True(t, ok, "profit %v has no bracket", p)
		assert.True(t, rule.Contains(p))
	}

	_, ok := table.Lookup(-0.01)
	assert.False(t, ok)
}

func TestExitRuleTableLookup(t *testing.T) {
	table, err := NewExitRuleTable(DefaultExitRules())
	require.NoError(t, err)

	tests := []struct {
		name         string
		profit       float64
		wantSL       float64
		wantTrailing float64
	}{
		{name: "first bracket", profit: 0, wantSL: 10.3, wantTrailing: 11.9},
		{name: "upper bound is exclusive", profit: 2, wantSL: 10.8, wantTrailing: 13.9},
		{name: "tight stop", profit: 9.99, wantSL: 1.2, wantTrailing: 9.5},
		{name: "fixed trailing", profit: 15, wantSL: 10, wantTrailing: 8.2},
		{name: "68 percent", profit: 20, wantSL: 10, wantTrailing: 13.6},
		{name: "65 percent", profit: 25, wantSL: 10, wantTrailing: 16.25},
		{name: "61 percent", profit: 27, wantSL: 10, wantTrailing: 16.47},
		{name: "open ended", profit: 29, wantSL: 10, wantTrailing: 15.95},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, ok := table.Lookup(tt.profit)
			require.True(t, ok)
			assert.Nil(t, rule.TakeProfit)
			assert.InDelta(t, tt.wantSL, rule.StopLoss, 1e-9)
			assert.InDelta(t, tt.wantTrailing, rule.TrailingDistance(tt.profit), 1e-9)
		})
	}
}

func TestExitRuleTableValidate(t *testing.T) {
	tests := []struct {
		name  string
		rules []dto.ExitRule
	}{
		{
			name:  "does not start at zero",
			rules: []dto.ExitRule{{Min: 1, StopLoss: 5, Trailing: 5}},
		},
		{
			name: "gap between brackets",
			rules: []dto.ExitRule{
				{Min: 0, Max: bound(2), StopLoss: 5, Trailing: 5},
				{Min: 3, StopLoss: 5, Trailing: 5},
			},
		},
		{
			name:  "bounded last bracket",
			rules: []dto.ExitRule{{Min: 0, Max: bound(10), StopLoss: 5, Trailing: 5}},
		},
		{
			name:  "empty range",
			rules: []dto.ExitRule{{Min: 0, Max: bound(0), StopLoss: 5}},
		},
		{
			name:  "negative stop",
			rules: []dto.ExitRule{{Min: 0, StopLoss: -1, Trailing: 5}},
		},
		{
			name:  "negative take profit",
			rules: []dto.ExitRule{{Min: 0, StopLoss: 1, TakeProfit: bound(-2)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewExitRuleTable(tt.rules)
			assert.ErrorIs(t, err, ErrExitTable)
		})
	}
}

func TestExitRuleTableRulesIsCopy(t *testing.T) {
	table, err := NewExitRuleTable(nil)
	require.NoError(t, err)

	rules := table.Rules()
	rules[0].StopLoss = 99

	rule, ok := table.Lookup(0)
	require.True(t, ok)
	assert.Equal(t, 10.3, rule.StopLoss)
}
