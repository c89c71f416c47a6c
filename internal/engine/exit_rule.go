package engine

import (
	"errors"
	"fmt"
	"math"

	"golang-algotrade/internal/dto"
)

var ErrExitTable = errors.New("invalid exit rule table")

// ExitRuleTable is an ordered set of profit brackets covering [0, +Inf).
type ExitRuleTable struct {
	rules []dto.ExitRule
}

// NewExitRuleTable validates the rules and returns a table. A nil or empty
// slice yields the default table.
func NewExitRuleTable(rules []dto.ExitRule) (*ExitRuleTable, error) {
	if len(rules) == 0 {
		rules = DefaultExitRules()
	}
	t := &ExitRuleTable{rules: append([]dto.ExitRule(nil), rules...)}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Lookup returns the first rule whose [min, max) contains profit.
func (t *ExitRuleTable) Lookup(profit float64) (dto.ExitRule, bool) {
	for _, r := range t.rules {
		if r.Contains(profit) {
			return r, true
		}
	}
	return dto.ExitRule{}, false
}

func (t *ExitRuleTable) Rules() []dto.ExitRule {
	return append([]dto.ExitRule(nil), t.rules...)
}

func (t *ExitRuleTable) Validate() error {
	if len(t.rules) == 0 {
		return fmt.Errorf("%w: no rules", ErrExitTable)
	}
	if t.rules[0].Min != 0 {
		return fmt.Errorf("%w: first bracket starts at %v, want 0", ErrExitTable, t.rules[0].Min)
	}
	for i, r := range t.rules {
		if math.IsNaN(r.Min) || r.Min >= r.Upper() {
			return fmt.Errorf("%w: bracket %d has empty range [%v, %v)", ErrExitTable, i, r.Min, r.Upper())
		}
		if r.StopLoss < 0 || r.Trailing < 0 || r.TrailingPct < 0 {
			return fmt.Errorf("%w: bracket %d has a negative distance", ErrExitTable, i)
		}
		if r.TakeProfit != nil && *r.TakeProfit < 0 {
			return fmt.Errorf("%w: bracket %d has a negative take profit", ErrExitTable, i)
		}
		if i > 0 && t.rules[i-1].Upper() != r.Min {
			return fmt.Errorf("%w: bracket %d starts at %v but previous ends at %v", ErrExitTable, i, r.Min, t.rules[i-1].Upper())
		}
	}
	if last := t.rules[len(t.rules)-1]; !math.IsInf(last.Upper(), 1) {
		return fmt.Errorf("%w: last bracket ends at %v, want +Inf", ErrExitTable, last.Upper())
	}
	return nil
}

// DefaultExitRules is the stock bracket table, in points. No bracket sets a
// take profit; from 16 points of profit up the trailing distance is a
// percentage of that profit.
func DefaultExitRules() []dto.ExitRule {
	return []dto.ExitRule{
		{Min: 0, Max: bound(2), StopLoss: 10.3, Trailing: 11.9},
		{Min: 2, Max: bound(4), StopLoss: 10.8, Trailing: 13.9},
		{Min: 4, Max: bound(6), StopLoss: 5.5, Trailing: 9.8},
		{Min: 6, Max: bound(8), StopLoss: 4, Trailing: 10.1},
		{Min: 8, Max: bound(10), StopLoss: 1.2, Trailing: 9.5},
		{Min: 10, Max: bound(12), StopLoss: 1, Trailing: 12},
		{Min: 12, Max: bound(14), StopLoss: 10, Trailing: 10.1},
		{Min: 14, Max: bound(16), StopLoss: 10, Trailing: 8.2},
		{Min: 16, Max: bound(18), StopLoss: 10, TrailingPct: 68},
		{Min: 18, Max: bound(20), StopLoss: 10, TrailingPct: 68},
		{Min: 20, Max: bound(22), StopLoss: 10, TrailingPct: 68},
		{Min: 22, Max: bound(24), StopLoss: 10, TrailingPct: 68},
		{Min: 24, Max: bound(26), StopLoss: 10, TrailingPct: 65},
		{Min: 26, Max: bound(28), StopLoss: 10, TrailingPct: 61},
		{Min: 28, StopLoss: 10, TrailingPct: 55},
	}
}

func bound(v float64) *float64 { return &v }
