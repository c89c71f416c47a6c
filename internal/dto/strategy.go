package dto

// StrategyConfig is the declarative strategy document. It is decoded from
// JSON or YAML and, during optimization, from a parameter-substituted tree.
type StrategyConfig struct {
	Name            string          `json:"name" validate:"required"`
	Version         string          `json:"version,omitempty"`
	Description     string          `json:"description,omitempty"`
	Indicators      []IndicatorSpec `json:"indicators" validate:"dive"`
	EntryConditions EntryConditions `json:"entry_conditions"`
	ExitRules       ExitRulesConfig `json:"exit_rules"`
	Settings        Settings        `json:"settings"`
	RiskManagement  RiskManagement  `json:"risk_management"`
}

type IndicatorSpec struct {
	ID     string             `json:"id" validate:"required"`
	Type   string             `json:"type" validate:"required"`
	Params map[string]float64 `json:"params,omitempty"`
}

type EntryConditions struct {
	Long  []ConditionGroup `json:"long"`
	Short []ConditionGroup `json:"short"`
}

// ConditionGroup is a left fold of its conditions; groups of one side are OR-ed.
// A condition's Logic joins it to the condition that follows it.
type ConditionGroup struct {
	Conditions []Condition `json:"conditions" validate:"dive"`
}

type Condition struct {
	Left        string `json:"left" validate:"required"`
	Operator    string `json:"operator" validate:"required"`
	Right       string `json:"right" validate:"required"`
	LeftOffset  int    `json:"left_offset,omitempty" validate:"gte=0"`
	RightOffset int    `json:"right_offset,omitempty" validate:"gte=0"`
	Logic       string `json:"logic,omitempty" validate:"omitempty,oneof=AND OR and or"`
}

type ExitRulesConfig struct {
	TPSLTable []ExitRule `json:"tp_sl_table,omitempty"`
}

type Settings struct {
	TradingHours          TradingWindow `json:"trading_hours"`
	TrailingGuardTime     *string       `json:"trailing_guard_time,omitempty"`
	BuyOrderLimit         *int          `json:"buy_order_limit,omitempty"`
	ShortOrderLimit       *int          `json:"short_order_limit,omitempty"`
	Active                *bool         `json:"active,omitempty"`
	BuyActive             *bool         `json:"buy_active,omitempty"`
	ShortActive           *bool         `json:"short_active,omitempty"`
	CandleLengthLimit     float64       `json:"candle_length_limit,omitempty"`
	ResetOrderLimitsDaily bool          `json:"reset_order_limits_daily,omitempty"`
	Timezone              string        `json:"timezone,omitempty"`
}

type RiskManagement struct {
	PositionSizePct float64  `json:"position_size_pct,omitempty"`
	MaxPositions    *int     `json:"max_positions,omitempty"`
	MaxDailyLoss    float64  `json:"max_daily_loss,omitempty"`
	Commission      float64  `json:"commission,omitempty"`
	Slippage        float64  `json:"slippage,omitempty"`
	FeePerTrade     *float64 `json:"fee_per_trade,omitempty"`
}

// SimulationParams merges the strategy settings over the given defaults.
func (s StrategyConfig) SimulationParams(defaults SimulationParams) SimulationParams {
	p := defaults
	st, rm := s.Settings, s.RiskManagement

	if st.TradingHours.Start != "" || st.TradingHours.End != "" {
		p.TradingWindow = st.TradingHours
	}
	if st.TrailingGuardTime != nil {
		p.TrailingGuardTime = *st.TrailingGuardTime
	}
	if st.BuyOrderLimit != nil {
		p.BuyOrderLimit = *st.BuyOrderLimit
	}
	if st.ShortOrderLimit != nil {
		p.ShortOrderLimit = *st.ShortOrderLimit
	}
	active := st.Active == nil || *st.Active
	p.DisableLong = p.DisableLong || !active || (st.BuyActive != nil && !*st.BuyActive)
	p.DisableShort = p.DisableShort || !active || (st.ShortActive != nil && !*st.ShortActive)
	if st.CandleLengthLimit > 0 {
		p.CandleLengthLimit = st.CandleLengthLimit
	}
	p.ResetOrderLimitsDaily = p.ResetOrderLimitsDaily || st.ResetOrderLimitsDaily
	if st.Timezone != "" {
		p.Timezone = st.Timezone
	}

	if rm.PositionSizePct > 0 {
		p.PositionSizePct = rm.PositionSizePct
	}
	if rm.MaxPositions != nil {
		p.MaxPositions = *rm.MaxPositions
	}
	if rm.MaxDailyLoss > 0 {
		p.MaxDailyLoss = rm.MaxDailyLoss
	}
	if rm.Commission > 0 {
		p.Commission = rm.Commission
	}
	if rm.Slippage > 0 {
		p.Slippage = rm.Slippage
	}
	if rm.FeePerTrade != nil {
		p.FeePerTrade = *rm.FeePerTrade
	}
	return p
}
