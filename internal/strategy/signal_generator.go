package strategy

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang-algotrade/internal/contract"
	"golang-algotrade/internal/dto"
	"golang-algotrade/pkg/cache"
	"golang-algotrade/pkg/common"
	"golang-algotrade/pkg/logger"
)

type signalGenerator struct {
	log      *logger.Logger
	cache    cache.Cache
	cacheTTL time.Duration
}

// NewSignalGenerator builds a generator that memoizes indicator outputs per
// series ID in c. A nil cache disables memoization.
func NewSignalGenerator(log *logger.Logger, c cache.Cache, cacheTTL time.Duration) contract.SignalGenerator {
	return &signalGenerator{
		log:      log,
		cache:    c,
		cacheTTL: cacheTTL,
	}
}

// Generate computes the strategy's indicators and evaluates its entry
// conditions on every bar. Bar 0 never signals.
func (g *signalGenerator) Generate(ctx context.Context, series *dto.BarSeries, cfg dto.StrategyConfig) (dto.SignalSet, error) {
	n := series.Len()
	if n == 0 {
		return dto.SignalSet{}, dto.ErrEmptySeries
	}

	r := resolver{
		series:     series,
		indicators: make(map[string]Outputs, len(cfg.Indicators)),
		primary:    make(map[string]string, len(cfg.Indicators)),
	}
	for _, spec := range cfg.Indicators {
		if _, dup := r.indicators[spec.ID]; dup {
			return dto.SignalSet{}, fmt.Errorf("%w: duplicate indicator id %q", ErrInvalidCondition, spec.ID)
		}
		def, err := lookupIndicator(spec.Type)
		if err != nil {
			return dto.SignalSet{}, err
		}
		outs, err := g.indicator(ctx, series, spec)
		if err != nil {
			return dto.SignalSet{}, err
		}
		r.indicators[spec.ID] = outs
		r.primary[spec.ID] = def.primary
	}

	long, err := r.side(cfg.EntryConditions.Long)
	if err != nil {
		return dto.SignalSet{}, fmt.Errorf("long conditions: %w", err)
	}
	short, err := r.side(cfg.EntryConditions.Short)
	if err != nil {
		return dto.SignalSet{}, fmt.Errorf("short conditions: %w", err)
	}

	signals := dto.NewSignalSet(n)
	for i := 1; i < n; i++ {
		signals.Buy[i] = long.Eval(i)
		signals.Short[i] = short.Eval(i)
	}
	return signals, nil
}

func (g *signalGenerator) indicator(ctx context.Context, series *dto.BarSeries, spec dto.IndicatorSpec) (Outputs, error) {
	if g.cache == nil || series.ID == "" {
		return Compute(series, spec)
	}

	key := fmt.Sprintf(common.KEY_INDICATOR, series.ID, strings.ToLower(spec.Type), canonicalParams(spec.Params))
	if outs, ok := cache.GetFromCache[Outputs](g.cache, key); ok {
		return outs, nil
	}

	outs, err := Compute(series, spec)
	if err != nil {
		return nil, err
	}
	g.cache.Set(key, outs, g.cacheTTL)
	g.log.DebugContext(ctx, "Indicator cached",
		logger.StringField("series_id", series.ID),
		logger.StringField("indicator", spec.Type),
	)
	return outs, nil
}

// canonicalParams renders params in key order so equal specs share a key.
func canonicalParams(p map[string]float64) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strconv.FormatFloat(p[k], 'g', -1, 64))
	}
	return b.String()
}
