package strategy

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"golang-algotrade/internal/dto"
)

var ErrUnknownIndicator = errors.New("unknown indicator")

// Output is the default output name of single-valued indicators.
const Output = "value"

// Outputs maps an output name to a series aligned with the bars. Warmup
// values are NaN.
type Outputs map[string][]float64

// indicatorFunc computes an indicator over a bar series.
type indicatorFunc func(s *dto.BarSeries, p params) (Outputs, error)

type indicatorDef struct {
	fn indicatorFunc
	// primary is the output used when a condition names only the indicator id.
	primary string
}

var indicators = map[string]indicatorDef{
	"sma":      {fn: movingAverage(SMA), primary: Output},
	"ema":      {fn: movingAverage(EMA), primary: Output},
	"wma":      {fn: movingAverage(WMA), primary: Output},
	"dema":     {fn: movingAverage(DEMA), primary: Output},
	"tema":     {fn: movingAverage(TEMA), primary: Output},
	"rsi":      {fn: rsiIndicator, primary: Output},
	"atr":      {fn: atrIndicator, primary: Output},
	"macd":     {fn: macdIndicator, primary: "macd"},
	"bb":       {fn: bollingerIndicator, primary: "middle"},
	"donchian": {fn: donchianIndicator, primary: "middle"},
	"obv":      {fn: obvIndicator, primary: Output},
	"cci":      {fn: cciIndicator, primary: Output},
}

// SupportedIndicators lists the indicator types in lexical order.
func SupportedIndicators() []string {
	out := make([]string, 0, len(indicators))
	for name := range indicators {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func lookupIndicator(kind string) (indicatorDef, error) {
	kind = strings.ToLower(kind)
	if kind == "bollinger" || kind == "bbands" {
		kind = "bb"
	}
	def, ok := indicators[kind]
	if !ok {
		return indicatorDef{}, fmt.Errorf("%w: %q", ErrUnknownIndicator, kind)
	}
	return def, nil
}

// Compute evaluates one indicator spec over the series.
func Compute(s *dto.BarSeries, spec dto.IndicatorSpec) (Outputs, error) {
	def, err := lookupIndicator(spec.Type)
	if err != nil {
		return nil, err
	}
	out, err := def.fn(s, params(spec.Params))
	if err != nil {
		return nil, fmt.Errorf("indicator %s (%s): %w", spec.ID, spec.Type, err)
	}
	return out, nil
}

type params map[string]float64

// period reads an integer window, rejecting values below 1.
func (p params) period(key string, def int) (int, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	n := int(math.Round(v))
	if n < 1 {
		return 0, fmt.Errorf("%s must be >= 1, got %v", key, v)
	}
	return n, nil
}

func (p params) float(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

func closes(s *dto.BarSeries) []float64 {
	out, _ := s.Column(dto.FieldClose)
	return out
}

func movingAverage(fn func([]float64, int) []float64) indicatorFunc {
	return func(s *dto.BarSeries, p params) (Outputs, error) {
		period, err := p.period("period", 14)
		if err != nil {
			return nil, err
		}
		return Outputs{Output: fn(closes(s), period)}, nil
	}
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// SMA over the last p points.
func SMA(x []float64, p int) []float64 {
	out := nanSlice(len(x))
	var sum float64
	count := 0
	for i := range x {
		if math.IsNaN(x[i]) {
			sum, count = 0, 0
			continue
		}
		sum += x[i]
		count++
		if count > p {
			sum -= x[i-p]
			count = p
		}
		if count == p {
			out[i] = sum / float64(p)
		}
	}
	return out
}

// EMA with smoothing 2/(p+1), seeded with the SMA of the first p values. A
// NaN input yields NaN at that index and leaves the running average intact.
func EMA(x []float64, p int) []float64 {
	return smooth(x, p, 2/float64(p+1))
}

// wilder is the RMA used by RSI and ATR.
func wilder(x []float64, p int) []float64 {
	return smooth(x, p, 1/float64(p))
}

func smooth(x []float64, p int, k float64) []float64 {
	out := nanSlice(len(x))
	var (
		prev  float64
		seed  float64
		count int
	)
	for i, v := range x {
		if math.IsNaN(v) {
			continue
		}
		if count < p {
			seed += v
			count++
			if count == p {
				prev = seed / float64(p)
				out[i] = prev
			}
			continue
		}
		prev = (v-prev)*k + prev
		out[i] = prev
	}
	return out
}

// WMA is the linearly weighted average, newest point weighted p.
func WMA(x []float64, p int) []float64 {
	out := nanSlice(len(x))
	denom := float64(p*(p+1)) / 2
	for i := p - 1; i < len(x); i++ {
		var sum float64
		for j := 0; j < p; j++ {
			sum += x[i-j] * float64(p-j)
		}
		out[i] = sum / denom
	}
	return out
}

func DEMA(x []float64, p int) []float64 {
	e1 := EMA(x, p)
	e2 := EMA(e1, p)
	out := make([]float64, len(x))
	for i := range out {
		out[i] = 2*e1[i] - e2[i]
	}
	return out
}

func TEMA(x []float64, p int) []float64 {
	e1 := EMA(x, p)
	e2 := EMA(e1, p)
	e3 := EMA(e2, p)
	out := make([]float64, len(x))
	for i := range out {
		out[i] = 3*e1[i] - 3*e2[i] + e3[i]
	}
	return out
}

// RSI with Wilder smoothing. A window without losses reads 100.
func RSI(x []float64, p int) []float64 {
	n := len(x)
	gains, losses := nanSlice(n), nanSlice(n)
	for i := 1; i < n; i++ {
		d := x[i] - x[i-1]
		if math.IsNaN(d) {
			continue
		}
		gains[i] = math.Max(d, 0)
		losses[i] = math.Max(-d, 0)
	}
	avgGain, avgLoss := wilder(gains, p), wilder(losses, p)

	out := nanSlice(n)
	for i := range out {
		g, l := avgGain[i], avgLoss[i]
		switch {
		case math.IsNaN(g) || math.IsNaN(l):
		case l == 0 && g == 0:
			out[i] = 50
		case l == 0:
			out[i] = 100
		default:
			out[i] = 100 - 100/(1+g/l)
		}
	}
	return out
}

func rsiIndicator(s *dto.BarSeries, p params) (Outputs, error) {
	period, err := p.period("period", 14)
	if err != nil {
		return nil, err
	}
	return Outputs{Output: RSI(closes(s), period)}, nil
}

// TrueRange of each bar; the first bar uses its own high-low.
func TrueRange(bars []dto.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		tr := b.High - b.Low
		if i > 0 {
			prev := bars[i-1].Close
			tr = math.Max(tr, math.Max(math.Abs(b.High-prev), math.Abs(b.Low-prev)))
		}
		out[i] = tr
	}
	return out
}

func atrIndicator(s *dto.BarSeries, p params) (Outputs, error) {
	period, err := p.period("period", 14)
	if err != nil {
		return nil, err
	}
	return Outputs{Output: wilder(TrueRange(s.Bars), period)}, nil
}

func macdIndicator(s *dto.BarSeries, p params) (Outputs, error) {
	fast, err := p.period("fast", 12)
	if err != nil {
		return nil, err
	}
	slow, err := p.period("slow", 26)
	if err != nil {
		return nil, err
	}
	signal, err := p.period("signal", 9)
	if err != nil {
		return nil, err
	}
	if fast >= slow {
		return nil, fmt.Errorf("fast period %d must be below slow period %d", fast, slow)
	}

	c := closes(s)
	ef, es := EMA(c, fast), EMA(c, slow)
	macd := make([]float64, len(c))
	for i := range macd {
		macd[i] = ef[i] - es[i]
	}
	sig := EMA(macd, signal)
	hist := make([]float64, len(c))
	for i := range hist {
		hist[i] = macd[i] - sig[i]
	}
	return Outputs{"macd": macd, "signal": sig, "hist": hist}, nil
}

func bollingerIndicator(s *dto.BarSeries, p params) (Outputs, error) {
	period, err := p.period("period", 20)
	if err != nil {
		return nil, err
	}
	k := p.float("std_dev", 2)

	c := closes(s)
	mid := SMA(c, period)
	upper, lower := nanSlice(len(c)), nanSlice(len(c))
	for i := range c {
		if math.IsNaN(mid[i]) {
			continue
		}
		var ss float64
		for j := i - period + 1; j <= i; j++ {
			d := c[j] - mid[i]
			ss += d * d
		}
		sd := math.Sqrt(ss / float64(period))
		upper[i] = mid[i] + k*sd
		lower[i] = mid[i] - k*sd
	}
	return Outputs{"upper": upper, "middle": mid, "lower": lower}, nil
}

func donchianIndicator(s *dto.BarSeries, p params) (Outputs, error) {
	period, err := p.period("period", 20)
	if err != nil {
		return nil, err
	}
	n := len(s.Bars)
	upper, lower, mid := nanSlice(n), nanSlice(n), nanSlice(n)
	for i := period - 1; i < n; i++ {
		hi, lo := math.Inf(-1), math.Inf(1)
		for j := i - period + 1; j <= i; j++ {
			hi = math.Max(hi, s.Bars[j].High)
			lo = math.Min(lo, s.Bars[j].Low)
		}
		upper[i], lower[i], mid[i] = hi, lo, (hi+lo)/2
	}
	return Outputs{"upper": upper, "middle": mid, "lower": lower}, nil
}

func obvIndicator(s *dto.BarSeries, _ params) (Outputs, error) {
	out := make([]float64, len(s.Bars))
	for i := 1; i < len(s.Bars); i++ {
		cur, prev := s.Bars[i], s.Bars[i-1]
		out[i] = out[i-1]
		switch {
		case cur.Close > prev.Close:
			out[i] += cur.Volume
		case cur.Close < prev.Close:
			out[i] -= cur.Volume
		}
	}
	return Outputs{Output: out}, nil
}

func cciIndicator(s *dto.BarSeries, p params) (Outputs, error) {
	period, err := p.period("period", 20)
	if err != nil {
		return nil, err
	}
	tp := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		tp[i] = (b.High + b.Low + b.Close) / 3
	}
	ma := SMA(tp, period)
	out := nanSlice(len(tp))
	for i := range tp {
		if math.IsNaN(ma[i]) {
			continue
		}
		var dev float64
		for j := i - period + 1; j <= i; j++ {
			dev += math.Abs(tp[j] - ma[i])
		}
		dev /= float64(period)
		if dev == 0 {
			out[i] = 0
			continue
		}
		out[i] = (tp[i] - ma[i]) / (0.015 * dev)
	}
	return Outputs{Output: out}, nil
}
