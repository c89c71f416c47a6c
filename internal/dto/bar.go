package dto

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrEmptySeries = errors.New("bar series is empty")
	ErrTimeOrder   = errors.New("bar times are not in non-decreasing order")
	ErrBarShape    = errors.New("bar high/low does not bound open/close")
)

// Bar is one OHLCV candle. Time is unix seconds.
type Bar struct {
	Time   int64   `json:"time" yaml:"time"`
	Open   float64 `json:"open" yaml:"open"`
	High   float64 `json:"high" yaml:"high"`
	Low    float64 `json:"low" yaml:"low"`
	Close  float64 `json:"close" yaml:"close"`
	Volume float64 `json:"volume" yaml:"volume"`
}

// IsFinite reports whether every price and the volume of the bar is a finite number.
func (b Bar) IsFinite() bool {
	for _, v := range [...]float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (b Bar) Timestamp() time.Time {
	return time.Unix(b.Time, 0)
}

// BarSeries is an immutable, time-ordered sequence of bars. ID is stamped at
// ingestion and keys the indicator cache; an empty ID disables memoization.
type BarSeries struct {
	ID       string `json:"id,omitempty"`
	Symbol   string `json:"symbol,omitempty"`
	Interval string `json:"interval,omitempty"`
	Bars     []Bar  `json:"bars" validate:"required,min=2"`
}

func (s *BarSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Validate checks ordering and candle shape. Bars with non-finite fields are
// left for the simulator to skip.
func (s *BarSeries) Validate() error {
	if s.Len() == 0 {
		return ErrEmptySeries
	}
	if err := s.ValidateOrder(); err != nil {
		return err
	}
	for i, b := range s.Bars {
		if !b.IsFinite() {
			continue
		}
		if b.High < math.Max(b.Open, b.Close) || b.Low > math.Min(b.Open, b.Close) {
			return fmt.Errorf("bar %d: %w", i, ErrBarShape)
		}
	}
	return nil
}

func (s *BarSeries) ValidateOrder() error {
	for i := 1; i < len(s.Bars); i++ {
		if s.Bars[i].Time < s.Bars[i-1].Time {
			return fmt.Errorf("bar %d: %w", i, ErrTimeOrder)
		}
	}
	return nil
}

// Column returns one OHLCV field as a slice aligned to the bars.
func (s *BarSeries) Column(field string) ([]float64, bool) {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		switch field {
		case FieldOpen:
			out[i] = b.Open
		case FieldHigh:
			out[i] = b.High
		case FieldLow:
			out[i] = b.Low
		case FieldClose:
			out[i] = b.Close
		case FieldVolume:
			out[i] = b.Volume
		default:
			return nil, false
		}
	}
	return out, true
}

const (
	FieldOpen   = "open"
	FieldHigh   = "high"
	FieldLow    = "low"
	FieldClose  = "close"
	FieldVolume = "volume"
)

// SignalSet holds the entry signals aligned to a bar series.
type SignalSet struct {
	Buy   []bool `json:"buy"`
	Short []bool `json:"short"`
}

func NewSignalSet(n int) SignalSet {
	return SignalSet{Buy: make([]bool, n), Short: make([]bool, n)}
}

// CandleQuery selects where a bar series is loaded from.
type CandleQuery struct {
	Source   string `json:"source" validate:"required,oneof=file binance"`
	Path     string `json:"path,omitempty" validate:"required_if=Source file"`
	Symbol   string `json:"symbol,omitempty" validate:"required_if=Source binance"`
	Interval string `json:"interval,omitempty" validate:"required_if=Source binance"`
	Start    int64  `json:"start,omitempty"`
	End      int64  `json:"end,omitempty"`
	Limit    int    `json:"limit,omitempty" validate:"gte=0"`
}

const (
	CandleSourceFile    = "file"
	CandleSourceBinance = "binance"
)
