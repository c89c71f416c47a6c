package contract

import (
	"context"

	"golang-algotrade/internal/dto"
)

// SignalGenerator turns a strategy document into entry signals aligned with
// the series.
type SignalGenerator interface {
	Generate(ctx context.Context, series *dto.BarSeries, cfg dto.StrategyConfig) (dto.SignalSet, error)
}
