package repository

import (
	"context"
	"fmt"
	"sort"

	"golang-algotrade/internal/dto"
	"golang-algotrade/pkg/logger"

	"github.com/oklog/ulid/v2"
)

type CandleRepository interface {
	Get(ctx context.Context, query dto.CandleQuery) (*dto.BarSeries, error)
}

type candleRepository struct {
	log         *logger.Logger
	binanceRepo BinanceRepository
	fileRepo    FileRepository
}

func NewCandleRepository(log *logger.Logger, binanceRepo BinanceRepository, fileRepo FileRepository) CandleRepository {
	return &candleRepository{
		log:         log,
		binanceRepo: binanceRepo,
		fileRepo:    fileRepo,
	}
}

// Get loads a series from the query's source, trims it to the query's time
// range and limit, validates it and stamps a fresh series ID.
func (r *candleRepository) Get(ctx context.Context, query dto.CandleQuery) (*dto.BarSeries, error) {
	var (
		series *dto.BarSeries
		err    error
	)
	switch query.Source {
	case dto.CandleSourceBinance:
		series, err = r.binanceRepo.Get(ctx, query)
	case dto.CandleSourceFile:
		series, err = r.fileRepo.LoadBars(query.Path)
	default:
		return nil, fmt.Errorf("unknown candle source %q", query.Source)
	}
	if err != nil {
		return nil, err
	}

	if query.Symbol != "" {
		series.Symbol = query.Symbol
	}
	if query.Interval != "" {
		series.Interval = query.Interval
	}
	series.Bars = trimBars(series.Bars, query)

	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bar series from %s: %w", query.Source, err)
	}
	series.ID = ulid.Make().String()

	r.log.InfoContext(ctx, "Loaded bar series",
		logger.StringField("series_id", series.ID),
		logger.StringField("source", query.Source),
		logger.StringField("symbol", series.Symbol),
		logger.IntField("bars", series.Len()),
	)
	return series, nil
}

// trimBars keeps bars in [Start, End] and then the last Limit of them.
func trimBars(bars []dto.Bar, query dto.CandleQuery) []dto.Bar {
	if query.Start > 0 {
		i := sort.Search(len(bars), func(i int) bool { return bars[i].Time >= query.Start })
		bars = bars[i:]
	}
	if query.End > 0 {
		i := sort.Search(len(bars), func(i int) bool { return bars[i].Time > query.End })
		bars = bars[:i]
	}
	if query.Limit > 0 && len(bars) > query.Limit {
		bars = bars[len(bars)-query.Limit:]
	}
	return bars
}
