package service

import (
	"context"
	"fmt"

	"golang-algotrade/config"
	"golang-algotrade/internal/contract"
	"golang-algotrade/internal/dto"
	"golang-algotrade/internal/engine"
	"golang-algotrade/internal/repository"
	"golang-algotrade/pkg/logger"
	"golang-algotrade/pkg/utils"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
)

// BacktestService mendefinisikan interface untuk layanan backtesting.
type BacktestService interface {
	RunBacktest(ctx context.Context, req dto.BacktestRequest) (*dto.BacktestResult, error)
	// Evaluate runs one strategy over an already loaded series. A zero
	// capital falls back to the configured initial capital.
	Evaluate(ctx context.Context, series *dto.BarSeries, strategy dto.StrategyConfig, capital float64) (*dto.BacktestResult, error)
}

type backtestService struct {
	cfg        *config.Config
	log        *logger.Logger
	validator  *goValidator.Validate
	candleRepo repository.CandleRepository
	signals    contract.SignalGenerator
}

// NewBacktestService membuat instance baru dari backtestService.
func NewBacktestService(
	cfg *config.Config,
	log *logger.Logger,
	validator *goValidator.Validate,
	candleRepo repository.CandleRepository,
	signals contract.SignalGenerator,
) BacktestService {
	return &backtestService{
		cfg:        cfg,
		log:        log,
		validator:  validator,
		candleRepo: candleRepo,
		signals:    signals,
	}
}

// RunBacktest menjalankan simulasi trading berdasarkan data historis.
func (s *backtestService) RunBacktest(ctx context.Context, req dto.BacktestRequest) (*dto.BacktestResult, error) {
	series, err := loadSeries(ctx, s.candleRepo, req.Candles, req.Series)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to load bars for backtest", logger.ErrorField(err))
		return nil, err
	}

	result, err := s.Evaluate(ctx, series, req.Strategy, req.InitialCapital)
	if err != nil {
		s.log.ErrorContext(ctx, "Backtest failed",
			logger.ErrorField(err),
			logger.StringField("strategy", req.Strategy.Name),
		)
		return nil, err
	}

	s.log.InfoContext(ctx, "Backtest completed",
		logger.StringField("run_id", result.RunID),
		logger.StringField("strategy", result.Strategy),
		logger.StringField("symbol", result.Symbol),
		logger.IntField("bars", series.Len()),
		logger.StringField("from", utils.PrettyDate(result.StartTime)),
		logger.StringField("to", utils.PrettyDate(result.EndTime)),
		logger.IntField("trades", result.Statistics.TotalTrades),
		logger.StringField("total_return", utils.FormatPercentage(result.Statistics.TotalReturn)),
	)
	return result, nil
}

func (s *backtestService) Evaluate(ctx context.Context, series *dto.BarSeries, strategy dto.StrategyConfig, capital float64) (*dto.BacktestResult, error) {
	params := strategy.SimulationParams(s.defaultParams(capital))
	if err := s.validator.Struct(params); err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrInvalidParams, err)
	}
	loc, err := utils.LoadLocation(params.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrInvalidParams, err)
	}

	table, err := engine.NewExitRuleTable(strategy.ExitRules.TPSLTable)
	if err != nil {
		return nil, err
	}

	signals, err := s.signals.Generate(ctx, series, strategy)
	if err != nil {
		return nil, fmt.Errorf("failed to generate signals: %w", err)
	}

	sim, err := engine.NewSimulator(s.log, series, signals, table, params, newCapitalAccount(params, loc))
	if err != nil {
		return nil, err
	}
	sr, err := sim.Run(ctx)
	if err != nil {
		return nil, err
	}

	bars := series.Bars
	result := &dto.BacktestResult{
		RunID:       ulid.Make().String(),
		Strategy:    strategy.Name,
		Symbol:      series.Symbol,
		StartTime:   bars[0].Timestamp(),
		EndTime:     bars[len(bars)-1].Timestamp(),
		Trades:      sr.Trades,
		EquityCurve: sr.EquityCurve,
		Statistics:  calculateStatistics(sr.Trades, sr.EquityCurve, params.InitialCapital),
	}

	if sr.SkippedBars > 0 {
		s.log.WarnContext(ctx, "Backtest skipped non-finite bars",
			logger.StringField("run_id", result.RunID),
			logger.IntField("skipped_bars", sr.SkippedBars),
		)
	}
	return result, nil
}

// defaultParams builds the simulation defaults from configuration.
func (s *backtestService) defaultParams(capital float64) dto.SimulationParams {
	bt := s.cfg.Backtest
	if capital <= 0 {
		capital = bt.InitialCapital
	}
	return dto.SimulationParams{
		InitialCapital:        capital,
		Commission:            bt.Commission,
		Slippage:              bt.Slippage,
		PositionSizePct:       bt.PositionSizePct,
		MaxDailyLoss:          bt.MaxDailyLoss,
		MaxPositions:          1,
		BuyOrderLimit:         bt.BuyOrderLimit,
		ShortOrderLimit:       bt.ShortOrderLimit,
		TradingWindow:         dto.TradingWindow{Start: bt.TradingStart, End: bt.TradingEnd},
		FeePerTrade:           bt.FeePerTrade,
		TrailingGuardTime:     bt.TrailingGuardTime,
		CandleLengthLimit:     bt.CandleLengthLimit,
		ResetOrderLimitsDaily: bt.ResetOrderLimitsDaily,
		Timezone:              bt.Timezone,
	}
}

// loadSeries resolves a request's bars: an inline series wins over a candle
// query. Inline series are validated and get an ID when they have none.
func loadSeries(ctx context.Context, candleRepo repository.CandleRepository, query *dto.CandleQuery, inline *dto.BarSeries) (*dto.BarSeries, error) {
	if inline != nil {
		if err := inline.Validate(); err != nil {
			return nil, err
		}
		series := *inline
		if series.ID == "" {
			series.ID = ulid.Make().String()
		}
		return &series, nil
	}
	if query == nil {
		return nil, dto.ErrEmptySeries
	}
	return candleRepo.Get(ctx, *query)
}
