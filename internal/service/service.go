package service

import (
	"golang-algotrade/config"
	"golang-algotrade/internal/repository"
	"golang-algotrade/internal/strategy"
	"golang-algotrade/pkg/cache"
	"golang-algotrade/pkg/logger"

	goValidator "github.com/go-playground/validator/v10"
)

type Service struct {
	BacktestService  BacktestService
	OptimizerService OptimizerService
}

func NewService(
	cfg *config.Config,
	log *logger.Logger,
	validator *goValidator.Validate,
	repo *repository.Repository,
	inmemoryCache cache.Cache,
) *Service {
	signalGenerator := strategy.NewSignalGenerator(log, inmemoryCache, cfg.Cache.IndicatorTTL)
	backtestService := NewBacktestService(cfg, log, validator, repo.CandleRepo, signalGenerator)
	optimizerService := NewOptimizerService(cfg, log, validator, repo.CandleRepo, backtestService)

	return &Service{
		BacktestService:  backtestService,
		OptimizerService: optimizerService,
	}
}
