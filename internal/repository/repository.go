package repository

import (
	"golang-algotrade/config"
	"golang-algotrade/pkg/logger"
)

type Repository struct {
	BinanceRepo BinanceRepository
	FileRepo    FileRepository
	CandleRepo  CandleRepository
}

func NewRepository(cfg *config.Config, log *logger.Logger) *Repository {
	binanceRepo := NewBinanceRepository(cfg, log)
	fileRepo := NewFileRepository()

	return &Repository{
		BinanceRepo: binanceRepo,
		FileRepo:    fileRepo,
		CandleRepo:  NewCandleRepository(log, binanceRepo, fileRepo),
	}
}
