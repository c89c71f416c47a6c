package cmd

import (
	"context"

	"golang-algotrade/config"
	"golang-algotrade/internal/repository"
	"golang-algotrade/internal/service"
	"golang-algotrade/pkg/cache"
	"golang-algotrade/pkg/logger"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type AppDependency struct {
	cfg       *config.Config
	log       *logger.Logger
	validator *goValidator.Validate
	echo      *echo.Echo
	cache     cache.Cache
	repo      *repository.Repository
	services  *service.Service
}

func NewAppDependency(ctx context.Context) (*AppDependency, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return nil, err
	}

	validator := goValidator.New()
	inmemoryCache := cache.NewCache(cfg.Cache.DefaultExpiration, cfg.Cache.CleanupInterval)
	repo := repository.NewRepository(cfg, log)

	e := echo.New()
	e.HideBanner = true
	return &AppDependency{
		cfg:       cfg,
		log:       log,
		validator: validator,
		echo:      e,
		cache:     inmemoryCache,
		repo:      repo,
		services:  service.NewService(cfg, log, validator, repo, inmemoryCache),
	}, nil
}

func (d *AppDependency) Close() error {
	d.log.Info("Closing app dependency")
	d.cache.Flush()
	_ = d.log.Sync()
	return nil
}
