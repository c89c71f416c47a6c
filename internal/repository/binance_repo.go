package repository

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang-algotrade/config"
	"golang-algotrade/internal/dto"
	"golang-algotrade/pkg/httpclient"
	"golang-algotrade/pkg/logger"
	"golang-algotrade/pkg/ratelimit"

	"golang.org/x/time/rate"
)

const (
	binanceMaxPageLimit = 1000
	// klinesWeight is the request weight Binance charges for /api/v3/klines.
	klinesWeight = 2
)

type BinanceRepository interface {
	GetKlines(ctx context.Context, symbol string, interval string, limit int, startTime, endTime int64) ([]dto.BinanceKlines, error)
	Get(ctx context.Context, query dto.CandleQuery) (*dto.BarSeries, error)
}

type binanceRepository struct {
	httpClient     httpclient.HTTPClient
	cfg            *config.Config
	logger         *logger.Logger
	requestLimiter *rate.Limiter
	weightLimiter  *ratelimit.TokenLimiter
}

func NewBinanceRepository(cfg *config.Config, log *logger.Logger) BinanceRepository {
	return newBinanceRepository(cfg, log, httpclient.New(log, cfg.Binance.BaseURL, cfg.Binance.BaseTimeout, ""))
}

func newBinanceRepository(cfg *config.Config, log *logger.Logger, client httpclient.HTTPClient) *binanceRepository {
	perMinute := cfg.Binance.MaxRequestPerMin
	if perMinute <= 0 {
		perMinute = 60
	}
	secondsPerRequest := time.Minute / time.Duration(perMinute)
	weightPerMinute := cfg.Binance.MaxWeightPerMin
	if weightPerMinute <= 0 {
		weightPerMinute = 6000
	}

	return &binanceRepository{
		httpClient:     client,
		cfg:            cfg,
		logger:         log,
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
		weightLimiter:  ratelimit.NewTokenLimiter(weightPerMinute),
	}
}

// GetKlines fetches one page of klines. Times are unix milliseconds; zero
// leaves the bound open.
func (r *binanceRepository) GetKlines(ctx context.Context, symbol string, interval string, limit int, startTime, endTime int64) ([]dto.BinanceKlines, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, err
	}
	if err := r.weightLimiter.Wait(ctx, klinesWeight); err != nil {
		return nil, err
	}

	endpoint := "/api/v3/klines"
	queryParams := map[string]string{
		"symbol":   strings.ToUpper(symbol),
		"interval": interval,
		"limit":    strconv.Itoa(limit),
	}
	if startTime > 0 {
		queryParams["startTime"] = strconv.FormatInt(startTime, 10)
	}
	if endTime > 0 {
		queryParams["endTime"] = strconv.FormatInt(endTime, 10)
	}

	var klines [][]interface{}
	resp, err := r.httpClient.Get(ctx, endpoint, queryParams, nil, &klines)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch klines from binance: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		r.logger.ErrorContext(ctx, "Binance API returned Non-OK status for klines",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("body", string(resp.Body)))
		return nil, fmt.Errorf("binance api returned status: %d", resp.StatusCode)
	}

	result := make([]dto.BinanceKlines, 0, len(klines))
	for i, k := range klines {
		kline, err := parseKline(k)
		if err != nil {
			return nil, fmt.Errorf("failed to parse kline %d: %w", i, err)
		}
		result = append(result, kline)
	}

	return result, nil
}

// Get pages through klines from query.Start until query.End or query.Limit
// bars are collected. Without a start only the latest page is fetched.
func (r *binanceRepository) Get(ctx context.Context, query dto.CandleQuery) (*dto.BarSeries, error) {
	pageLimit := r.cfg.Binance.PageLimit
	if pageLimit <= 0 || pageLimit > binanceMaxPageLimit {
		pageLimit = binanceMaxPageLimit
	}

	series := &dto.BarSeries{Symbol: strings.ToUpper(query.Symbol), Interval: query.Interval}
	startMs, endMs := query.Start*1000, query.End*1000

	for {
		limit := pageLimit
		if query.Limit > 0 {
			remaining := query.Limit - len(series.Bars)
			if remaining <= 0 {
				break
			}
			limit = min(limit, remaining)
		}

		klines, err := r.GetKlines(ctx, query.Symbol, query.Interval, limit, startMs, endMs)
		if err != nil {
			return nil, err
		}
		for _, k := range klines {
			series.Bars = append(series.Bars, k.ToBar())
		}

		r.logger.DebugContext(ctx, "Fetched kline page",
			logger.StringField("symbol", series.Symbol),
			logger.IntField("count", len(klines)),
			logger.IntField("total", len(series.Bars)),
		)

		if startMs == 0 || len(klines) < limit {
			break
		}
		startMs = klines[len(klines)-1].OpenTime + 1
		if endMs > 0 && startMs > endMs {
			break
		}
	}

	return series, nil
}

func parseKline(k []interface{}) (dto.BinanceKlines, error) {
	if len(k) < 11 {
		return dto.BinanceKlines{}, fmt.Errorf("expected 11 fields, got %d", len(k))
	}

	var (
		out  dto.BinanceKlines
		errs []string
	)
	num := func(i int) float64 {
		switch v := k[i].(type) {
		case float64:
			return v
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Sprintf("field %d: %v", i, err))
			}
			return f
		default:
			errs = append(errs, fmt.Sprintf("field %d: unexpected %T", i, v))
			return 0
		}
	}

	out.OpenTime = int64(num(0))
	out.Open = num(1)
	out.High = num(2)
	out.Low = num(3)
	out.Close = num(4)
	out.Volume = num(5)
	out.CloseTime = int64(num(6))
	out.QuoteAssetVolume = num(7)
	out.NumberOfTrades = int64(num(8))
	out.TakerBuyBaseAssetVolume = num(9)
	out.TakerBuyQuoteAssetVolume = num(10)

	if len(errs) > 0 {
		return dto.BinanceKlines{}, fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return out, nil
}
