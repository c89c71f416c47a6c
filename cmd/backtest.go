package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang-algotrade/internal/dto"
	"golang-algotrade/pkg/common"

	"github.com/spf13/cobra"
)

// candleFlags are shared by backtest and optimize to pick the bar source.
type candleFlags struct {
	bars     string
	source   string
	symbol   string
	interval string
	start    int64
	end      int64
	limit    int
}

func (f *candleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.bars, "bars", "", "path to a JSON bar series")
	cmd.Flags().StringVar(&f.source, "source", dto.CandleSourceFile, "candle source: file or binance")
	cmd.Flags().StringVar(&f.symbol, "symbol", common.DEFAULT_SYMBOL, "symbol for the binance source")
	cmd.Flags().StringVar(&f.interval, "interval", common.DEFAULT_INTERVAL, "kline interval for the binance source")
	cmd.Flags().Int64Var(&f.start, "start", 0, "first bar time, unix seconds")
	cmd.Flags().Int64Var(&f.end, "end", 0, "last bar time, unix seconds")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "keep at most this many bars, 0 keeps all")
}

func (f *candleFlags) query() (*dto.CandleQuery, error) {
	q := &dto.CandleQuery{
		Source: f.source,
		Start:  f.start,
		End:    f.end,
		Limit:  f.limit,
	}
	switch f.source {
	case dto.CandleSourceFile:
		if f.bars == "" {
			return nil, fmt.Errorf("--bars is required for the file source")
		}
		q.Path = f.bars
	case dto.CandleSourceBinance:
		q.Symbol = f.symbol
		q.Interval = f.interval
	default:
		return nil, fmt.Errorf("unknown candle source %q", f.source)
	}
	return q, nil
}

var (
	backtestCandles  candleFlags
	backtestStrategy string
	backtestCapital  float64
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run one backtest and print the result as JSON",
	RunE:  RunBacktest,
}

func init() {
	backtestCandles.register(backtestCmd)
	backtestCmd.Flags().StringVar(&backtestStrategy, "strategy", "", "path to a YAML or JSON strategy")
	backtestCmd.Flags().Float64Var(&backtestCapital, "capital", 0, "initial capital, 0 uses the configured default")
	_ = backtestCmd.MarkFlagRequired("strategy")
}

func RunBacktest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appDep, err := NewAppDependency(ctx)
	if err != nil {
		return err
	}
	defer appDep.Close()

	strategy, err := appDep.repo.FileRepo.LoadStrategy(backtestStrategy)
	if err != nil {
		return err
	}
	query, err := backtestCandles.query()
	if err != nil {
		return err
	}

	result, err := appDep.services.BacktestService.RunBacktest(ctx, dto.BacktestRequest{
		Candles:        query,
		Strategy:       strategy,
		InitialCapital: backtestCapital,
	})
	if err != nil {
		return err
	}
	return printJSON(cmd, result)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
