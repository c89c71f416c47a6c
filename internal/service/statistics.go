package service

import (
	"math"

	"golang-algotrade/internal/dto"
	"golang-algotrade/pkg/utils"
)

const tradingDaysPerYear = 252

// calculateStatistics menghitung semua metrik kinerja dari trade dan kurva equity.
func calculateStatistics(trades []dto.Trade, curve []dto.EquityPoint, initialCapital float64) dto.Statistics {
	stats := dto.Statistics{
		InitialCapital: initialCapital,
		FinalCapital:   initialCapital,
	}

	var totalBarsHeld int
	for _, trade := range trades {
		stats.TotalTrades++
		stats.FinalCapital += trade.ProfitValue
		stats.TotalPoints += trade.ProfitPoints
		totalBarsHeld += trade.BarsHeld

		if trade.ProfitValue > 0 {
			stats.WinningTrades++
			stats.GrossProfit += trade.ProfitValue
			stats.LargestWin = math.Max(stats.LargestWin, trade.ProfitValue)
		} else if trade.ProfitValue < 0 {
			stats.LosingTrades++
			stats.GrossLoss -= trade.ProfitValue
			stats.LargestLoss = math.Max(stats.LargestLoss, -trade.ProfitValue)
		}
	}

	if stats.TotalTrades > 0 {
		stats.WinRate = float64(stats.WinningTrades) / float64(stats.TotalTrades) * 100
		stats.AvgBarsHeld = float64(totalBarsHeld) / float64(stats.TotalTrades)
	}
	if stats.WinningTrades > 0 {
		stats.AvgWin = stats.GrossProfit / float64(stats.WinningTrades)
	}
	if stats.LosingTrades > 0 {
		stats.AvgLoss = stats.GrossLoss / float64(stats.LosingTrades)
	}
	if stats.GrossLoss > 0 {
		stats.ProfitFactor = stats.GrossProfit / stats.GrossLoss
	}
	if initialCapital != 0 {
		stats.TotalReturn = (stats.FinalCapital - initialCapital) / initialCapital * 100
	}

	stats.MaxDrawdown = maxDrawdown(curve)
	stats.SharpeRatio = sharpeRatio(curve)

	for _, v := range []*float64{
		&stats.WinRate, &stats.GrossProfit, &stats.GrossLoss, &stats.ProfitFactor,
		&stats.MaxDrawdown, &stats.SharpeRatio, &stats.AvgWin, &stats.AvgLoss,
		&stats.LargestWin, &stats.LargestLoss, &stats.TotalPoints, &stats.AvgBarsHeld,
		&stats.FinalCapital, &stats.TotalReturn,
	} {
		*v = utils.Finite(*v)
	}
	return stats
}

// maxDrawdown is the deepest fall from a running equity peak, as a
// non-positive percentage of that peak.
func maxDrawdown(curve []dto.EquityPoint) float64 {
	var peak, worst float64
	for i, p := range curve {
		if i == 0 || p.Equity > peak {
			peak = p.Equity
		}
		if peak <= 0 {
			continue
		}
		if dd := (p.Equity - peak) / peak * 100; dd < worst {
			worst = dd
		}
	}
	return worst
}

// sharpeRatio annualizes mean/std of the per-bar equity returns with the
// sample standard deviation.
func sharpeRatio(curve []dto.EquityPoint) float64 {
	returns := make([]float64, 0, len(curve))
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			continue
		}
		returns = append(returns, curve[i].Equity/prev-1)
	}
	if len(returns) < 2 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	std := math.Sqrt(variance / float64(len(returns)-1))
	if std < 1e-12 {
		return 0
	}
	return mean / std * math.Sqrt(tradingDaysPerYear)
}
