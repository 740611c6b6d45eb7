// Package metrics computes post-run performance statistics from an equity
// curve and trade log: CAGR, annualized Sharpe, max drawdown, turnover, and
// win rate.
package metrics

import (
	"math"
	"time"

	"github.com/rxtech-lab/backtestcore/internal/types"
)

// Config parametrizes annualization; it must match the slippage model's
// annualization factor for Sharpe to be comparable across backtests of
// differing base intervals.
type Config struct {
	AnnualizationFactor float64
	TradingDaysPerYear  int
}

// Compute derives a TradeStats summary from a chronological equity curve
// and the fills recorded during the run. It never mutates its inputs.
func Compute(cfg Config, equityCurve []types.EquityPoint, timestamps []time.Time, fills []types.Fill, initialCash float64, realizedPerFill []float64) types.TradeStats {
	stats := types.TradeStats{
		Timestamp:      timestampOrZero(timestamps),
		NumberOfTrades: len(fills),
	}

	if len(equityCurve) == 0 {
		stats.FinalEquity = initialCash

		return stats
	}

	stats.FinalEquity = equityCurve[len(equityCurve)-1].Equity

	stats.CAGR = cagr(initialCash, stats.FinalEquity, timestamps, cfg.TradingDaysPerYear)

	returns := dailyReturns(equityCurve)
	stats.Sharpe = sharpe(returns, cfg.AnnualizationFactor)

	stats.Drawdown = maxDrawdown(equityCurve)

	stats.Turnover = turnover(fills, equityCurve)

	stats.TotalFees = totalFees(fills)

	stats.WinRate = winRate(realizedPerFill)

	return stats
}

func timestampOrZero(timestamps []time.Time) time.Time {
	if len(timestamps) == 0 {
		return time.Time{}
	}

	return timestamps[len(timestamps)-1]
}

// cagr is the compound annual growth rate implied by the elapsed wall-clock
// span of the equity curve, using TradingDaysPerYear (default 252) as the
// day count when the elapsed span is expressed in trading intervals rather
// than calendar time.
func cagr(initial, final float64, timestamps []time.Time, tradingDaysPerYear int) float64 {
	if initial <= 0 || final <= 0 || len(timestamps) < 2 {
		return 0
	}

	if tradingDaysPerYear <= 0 {
		tradingDaysPerYear = 252
	}

	years := timestamps[len(timestamps)-1].Sub(timestamps[0]).Hours() / 24 / 365.25
	if years <= 0 {
		years = float64(len(timestamps)) / float64(tradingDaysPerYear)
	}

	if years <= 0 {
		return 0
	}

	return math.Pow(final/initial, 1/years) - 1
}

// dailyReturns computes the simple return between consecutive equity
// points; a zero or negative starting equity for an interval yields a zero
// return rather than a division blow-up.
func dailyReturns(equityCurve []types.EquityPoint) []float64 {
	if len(equityCurve) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(equityCurve)-1)

	for i := 1; i < len(equityCurve); i++ {
		prev := equityCurve[i-1].Equity
		if prev == 0 {
			returns = append(returns, 0)

			continue
		}

		returns = append(returns, (equityCurve[i].Equity-prev)/prev)
	}

	return returns
}

func sharpe(returns []float64, annualizationFactor float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	if annualizationFactor <= 0 {
		annualizationFactor = 252
	}

	mean := meanOf(returns)
	std := sampleStd(returns)

	if std == 0 {
		return 0
	}

	return (mean / std) * math.Sqrt(annualizationFactor)
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}

	var sum float64
	for _, x := range xs {
		sum += x
	}

	return sum / float64(len(xs))
}

func sampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}

	mean := meanOf(xs)

	var sumSq float64
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}

	return math.Sqrt(sumSq / float64(len(xs)-1))
}

func maxDrawdown(equityCurve []types.EquityPoint) types.DrawdownStats {
	if len(equityCurve) == 0 {
		return types.DrawdownStats{}
	}

	peak := equityCurve[0].Equity
	peakIdx := 0

	var (
		worst       float64
		worstPeriod int
	)

	for i, point := range equityCurve {
		if point.Equity > peak {
			peak = point.Equity
			peakIdx = i
		}

		if peak <= 0 {
			continue
		}

		drawdown := (peak - point.Equity) / peak
		if drawdown > worst {
			worst = drawdown
			worstPeriod = i - peakIdx
		}
	}

	return types.DrawdownStats{MaxDrawdown: worst, DurationIntervals: worstPeriod}
}

// turnover is total traded notional divided by average equity across the
// run — a proxy for how many times the portfolio's capital was recycled.
func turnover(fills []types.Fill, equityCurve []types.EquityPoint) float64 {
	if len(equityCurve) == 0 {
		return 0
	}

	var totalNotional float64
	for _, f := range fills {
		totalNotional += f.Quantity * f.FillPrice
	}

	var equitySum float64
	for _, p := range equityCurve {
		equitySum += p.Equity
	}

	avgEquity := equitySum / float64(len(equityCurve))
	if avgEquity <= 0 {
		return 0
	}

	return totalNotional / avgEquity
}

func totalFees(fills []types.Fill) float64 {
	var sum float64
	for _, f := range fills {
		sum += f.Commission
	}

	return sum
}

// winRate is the fraction of realized-PnL entries that were positive. It is
// computed over per-fill realized PnL (only reducing fills realize PnL;
// adds enter as zero and count as non-wins), so a run with no closing fills
// reports 0.
func winRate(realizedPerFill []float64) float64 {
	if len(realizedPerFill) == 0 {
		return 0
	}

	var wins int

	for _, pnl := range realizedPerFill {
		if pnl > 0 {
			wins++
		}
	}

	return float64(wins) / float64(len(realizedPerFill))
}
