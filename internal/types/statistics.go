package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DrawdownStats reports the maximum peak-to-trough decline observed on the
// equity curve and how long it lasted.
type DrawdownStats struct {
	// MaxDrawdown is expressed as a positive fraction of the peak equity.
	MaxDrawdown float64 `yaml:"max_drawdown" json:"max_drawdown"`
	// DurationIntervals is how many base intervals elapsed between the peak
	// and the trough that produced MaxDrawdown.
	DurationIntervals int `yaml:"duration_intervals" json:"duration_intervals"`
}

// TradeStats is the structured metrics summary emitted after a run: CAGR,
// Sharpe, drawdown, turnover, win rate.
type TradeStats struct {
	// ID is the unique identifier for this backtest run.
	ID string `yaml:"id" json:"id"`
	// Timestamp is the timestamp of the last tick the run processed (zero if
	// no tick was processed).
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	// CAGR is the compound annual growth rate of the equity curve.
	CAGR float64 `yaml:"cagr" json:"cagr"`
	// Sharpe is the annualized Sharpe ratio of daily returns.
	Sharpe float64 `yaml:"sharpe" json:"sharpe"`
	// Drawdown reports the maximum drawdown and its duration.
	Drawdown DrawdownStats `yaml:"drawdown" json:"drawdown"`
	// Turnover is total traded notional divided by average equity.
	Turnover float64 `yaml:"turnover" json:"turnover"`
	// NumberOfTrades is the count of fills recorded during the run.
	NumberOfTrades int `yaml:"number_of_trades" json:"number_of_trades"`
	// WinRate is the fraction of realized-PnL-positive trades.
	WinRate float64 `yaml:"win_rate" json:"win_rate"`
	// TotalFees is the sum of commissions paid across the run.
	TotalFees float64 `yaml:"total_fees" json:"total_fees"`
	// FinalEquity is the last point on the equity curve.
	FinalEquity float64 `yaml:"final_equity" json:"final_equity"`
}

// WriteTradeStats marshals stats to YAML and writes them to path.
func WriteTradeStats(path string, stats TradeStats) error {
	data, err := yaml.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal trade stats to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write trade stats to file: %w", err)
	}

	return nil
}
