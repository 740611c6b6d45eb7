// Package report writes a backtest Result's equity curve and trade log to
// CSV, the same one-file-per-series shape the teacher's ResultWriter uses.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rxtech-lab/backtestcore/internal/backtest"
	"github.com/rxtech-lab/backtestcore/internal/types"
)

// WriteEquityCurve writes one row per EquityPoint to path, columns
// (timestamp, cash, reserved_cash, margin_locked, position_value, equity).
func WriteEquityCurve(path string, points []types.EquityPoint) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create equity curve file: %w", err)
	}
	defer file.Close() //nolint:errcheck

	w := csv.NewWriter(file)

	if err := w.Write([]string{"timestamp", "cash", "reserved_cash", "margin_locked", "position_value", "equity"}); err != nil {
		return fmt.Errorf("failed to write equity curve header: %w", err)
	}

	for _, p := range points {
		record := []string{
			p.Timestamp.Format(time.RFC3339),
			fmt.Sprintf("%f", p.Cash),
			fmt.Sprintf("%f", p.ReservedCash),
			fmt.Sprintf("%f", p.MarginLocked),
			fmt.Sprintf("%f", p.PositionValue),
			fmt.Sprintf("%f", p.Equity),
		}

		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write equity curve point: %w", err)
		}
	}

	w.Flush()

	return w.Error()
}

// WriteTradeLog writes one row per Fill to path, columns (timestamp,
// symbol, direction, quantity, price, commission, slippage, order_id).
func WriteTradeLog(path string, fills []types.Fill) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create trade log file: %w", err)
	}
	defer file.Close() //nolint:errcheck

	w := csv.NewWriter(file)

	if err := w.Write([]string{"timestamp", "symbol", "direction", "quantity", "price", "commission", "slippage", "order_id"}); err != nil {
		return fmt.Errorf("failed to write trade log header: %w", err)
	}

	for _, f := range fills {
		record := []string{
			f.Timestamp.Format(time.RFC3339),
			f.Symbol,
			string(f.Side),
			fmt.Sprintf("%f", f.Quantity),
			fmt.Sprintf("%f", f.FillPrice),
			fmt.Sprintf("%f", f.Commission),
			fmt.Sprintf("%f", f.Slippage),
			f.OrderID,
		}

		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write trade log row: %w", err)
		}
	}

	w.Flush()

	return w.Error()
}

// WriteResult writes both the equity curve and trade log for result under
// dir, named equity_curve.csv and trades.csv.
func WriteResult(dir string, result backtest.Result) error {
	if err := WriteEquityCurve(filepath.Join(dir, "equity_curve.csv"), result.EquityCurve); err != nil {
		return err
	}

	return WriteTradeLog(filepath.Join(dir, "trades.csv"), result.Fills)
}
