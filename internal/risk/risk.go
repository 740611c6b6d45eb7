// Package risk implements the sequential pre-trade checks applied to every
// order before it is scheduled with the execution handler as a live order.
package risk

import (
	"time"

	"github.com/rxtech-lab/backtestcore/internal/types"
)

// Config holds the seven caps checked in order. Setting a field to -1
// disables that check.
type Config struct {
	MaxOrderQuantity   float64       `yaml:"max_order_quantity" json:"max_order_quantity"`
	MaxNotional        float64       `yaml:"max_notional" json:"max_notional"`
	MaxDailyDrawdown   float64       `yaml:"max_daily_drawdown" json:"max_daily_drawdown"`
	MaxGrossExposure   float64       `yaml:"max_gross_exposure" json:"max_gross_exposure"`
	MaxNetExposure     float64       `yaml:"max_net_exposure" json:"max_net_exposure"`
	MaxPercentOfVolume float64       `yaml:"max_percent_of_volume" json:"max_percent_of_volume"`
	MaxOrdersPerWindow int           `yaml:"max_orders_per_window" json:"max_orders_per_window"`
	OrderRateWindow    time.Duration `yaml:"order_rate_window" json:"order_rate_window"`
}

const disabled = -1

// Portfolio is the read-only view of account state the Manager needs to
// evaluate exposure and drawdown checks.
type Portfolio interface {
	Equity() float64
	GrossExposure(lastPrices map[string]float64) float64
	NetExposure(lastPrices map[string]float64) float64
	DailyDrawdown() float64
	IsReducingOrder(symbol string, side types.PurchaseType, quantity float64) bool
}

// Manager evaluates an OrderEvent against the configured caps, in the fixed
// order specified by Config, and rejects on the first violated check.
type Manager struct {
	cfg        Config
	orderTimes []time.Time
}

// New creates a Manager.
func New(cfg Config) *Manager {
	return &Manager{cfg: cfg}
}

// Evaluate returns (true, "") if the order passes every enabled check, or
// (false, reason) naming the first check that failed.
func (m *Manager) Evaluate(order types.Order, lastClose, lastVolume float64, portfolio Portfolio, lastPrices map[string]float64, now time.Time) (bool, string) {
	if m.cfg.MaxOrderQuantity != disabled && order.Quantity > m.cfg.MaxOrderQuantity {
		return false, "max_order_quantity_exceeded"
	}

	notional := order.Quantity * lastClose
	if m.cfg.MaxNotional != disabled && notional > m.cfg.MaxNotional {
		return false, "max_notional_exceeded"
	}

	if m.cfg.MaxDailyDrawdown != disabled {
		drawdown := portfolio.DailyDrawdown()
		if drawdown >= m.cfg.MaxDailyDrawdown && !portfolio.IsReducingOrder(order.Symbol, order.Side, order.Quantity) {
			return false, "max_daily_drawdown_breached"
		}
	}

	equity := portfolio.Equity()
	if equity > 0 {
		if m.cfg.MaxGrossExposure != disabled {
			if portfolio.GrossExposure(lastPrices) > m.cfg.MaxGrossExposure {
				return false, "max_gross_exposure_exceeded"
			}
		}

		if m.cfg.MaxNetExposure != disabled {
			net := portfolio.NetExposure(lastPrices)
			if net > m.cfg.MaxNetExposure || net < -m.cfg.MaxNetExposure {
				return false, "max_net_exposure_exceeded"
			}
		}
	}

	if m.cfg.MaxPercentOfVolume != disabled && lastVolume > 0 {
		pov := order.Quantity / lastVolume
		if pov > m.cfg.MaxPercentOfVolume {
			return false, types.PovExceededReason
		}
	}

	if m.cfg.MaxOrdersPerWindow != disabled {
		m.pruneOrderTimes(now)

		if len(m.orderTimes) >= m.cfg.MaxOrdersPerWindow {
			return false, "order_rate_exceeded"
		}
	}

	m.orderTimes = append(m.orderTimes, now)

	return true, ""
}

func (m *Manager) pruneOrderTimes(now time.Time) {
	cutoff := now.Add(-m.cfg.OrderRateWindow)

	kept := m.orderTimes[:0]

	for _, t := range m.orderTimes {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	m.orderTimes = kept
}
