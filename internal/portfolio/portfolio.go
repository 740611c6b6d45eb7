// Package portfolio implements the cash/position/margin accounting state
// machine: reserving cash for in-flight orders, applying fills with
// weighted-average cost and realized PnL, marking positions to market, and
// accruing short-borrow costs and margin at day boundaries.
package portfolio

import (
	"time"

	"github.com/rxtech-lab/backtestcore/internal/types"
	"github.com/rxtech-lab/backtestcore/pkg/errors"
	"github.com/shopspring/decimal"
)

// ShortingConfig parametrizes short-borrow accrual and margin requirements.
type ShortingConfig struct {
	AnnualBorrowRate            float64 `yaml:"annual_borrow_rate" json:"annual_borrow_rate"`
	MaintenanceMarginMultiplier float64 `yaml:"maintenance_margin_multiplier" json:"maintenance_margin_multiplier"`
	TradingDaysPerYear          int     `yaml:"trading_days_per_year" json:"trading_days_per_year"`
}

// Config parametrizes a Portfolio.
type Config struct {
	InitialCash            float64        `yaml:"initial_cash" json:"initial_cash"`
	Shorting               ShortingConfig `yaml:"shorting" json:"shorting"`
	ContinueOnNegativeCash bool           `yaml:"continue_on_negative_cash" json:"continue_on_negative_cash"`
}

// reservation tracks cash held out of usable_cash for an order that has not
// yet been filled.
type reservation struct {
	orderID string
	amount  decimal.Decimal
}

// Portfolio owns cash, positions, and margin state for a single backtest
// run. All money math is done in decimal.Decimal to avoid float64
// accumulation error across a long-running ledger; positions are still kept
// in float64 quantities to match the rest of the core's Bar/Order/Fill
// types.
type Portfolio struct {
	cfg Config

	cash         decimal.Decimal
	marginLocked decimal.Decimal
	reservations []reservation
	positions    map[string]types.Position
	equityCurve  []types.EquityPoint
	realizedPnL  decimal.Decimal
	totalFees    decimal.Decimal

	dayStartEquity decimal.Decimal
}

// New creates a Portfolio funded with cfg.InitialCash.
func New(cfg Config) *Portfolio {
	return &Portfolio{
		cfg:            cfg,
		cash:           decimal.NewFromFloat(cfg.InitialCash),
		positions:      make(map[string]types.Position),
		dayStartEquity: decimal.NewFromFloat(cfg.InitialCash),
	}
}

func d(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// Position returns the current position for symbol, zero-valued if none is
// held.
func (p *Portfolio) Position(symbol string) types.Position {
	return p.positions[symbol]
}

// Symbols returns the symbols currently holding a non-flat position, in no
// particular order.
func (p *Portfolio) Symbols() []string {
	symbols := make([]string, 0, len(p.positions))
	for symbol := range p.positions {
		symbols = append(symbols, symbol)
	}

	return symbols
}

// ReservedCash sums the outstanding reservations for orders not yet filled.
func (p *Portfolio) ReservedCash() float64 {
	total := decimal.Zero
	for _, r := range p.reservations {
		total = total.Add(r.amount)
	}

	f, _ := total.Float64()

	return f
}

// UsableCash is cash minus reserved cash minus margin locked for shorts.
func (p *Portfolio) UsableCash() float64 {
	reserved := decimal.Zero
	for _, r := range p.reservations {
		reserved = reserved.Add(r.amount)
	}

	usable := p.cash.Sub(reserved).Sub(p.marginLocked)
	f, _ := usable.Float64()

	return f
}

// Cash returns the current cash balance.
func (p *Portfolio) Cash() float64 {
	f, _ := p.cash.Float64()

	return f
}

// MarginLocked returns the margin currently held against short positions.
func (p *Portfolio) MarginLocked() float64 {
	f, _ := p.marginLocked.Float64()

	return f
}

// CheckUsableCash returns InsufficientCashError if usable cash is negative
// at the start of a bar, unless ContinueOnNegativeCash is set, in which case
// it returns nil and the caller is expected to log a warning.
func (p *Portfolio) CheckUsableCash() error {
	if p.UsableCash() < 0 && !p.cfg.ContinueOnNegativeCash {
		return errors.Newf(errors.ErrCodeInsufficientCash, "usable cash %.4f is negative", p.UsableCash())
	}

	return nil
}

// OnSignal computes the order quantity needed to move the current position
// to targetHolding, reserves an estimated cost against usable cash, and
// returns the order to emit (zero Quantity if no trade is needed).
func (p *Portfolio) OnSignal(symbol string, targetHolding float64, lastClose float64, slippageGuard float64, orderID string) types.Order {
	current := p.positions[symbol].Quantity
	quantity := targetHolding - current

	if quantity == 0 {
		return types.Order{}
	}

	side := types.PurchaseTypeBuy
	if quantity < 0 {
		side = types.PurchaseTypeSell
	}

	estimatedCost := absFloat(quantity) * lastClose * (1 + slippageGuard)

	p.reservations = append(p.reservations, reservation{orderID: orderID, amount: d(estimatedCost)})

	return types.Order{
		ID:            orderID,
		Symbol:        symbol,
		Type:          types.OrderTypeMarket,
		Side:          side,
		Quantity:      absFloat(quantity),
		EstimatedCost: estimatedCost,
	}
}

// ReleaseReservation removes the reservation for orderID regardless of how
// its estimated cost compares to the fill's actual cost; the fill is the
// source of truth once it has happened.
func (p *Portfolio) ReleaseReservation(orderID string) {
	for i, r := range p.reservations {
		if r.orderID == orderID {
			p.reservations = append(p.reservations[:i], p.reservations[i+1:]...)

			return
		}
	}
}

// OnFill applies a fill to the affected position: weighted-average cost on
// an add, realized PnL on a reduce, and updates cash by the signed notional
// less commission. It returns the realized PnL booked by this specific
// fill (zero for an add, since adds never realize PnL) so callers can track
// per-trade win rate.
func (p *Portfolio) OnFill(fill types.Fill) (float64, error) {
	p.ReleaseReservation(fill.OrderID)

	signedQty := fill.Quantity
	if fill.Side == types.PurchaseTypeSell {
		signedQty = -signedQty
	}

	pos := p.positions[fill.Symbol]

	notional := d(fill.Quantity).Mul(d(fill.FillPrice))
	fee := d(fill.Commission)

	switch {
	case fill.Side == types.PurchaseTypeBuy:
		p.cash = p.cash.Sub(notional).Sub(fee)
	case fill.Side == types.PurchaseTypeSell:
		p.cash = p.cash.Add(notional).Sub(fee)
	}

	p.totalFees = p.totalFees.Add(fee)

	sameDirection := pos.Quantity == 0 || (pos.Quantity > 0) == (signedQty > 0)

	var fillPnL decimal.Decimal

	if sameDirection {
		totalQty := pos.Quantity + signedQty
		if totalQty != 0 {
			weighted := d(pos.Quantity).Abs().Mul(d(pos.AvgCost)).Add(d(absFloat(signedQty)).Mul(d(fill.FillPrice)))
			avg, _ := weighted.Div(d(absFloat(totalQty))).Float64()
			pos.AvgCost = avg
		}

		pos.Quantity = totalQty
	} else {
		closingQty := minFloat(absFloat(signedQty), absFloat(pos.Quantity))

		entryValue := d(closingQty).Mul(d(pos.AvgCost))

		var exitValue decimal.Decimal
		if pos.Quantity > 0 {
			exitValue = d(closingQty).Mul(d(fill.FillPrice))
		} else {
			exitValue = entryValue.Mul(decimal.NewFromInt(2)).Sub(d(closingQty).Mul(d(fill.FillPrice)))
		}

		pnl := exitValue.Sub(entryValue)
		if pos.Quantity < 0 {
			pnl = entryValue.Sub(d(closingQty).Mul(d(fill.FillPrice)))
		}

		fillPnL = pnl
		p.realizedPnL = p.realizedPnL.Add(pnl)

		pos.Quantity += signedQty

		if pos.Quantity != 0 && (pos.Quantity > 0) != (fill.Side == types.PurchaseTypeSell) {
			// The fill flipped through flat and opened a new position on the
			// other side; re-price the remainder at the fill price.
			pos.AvgCost = fill.FillPrice
		}
	}

	if pos.IsFlat() {
		delete(p.positions, fill.Symbol)
	} else {
		p.positions[fill.Symbol] = pos
	}

	pnlF, _ := fillPnL.Float64()

	if err := p.CheckUsableCash(); err != nil {
		return pnlF, err
	}

	return pnlF, nil
}

// MarkToMarket computes equity from current cash, positions, and the given
// closing prices, and appends an EquityPoint timestamped at ts. Per
// invariant I4, ts must be strictly greater than the timestamp of the last
// appended point; MarkToMarket does not enforce this itself since the loop
// is the sole caller and already guarantees strictly increasing bar
// timestamps.
func (p *Portfolio) MarkToMarket(bundle map[string]float64, ts time.Time) types.EquityPoint {
	positionValue := decimal.Zero

	for symbol, pos := range p.positions {
		close, ok := bundle[symbol]
		if !ok {
			continue
		}

		positionValue = positionValue.Add(d(pos.Quantity).Mul(d(close)))
	}

	equity := p.cash.Add(positionValue)

	cashF, _ := p.cash.Float64()
	reservedF := p.ReservedCash()
	marginF, _ := p.marginLocked.Float64()
	posValF, _ := positionValue.Float64()
	equityF, _ := equity.Float64()

	point := types.EquityPoint{
		Timestamp:     ts,
		Cash:          cashF,
		ReservedCash:  reservedF,
		MarginLocked:  marginF,
		PositionValue: posValF,
		Equity:        equityF,
	}

	p.equityCurve = append(p.equityCurve, point)

	return point
}

// EquityCurve returns every EquityPoint appended so far, in chronological
// order.
func (p *Portfolio) EquityCurve() []types.EquityPoint {
	return p.equityCurve
}

// Equity returns the most recently marked equity, or InitialCash if
// MarkToMarket has never been called.
func (p *Portfolio) Equity() float64 {
	if len(p.equityCurve) == 0 {
		return p.cfg.InitialCash
	}

	return p.equityCurve[len(p.equityCurve)-1].Equity
}

// DailyDrawdown returns the fractional decline of current equity from the
// equity recorded at the start of the current trading day.
func (p *Portfolio) DailyDrawdown() float64 {
	start, _ := p.dayStartEquity.Float64()
	if start <= 0 {
		return 0
	}

	return (start - p.Equity()) / start
}

// GrossExposure is sum(|qty*price|) / equity across all positions.
func (p *Portfolio) GrossExposure(lastPrices map[string]float64) float64 {
	equity := p.Equity()
	if equity <= 0 {
		return 0
	}

	var gross float64
	for symbol, pos := range p.positions {
		gross += absFloat(pos.Quantity * lastPrices[symbol])
	}

	return gross / equity
}

// NetExposure is sum(qty*price) / equity across all positions, signed.
func (p *Portfolio) NetExposure(lastPrices map[string]float64) float64 {
	equity := p.Equity()
	if equity <= 0 {
		return 0
	}

	var net float64
	for symbol, pos := range p.positions {
		net += pos.Quantity * lastPrices[symbol]
	}

	return net / equity
}

// IsReducingOrder reports whether an order of the given side/quantity would
// shrink the magnitude of the current position in symbol rather than grow
// or flip it.
func (p *Portfolio) IsReducingOrder(symbol string, side types.PurchaseType, quantity float64) bool {
	pos := p.positions[symbol]
	if pos.Quantity == 0 {
		return false
	}

	signedOrderQty := quantity
	if side == types.PurchaseTypeSell {
		signedOrderQty = -quantity
	}

	resulting := pos.Quantity + signedOrderQty

	return absFloat(resulting) < absFloat(pos.Quantity)
}

// EndOfDay accrues short-borrow cost against cash and revalues margin for
// every short position using its closing price, and resets the daily
// drawdown reference point.
func (p *Portfolio) EndOfDay(closes map[string]float64) {
	tradingDays := p.cfg.Shorting.TradingDaysPerYear
	if tradingDays <= 0 {
		tradingDays = 252
	}

	marginLocked := decimal.Zero

	for symbol, pos := range p.positions {
		if pos.Quantity >= 0 {
			continue
		}

		close, ok := closes[symbol]
		if !ok {
			continue
		}

		borrowCost := absFloat(pos.Quantity) * close * p.cfg.Shorting.AnnualBorrowRate / float64(tradingDays)
		p.cash = p.cash.Sub(d(borrowCost))

		pos.AccruedBorrowCost += borrowCost
		p.positions[symbol] = pos

		margin := absFloat(pos.Quantity) * close * p.cfg.Shorting.MaintenanceMarginMultiplier
		marginLocked = marginLocked.Add(d(margin))
	}

	p.marginLocked = marginLocked
	p.dayStartEquity = d(p.Equity())
}

// AccountInfo produces a read-only snapshot for callers.
func (p *Portfolio) AccountInfo() types.AccountInfo {
	realized, _ := p.realizedPnL.Float64()
	fees, _ := p.totalFees.Float64()

	return types.AccountInfo{
		Cash:         p.Cash(),
		Equity:       p.Equity(),
		UsableCash:   p.UsableCash(),
		RealizedPnL:  realized,
		TotalFees:    fees,
		MarginLocked: p.MarginLocked(),
	}
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}

	return v
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}

	return b
}
