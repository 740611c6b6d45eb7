// Package execution simulates fills for MKT and MOC orders: MKT orders fill
// at the next base-interval bar's open, MOC orders fill at the close of the
// last interval of the trading day. No partial fills; every scheduled order
// fills in full.
package execution

import (
	"time"

	"github.com/rxtech-lab/backtestcore/internal/commission"
	"github.com/rxtech-lab/backtestcore/internal/types"
)

// SlippageModel is the capability the Handler needs from the slippage
// estimator: a signed fractional cost for a fill given trailing bar
// history.
type SlippageModel interface {
	Estimate(symbol string, side types.PurchaseType, quantity float64, history []types.Bar) float64
}

// Handler converts Orders into Fills using next-bar-open pricing for MKT
// orders and last-interval-close pricing for MOC orders. It holds no
// reference to BarStore directly; the caller supplies the reference bar and
// trailing history at fill time, keeping the handler free of look-ahead by
// construction — it can only ever be handed bars up to "now."
type Handler struct {
	commission commission.Model
	slippage   SlippageModel

	pendingMarket []types.Order
	pendingMOC    []types.Order
}

// New creates an execution Handler.
func New(commissionModel commission.Model, slippageModel SlippageModel) *Handler {
	return &Handler{commission: commissionModel, slippage: slippageModel}
}

// Schedule queues order for its next applicable fill opportunity: MKT
// orders wait for the next base-interval bar's open on their symbol; MOC
// orders wait for the close of the last interval of their symbol's trading
// day.
func (h *Handler) Schedule(order types.Order) {
	switch order.Type {
	case types.OrderTypeMarketOnClose:
		h.pendingMOC = append(h.pendingMOC, order)
	default:
		h.pendingMarket = append(h.pendingMarket, order)
	}
}

// DrainMarketOrdersForSymbol fills every pending MKT order on symbol
// against openBar's open price. history is the trailing bar window ending
// in openBar itself (the about-to-fill bar), oldest first, as the slippage
// model requires. Callers must invoke this before dispatching the tick's
// MarketEvent for symbol, per the ordering guarantee in §5 of the design.
func (h *Handler) DrainMarketOrdersForSymbol(symbol string, openBar types.Bar, history []types.Bar) []types.Fill {
	return h.drainForSymbol(&h.pendingMarket, symbol, openBar.Open, openBar.Timestamp, history)
}

// DrainMarketOnCloseForSymbol fills every pending MOC order on symbol
// against closeBar's close price if closeBar is the last interval of its
// trading day; otherwise the orders remain queued for a later call.
func (h *Handler) DrainMarketOnCloseForSymbol(symbol string, closeBar types.Bar, isLastIntervalOfDay bool, history []types.Bar) []types.Fill {
	if !isLastIntervalOfDay {
		return nil
	}

	return h.drainForSymbol(&h.pendingMOC, symbol, closeBar.Close, closeBar.Timestamp, history)
}

// HasPending reports whether any order is still awaiting a fill
// opportunity.
func (h *Handler) HasPending() bool {
	return len(h.pendingMarket) > 0 || len(h.pendingMOC) > 0
}

func (h *Handler) drainForSymbol(queue *[]types.Order, symbol string, referencePrice float64, ts time.Time, history []types.Bar) []types.Fill {
	var (
		fills []types.Fill
		kept  []types.Order
	)

	for _, order := range *queue {
		if order.Symbol != symbol {
			kept = append(kept, order)

			continue
		}

		fills = append(fills, h.fill(order, referencePrice, ts, history))
	}

	*queue = kept

	return fills
}

func (h *Handler) fill(order types.Order, referencePrice float64, ts time.Time, history []types.Bar) types.Fill {
	slippageFrac := 0.0
	if h.slippage != nil {
		slippageFrac = h.slippage.Estimate(order.Symbol, order.Side, order.Quantity, history)
	}

	slippageAmount := slippageFrac * referencePrice
	fillPrice := referencePrice + slippageAmount

	notional := order.Quantity * fillPrice
	fee := 0.0
	if h.commission != nil {
		fee = h.commission.Calculate(order.Quantity, notional)
	}

	return types.Fill{
		OrderID:    order.ID,
		Symbol:     order.Symbol,
		Side:       order.Side,
		Quantity:   order.Quantity,
		FillPrice:  fillPrice,
		Commission: fee,
		Slippage:   slippageAmount,
		Timestamp:  ts,
	}
}
