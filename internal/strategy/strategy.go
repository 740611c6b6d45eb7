// Package strategy hosts external Strategy implementations and dispatches
// bar closes to them, collecting the Signals they return for the backtest
// loop to size and route. The core never introspects strategy state; a
// strategy is either stateless or owns its own state entirely.
package strategy

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/backtestcore/internal/types"
)

// Strategy is the external collaborator interface every strategy
// implementation must satisfy. OnInterval is called once per bar close on
// every interval the strategy subscribed to at load time (its base
// interval, plus any higher frequency named in its config); it returns
// Some(signal) to request a trade, or None to sit out this bar. The target
// quantity is never set here — the backtest loop's sizer sets it before the
// portfolio turns the signal into an order.
type Strategy interface {
	Name() string
	OnInterval(symbol string, interval types.Interval, bar types.Bar) (optional.Option[types.Signal], error)
}

// registration pairs a loaded strategy with the frequencies it wants to
// hear about.
type registration struct {
	strategy    Strategy
	frequencies map[types.Interval]bool
}

// Host dispatches bar closes to every registered strategy in load order. It
// implements aggregator.Subscriber (a bare OnInterval with no return value)
// so it can be wired directly into a BarAggregator for higher-frequency
// intervals; signals collected that way accumulate in a pending buffer the
// loop drains after the aggregator finishes fanning out a base bar close.
// The loop calls Dispatch directly for the base interval itself, since the
// aggregator only ever notifies on the higher frequencies it resamples
// into.
type Host struct {
	registrations []registration
	pending       []types.Signal
}

// NewHost creates an empty strategy Host.
func NewHost() *Host {
	return &Host{}
}

// Register loads a strategy and the set of intervals (including the base
// interval) it should be notified on.
func (h *Host) Register(s Strategy, frequencies []types.Interval) {
	set := make(map[types.Interval]bool, len(frequencies))
	for _, f := range frequencies {
		set[f] = true
	}

	h.registrations = append(h.registrations, registration{strategy: s, frequencies: set})
}

// Strategies returns the loaded strategies in registration order.
func (h *Host) Strategies() []Strategy {
	out := make([]Strategy, len(h.registrations))
	for i, r := range h.registrations {
		out[i] = r.strategy
	}

	return out
}

// OnInterval implements aggregator.Subscriber: it is invoked whenever a
// higher-frequency interval closes, dispatches to subscribed strategies,
// and buffers any resulting signals for the loop to collect via
// DrainPending.
func (h *Host) OnInterval(symbol string, interval types.Interval, bar types.Bar) {
	h.pending = append(h.pending, h.Dispatch(symbol, interval, bar)...)
}

// Dispatch fans a bar close for (symbol, interval) out to every strategy
// subscribed to that interval, in registration order, and returns the
// signals produced. The loop calls this directly for base-interval closes;
// OnInterval calls it for higher-frequency closes routed through the
// aggregator.
func (h *Host) Dispatch(symbol string, interval types.Interval, bar types.Bar) []types.Signal {
	var signals []types.Signal

	for _, r := range h.registrations {
		if !r.frequencies[interval] {
			continue
		}

		signal, err := r.strategy.OnInterval(symbol, interval, bar)
		if err != nil {
			continue
		}

		if signal.IsSome() {
			signals = append(signals, signal.Unwrap())
		}
	}

	return signals
}

// DrainPending returns and clears the signals accumulated from
// aggregator-routed higher-frequency closes since the last call.
func (h *Host) DrainPending() []types.Signal {
	pending := h.pending
	h.pending = nil

	return pending
}
