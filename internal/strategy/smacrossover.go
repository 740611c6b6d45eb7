package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/backtestcore/internal/types"
)

// SMACrossover buys when the short-window simple moving average crosses
// above the long-window average and sells on the reverse crossover. It
// keeps its own rolling close-price history per symbol, since the core
// never introspects a strategy's state.
type SMACrossover struct {
	shortPeriod int
	longPeriod  int

	closes        map[string][]float64
	wasShortAbove map[string]bool
	everCrossed   map[string]bool
}

// NewSMACrossover creates an SMACrossover strategy.
func NewSMACrossover(shortPeriod, longPeriod int) *SMACrossover {
	return &SMACrossover{
		shortPeriod:   shortPeriod,
		longPeriod:    longPeriod,
		closes:        make(map[string][]float64),
		wasShortAbove: make(map[string]bool),
		everCrossed:   make(map[string]bool),
	}
}

func (s *SMACrossover) Name() string {
	return fmt.Sprintf("sma_crossover_%d_%d", s.shortPeriod, s.longPeriod)
}

func (s *SMACrossover) OnInterval(symbol string, _ types.Interval, bar types.Bar) (optional.Option[types.Signal], error) {
	history := append(s.closes[symbol], bar.Close)
	s.closes[symbol] = history

	if len(history) < s.longPeriod {
		return optional.None[types.Signal](), nil
	}

	shortMA := sma(history, s.shortPeriod)
	longMA := sma(history, s.longPeriod)
	shortAbove := shortMA > longMA

	prevKnown := s.everCrossed[symbol]
	prevAbove := s.wasShortAbove[symbol]
	s.wasShortAbove[symbol] = shortAbove
	s.everCrossed[symbol] = true

	if !prevKnown || shortAbove == prevAbove {
		return optional.None[types.Signal](), nil
	}

	direction := types.SignalBearish
	if shortAbove {
		direction = types.SignalBullish
	}

	return optional.Some(types.Signal{
		Symbol:    symbol,
		Direction: direction,
		Strength:  1,
		Time:      bar.Timestamp,
	}), nil
}

func sma(closes []float64, period int) float64 {
	window := closes[len(closes)-period:]

	var sum float64
	for _, c := range window {
		sum += c
	}

	return sum / float64(period)
}
