package sizer

import (
	"github.com/rxtech-lab/backtestcore/internal/types"
)

// ATRSizerConfig parametrizes the ATRSizer.
type ATRSizerConfig struct {
	Period              int     `yaml:"period" json:"period"`
	AtrMultiplier       float64 `yaml:"atr_multiplier" json:"atr_multiplier"`
	RiskFraction        float64 `yaml:"risk_fraction" json:"risk_fraction"`
	InitialPositionSize float64 `yaml:"initial_position_size" json:"initial_position_size"`
	DecimalPlaces       int     `yaml:"decimal_places" json:"decimal_places"`
}

// ATRSizer sizes positions inversely to Wilder's average true range: a
// wider ATR (more volatility) shrinks the position for the same risk
// budget. Wilder's smoothing is deliberately reproduced in full: a simple
// mean of the first Period true ranges as the seed value, then
// ATR = ((Period-1)*ATR_prev + TR) / Period thereafter. This differs from
// an EMA-based ATR approximation and is exact by construction.
type ATRSizer struct {
	cfg ATRSizerConfig

	trBuffer  map[string][]float64
	prevATR   map[string]float64
	prevClose map[string]float64
	warm      map[string]bool
	lastSize  map[string]float64
	calls     map[string]int
}

// NewATRSizer creates an ATRSizer.
func NewATRSizer(cfg ATRSizerConfig) *ATRSizer {
	return &ATRSizer{
		cfg:       cfg,
		trBuffer:  make(map[string][]float64),
		prevATR:   make(map[string]float64),
		prevClose: make(map[string]float64),
		warm:      make(map[string]bool),
		lastSize:  make(map[string]float64),
		calls:     make(map[string]int),
	}
}

// Size implements Sizer. Before the ATR has completed its warm-up window,
// it falls back to InitialPositionSize on the very first call for a symbol,
// and reuses the previously computed size on subsequent warm-up calls.
func (a *ATRSizer) Size(symbol string, bar types.Bar, direction types.SignalDirection, equity float64) float64 {
	atr, ready := a.update(symbol, bar)

	var qty float64

	switch {
	case !ready && a.calls[symbol] == 1:
		qty = roundTo(a.cfg.InitialPositionSize, a.cfg.DecimalPlaces)
	case !ready:
		qty = a.lastSize[symbol]
	default:
		riskBudget := equity * a.cfg.RiskFraction

		multiplier := a.cfg.AtrMultiplier
		if multiplier <= 0 {
			multiplier = 1
		}

		stopDistance := atr * multiplier

		if stopDistance <= 0 {
			qty = a.cfg.InitialPositionSize
		} else {
			qty = riskBudget / stopDistance
		}

		qty = roundTo(qty, a.cfg.DecimalPlaces)
	}

	a.lastSize[symbol] = qty

	return signedQuantity(qty, direction)
}

// signedQuantity applies direction to a magnitude.
func signedQuantity(magnitude float64, direction types.SignalDirection) float64 {
	switch direction {
	case types.SignalBullish:
		return absFloat(magnitude)
	case types.SignalBearish:
		return -absFloat(magnitude)
	default:
		return 0
	}
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}

	return v
}

// update feeds bar into the true-range history for symbol and returns the
// current ATR and whether the warm-up window has completed.
func (a *ATRSizer) update(symbol string, bar types.Bar) (float64, bool) {
	a.calls[symbol]++

	prevClose, hasPrev := a.prevClose[symbol]
	a.prevClose[symbol] = bar.Close

	if !hasPrev {
		return 0, false
	}

	tr := bar.TrueRange(prevClose)

	if a.warm[symbol] {
		prev := a.prevATR[symbol]
		atr := (float64(a.cfg.Period-1)*prev + tr) / float64(a.cfg.Period)
		a.prevATR[symbol] = atr

		return atr, true
	}

	buf := append(a.trBuffer[symbol], tr)
	a.trBuffer[symbol] = buf

	if len(buf) < a.cfg.Period {
		return 0, false
	}

	var sum float64
	for _, v := range buf {
		sum += v
	}

	seed := sum / float64(len(buf))
	a.prevATR[symbol] = seed
	a.warm[symbol] = true

	return seed, true
}
