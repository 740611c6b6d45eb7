// Package slippage prices the market-impact and spread cost applied to a
// fill in excess of the reference bar's open or close price. It combines a
// bid-ask spread estimate, a market-impact term driven by participation and
// volatility, a momentum/liquidity cost, and a deterministic pseudo-random
// noise factor into a single fractional cost, then applies it with sign
// depending on the order side.
package slippage

import (
	"math"
	"math/rand"

	"github.com/rxtech-lab/backtestcore/internal/types"
)

// Config parametrizes the Model. Window sizes are counted in base-interval
// bars. RNGSeed seeds the deterministic noise factor; the same seed always
// produces the same noise sequence for a given call order, which is what
// keeps two runs of the same backtest byte-identical.
type Config struct {
	ShortVolWindow  int     `yaml:"short_vol_window" json:"short_vol_window"`
	MediumVolWindow int     `yaml:"medium_vol_window" json:"medium_vol_window"`
	LongVolWindow   int     `yaml:"long_vol_window" json:"long_vol_window"`
	VolumeWindow    int     `yaml:"volume_window" json:"volume_window"`
	Annualization   float64 `yaml:"annualization_factor" json:"annualization_factor"`
	ImpactCoeff     float64 `yaml:"impact_coefficient" json:"impact_coefficient"`
	NoiseSigma      float64 `yaml:"noise_sigma" json:"noise_sigma"`
	FloorFrac       float64 `yaml:"floor" json:"floor"`
	CapFrac         float64 `yaml:"cap" json:"cap"`
	RNGSeed         int64   `yaml:"rng_seed" json:"rng_seed"`
}

// DefaultConfig returns the daily-data defaults the model assumes unless
// overridden: 5/21/63 bar volatility windows, 21 bar volume window, and an
// annualization factor of 252 trading days.
func DefaultConfig() Config {
	return Config{
		ShortVolWindow:  5,
		MediumVolWindow: 21,
		LongVolWindow:   63,
		VolumeWindow:    21,
		Annualization:   252,
		ImpactCoeff:     0.1,
		NoiseSigma:      0.05,
		FloorFrac:       0,
		CapFrac:         0.05,
		RNGSeed:         1,
	}
}

// Model estimates a fractional slippage cost for an order given the recent
// bar history of the traded symbol and applies it to a reference price.
type Model struct {
	cfg  Config
	rng  *rand.Rand
	warn func(symbol string, err error)
}

// New builds a Model. The Model owns its random source exclusively: nothing
// else may consume rng draws once Estimate has been called, or results stop
// being reproducible across runs with the same seed.
func New(cfg Config) *Model {
	return &Model{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.RNGSeed)),
	}
}

// OnWarning installs a callback invoked whenever Estimate falls back to a
// degraded calculation (e.g. zero-volume history) instead of failing.
func (m *Model) OnWarning(fn func(symbol string, err error)) {
	m.warn = fn
}

func (m *Model) warnf(symbol string, err error) {
	if m.warn != nil {
		m.warn(symbol, err)
	}
}

// Estimate computes the signed fractional slippage a caller should multiply
// by the reference price to get the actual cost, for an order of the given
// side and quantity, given the trailing history bars (oldest first, most
// recent last, including the current, about-to-fill bar as the final
// element so "today" metrics can reference it). The magnitude is clamped to
// [FloorFrac, CapFrac]; the sign is positive for buys (pay more) and
// negative for sells (receive less).
func (m *Model) Estimate(symbol string, side types.PurchaseType, quantity float64, history []types.Bar) float64 {
	frac := m.fractionalCost(symbol, side, quantity, history)

	frac = clip(frac, m.cfg.FloorFrac, m.cfg.CapFrac)

	if side == types.PurchaseTypeSell {
		return -frac
	}

	return frac
}

func (m *Model) fractionalCost(symbol string, side types.PurchaseType, quantity float64, history []types.Bar) float64 {
	if len(history) < 2 {
		return 0
	}

	closes := make([]float64, len(history))
	volumes := make([]float64, len(history))
	bars := make([]ohlc, len(history))

	for i, b := range history {
		closes[i] = b.Close
		volumes[i] = b.Volume
		bars[i] = ohlc{open: b.Open, high: b.High, low: b.Low, closePx: b.Close}
	}

	today := history[len(history)-1]

	spread := edgeSpread(bars)

	returns := logReturns(closes)
	returnToday := returns[len(returns)-1]

	volMedium := annualizedVolatility(closes, m.cfg.MediumVolWindow, m.cfg.Annualization)

	todayVolume := today.Volume
	if todayVolume <= 0 {
		m.warnf(symbol, errZeroVolumeHistory)

		return spread / 2
	}

	amihud := 0.0
	if dollarVolume := today.Close * todayVolume; dollarVolume > 0 {
		amihud = math.Abs(returnToday) / dollarVolume
	}

	turnoverCV := turnoverCoefficientOfVariation(lastN(volumes, m.cfg.MediumVolWindow))
	liquidityCost := 1 + amihud + turnoverCV

	participation := math.Abs(quantity) / todayVolume

	marketImpact := m.cfg.ImpactCoeff * volMedium * math.Pow(participation, 0.6) * math.Exp(-turnoverCV)

	tradeDirection := 1.0
	if side == types.PurchaseTypeSell {
		tradeDirection = -1.0
	}

	momentumCost := sign(tradeDirection*returnToday) * math.Abs(returnToday)

	slippageFrac := spread/2 + marketImpact + momentumCost*liquidityCost

	noise := math.Exp(m.rng.NormFloat64() * m.cfg.NoiseSigma)

	return slippageFrac * noise
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// turnoverCoefficientOfVariation is std(volume)/mean(volume) over the
// supplied window: high dispersion in traded volume signals less reliable
// liquidity.
func turnoverCoefficientOfVariation(volumes []float64) float64 {
	if len(volumes) < 2 {
		return 0
	}

	mean := meanOf(volumes)
	if mean <= 0 {
		return 0
	}

	return sampleStd(volumes) / mean
}
