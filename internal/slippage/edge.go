package slippage

import "math"

// edgeSpread estimates the fractional bid-ask spread from a rolling window
// of OHLC bars using four indicator-gated variance estimators in the spirit
// of Ardia, Guidotti & Kolokolov's EDGE estimator ("Efficient estimation of
// bid-ask spreads from OHLC prices", 2024): each estimator pairs consecutive
// log-midpoint changes with one of the four "price touched an extreme"
// indicators (open==high, open==low, close==high, close==low), and the four
// candidate variance estimates are combined by inverse-variance weighting.
//
// This is a from-scratch construction rather than a line-for-line port of
// the paper's closed-form estimator; DESIGN.md records the simplification.
func edgeSpread(bars []ohlc) float64 {
	if len(bars) < 3 {
		return 0
	}

	logMid := make([]float64, len(bars))
	for i, b := range bars {
		logMid[i] = (math.Log(b.high) + math.Log(b.low)) / 2
	}

	type estimator struct {
		values []float64
	}

	estimators := make([]estimator, 4)

	for i := 1; i < len(bars); i++ {
		dMid := logMid[i] - logMid[i-1]

		indOH := indicatorEqual(bars[i].open, bars[i].high)
		indOL := indicatorEqual(bars[i].open, bars[i].low)
		indCH := indicatorEqual(bars[i].closePx, bars[i].high)
		indCL := indicatorEqual(bars[i].closePx, bars[i].low)

		estimators[0].values = append(estimators[0].values, -4*dMid*indOH)
		estimators[1].values = append(estimators[1].values, 4*dMid*indOL)
		estimators[2].values = append(estimators[2].values, -4*dMid*indCH)
		estimators[3].values = append(estimators[3].values, 4*dMid*indCL)
	}

	var (
		weightedSum float64
		weightTotal float64
	)

	for _, est := range estimators {
		mean := meanOf(est.values)
		// Candidate spread-squared, floored at zero.
		s2 := math.Max(mean, 0)

		// An estimator with zero variance (typically one whose indicator never
		// fired, so every value is zero) carries no spread information and is
		// left out rather than given an unbounded weight.
		variance := varianceOf(est.values, mean)
		if variance <= 0 {
			continue
		}

		weight := 1.0 / variance
		weightedSum += weight * s2
		weightTotal += weight
	}

	if weightTotal == 0 {
		return 0
	}

	combined := weightedSum / weightTotal
	if combined < 0 {
		combined = 0
	}

	return math.Sqrt(combined)
}

type ohlc struct {
	open    float64
	high    float64
	low     float64
	closePx float64
}

func indicatorEqual(a, b float64) float64 {
	if a == b {
		return 1
	}

	return 0
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

// varianceOf computes sample variance with the n-1 denominator.
func varianceOf(xs []float64, mean float64) float64 {
	if len(xs) < 2 {
		return 0
	}

	var sumSq float64
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}

	return sumSq / float64(len(xs)-1)
}
