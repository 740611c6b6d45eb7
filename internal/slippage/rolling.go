package slippage

import "math"

// logReturns computes ln(closes[i]/closes[i-1]) for i>=1.
func logReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}

	out := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		out[i-1] = math.Log(closes[i] / closes[i-1])
	}

	return out
}

// sampleStd is the n-1 denominator sample standard deviation.
func sampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}

	mean := meanOf(xs)

	return math.Sqrt(varianceOf(xs, mean))
}

// lastN returns the last n elements of xs, or all of xs if it is shorter.
func lastN(xs []float64, n int) []float64 {
	if n <= 0 || len(xs) == 0 {
		return nil
	}

	if n > len(xs) {
		n = len(xs)
	}

	return xs[len(xs)-n:]
}

// annualizedVolatility is the sample std of log returns over the last
// `window` bars, annualized by sqrt(annualizationFactor).
func annualizedVolatility(closes []float64, window int, annualizationFactor float64) float64 {
	returns := lastN(logReturns(closes), window)

	return sampleStd(returns) * math.Sqrt(annualizationFactor)
}

// clip bounds x into [lo, hi].
func clip(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}

	if x > hi {
		return hi
	}

	return x
}
