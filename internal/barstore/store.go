// Package barstore implements the per-symbol, per-frequency append-only bar
// history: O(1) "last N bars," strictly sorted with no duplicate timestamps,
// mutated only by the backtest loop.
package barstore

import (
	"sort"

	"github.com/rxtech-lab/backtestcore/internal/types"
	"github.com/rxtech-lab/backtestcore/pkg/errors"
)

type key struct {
	symbol   string
	interval types.Interval
}

// BarStore is an in-memory, append-only ledger of bars keyed by symbol and
// interval. It never mutates a stored bar and never reorders history, so
// "last N bars" is always a cheap tail slice.
type BarStore struct {
	series map[key][]types.Bar
}

// New creates an empty BarStore.
func New() *BarStore {
	return &BarStore{series: make(map[key][]types.Bar)}
}

// Append adds a new bar to the series for its (symbol, interval). It rejects
// any bar whose timestamp does not strictly follow the last stored bar,
// which also rules out duplicate timestamps.
func (s *BarStore) Append(bar types.Bar) error {
	k := key{symbol: bar.Symbol, interval: bar.Interval}

	series := s.series[k]
	if len(series) > 0 {
		last := series[len(series)-1]
		if !bar.Timestamp.After(last.Timestamp) {
			return errors.Newf(errors.ErrCodeOutOfOrderBar,
				"bar for %s/%s at %s is not after last stored bar at %s",
				bar.Symbol, bar.Interval, bar.Timestamp, last.Timestamp)
		}
	}

	s.series[k] = append(series, bar)

	return nil
}

// Last returns the most recently appended bar for (symbol, interval).
func (s *BarStore) Last(symbol string, interval types.Interval) (types.Bar, bool) {
	series := s.series[key{symbol: symbol, interval: interval}]
	if len(series) == 0 {
		return types.Bar{}, false
	}

	return series[len(series)-1], true
}

// LastN returns up to n most recent bars for (symbol, interval), oldest
// first. O(1) beyond the slice copy since the store is append-only.
func (s *BarStore) LastN(symbol string, interval types.Interval, n int) []types.Bar {
	series := s.series[key{symbol: symbol, interval: interval}]
	if n <= 0 || len(series) == 0 {
		return nil
	}

	if n > len(series) {
		n = len(series)
	}

	out := make([]types.Bar, n)
	copy(out, series[len(series)-n:])

	return out
}

// Count returns the number of bars stored for (symbol, interval).
func (s *BarStore) Count(symbol string, interval types.Interval) int {
	return len(s.series[key{symbol: symbol, interval: interval}])
}

// Symbols returns the distinct symbols with at least one stored bar at the
// given interval, in lexicographic order.
func (s *BarStore) Symbols(interval types.Interval) []string {
	seen := make(map[string]bool)

	for k, v := range s.series {
		if k.interval == interval && len(v) > 0 {
			seen[k.symbol] = true
		}
	}

	symbols := make([]string, 0, len(seen))
	for sym := range seen {
		symbols = append(symbols, sym)
	}

	sort.Strings(symbols)

	return symbols
}
