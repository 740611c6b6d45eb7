// Package aggregator resamples the base-frequency bar stream into every
// higher frequency a strategy subscribes to.
package aggregator

import (
	"time"

	"github.com/rxtech-lab/backtestcore/internal/types"
)

// Subscriber is notified whenever a higher-frequency interval closes.
// Strategies and per-symbol-frequency indicator updaters implement this.
type Subscriber interface {
	OnInterval(symbol string, interval types.Interval, bar types.Bar)
}

type building struct {
	bar          types.Bar
	started      bool
	everReceived bool
}

type seriesKey struct {
	symbol   string
	interval types.Interval
}

// BarAggregator maintains one building bar per (symbol, higher frequency)
// and finalizes it once the base bar closing the window arrives.
type BarAggregator struct {
	base        types.Interval
	frequencies []types.Interval
	building    map[seriesKey]*building
	subscribers []Subscriber
}

// New creates a BarAggregator that resamples baseInterval into each of
// higherFrequencies.
func New(baseInterval types.Interval, higherFrequencies []types.Interval) *BarAggregator {
	return &BarAggregator{
		base:        baseInterval,
		frequencies: higherFrequencies,
		building:    make(map[seriesKey]*building),
	}
}

// Subscribe registers a callback invoked whenever any higher-frequency
// interval closes.
func (a *BarAggregator) Subscribe(sub Subscriber) {
	a.subscribers = append(a.subscribers, sub)
}

// OnBaseBarClose extends every higher-frequency building bar for the base
// bar's symbol with the new base bar and finalizes any window that closes on
// this base bar's timestamp, notifying subscribers of the closed bar. It
// returns the bars that closed, in the order of a.frequencies.
func (a *BarAggregator) OnBaseBarClose(baseBar types.Bar) []types.Bar {
	var closed []types.Bar

	for _, freq := range a.frequencies {
		k := seriesKey{symbol: baseBar.Symbol, interval: freq}

		b, ok := a.building[k]
		if !ok {
			b = &building{}
			a.building[k] = b
		}

		firstEver := !b.everReceived
		b.everReceived = true

		if !b.started {
			b.bar = types.Bar{
				Symbol:    baseBar.Symbol,
				Interval:  freq,
				Timestamp: baseBar.Timestamp,
				Open:      baseBar.Open,
				High:      baseBar.High,
				Low:       baseBar.Low,
				Close:     baseBar.Close,
				Volume:    baseBar.Volume,
			}
			b.started = true
		} else {
			if baseBar.High > b.bar.High {
				b.bar.High = baseBar.High
			}

			if baseBar.Low < b.bar.Low {
				b.bar.Low = baseBar.Low
			}

			b.bar.Close = baseBar.Close
			b.bar.Volume += baseBar.Volume
			b.bar.Timestamp = baseBar.Timestamp
		}

		// A base bar with no prior bar at all never closes a higher-frequency
		// window, even if it happens to land on a boundary.
		if firstEver {
			continue
		}

		if isBoundaryClose(baseBar.Timestamp, freq) {
			finalized := b.bar
			closed = append(closed, finalized)
			b.started = false

			for _, sub := range a.subscribers {
				sub.OnInterval(finalized.Symbol, finalized.Interval, finalized)
			}
		}
	}

	return closed
}

// isBoundaryClose reports whether ts is the close of an interval-aligned
// window: calendar-day boundaries for daily+ frequencies, modulo epoch
// seconds for sub-daily ones.
func isBoundaryClose(ts time.Time, interval types.Interval) bool {
	if seconds, ok := intervalSeconds(interval); ok {
		return ts.Unix()%seconds == 0
	}

	// Daily+ frequencies align on the exchange calendar day boundary. We
	// approximate the exchange calendar with the UTC calendar day: since a
	// bar's timestamp is its close time, the bar stamped exactly at UTC
	// midnight closes the day that just ended.
	utc := ts.UTC()

	return utc.Hour() == 0 && utc.Minute() == 0 && utc.Second() == 0 && utc.Nanosecond() == 0
}

// IsLastIntervalOfDay reports whether a bar closing at ts on baseInterval is
// the last interval of its trading day: for daily+ base intervals every bar
// is one full day, so the answer is always true; for sub-daily intervals it
// is true when the next interval's expected close would roll into a new
// calendar day. This never inspects a future bar's price data — only the
// base interval's fixed duration — so it introduces no look-ahead.
func IsLastIntervalOfDay(ts time.Time, baseInterval types.Interval) bool {
	seconds, ok := intervalSeconds(baseInterval)
	if !ok {
		return true
	}

	next := ts.Add(time.Duration(seconds) * time.Second)

	return next.UTC().Day() != ts.UTC().Day() ||
		next.UTC().Month() != ts.UTC().Month() ||
		next.UTC().Year() != ts.UTC().Year()
}

func intervalSeconds(interval types.Interval) (int64, bool) {
	switch interval {
	case types.Interval1Min:
		return 60, true
	case types.Interval5Min:
		return 300, true
	case types.Interval15Min:
		return 900, true
	case types.Interval1Hour:
		return 3600, true
	default:
		return 0, false
	}
}
