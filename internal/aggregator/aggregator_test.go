package aggregator

import (
	"testing"
	"time"

	"github.com/rxtech-lab/backtestcore/internal/types"
	"github.com/stretchr/testify/suite"
)

type AggregatorTestSuite struct {
	suite.Suite
}

func TestAggregatorSuite(t *testing.T) {
	suite.Run(t, new(AggregatorTestSuite))
}

type recordingSubscriber struct {
	closes []types.Bar
}

func (r *recordingSubscriber) OnInterval(symbol string, interval types.Interval, bar types.Bar) {
	r.closes = append(r.closes, bar)
}

func (suite *AggregatorTestSuite) TestFiveMinuteRollupFromOneMinuteBars() {
	agg := New(types.Interval1Min, []types.Interval{types.Interval5Min})
	sub := &recordingSubscriber{}
	agg.Subscribe(sub)

	for i := 1; i <= 10; i++ {
		ts := time.Unix(int64(i*60), 0).UTC()
		agg.OnBaseBarClose(types.Bar{
			Symbol:    "AAPL",
			Interval:  types.Interval1Min,
			Timestamp: ts,
			Open:      float64(100 + i),
			High:      float64(101 + i),
			Low:       float64(99 + i),
			Close:     float64(100 + i),
			Volume:    10,
		})
	}

	suite.Len(sub.closes, 2)

	first := sub.closes[0]
	suite.Equal(time.Unix(300, 0).UTC(), first.Timestamp)
	suite.InDelta(106.0, first.High, 1e-9) // max of bars 1..5 highs (102..106)
	suite.InDelta(100.0, first.Low, 1e-9)  // min of bars 1..5 lows (100..104)
	suite.InDelta(50.0, first.Volume, 1e-9)

	second := sub.closes[1]
	suite.Equal(time.Unix(600, 0).UTC(), second.Timestamp)
	suite.InDelta(50.0, second.Volume, 1e-9)
}

func (suite *AggregatorTestSuite) TestFirstEverBaseBarNeverClosesAWindow() {
	agg := New(types.Interval1Min, []types.Interval{types.Interval1Min})
	sub := &recordingSubscriber{}
	agg.Subscribe(sub)

	// The very first base bar lands exactly on a 1m boundary but must not
	// close a window since there is no prior bar to have opened one.
	agg.OnBaseBarClose(types.Bar{
		Symbol:    "AAPL",
		Interval:  types.Interval1Min,
		Timestamp: time.Unix(60, 0).UTC(),
		Close:     100,
	})

	suite.Empty(sub.closes)
}
