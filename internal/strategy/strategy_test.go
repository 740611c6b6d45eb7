package strategy

import (
	"testing"
	"time"

	"github.com/rxtech-lab/backtestcore/internal/types"
	"github.com/stretchr/testify/suite"
)

type StrategyHostTestSuite struct {
	suite.Suite
}

func TestStrategyHostSuite(t *testing.T) {
	suite.Run(t, new(StrategyHostTestSuite))
}

func (suite *StrategyHostTestSuite) TestDispatchOnlyNotifiesSubscribedFrequency() {
	h := NewHost()
	h.Register(NewBuyAndHold(""), []types.Interval{types.Interval1Day})

	bar := types.Bar{Symbol: "AAPL", Timestamp: time.Now(), Close: 100}

	signals := h.Dispatch("AAPL", types.Interval1Hour, bar)
	suite.Empty(signals)

	signals = h.Dispatch("AAPL", types.Interval1Day, bar)
	suite.Len(signals, 1)
}

func (suite *StrategyHostTestSuite) TestOnIntervalBuffersIntoPending() {
	h := NewHost()
	h.Register(NewBuyAndHold(""), []types.Interval{types.Interval1Hour})

	bar := types.Bar{Symbol: "AAPL", Timestamp: time.Now(), Close: 100}
	h.OnInterval("AAPL", types.Interval1Hour, bar)

	pending := h.DrainPending()
	suite.Len(pending, 1)

	suite.Empty(h.DrainPending())
}

func (suite *StrategyHostTestSuite) TestStrategiesReturnsRegistrationOrder() {
	h := NewHost()
	first := NewBuyAndHold("AAPL")
	second := NewBuyAndHold("MSFT")
	h.Register(first, []types.Interval{types.Interval1Day})
	h.Register(second, []types.Interval{types.Interval1Day})

	strategies := h.Strategies()
	suite.Require().Len(strategies, 2)
	suite.Equal(first.Name(), strategies[0].Name())
	suite.Equal(second.Name(), strategies[1].Name())
}
