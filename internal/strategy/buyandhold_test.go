package strategy

import (
	"testing"
	"time"

	"github.com/rxtech-lab/backtestcore/internal/types"
	"github.com/stretchr/testify/suite"
)

type BuyAndHoldTestSuite struct {
	suite.Suite
}

func TestBuyAndHoldSuite(t *testing.T) {
	suite.Run(t, new(BuyAndHoldTestSuite))
}

func (suite *BuyAndHoldTestSuite) TestFiresOnceThenNeverAgain() {
	b := NewBuyAndHold("")
	bar := types.Bar{Symbol: "AAPL", Timestamp: time.Now(), Close: 100}

	first, err := b.OnInterval("AAPL", types.Interval1Day, bar)
	suite.NoError(err)
	suite.True(first.IsSome())
	suite.Equal(types.SignalBullish, first.Unwrap().Direction)

	second, err := b.OnInterval("AAPL", types.Interval1Day, bar)
	suite.NoError(err)
	suite.True(second.IsNone())
}

func (suite *BuyAndHoldTestSuite) TestSymbolFilterIgnoresOtherSymbols() {
	b := NewBuyAndHold("AAPL")
	bar := types.Bar{Symbol: "MSFT", Timestamp: time.Now(), Close: 100}

	signal, err := b.OnInterval("MSFT", types.Interval1Day, bar)
	suite.NoError(err)
	suite.True(signal.IsNone())
}

func (suite *BuyAndHoldTestSuite) TestNameReflectsSymbolFilter() {
	suite.Equal("buy_and_hold", NewBuyAndHold("").Name())
	suite.Equal("buy_and_hold_AAPL", NewBuyAndHold("AAPL").Name())
}
