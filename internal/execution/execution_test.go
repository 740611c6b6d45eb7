package execution

import (
	"testing"
	"time"

	"github.com/rxtech-lab/backtestcore/internal/commission"
	"github.com/rxtech-lab/backtestcore/internal/types"
	"github.com/stretchr/testify/suite"
)

// fixedSlippage returns a constant fractional cost regardless of inputs, so
// tests can assert the exact fill price a slippage model would produce.
type fixedSlippage struct {
	frac float64
}

func (f fixedSlippage) Estimate(_ string, _ types.PurchaseType, _ float64, _ []types.Bar) float64 {
	return f.frac
}

type ExecutionTestSuite struct {
	suite.Suite
}

func TestExecutionSuite(t *testing.T) {
	suite.Run(t, new(ExecutionTestSuite))
}

func (suite *ExecutionTestSuite) bar(symbol string, ts time.Time, open, close float64) types.Bar {
	return types.Bar{Symbol: symbol, Timestamp: ts, Open: open, Close: close}
}

func (suite *ExecutionTestSuite) TestMarketOrderFillsAtNextBarOpen() {
	h := New(commission.NewZero(), nil)

	order := types.Order{ID: "o1", Symbol: "AAPL", Type: types.OrderTypeMarket, Side: types.PurchaseTypeBuy, Quantity: 10}
	h.Schedule(order)

	ts := time.Now()
	openBar := suite.bar("AAPL", ts, 101, 105)

	fills := h.DrainMarketOrdersForSymbol("AAPL", openBar, []types.Bar{openBar})
	suite.Require().Len(fills, 1)
	suite.Equal(101.0, fills[0].FillPrice)
	suite.Equal(0.0, fills[0].Commission)
	suite.False(h.HasPending())
}

func (suite *ExecutionTestSuite) TestMarketOrderOnlyDrainsMatchingSymbol() {
	h := New(commission.NewZero(), nil)

	h.Schedule(types.Order{ID: "o1", Symbol: "AAPL", Type: types.OrderTypeMarket, Side: types.PurchaseTypeBuy, Quantity: 10})
	h.Schedule(types.Order{ID: "o2", Symbol: "MSFT", Type: types.OrderTypeMarket, Side: types.PurchaseTypeBuy, Quantity: 5})

	ts := time.Now()
	fills := h.DrainMarketOrdersForSymbol("AAPL", suite.bar("AAPL", ts, 100, 100), nil)

	suite.Require().Len(fills, 1)
	suite.Equal("o1", fills[0].OrderID)
	suite.True(h.HasPending())
}

func (suite *ExecutionTestSuite) TestMarketOnCloseWaitsForLastIntervalOfDay() {
	h := New(commission.NewZero(), nil)

	order := types.Order{ID: "o1", Symbol: "AAPL", Type: types.OrderTypeMarketOnClose, Side: types.PurchaseTypeSell, Quantity: 10}
	h.Schedule(order)

	ts := time.Now()
	midDayBar := suite.bar("AAPL", ts, 100, 101)

	fills := h.DrainMarketOnCloseForSymbol("AAPL", midDayBar, false, nil)
	suite.Empty(fills)
	suite.True(h.HasPending())

	lastBar := suite.bar("AAPL", ts.Add(time.Hour), 101, 102)
	fills = h.DrainMarketOnCloseForSymbol("AAPL", lastBar, true, nil)

	suite.Require().Len(fills, 1)
	suite.Equal(102.0, fills[0].FillPrice)
	suite.False(h.HasPending())
}

func (suite *ExecutionTestSuite) TestFillAppliesSlippageAndCommission() {
	h := New(commission.New(commission.Config{PerShare: 0.01}), fixedSlippage{frac: 0.001})

	h.Schedule(types.Order{ID: "o1", Symbol: "AAPL", Type: types.OrderTypeMarket, Side: types.PurchaseTypeBuy, Quantity: 100})

	ts := time.Now()
	fills := h.DrainMarketOrdersForSymbol("AAPL", suite.bar("AAPL", ts, 100, 101), nil)

	suite.Require().Len(fills, 1)
	suite.InDelta(100.1, fills[0].FillPrice, 1e-9)
	suite.InDelta(1.0, fills[0].Commission, 1e-9)
	suite.InDelta(0.1, fills[0].Slippage, 1e-9)
}
