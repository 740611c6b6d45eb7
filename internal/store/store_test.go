package store

import (
	"testing"
	"time"

	"github.com/rxtech-lab/backtestcore/internal/backtest"
	"github.com/rxtech-lab/backtestcore/internal/logger"
	"github.com/rxtech-lab/backtestcore/internal/types"
	"github.com/stretchr/testify/suite"
)

type StoreTestSuite struct {
	suite.Suite
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func (suite *StoreTestSuite) openStore() *Store {
	db, err := Open("", logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.Require().NoError(db.Initialize())

	suite.T().Cleanup(func() { db.Close() })

	return db
}

func (suite *StoreTestSuite) sampleResult() backtest.Result {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	return backtest.Result{
		RunID: "run-1",
		EquityCurve: []types.EquityPoint{
			{Timestamp: ts, Cash: 1000, Equity: 1000},
			{Timestamp: ts.Add(time.Hour), Cash: 0, Equity: 1010, PositionValue: 1010},
		},
		Fills: []types.Fill{
			{OrderID: "o1", Symbol: "AAPL", Side: types.PurchaseTypeBuy, Quantity: 10, FillPrice: 100, Timestamp: ts},
		},
		Rejections: []backtest.Rejection{
			{Order: types.Order{ID: "o2", Symbol: "MSFT", Quantity: 5}, Reason: "max_notional_exceeded", Timestamp: ts},
		},
		Stats: types.TradeStats{
			Timestamp:      ts,
			FinalEquity:    1010,
			CAGR:           0.1,
			Sharpe:         1.2,
			NumberOfTrades: 1,
			WinRate:        1,
		},
	}
}

func (suite *StoreTestSuite) TestSaveAndGetStatsRoundTrips() {
	db := suite.openStore()

	result := suite.sampleResult()
	suite.Require().NoError(db.SaveResult(result.RunID, result))

	stats, err := db.GetStats(result.RunID)
	suite.Require().NoError(err)
	suite.InDelta(1010.0, stats.FinalEquity, 1e-9)
	suite.InDelta(1.2, stats.Sharpe, 1e-9)
}

func (suite *StoreTestSuite) TestGetStatsUnknownRunErrors() {
	db := suite.openStore()

	_, err := db.GetStats("does-not-exist")
	suite.Error(err)
}

func (suite *StoreTestSuite) TestSaveResultWithNoFillsOrRejections() {
	db := suite.openStore()

	result := backtest.Result{
		RunID:       "run-empty",
		EquityCurve: []types.EquityPoint{{Timestamp: time.Now(), Equity: 500}},
		Stats:       types.TradeStats{FinalEquity: 500},
	}

	suite.NoError(db.SaveResult(result.RunID, result))

	stats, err := db.GetStats("run-empty")
	suite.Require().NoError(err)
	suite.InDelta(500.0, stats.FinalEquity, 1e-9)
}
