package metrics

import (
	"testing"
	"time"

	"github.com/rxtech-lab/backtestcore/internal/types"
	"github.com/stretchr/testify/suite"
)

type MetricsTestSuite struct {
	suite.Suite
}

func TestMetricsSuite(t *testing.T) {
	suite.Run(t, new(MetricsTestSuite))
}

func (suite *MetricsTestSuite) points(equities ...float64) ([]types.EquityPoint, []time.Time) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	points := make([]types.EquityPoint, len(equities))
	timestamps := make([]time.Time, len(equities))

	for i, eq := range equities {
		ts := start.AddDate(0, 0, i)
		points[i] = types.EquityPoint{Timestamp: ts, Equity: eq}
		timestamps[i] = ts
	}

	return points, timestamps
}

func (suite *MetricsTestSuite) TestComputeEmptyEquityCurveReturnsInitialCash() {
	stats := Compute(Config{}, nil, nil, nil, 1000, nil)
	suite.Equal(1000.0, stats.FinalEquity)
	suite.Equal(0, stats.NumberOfTrades)
}

func (suite *MetricsTestSuite) TestComputeFinalEquityAndTradeCount() {
	curve, timestamps := suite.points(1000, 1010, 1005)
	fills := []types.Fill{{Commission: 1}, {Commission: 2}}

	stats := Compute(Config{TradingDaysPerYear: 252, AnnualizationFactor: 252}, curve, timestamps, fills, 1000, nil)

	suite.Equal(1005.0, stats.FinalEquity)
	suite.Equal(2, stats.NumberOfTrades)
	suite.InDelta(3.0, stats.TotalFees, 1e-9)
}

func (suite *MetricsTestSuite) TestMaxDrawdownTracksWorstPeakToTroughDecline() {
	curve, timestamps := suite.points(1000, 1100, 900, 950)

	stats := Compute(Config{}, curve, timestamps, nil, 1000, nil)

	suite.InDelta((1100.0-900.0)/1100.0, stats.Drawdown.MaxDrawdown, 1e-9)
}

func (suite *MetricsTestSuite) TestWinRateCountsPositiveRealizedFills() {
	curve, timestamps := suite.points(1000, 1010)

	stats := Compute(Config{}, curve, timestamps, nil, 1000, []float64{10, -5, 0, 20})

	suite.InDelta(0.5, stats.WinRate, 1e-9)
}

func (suite *MetricsTestSuite) TestWinRateZeroWhenNoRealizedFills() {
	curve, timestamps := suite.points(1000)

	stats := Compute(Config{}, curve, timestamps, nil, 1000, nil)

	suite.Equal(0.0, stats.WinRate)
}

func (suite *MetricsTestSuite) TestTurnoverIsNotionalOverAverageEquity() {
	curve, timestamps := suite.points(1000, 1000)
	fills := []types.Fill{{Quantity: 10, FillPrice: 100}}

	stats := Compute(Config{}, curve, timestamps, fills, 1000, nil)

	suite.InDelta(1000.0/1000.0, stats.Turnover, 1e-9)
}

func (suite *MetricsTestSuite) TestSharpeZeroWithFewerThanTwoReturns() {
	curve, timestamps := suite.points(1000)

	stats := Compute(Config{}, curve, timestamps, nil, 1000, nil)

	suite.Equal(0.0, stats.Sharpe)
}

func (suite *MetricsTestSuite) TestCagrZeroWhenFewerThanTwoTimestamps() {
	curve, timestamps := suite.points(1000)

	stats := Compute(Config{}, curve, timestamps, nil, 1000, nil)

	suite.Equal(0.0, stats.CAGR)
}
