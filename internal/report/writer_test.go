package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/backtestcore/internal/backtest"
	"github.com/rxtech-lab/backtestcore/internal/types"
	"github.com/stretchr/testify/suite"
)

type ReportWriterTestSuite struct {
	suite.Suite
}

func TestReportWriterSuite(t *testing.T) {
	suite.Run(t, new(ReportWriterTestSuite))
}

func (suite *ReportWriterTestSuite) readCSV(path string) [][]string {
	file, err := os.Open(path)
	suite.Require().NoError(err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	suite.Require().NoError(err)

	return rows
}

func (suite *ReportWriterTestSuite) TestWriteEquityCurveWritesHeaderAndRows() {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	path := filepath.Join(suite.T().TempDir(), "equity_curve.csv")

	points := []types.EquityPoint{
		{Timestamp: ts, Cash: 900, ReservedCash: 100, MarginLocked: 0, PositionValue: 1000, Equity: 2000},
	}

	suite.Require().NoError(WriteEquityCurve(path, points))

	rows := suite.readCSV(path)
	suite.Require().Len(rows, 2)
	suite.Equal([]string{"timestamp", "cash", "reserved_cash", "margin_locked", "position_value", "equity"}, rows[0])
	suite.Equal(ts.Format(time.RFC3339), rows[1][0])
	suite.Equal("2000.000000", rows[1][5])
}

func (suite *ReportWriterTestSuite) TestWriteTradeLogWritesHeaderAndRows() {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	path := filepath.Join(suite.T().TempDir(), "trades.csv")

	fills := []types.Fill{
		{OrderID: "o1", Symbol: "AAPL", Side: types.PurchaseTypeBuy, Quantity: 10, FillPrice: 100, Commission: 1, Slippage: 0.5, Timestamp: ts},
	}

	suite.Require().NoError(WriteTradeLog(path, fills))

	rows := suite.readCSV(path)
	suite.Require().Len(rows, 2)
	suite.Equal([]string{"timestamp", "symbol", "direction", "quantity", "price", "commission", "slippage", "order_id"}, rows[0])
	suite.Equal("AAPL", rows[1][1])
	suite.Equal(string(types.PurchaseTypeBuy), rows[1][2])
	suite.Equal("o1", rows[1][7])
}

func (suite *ReportWriterTestSuite) TestWriteResultWritesBothFiles() {
	dir := suite.T().TempDir()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	result := backtest.Result{
		RunID:       "run-1",
		EquityCurve: []types.EquityPoint{{Timestamp: ts, Equity: 1000}},
		Fills:       []types.Fill{{OrderID: "o1", Symbol: "AAPL", Side: types.PurchaseTypeBuy, Quantity: 1, FillPrice: 100, Timestamp: ts}},
	}

	suite.Require().NoError(WriteResult(dir, result))

	suite.FileExists(filepath.Join(dir, "equity_curve.csv"))
	suite.FileExists(filepath.Join(dir, "trades.csv"))
}

func (suite *ReportWriterTestSuite) TestWriteEquityCurveErrorsOnUnwritableDir() {
	err := WriteEquityCurve(filepath.Join(suite.T().TempDir(), "missing-dir", "equity_curve.csv"), nil)
	suite.Error(err)
}
