package barstore

import (
	"testing"
	"time"

	"github.com/rxtech-lab/backtestcore/internal/types"
	"github.com/stretchr/testify/suite"
)

type BarStoreTestSuite struct {
	suite.Suite
}

func TestBarStoreSuite(t *testing.T) {
	suite.Run(t, new(BarStoreTestSuite))
}

func bar(symbol string, ts time.Time, closePrice float64) types.Bar {
	return types.Bar{Symbol: symbol, Interval: types.Interval1Day, Timestamp: ts, Close: closePrice}
}

func (suite *BarStoreTestSuite) TestAppendAndLastN() {
	s := New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		suite.NoError(s.Append(bar("AAPL", base.AddDate(0, 0, i), float64(100+i))))
	}

	suite.Equal(5, s.Count("AAPL", types.Interval1Day))

	last3 := s.LastN("AAPL", types.Interval1Day, 3)
	suite.Len(last3, 3)
	suite.InDelta(102.0, last3[0].Close, 1e-9)
	suite.InDelta(104.0, last3[2].Close, 1e-9)

	last, ok := s.Last("AAPL", types.Interval1Day)
	suite.True(ok)
	suite.InDelta(104.0, last.Close, 1e-9)
}

func (suite *BarStoreTestSuite) TestRejectsOutOfOrderBar() {
	s := New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	suite.NoError(s.Append(bar("AAPL", base.AddDate(0, 0, 2), 100)))
	err := s.Append(bar("AAPL", base.AddDate(0, 0, 1), 101))
	suite.Error(err)
}

func (suite *BarStoreTestSuite) TestRejectsDuplicateTimestamp() {
	s := New()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	suite.NoError(s.Append(bar("AAPL", ts, 100)))
	err := s.Append(bar("AAPL", ts, 101))
	suite.Error(err)
}

func (suite *BarStoreTestSuite) TestSymbolsLexicographic() {
	s := New()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	suite.NoError(s.Append(bar("MSFT", ts, 1)))
	suite.NoError(s.Append(bar("AAPL", ts, 1)))
	suite.NoError(s.Append(bar("GOOG", ts, 1)))

	suite.Equal([]string{"AAPL", "GOOG", "MSFT"}, s.Symbols(types.Interval1Day))
}

func (suite *BarStoreTestSuite) TestLastNWhenFewerThanRequested() {
	s := New()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	suite.NoError(s.Append(bar("AAPL", ts, 1)))

	bars := s.LastN("AAPL", types.Interval1Day, 10)
	suite.Len(bars, 1)
}
