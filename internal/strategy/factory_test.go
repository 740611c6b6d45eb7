package strategy

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type FactoryTestSuite struct {
	suite.Suite
}

func TestFactorySuite(t *testing.T) {
	suite.Run(t, new(FactoryTestSuite))
}

func (suite *FactoryTestSuite) TestBuildsBuyAndHold() {
	s, err := New("buy_and_hold", map[string]any{"symbol": "AAPL"})
	suite.NoError(err)
	suite.Equal("buy_and_hold_AAPL", s.Name())
}

func (suite *FactoryTestSuite) TestBuildsSMACrossoverWithDefaults() {
	s, err := New("sma_crossover", nil)
	suite.NoError(err)
	suite.Equal("sma_crossover_5_20", s.Name())
}

func (suite *FactoryTestSuite) TestBuildsSMACrossoverWithParams() {
	s, err := New("sma_crossover", map[string]any{"short_period": 10, "long_period": 30.0})
	suite.NoError(err)
	suite.Equal("sma_crossover_10_30", s.Name())
}

func (suite *FactoryTestSuite) TestUnknownStrategyErrors() {
	_, err := New("does_not_exist", nil)
	suite.Error(err)
}
