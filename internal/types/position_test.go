package types

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type PositionTestSuite struct {
	suite.Suite
}

func TestPositionSuite(t *testing.T) {
	suite.Run(t, new(PositionTestSuite))
}

func (suite *PositionTestSuite) TestIsFlatWhenZeroAndNoBorrow() {
	pos := Position{Quantity: 0, AccruedBorrowCost: 0}
	suite.True(pos.IsFlat())
}

func (suite *PositionTestSuite) TestNotFlatWithOutstandingBorrowCost() {
	pos := Position{Quantity: 0, AccruedBorrowCost: 1.5}
	suite.False(pos.IsFlat())
}

func (suite *PositionTestSuite) TestMarkValueNegativeForShort() {
	pos := Position{Quantity: -2, AvgCost: 10}
	suite.InDelta(-20.0, pos.MarkValue(10), 1e-9)
}

func (suite *PositionTestSuite) TestIsShort() {
	suite.True(Position{Quantity: -1}.IsShort())
	suite.False(Position{Quantity: 1}.IsShort())
	suite.False(Position{Quantity: 0}.IsShort())
}
