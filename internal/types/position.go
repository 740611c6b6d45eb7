package types

import "time"

// Position is a single symbol's holding. Quantity is signed: negative means
// short. AvgCost is the weighted-average entry price of the current side.
// AccruedBorrowCost accumulates the daily short-borrow charges that have
// already been deducted from cash for this position.
type Position struct {
	Symbol            string    `yaml:"symbol" json:"symbol" csv:"symbol"`
	Quantity          float64   `yaml:"quantity" json:"quantity" csv:"quantity"`
	AvgCost           float64   `yaml:"avg_cost" json:"avg_cost" csv:"avg_cost"`
	AccruedBorrowCost float64   `yaml:"accrued_borrow_cost" json:"accrued_borrow_cost" csv:"accrued_borrow_cost"`
	OpenTimestamp     time.Time `yaml:"open_timestamp" json:"open_timestamp" csv:"open_timestamp"`
}

// IsFlat reports whether the position should be removed from the portfolio's
// ledger: zero quantity and no outstanding borrow cost.
func (p Position) IsFlat() bool {
	return p.Quantity == 0 && p.AccruedBorrowCost == 0
}

// MarkValue is qty * close, negative for shorts.
func (p Position) MarkValue(closePrice float64) float64 {
	return p.Quantity * closePrice
}

// IsShort reports whether the position is currently short.
func (p Position) IsShort() bool {
	return p.Quantity < 0
}
