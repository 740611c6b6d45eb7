package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/backtestcore/pkg/errors"
)

// PurchaseType is the side of an order or fill.
type PurchaseType string

const (
	PurchaseTypeBuy  PurchaseType = "BUY"
	PurchaseTypeSell PurchaseType = "SELL"
)

// OrderType is the order type the execution handler knows how to fill.
// Only market and market-on-close orders are supported; partial fills and
// limit/stop orders are out of scope.
type OrderType string

const (
	OrderTypeMarket        OrderType = "MKT"
	OrderTypeMarketOnClose OrderType = "MOC"
)

// Reason records why an order was created or rejected.
type Reason struct {
	Reason  string `yaml:"reason" json:"reason" validate:"required"`
	Message string `yaml:"message" json:"message"`
}

const (
	OrderReasonStrategy   string = "strategy"
	OrderReasonRiskReject string = "risk_rejected"
	PovExceededReason     string = "pov_exceeded"
)

// Order is the OrderEvent payload: a request to trade a non-negative
// quantity on the given Side that has not yet been filled.
type Order struct {
	ID            string       `yaml:"id" json:"id" validate:"required,uuid"`
	Symbol        string       `yaml:"symbol" json:"symbol" validate:"required"`
	Type          OrderType    `yaml:"type" json:"type" validate:"required,oneof=MKT MOC"`
	Side          PurchaseType `yaml:"side" json:"side" validate:"required,oneof=BUY SELL"`
	Quantity      float64      `yaml:"quantity" json:"quantity" validate:"gte=0"`
	EstimatedCost float64      `yaml:"estimated_cost" json:"estimated_cost"`
	Timestamp     time.Time    `yaml:"timestamp" json:"timestamp"`
	StrategyName  string       `yaml:"strategy_name" json:"strategy_name"`
}

// Validate validates the Order struct.
func (o *Order) Validate() error {
	validate := validator.New()
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order", err)
	}

	return nil
}

// Fill is the FillEvent payload: the realized execution of an order,
// produced by the execution handler at its scheduled reference bar.
type Fill struct {
	OrderID    string       `yaml:"order_id" json:"order_id"`
	Symbol     string       `yaml:"symbol" json:"symbol"`
	Side       PurchaseType `yaml:"side" json:"side"`
	Quantity   float64      `yaml:"quantity" json:"quantity"`
	FillPrice  float64      `yaml:"fill_price" json:"fill_price"`
	Commission float64      `yaml:"commission" json:"commission"`
	Slippage   float64      `yaml:"slippage" json:"slippage"`
	Timestamp  time.Time    `yaml:"timestamp" json:"timestamp"`
}
