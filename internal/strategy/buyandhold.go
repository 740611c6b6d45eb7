package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/backtestcore/internal/types"
)

// BuyAndHold emits a single bullish signal the first time it sees each
// symbol and never signals again for that symbol. It exists as a minimal
// illustration of the Strategy interface; concrete strategies remain out of
// the core's scope. An empty symbol filter matches every symbol the loop
// dispatches to it.
type BuyAndHold struct {
	symbol string
	fired  map[string]bool
}

// NewBuyAndHold creates a BuyAndHold strategy scoped to symbol, or to every
// symbol if symbol is empty.
func NewBuyAndHold(symbol string) *BuyAndHold {
	return &BuyAndHold{symbol: symbol, fired: make(map[string]bool)}
}

func (b *BuyAndHold) Name() string {
	if b.symbol == "" {
		return "buy_and_hold"
	}

	return fmt.Sprintf("buy_and_hold_%s", b.symbol)
}

func (b *BuyAndHold) OnInterval(symbol string, _ types.Interval, bar types.Bar) (optional.Option[types.Signal], error) {
	if b.symbol != "" && symbol != b.symbol {
		return optional.None[types.Signal](), nil
	}

	if b.fired[symbol] {
		return optional.None[types.Signal](), nil
	}

	b.fired[symbol] = true

	return optional.Some(types.Signal{
		Symbol:    symbol,
		Direction: types.SignalBullish,
		Strength:  1,
		Time:      bar.Timestamp,
	}), nil
}
