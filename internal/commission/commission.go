// Package commission implements pluggable per-share, per-trade, and bps
// commission schedules for pricing fills.
package commission

// Model computes the commission owed on a fill given its notional and
// quantity.
type Model interface {
	Calculate(quantity, notional float64) float64
}

// Config selects and parametrizes a commission Model: a per-share rate, a
// flat per-trade charge, and a basis-points rate on notional.
type Config struct {
	PerShare float64 `yaml:"per_share" json:"per_share"`
	PerTrade float64 `yaml:"per_trade" json:"per_trade"`
	Bps      float64 `yaml:"bps" json:"bps"`
}

// blended charges the sum of whichever components of Config are non-zero,
// so a config can combine e.g. a per-trade minimum with a bps schedule.
type blended struct {
	cfg Config
}

// New builds a commission Model from a Config.
func New(cfg Config) Model {
	return &blended{cfg: cfg}
}

func (b *blended) Calculate(quantity, notional float64) float64 {
	fee := b.cfg.PerTrade
	fee += b.cfg.PerShare * absFloat(quantity)
	fee += b.cfg.Bps / 10000.0 * absFloat(notional)

	return fee
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}

	return v
}

// InteractiveBrokerModel reproduces a tiered IBKR-like schedule: $0.005 per
// share, $1 minimum per trade.
type InteractiveBrokerModel struct{}

// NewInteractiveBroker creates the InteractiveBrokerModel.
func NewInteractiveBroker() Model {
	return &InteractiveBrokerModel{}
}

func (m *InteractiveBrokerModel) Calculate(quantity, _ float64) float64 {
	fee := 0.005 * absFloat(quantity)
	if fee < 1.0 {
		return 1.0
	}

	return fee
}

// ZeroModel charges no commission.
type ZeroModel struct{}

// NewZero creates the ZeroModel.
func NewZero() Model {
	return &ZeroModel{}
}

func (m *ZeroModel) Calculate(_, _ float64) float64 {
	return 0
}
