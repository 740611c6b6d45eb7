package backtest

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/backtestcore/internal/commission"
	"github.com/rxtech-lab/backtestcore/internal/portfolio"
	"github.com/rxtech-lab/backtestcore/internal/risk"
	"github.com/rxtech-lab/backtestcore/internal/slippage"
	"github.com/rxtech-lab/backtestcore/internal/types"
	"github.com/rxtech-lab/backtestcore/pkg/errors"
)

// SizerMethod selects which position-sizing algorithm a run uses.
type SizerMethod string

const (
	SizerMethodATR   SizerMethod = "atr"
	SizerMethodFixed SizerMethod = "fixed"
)

// AllSizerMethods lists every SizerMethod value, used for schema enum
// generation and CLI validation the way the teacher's commission_fee
// package lists AllBrokers.
var AllSizerMethods = []any{SizerMethodATR, SizerMethodFixed}

// SlippageModelKind selects the slippage model a run uses.
type SlippageModelKind string

const (
	SlippageModelNone        SlippageModelKind = "none"
	SlippageModelMultiFactor SlippageModelKind = "multi_factor"
)

// AllSlippageModels lists every SlippageModelKind value.
var AllSlippageModels = []any{SlippageModelNone, SlippageModelMultiFactor}

// PositionSizerConfig parametrizes whichever Sizer method is selected; only
// the fields relevant to Method are consulted.
type PositionSizerConfig struct {
	Method              SizerMethod `yaml:"method" json:"method" jsonschema:"title=Sizing Method,description=atr or fixed" validate:"required,oneof=atr fixed"`
	Period              int         `yaml:"period" json:"period" jsonschema:"title=ATR Period,description=Wilder ATR smoothing period"`
	AtrMultiplier       float64     `yaml:"atr_multiplier" json:"atr_multiplier" jsonschema:"title=ATR Multiplier,description=Multiplies ATR to derive the stop distance"`
	RiskPerTrade        float64     `yaml:"risk_per_trade" json:"risk_per_trade" jsonschema:"title=Risk Per Trade,description=Fraction of equity risked per trade"`
	InitialPositionSize float64     `yaml:"initial_position_size" json:"initial_position_size" jsonschema:"title=Initial Position Size,description=Fallback size before ATR warm-up completes"`
	DecimalPlaces       int         `yaml:"decimal_places" json:"decimal_places" jsonschema:"title=Decimal Places,description=Rounding precision applied to the sized quantity"`
	FixedQuantity       float64     `yaml:"fixed_quantity" json:"fixed_quantity" jsonschema:"title=Fixed Quantity,description=Constant magnitude used by the fixed sizer"`
}

// SlippageConfig selects and parametrizes the slippage model.
type SlippageConfig struct {
	Model               SlippageModelKind `yaml:"model" json:"model" jsonschema:"title=Slippage Model,description=none or multi_factor" validate:"required,oneof=none multi_factor"`
	ShortVolWindow      int               `yaml:"short_vol_window" json:"short_vol_window"`
	MediumVolWindow     int               `yaml:"medium_vol_window" json:"medium_vol_window"`
	LongVolWindow       int               `yaml:"long_vol_window" json:"long_vol_window"`
	VolumeWindow        int               `yaml:"volume_window" json:"volume_window"`
	NoiseSigma          float64           `yaml:"noise_sigma" json:"noise_sigma"`
	Floor               float64           `yaml:"floor" json:"floor"`
	Cap                 float64           `yaml:"cap" json:"cap"`
	ImpactCoefficient   float64           `yaml:"impact_coefficient" json:"impact_coefficient"`
	AnnualizationFactor float64           `yaml:"annualization_factor" json:"annualization_factor" jsonschema:"title=Annualization Factor,description=Must be set explicitly for non-daily base intervals"`
}

// StrategyConfig names a strategy to load, its construction parameters, and
// the intervals it should be notified on (its own base interval plus any
// higher frequency it wants aggregated bars for).
type StrategyConfig struct {
	Name        string           `yaml:"name" json:"name" validate:"required"`
	Params      map[string]any   `yaml:"params" json:"params"`
	Frequencies []types.Interval `yaml:"frequencies" json:"frequencies"`
}

// Config is the full configuration surface of a backtest run, following the
// teacher's BacktestEngineV1Config pattern: a custom UnmarshalYAML, an
// EmptyConfig constructor, and JSON-schema generation via
// GetConfigSchema.
type Config struct {
	InitialCash            float64                  `yaml:"initial_cash" json:"initial_cash" jsonschema:"title=Initial Cash,minimum=0" validate:"gte=0"`
	BaseInterval           types.Interval           `yaml:"base_interval" json:"base_interval" validate:"required"`
	Strategies             []StrategyConfig         `yaml:"strategies" json:"strategies" validate:"required,min=1,dive"`
	PositionSizer          PositionSizerConfig      `yaml:"position_sizer" json:"position_sizer"`
	Slippage               SlippageConfig           `yaml:"slippage" json:"slippage"`
	Commissions            commission.Config        `yaml:"commissions" json:"commissions"`
	Risk                   risk.Config              `yaml:"risk" json:"risk"`
	Shorting               portfolio.ShortingConfig `yaml:"shorting" json:"shorting"`
	ContinueOnNegativeCash bool                     `yaml:"continue_on_negative_cash" json:"continue_on_negative_cash"`
	// OrderCostBuffer inflates the estimated cost reserved against usable
	// cash for a not-yet-filled order, guarding against the fill price
	// landing worse than the last close by the time the order actually
	// executes.
	OrderCostBuffer float64                    `yaml:"order_cost_buffer" json:"order_cost_buffer" jsonschema:"title=Order Cost Buffer,description=Fractional buffer applied when reserving cash for a pending order"`
	RNGSeed         int64                      `yaml:"rng_seed" json:"rng_seed"`
	StartTime       optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional inclusive lower bound on bar timestamps"`
	EndTime         optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional inclusive upper bound on bar timestamps"`
}

// UnmarshalYAML implements custom unmarshaling for Config, following the
// teacher's BacktestEngineV1Config.UnmarshalYAML pattern of decoding
// optional.Option[time.Time] fields through plain pointers.
func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type plain struct {
		InitialCash            float64                  `yaml:"initial_cash"`
		BaseInterval           types.Interval           `yaml:"base_interval"`
		Strategies             []StrategyConfig         `yaml:"strategies"`
		PositionSizer          PositionSizerConfig      `yaml:"position_sizer"`
		Slippage               SlippageConfig           `yaml:"slippage"`
		Commissions            commission.Config        `yaml:"commissions"`
		Risk                   risk.Config              `yaml:"risk"`
		Shorting               portfolio.ShortingConfig `yaml:"shorting"`
		ContinueOnNegativeCash bool                     `yaml:"continue_on_negative_cash"`
		OrderCostBuffer        float64                  `yaml:"order_cost_buffer"`
		RNGSeed                int64                    `yaml:"rng_seed"`
		StartTime              *time.Time               `yaml:"start_time"`
		EndTime                *time.Time               `yaml:"end_time"`
	}

	var p plain
	if err := unmarshal(&p); err != nil {
		return err
	}

	c.InitialCash = p.InitialCash
	c.BaseInterval = p.BaseInterval
	c.Strategies = p.Strategies
	c.PositionSizer = p.PositionSizer
	c.Slippage = p.Slippage
	c.Commissions = p.Commissions
	c.Risk = p.Risk
	c.Shorting = p.Shorting
	c.ContinueOnNegativeCash = p.ContinueOnNegativeCash
	c.OrderCostBuffer = p.OrderCostBuffer
	c.RNGSeed = p.RNGSeed

	if p.StartTime != nil {
		c.StartTime = optional.Some(*p.StartTime)
	} else {
		c.StartTime = optional.None[time.Time]()
	}

	if p.EndTime != nil {
		c.EndTime = optional.Some(*p.EndTime)
	} else {
		c.EndTime = optional.None[time.Time]()
	}

	return nil
}

// EmptyConfig returns a Config with zero-valued/disabled defaults, the way
// the teacher's EmptyConfig starts every field at its safe zero value.
func EmptyConfig() Config {
	return Config{
		BaseInterval: types.Interval1Day,
		Slippage:     SlippageConfig{Model: SlippageModelNone},
		PositionSizer: PositionSizerConfig{
			Method:        SizerMethodFixed,
			FixedQuantity: 0,
			DecimalPlaces: 0,
		},
		Risk: risk.Config{
			MaxOrderQuantity:   -1,
			MaxNotional:        -1,
			MaxDailyDrawdown:   -1,
			MaxGrossExposure:   -1,
			MaxNetExposure:     -1,
			MaxPercentOfVolume: -1,
			MaxOrdersPerWindow: -1,
		},
		Shorting: portfolio.ShortingConfig{
			TradingDaysPerYear: 252,
		},
		StartTime: optional.None[time.Time](),
		EndTime:   optional.None[time.Time](),
	}
}

// Validate checks the configuration against its struct tags and the
// slippage/base-interval interaction the spec calls out as a fail-loud
// condition: multi-factor slippage assumes a daily annualization factor
// unless the caller has explicitly overridden it for a non-daily base
// interval.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid backtest config", err)
	}

	if c.Slippage.Model == SlippageModelMultiFactor &&
		c.BaseInterval != types.Interval1Day &&
		c.Slippage.AnnualizationFactor <= 0 {
		return errors.Newf(errors.ErrCodeInvalidConfiguration,
			"multi_factor slippage is calibrated for daily data; base_interval %q requires an explicit slippage.annualization_factor override", c.BaseInterval)
	}

	return nil
}

// GenerateSchema builds a JSON schema for Config, following the teacher's
// BacktestEngineV1Config.GenerateSchema Mapper pattern for optional.Option
// and string-enum fields.
func (c *Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{Type: "string", Format: "date-time"}
			}

			switch t.String() {
			case "backtest.SizerMethod":
				return &jsonschema.Schema{Type: "string", Enum: AllSizerMethods}
			case "backtest.SlippageModelKind":
				return &jsonschema.Schema{Type: "string", Enum: AllSlippageModels}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)
	schema.Title = "backtest-config"
	schema.Description = "Configuration schema for the backtesting engine"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GetConfigSchema generates a JSON schema string for Config, following the
// teacher's Engine.GetConfigSchema interface method.
func (c *Config) GetConfigSchema() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal config schema: %w", err)
	}

	return string(schemaBytes), nil
}

// SlippageModelConfig converts the config's SlippageConfig into a
// slippage.Config, filling any unset window with the daily defaults.
func (c *Config) SlippageModelConfig() slippage.Config {
	defaults := slippage.DefaultConfig()

	cfg := slippage.Config{
		ShortVolWindow:  orDefault(c.Slippage.ShortVolWindow, defaults.ShortVolWindow),
		MediumVolWindow: orDefault(c.Slippage.MediumVolWindow, defaults.MediumVolWindow),
		LongVolWindow:   orDefault(c.Slippage.LongVolWindow, defaults.LongVolWindow),
		VolumeWindow:    orDefault(c.Slippage.VolumeWindow, defaults.VolumeWindow),
		Annualization:   c.Slippage.AnnualizationFactor,
		ImpactCoeff:     orDefaultF(c.Slippage.ImpactCoefficient, defaults.ImpactCoeff),
		NoiseSigma:      orDefaultF(c.Slippage.NoiseSigma, defaults.NoiseSigma),
		FloorFrac:       c.Slippage.Floor,
		CapFrac:         orDefaultF(c.Slippage.Cap, defaults.CapFrac),
		RNGSeed:         c.RNGSeed,
	}

	if cfg.Annualization <= 0 {
		cfg.Annualization = defaults.Annualization
	}

	return cfg
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}

	return v
}

func orDefaultF(v, def float64) float64 {
	if v <= 0 {
		return def
	}

	return v
}
