package backtest

import (
	"testing"

	"github.com/rxtech-lab/backtestcore/internal/types"
	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) validConfig() Config {
	cfg := EmptyConfig()
	cfg.InitialCash = 10000
	cfg.Strategies = []StrategyConfig{{Name: "buy_and_hold"}}

	return cfg
}

func (suite *ConfigTestSuite) TestValidateAcceptsMinimalConfig() {
	cfg := suite.validConfig()
	suite.NoError(cfg.Validate())
}

func (suite *ConfigTestSuite) TestValidateRejectsMissingStrategies() {
	cfg := suite.validConfig()
	cfg.Strategies = nil

	suite.Error(cfg.Validate())
}

func (suite *ConfigTestSuite) TestValidateRejectsMissingBaseInterval() {
	cfg := suite.validConfig()
	cfg.BaseInterval = ""

	suite.Error(cfg.Validate())
}

func (suite *ConfigTestSuite) TestValidateRejectsNegativeInitialCash() {
	cfg := suite.validConfig()
	cfg.InitialCash = -1

	suite.Error(cfg.Validate())
}

func (suite *ConfigTestSuite) TestValidateRequiresAnnualizationOverrideForNonDailyMultiFactor() {
	cfg := suite.validConfig()
	cfg.BaseInterval = types.Interval1Hour
	cfg.Slippage = SlippageConfig{Model: SlippageModelMultiFactor}

	suite.Error(cfg.Validate())

	cfg.Slippage.AnnualizationFactor = 252 * 7
	suite.NoError(cfg.Validate())
}

func (suite *ConfigTestSuite) TestUnmarshalYAMLRoundTripsOrderCostBufferAndTimeBounds() {
	raw := []byte(`
initial_cash: 5000
base_interval: 1d
order_cost_buffer: 0.01
start_time: 2024-01-01T00:00:00Z
strategies:
  - name: buy_and_hold
position_sizer:
  method: fixed
  fixed_quantity: 10
slippage:
  model: none
`)

	cfg := EmptyConfig()
	suite.NoError(yaml.Unmarshal(raw, &cfg))

	suite.Equal(5000.0, cfg.InitialCash)
	suite.InDelta(0.01, cfg.OrderCostBuffer, 1e-9)
	suite.True(cfg.StartTime.IsSome())
	suite.True(cfg.EndTime.IsNone())
}

func (suite *ConfigTestSuite) TestGetConfigSchemaProducesNonEmptyDocument() {
	cfg := suite.validConfig()

	schema, err := cfg.GetConfigSchema()
	suite.NoError(err)
	suite.Contains(schema, "backtest-config")
}
