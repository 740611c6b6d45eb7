package strategy

import "github.com/rxtech-lab/backtestcore/pkg/errors"

// Factory constructs a named, illustrative Strategy from a loosely-typed
// params map, the way a config-driven loader instantiates a strategy by
// name. Only the two example strategies shipped with the core are known
// here; the set is fixed, there is no registration hook, and any other name
// returns an ErrCodeInvalidConfiguration error.
func New(name string, params map[string]any) (Strategy, error) {
	switch name {
	case "buy_and_hold":
		return NewBuyAndHold(stringParam(params, "symbol", "")), nil
	case "sma_crossover":
		short := intParam(params, "short_period", 5)
		long := intParam(params, "long_period", 20)

		return NewSMACrossover(short, long), nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unknown strategy %q", name)
	}
}

func stringParam(params map[string]any, key, def string) string {
	v, ok := params[key]
	if !ok {
		return def
	}

	s, ok := v.(string)
	if !ok {
		return def
	}

	return s
}

func intParam(params map[string]any, key string, def int) int {
	v, ok := params[key]
	if !ok {
		return def
	}

	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return def
	}
}
