// Package backtest wires the bar store, aggregator, strategy host, sizer,
// risk manager, portfolio, and execution handler into the imperative
// pipeline that drives a single backtest run from a bar source to a
// Result: each tick's bars flow through fills, aggregation, signal
// dispatch, sizing, risk checks, and order scheduling in a fixed sequence.
package backtest

import (
	"context"
	"iter"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rxtech-lab/backtestcore/internal/aggregator"
	"github.com/rxtech-lab/backtestcore/internal/barstore"
	"github.com/rxtech-lab/backtestcore/internal/commission"
	"github.com/rxtech-lab/backtestcore/internal/execution"
	"github.com/rxtech-lab/backtestcore/internal/logger"
	"github.com/rxtech-lab/backtestcore/internal/metrics"
	"github.com/rxtech-lab/backtestcore/internal/portfolio"
	"github.com/rxtech-lab/backtestcore/internal/risk"
	"github.com/rxtech-lab/backtestcore/internal/sizer"
	"github.com/rxtech-lab/backtestcore/internal/slippage"
	"github.com/rxtech-lab/backtestcore/internal/strategy"
	"github.com/rxtech-lab/backtestcore/internal/types"
	"github.com/rxtech-lab/backtestcore/pkg/errors"
)

// BarSource streams bars in non-decreasing timestamp order. It is a
// range-over-func iterator: a non-nil error on any yield stops the run
// immediately with that error.
type BarSource = iter.Seq2[types.Bar, error]

// RunStartFunc is invoked once, before the first bar is processed.
type RunStartFunc func(runID string, strategyCount int) error

// ProcessDataFunc is invoked after every tick (one or more same-timestamp
// bars) has been fully processed.
type ProcessDataFunc func(processedTicks int) error

// RunEndFunc is invoked once the run has finished, successfully or not.
type RunEndFunc func(runID string)

// LifecycleCallbacks are optional hooks a caller can install to observe a
// run's progress without changing the loop itself.
type LifecycleCallbacks struct {
	OnRunStart    RunStartFunc
	OnProcessData ProcessDataFunc
	OnRunEnd      RunEndFunc
}

// Rejection records an order the risk manager or order validation refused,
// and why.
type Rejection struct {
	Order     types.Order `yaml:"order" json:"order"`
	Reason    string      `yaml:"reason" json:"reason"`
	Timestamp time.Time   `yaml:"timestamp" json:"timestamp"`
}

// Result is everything a run produced: the equity curve, every fill, every
// rejected order, and the derived performance statistics.
type Result struct {
	RunID       string              `yaml:"run_id" json:"run_id"`
	EquityCurve []types.EquityPoint `yaml:"equity_curve" json:"equity_curve"`
	Fills       []types.Fill        `yaml:"fills" json:"fills"`
	Rejections  []Rejection         `yaml:"rejections" json:"rejections"`
	Stats       types.TradeStats    `yaml:"stats" json:"stats"`
}

// Engine owns every stateful component of a single backtest run. It is not
// safe for concurrent use and not reusable across runs; construct a new
// Engine per Run.
type Engine struct {
	cfg Config
	log *logger.Logger

	store   *barstore.BarStore
	agg     *aggregator.BarAggregator
	host    *strategy.Host
	sizer   sizer.Sizer
	riskMgr *risk.Manager
	port    *portfolio.Portfolio
	exec    *execution.Handler
	slip    *slippage.Model

	historyWindow int
}

// New constructs an Engine from cfg, loading every configured strategy by
// name via strategy.New and wiring the sizer, slippage, commission, and risk
// components cfg selects. It returns an error if cfg fails validation or any
// strategy name is unrecognized.
func New(cfg Config, log *logger.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	host := strategy.NewHost()
	higherFreqSet := make(map[types.Interval]bool)

	for _, sc := range cfg.Strategies {
		s, err := strategy.New(sc.Name, sc.Params)
		if err != nil {
			return nil, err
		}

		freqs := sc.Frequencies
		if len(freqs) == 0 {
			freqs = []types.Interval{cfg.BaseInterval}
		}

		hasBase := false

		for _, f := range freqs {
			if f == cfg.BaseInterval {
				hasBase = true
			} else {
				higherFreqSet[f] = true
			}
		}

		if !hasBase {
			freqs = append(freqs, cfg.BaseInterval)
		}

		host.Register(s, freqs)
	}

	higherFreqs := make([]types.Interval, 0, len(higherFreqSet))
	for f := range higherFreqSet {
		higherFreqs = append(higherFreqs, f)
	}

	sort.Slice(higherFreqs, func(i, j int) bool { return higherFreqs[i] < higherFreqs[j] })

	agg := aggregator.New(cfg.BaseInterval, higherFreqs)
	agg.Subscribe(host)

	var sz sizer.Sizer

	switch cfg.PositionSizer.Method {
	case SizerMethodATR:
		sz = sizer.NewATRSizer(sizer.ATRSizerConfig{
			Period:              cfg.PositionSizer.Period,
			AtrMultiplier:       cfg.PositionSizer.AtrMultiplier,
			RiskFraction:        cfg.PositionSizer.RiskPerTrade,
			InitialPositionSize: cfg.PositionSizer.InitialPositionSize,
			DecimalPlaces:       cfg.PositionSizer.DecimalPlaces,
		})
	default:
		sz = sizer.NewFixed(cfg.PositionSizer.FixedQuantity, cfg.PositionSizer.DecimalPlaces)
	}

	var slipModel *slippage.Model

	if cfg.Slippage.Model == SlippageModelMultiFactor {
		slipModel = slippage.New(cfg.SlippageModelConfig())
		slipModel.OnWarning(func(symbol string, err error) {
			log.Warn("slippage model fell back to a degraded estimate",
				zap.String("symbol", symbol), zap.Error(err))
		})
	}

	var execSlip execution.SlippageModel
	if slipModel != nil {
		execSlip = slipModel
	}

	exec := execution.New(commission.New(cfg.Commissions), execSlip)

	port := portfolio.New(portfolio.Config{
		InitialCash:            cfg.InitialCash,
		Shorting:               cfg.Shorting,
		ContinueOnNegativeCash: cfg.ContinueOnNegativeCash,
	})

	window := cfg.Slippage.LongVolWindow
	if window <= 0 {
		window = slippage.DefaultConfig().LongVolWindow
	}

	return &Engine{
		cfg:           cfg,
		log:           log,
		store:         barstore.New(),
		agg:           agg,
		host:          host,
		sizer:         sz,
		riskMgr:       risk.New(cfg.Risk),
		port:          port,
		exec:          exec,
		slip:          slipModel,
		historyWindow: window,
	}, nil
}

// Portfolio exposes the underlying portfolio for callers that want to
// inspect account state (e.g. AccountInfo) after or during a run.
func (e *Engine) Portfolio() *portfolio.Portfolio {
	return e.port
}

// Run drains source one bar at a time, grouping same-timestamp bars across
// symbols into a single tick processed in lexicographic symbol order, until
// the source is exhausted, ctx is canceled, or a fatal error occurs. On
// cancellation the run stops gracefully and returns whatever equity curve
// and fills had already accumulated, with a nil error.
func (e *Engine) Run(ctx context.Context, source BarSource, callbacks LifecycleCallbacks) (Result, error) {
	runID := uuid.New().String()
	result := Result{RunID: runID}

	if callbacks.OnRunStart != nil {
		if err := callbacks.OnRunStart(runID, len(e.host.Strategies())); err != nil {
			return result, err
		}
	}

	var (
		tickBars      []types.Bar
		tickTimestamp time.Time
		haveTick      bool
		processed     int
		realizedPnLs  []float64
		timestamps    []time.Time
		runErr        error
		canceled      bool
	)

	flush := func() error {
		if !haveTick {
			return nil
		}

		if err := e.processTick(tickBars, &result, &realizedPnLs); err != nil {
			return err
		}

		timestamps = append(timestamps, tickTimestamp)
		processed++

		if callbacks.OnProcessData != nil {
			if err := callbacks.OnProcessData(processed); err != nil {
				return err
			}
		}

		tickBars = tickBars[:0]

		return nil
	}

	source(func(bar types.Bar, err error) bool {
		if err != nil {
			runErr = err

			return false
		}

		if e.cfg.StartTime.IsSome() && bar.Timestamp.Before(e.cfg.StartTime.Unwrap()) {
			return true
		}

		if e.cfg.EndTime.IsSome() && bar.Timestamp.After(e.cfg.EndTime.Unwrap()) {
			return false
		}

		select {
		case <-ctx.Done():
			canceled = true

			return false
		default:
		}

		if haveTick && !bar.Timestamp.Equal(tickTimestamp) {
			if bar.Timestamp.Before(tickTimestamp) {
				runErr = dataGapError(bar, tickTimestamp)

				return false
			}

			if err := flush(); err != nil {
				runErr = err

				return false
			}

			haveTick = false
		}

		tickTimestamp = bar.Timestamp
		haveTick = true
		tickBars = append(tickBars, bar)

		return true
	})

	if runErr != nil {
		if callbacks.OnRunEnd != nil {
			callbacks.OnRunEnd(runID)
		}

		return result, runErr
	}

	if !canceled {
		if err := flush(); err != nil {
			if callbacks.OnRunEnd != nil {
				callbacks.OnRunEnd(runID)
			}

			return result, err
		}
	}

	if callbacks.OnRunEnd != nil {
		callbacks.OnRunEnd(runID)
	}

	result.EquityCurve = e.port.EquityCurve()

	metricsCfg := metrics.Config{
		AnnualizationFactor: e.annualizationFactor(),
		TradingDaysPerYear:  e.cfg.Shorting.TradingDaysPerYear,
	}

	result.Stats = metrics.Compute(metricsCfg, result.EquityCurve, timestamps, result.Fills, e.cfg.InitialCash, realizedPnLs)
	result.Stats.ID = runID

	return result, nil
}

// processTick runs one timestamp's worth of bars through the full pipeline:
// draining fills scheduled from the prior tick, ingesting and aggregating,
// dispatching signals, sizing, risk-checking, scheduling new orders, filling
// market-on-close orders on day boundaries, and marking to market exactly
// once.
func (e *Engine) processTick(bars []types.Bar, result *Result, realizedPnLs *[]float64) error {
	sort.Slice(bars, func(i, j int) bool { return bars[i].Symbol < bars[j].Symbol })

	tickTS := bars[0].Timestamp

	for _, bar := range bars {
		fills := e.exec.DrainMarketOrdersForSymbol(bar.Symbol, bar, e.historyFor(bar))
		if err := e.applyFills(fills, result, realizedPnLs); err != nil {
			return err
		}
	}

	if err := e.port.CheckUsableCash(); err != nil {
		if !e.cfg.ContinueOnNegativeCash {
			return err
		}

		e.log.Warn("usable cash negative, continuing per configuration",
			zap.Float64("usable_cash", e.port.UsableCash()))
	}

	for _, bar := range bars {
		if err := e.store.Append(bar); err != nil {
			return err
		}

		e.agg.OnBaseBarClose(bar)
	}

	pendingBySymbol := make(map[string][]types.Signal)
	for _, sig := range e.host.DrainPending() {
		pendingBySymbol[sig.Symbol] = append(pendingBySymbol[sig.Symbol], sig)
	}

	equity := e.port.Equity()

	for _, bar := range bars {
		signals := e.host.Dispatch(bar.Symbol, e.cfg.BaseInterval, bar)
		signals = append(signals, pendingBySymbol[bar.Symbol]...)

		direction := types.SignalFlat
		if len(signals) > 0 {
			direction = signals[len(signals)-1].Direction
		}

		// The sizer runs every bar for every symbol regardless of whether a
		// real signal fired, so its internal volatility state (Wilder ATR's
		// warm-up buffer) advances on schedule; only a real signal turns the
		// resulting target into an order.
		targetHolding := e.sizer.Size(bar.Symbol, bar, direction, equity)

		if len(signals) == 0 {
			continue
		}

		if err := e.routeSignal(bar, targetHolding, result); err != nil {
			return err
		}
	}

	isEOD := aggregator.IsLastIntervalOfDay(tickTS, e.cfg.BaseInterval)

	if isEOD {
		for _, bar := range bars {
			fills := e.exec.DrainMarketOnCloseForSymbol(bar.Symbol, bar, true, e.historyFor(bar))
			if err := e.applyFills(fills, result, realizedPnLs); err != nil {
				return err
			}
		}
	}

	bundle := e.lastPrices(bars)

	e.port.MarkToMarket(bundle, tickTS)

	if isEOD {
		e.port.EndOfDay(bundle)
	}

	return nil
}

// routeSignal turns a sized signal into an order, reserves cash for it, runs
// it through the risk manager, and either schedules it with the execution
// handler or records why it was rejected.
func (e *Engine) routeSignal(bar types.Bar, targetHolding float64, result *Result) error {
	orderID := uuid.New().String()

	order := e.port.OnSignal(bar.Symbol, targetHolding, bar.Close, e.cfg.OrderCostBuffer, orderID)
	if order.Quantity == 0 {
		return nil
	}

	order.Timestamp = bar.Timestamp

	if err := order.Validate(); err != nil {
		e.port.ReleaseReservation(order.ID)
		result.Rejections = append(result.Rejections, Rejection{
			Order: order, Reason: "invalid_order", Timestamp: bar.Timestamp,
		})

		return nil
	}

	lastPrices := e.lastPrices([]types.Bar{bar})

	approved, reason := e.riskMgr.Evaluate(order, bar.Close, bar.Volume, e.port, lastPrices, bar.Timestamp)
	if !approved {
		e.port.ReleaseReservation(order.ID)
		result.Rejections = append(result.Rejections, Rejection{
			Order: order, Reason: reason, Timestamp: bar.Timestamp,
		})

		return nil
	}

	e.exec.Schedule(order)

	return nil
}

// applyFills posts a batch of fills to the portfolio, collecting the
// realized PnL and appending each fill to result, and fails the run if a
// fill drives usable cash negative and ContinueOnNegativeCash is unset.
func (e *Engine) applyFills(fills []types.Fill, result *Result, realizedPnLs *[]float64) error {
	for _, fill := range fills {
		pnl, err := e.port.OnFill(fill)

		result.Fills = append(result.Fills, fill)
		*realizedPnLs = append(*realizedPnLs, pnl)

		if err != nil && !e.cfg.ContinueOnNegativeCash {
			return err
		}
	}

	return nil
}

// historyFor returns the trailing bar window ending in bar itself, oldest
// first, for feeding the slippage model. It works whether bar has already
// been appended to the store (the market-on-close path, later in the same
// tick) or not yet (the market-order path, at the very start of the tick).
func (e *Engine) historyFor(bar types.Bar) []types.Bar {
	n := e.historyWindow
	if n < 2 {
		n = 2
	}

	prior := e.store.LastN(bar.Symbol, e.cfg.BaseInterval, n)

	if len(prior) > 0 && prior[len(prior)-1].Timestamp.Equal(bar.Timestamp) {
		return prior
	}

	if len(prior) >= n {
		prior = prior[1:]
	}

	history := make([]types.Bar, 0, len(prior)+1)
	history = append(history, prior...)
	history = append(history, bar)

	return history
}

// lastPrices maps every symbol in bars to its close, plus every symbol the
// portfolio currently holds a position in to its most recently stored close,
// for exposure checks and mark-to-market bundles that must cover positions
// with no bar in the current tick.
func (e *Engine) lastPrices(bars []types.Bar) map[string]float64 {
	prices := make(map[string]float64, len(bars))

	for _, b := range bars {
		prices[b.Symbol] = b.Close
	}

	for _, symbol := range e.port.Symbols() {
		if _, ok := prices[symbol]; ok {
			continue
		}

		if last, ok := e.store.Last(symbol, e.cfg.BaseInterval); ok {
			prices[symbol] = last.Close
		}
	}

	return prices
}

// annualizationFactor picks the factor metrics.Compute uses for Sharpe,
// matching whatever the slippage model was calibrated to when one is
// active, and otherwise falling back to the configured override or the
// standard 252 trading days.
func (e *Engine) annualizationFactor() float64 {
	if e.slip != nil {
		return e.cfg.SlippageModelConfig().Annualization
	}

	if e.cfg.Slippage.AnnualizationFactor > 0 {
		return e.cfg.Slippage.AnnualizationFactor
	}

	return 252
}

func dataGapError(bar types.Bar, tickTimestamp time.Time) error {
	return errors.Newf(errors.ErrCodeDataGap,
		"bar for %s at %s arrived out of order after tick at %s", bar.Symbol, bar.Timestamp, tickTimestamp)
}
