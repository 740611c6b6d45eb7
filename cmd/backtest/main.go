// Command backtest runs an event-driven backtest from a YAML config and one
// CSV file per symbol, printing the resulting trade statistics and
// optionally persisting the full run to a DuckDB database.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/backtestcore/internal/backtest"
	csvsource "github.com/rxtech-lab/backtestcore/internal/datasource/csv"
	"github.com/rxtech-lab/backtestcore/internal/logger"
	"github.com/rxtech-lab/backtestcore/internal/report"
	"github.com/rxtech-lab/backtestcore/internal/store"
	"github.com/rxtech-lab/backtestcore/internal/types"
)

func listCSVFiles(pattern string) ([]string, error) {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to glob %q: %w", pattern, err)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no CSV files matched %q", pattern)
	}

	return files, nil
}

func loadConfig(path string) (backtest.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return backtest.Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := backtest.EmptyConfig()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return backtest.Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return cfg, nil
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	defer log.Sync() //nolint:errcheck

	cfg, err := loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	engine, err := backtest.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to construct engine: %w", err)
	}

	files, err := listCSVFiles(cmd.String("data"))
	if err != nil {
		return err
	}

	source := csvsource.NewSource(files, cfg.BaseInterval)

	callbacks := backtest.LifecycleCallbacks{
		OnRunStart: func(runID string, strategyCount int) error {
			log.Info("starting backtest run", zap.String("run_id", runID), zap.Int("strategies", strategyCount))

			return nil
		},
		OnRunEnd: func(runID string) {
			log.Info("finished backtest run", zap.String("run_id", runID))
		},
	}

	result, err := engine.Run(ctx, source.Bars(), callbacks)
	if err != nil {
		return fmt.Errorf("backtest run failed: %w", err)
	}

	if err := printSummary(result); err != nil {
		return err
	}

	if statsPath := cmd.String("stats-out"); statsPath != "" {
		if err := types.WriteTradeStats(statsPath, result.Stats); err != nil {
			return fmt.Errorf("failed to write trade stats: %w", err)
		}
	}

	if outDir := cmd.String("csv-out"); outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("failed to create csv output directory: %w", err)
		}

		if err := report.WriteResult(outDir, result); err != nil {
			return fmt.Errorf("failed to write equity curve/trade log csv: %w", err)
		}
	}

	if dbPath := cmd.String("db"); dbPath != "" {
		if err := persistResult(dbPath, result, log); err != nil {
			return err
		}
	}

	return nil
}

func persistResult(dbPath string, result backtest.Result, log *logger.Logger) error {
	db, err := store.Open(dbPath, log)
	if err != nil {
		return fmt.Errorf("failed to open run store: %w", err)
	}

	defer db.Close() //nolint:errcheck

	if err := db.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize run store: %w", err)
	}

	if err := db.SaveResult(result.RunID, result); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	return nil
}

func printSummary(result backtest.Result) error {
	fmt.Printf("run: %s\n", result.RunID)
	fmt.Printf("final equity: %.2f\n", result.Stats.FinalEquity)
	fmt.Printf("cagr: %.4f  sharpe: %.4f  max drawdown: %.4f\n",
		result.Stats.CAGR, result.Stats.Sharpe, result.Stats.Drawdown.MaxDrawdown)
	fmt.Printf("trades: %d  win rate: %.4f  turnover: %.4f  total fees: %.2f\n",
		result.Stats.NumberOfTrades, result.Stats.WinRate, result.Stats.Turnover, result.Stats.TotalFees)
	fmt.Printf("rejections: %d\n", len(result.Rejections))

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "backtest",
		Usage: "Run an event-driven backtest against CSV bar data",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "Path to the backtest config YAML file",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Glob pattern matching one CSV file per symbol",
				Value:   "./data/*.csv",
			},
			&cli.StringFlag{
				Name:  "stats-out",
				Usage: "Optional path to write the run's trade statistics as YAML",
			},
			&cli.StringFlag{
				Name:  "csv-out",
				Usage: "Optional directory to write equity_curve.csv and trades.csv into",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "Optional DuckDB file to persist the run's fills, equity curve, and rejections into",
			},
		},
		Action: runAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
