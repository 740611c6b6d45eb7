// Package store persists a completed backtest run's fills, equity curve,
// rejections, and summary statistics into an embedded DuckDB database, and
// exports them to Parquet for downstream analysis.
package store

import (
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/rxtech-lab/backtestcore/internal/backtest"
	"github.com/rxtech-lab/backtestcore/internal/logger"
	"github.com/rxtech-lab/backtestcore/internal/types"
)

// Store owns a DuckDB connection scoped to one or more backtest runs, keyed
// by run_id in every table so a single database can accumulate history
// across repeated invocations.
type Store struct {
	db  *sql.DB
	log *logger.Logger
	sq  squirrel.StatementBuilderType
}

// Open creates a Store backed by the DuckDB file at path, or an in-memory
// database if path is empty.
func Open(path string, log *logger.Logger) (*Store, error) {
	dsn := ":memory:"
	if path != "" {
		dsn = path
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb database: %w", err)
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Store{
		db:  db,
		log: log,
		sq:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Initialize creates the fills, equity_curve, rejections, and runs tables if
// they do not already exist.
func (s *Store) Initialize() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			started_at TIMESTAMP,
			final_equity DOUBLE,
			cagr DOUBLE,
			sharpe DOUBLE,
			max_drawdown DOUBLE,
			turnover DOUBLE,
			number_of_trades INTEGER,
			win_rate DOUBLE,
			total_fees DOUBLE
		)`,
		`CREATE TABLE IF NOT EXISTS fills (
			run_id TEXT,
			order_id TEXT,
			symbol TEXT,
			side TEXT,
			quantity DOUBLE,
			fill_price DOUBLE,
			commission DOUBLE,
			slippage DOUBLE,
			timestamp TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS equity_curve (
			run_id TEXT,
			timestamp TIMESTAMP,
			cash DOUBLE,
			reserved_cash DOUBLE,
			margin_locked DOUBLE,
			position_value DOUBLE,
			equity DOUBLE
		)`,
		`CREATE TABLE IF NOT EXISTS rejections (
			run_id TEXT,
			order_id TEXT,
			symbol TEXT,
			side TEXT,
			quantity DOUBLE,
			reason TEXT,
			timestamp TIMESTAMP
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// SaveResult persists every table of result under runID in a single
// transaction.
func (s *Store) SaveResult(runID string, result backtest.Result) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := s.insertRun(tx, runID, result.Stats); err != nil {
		tx.Rollback()

		return err
	}

	if err := s.insertFills(tx, runID, result.Fills); err != nil {
		tx.Rollback()

		return err
	}

	if err := s.insertEquityCurve(tx, runID, result.EquityCurve); err != nil {
		tx.Rollback()

		return err
	}

	if err := s.insertRejections(tx, runID, result.Rejections); err != nil {
		tx.Rollback()

		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", runID, err)
	}

	s.log.Info("saved backtest run", zap.String("run_id", runID),
		zap.Int("fills", len(result.Fills)), zap.Int("rejections", len(result.Rejections)))

	return nil
}

func (s *Store) insertRun(tx *sql.Tx, runID string, stats types.TradeStats) error {
	_, err := s.sq.
		Insert("runs").
		Columns("run_id", "started_at", "final_equity", "cagr", "sharpe", "max_drawdown",
			"turnover", "number_of_trades", "win_rate", "total_fees").
		Values(runID, stats.Timestamp, stats.FinalEquity, stats.CAGR, stats.Sharpe, stats.Drawdown.MaxDrawdown,
			stats.Turnover, stats.NumberOfTrades, stats.WinRate, stats.TotalFees).
		RunWith(tx).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", runID, err)
	}

	return nil
}

func (s *Store) insertFills(tx *sql.Tx, runID string, fills []types.Fill) error {
	if len(fills) == 0 {
		return nil
	}

	insert := s.sq.
		Insert("fills").
		Columns("run_id", "order_id", "symbol", "side", "quantity", "fill_price", "commission", "slippage", "timestamp")

	for _, f := range fills {
		insert = insert.Values(runID, f.OrderID, f.Symbol, f.Side, f.Quantity, f.FillPrice, f.Commission, f.Slippage, f.Timestamp)
	}

	if _, err := insert.RunWith(tx).Exec(); err != nil {
		return fmt.Errorf("failed to insert fills for run %s: %w", runID, err)
	}

	return nil
}

func (s *Store) insertEquityCurve(tx *sql.Tx, runID string, points []types.EquityPoint) error {
	if len(points) == 0 {
		return nil
	}

	insert := s.sq.
		Insert("equity_curve").
		Columns("run_id", "timestamp", "cash", "reserved_cash", "margin_locked", "position_value", "equity")

	for _, p := range points {
		insert = insert.Values(runID, p.Timestamp, p.Cash, p.ReservedCash, p.MarginLocked, p.PositionValue, p.Equity)
	}

	if _, err := insert.RunWith(tx).Exec(); err != nil {
		return fmt.Errorf("failed to insert equity curve for run %s: %w", runID, err)
	}

	return nil
}

func (s *Store) insertRejections(tx *sql.Tx, runID string, rejections []backtest.Rejection) error {
	if len(rejections) == 0 {
		return nil
	}

	insert := s.sq.
		Insert("rejections").
		Columns("run_id", "order_id", "symbol", "side", "quantity", "reason", "timestamp")

	for _, r := range rejections {
		insert = insert.Values(runID, r.Order.ID, r.Order.Symbol, r.Order.Side, r.Order.Quantity, r.Reason, r.Timestamp)
	}

	if _, err := insert.RunWith(tx).Exec(); err != nil {
		return fmt.Errorf("failed to insert rejections for run %s: %w", runID, err)
	}

	return nil
}

// GetStats returns the summary row stored for runID.
func (s *Store) GetStats(runID string) (types.TradeStats, error) {
	row := s.sq.
		Select("run_id", "started_at", "final_equity", "cagr", "sharpe", "max_drawdown",
			"turnover", "number_of_trades", "win_rate", "total_fees").
		From("runs").
		Where(squirrel.Eq{"run_id": runID}).
		RunWith(s.db).
		QueryRow()

	var stats types.TradeStats

	err := row.Scan(&stats.ID, &stats.Timestamp, &stats.FinalEquity, &stats.CAGR, &stats.Sharpe,
		&stats.Drawdown.MaxDrawdown, &stats.Turnover, &stats.NumberOfTrades, &stats.WinRate, &stats.TotalFees)
	if err != nil {
		return types.TradeStats{}, fmt.Errorf("failed to query run %s: %w", runID, err)
	}

	return stats, nil
}

// ExportParquet dumps every table to a Parquet file under dir, named after
// the table.
func (s *Store) ExportParquet(dir string) error {
	for _, table := range []string{"runs", "fills", "equity_curve", "rejections"} {
		path := filepath.Join(dir, table+".parquet")

		if _, err := s.db.Exec(fmt.Sprintf(`COPY %s TO '%s' (FORMAT PARQUET)`, table, path)); err != nil {
			return fmt.Errorf("failed to export %s to parquet: %w", table, err)
		}
	}

	return nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
