package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dyike/CortexQuant/models"
)

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// Store keeps the history of backtest runs.
type Store struct {
	db *sql.DB
}

// RunRecord describes one stored backtest.
type RunRecord struct {
	ID             int64
	StockCode      string
	CompanyName    string
	StartDate      string
	EndDate        string
	Frequency      string
	DataSource     string
	InitialCapital float64
	FinalValue     float64
	TotalReturn    float64
	SharpeRatio    float64
	MaxDrawdown    float64
	TotalTrades    int
	WinningTrades  int
	CreatedAt      string
}

// Run is a stored backtest with its series.
type Run struct {
	RunRecord
	DailyValues  []models.ValuationPoint
	Transactions []models.Transaction
}

// Performance rebuilds the result the run was saved from. Derived
// statistics that are not stored stay zero.
func (r *Run) Performance() *models.Performance {
	return &models.Performance{
		InitialCapital: r.InitialCapital,
		FinalValue:     r.FinalValue,
		TotalReturn:    r.TotalReturn,
		TotalProfit:    r.FinalValue - r.InitialCapital,
		SharpeRatio:    r.SharpeRatio,
		MaxDrawdown:    r.MaxDrawdown,
		TotalTrades:    r.TotalTrades,
		WinningTrades:  r.WinningTrades,
		DailyValues:    r.DailyValues,
		Transactions:   r.Transactions,
	}
}

func Open(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("db path is required")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_loc=Local&_foreign_keys=on&_busy_timeout=3000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=3000;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", p, err)
		}
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    stock_code TEXT NOT NULL,
    company_name TEXT,
    start_date TEXT NOT NULL,
    end_date TEXT NOT NULL,
    frequency TEXT NOT NULL,
    data_source TEXT,
    initial_capital REAL NOT NULL,
    final_value REAL NOT NULL,
    total_return REAL NOT NULL,
    sharpe_ratio REAL NOT NULL,
    max_drawdown REAL NOT NULL,
    total_trades INTEGER NOT NULL,
    winning_trades INTEGER NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS valuations (
    run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    date TEXT NOT NULL,
    portfolio_value REAL NOT NULL,
    cash REAL NOT NULL,
    stock_value REAL NOT NULL,
    PRIMARY KEY(run_id, seq)
);

CREATE TABLE IF NOT EXISTS transactions (
    run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    date TEXT NOT NULL,
    stock_code TEXT NOT NULL,
    action TEXT NOT NULL,
    shares REAL NOT NULL,
    price REAL NOT NULL,
    amount REAL NOT NULL,
    confidence REAL NOT NULL,
    PRIMARY KEY(run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_runs_stock_code ON runs(stock_code, id);
`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// SaveRun stores rec together with the series of perf in one transaction
// and returns the new run id. The summary columns of rec are taken from
// perf.
func (s *Store) SaveRun(ctx context.Context, rec RunRecord, perf *models.Performance) (id int64, err error) {
	if perf == nil {
		return 0, fmt.Errorf("performance is required")
	}
	if strings.TrimSpace(rec.StockCode) == "" {
		return 0, fmt.Errorf("stock code is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
INSERT INTO runs (stock_code, company_name, start_date, end_date, frequency, data_source,
    initial_capital, final_value, total_return, sharpe_ratio, max_drawdown, total_trades, winning_trades)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, rec.StockCode, rec.CompanyName, rec.StartDate, rec.EndDate, rec.Frequency, rec.DataSource,
		perf.InitialCapital, perf.FinalValue, perf.TotalReturn, perf.SharpeRatio, perf.MaxDrawdown,
		perf.TotalTrades, perf.WinningTrades)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}

	for i, v := range perf.DailyValues {
		if _, err = tx.ExecContext(ctx, `
INSERT INTO valuations (run_id, seq, date, portfolio_value, cash, stock_value)
VALUES (?, ?, ?, ?, ?, ?)
`, id, i, v.Date, v.PortfolioValue, v.Cash, v.StockValue); err != nil {
			return 0, fmt.Errorf("insert valuation %s: %w", v.Date, err)
		}
	}
	for i, t := range perf.Transactions {
		if _, err = tx.ExecContext(ctx, `
INSERT INTO transactions (run_id, seq, date, stock_code, action, shares, price, amount, confidence)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, id, i, t.Date, t.StockCode, string(t.Action), t.Shares, t.Price, t.Amount, t.Confidence); err != nil {
			return 0, fmt.Errorf("insert transaction %s: %w", t.Date, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

const runColumns = `id, stock_code, company_name, start_date, end_date, frequency, data_source,
    initial_capital, final_value, total_return, sharpe_ratio, max_drawdown, total_trades, winning_trades, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunRecord, error) {
	var rec RunRecord
	var company, source sql.NullString
	var created time.Time
	err := row.Scan(&rec.ID, &rec.StockCode, &company, &rec.StartDate, &rec.EndDate, &rec.Frequency, &source,
		&rec.InitialCapital, &rec.FinalValue, &rec.TotalReturn, &rec.SharpeRatio, &rec.MaxDrawdown,
		&rec.TotalTrades, &rec.WinningTrades, &created)
	rec.CompanyName = company.String
	rec.DataSource = source.String
	rec.CreatedAt = created.Format("2006-01-02 15:04:05")
	return rec, err
}

// ListRuns returns runs newest first, optionally filtered by stock code.
func (s *Store) ListRuns(ctx context.Context, stockCode string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT `+runColumns+`
FROM runs
WHERE (? = '' OR stock_code = ?)
ORDER BY id DESC
LIMIT ?
`, stockCode, stockCode, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs rows: %w", err)
	}
	return runs, nil
}

// GetRun loads a run with its valuations and transactions in stored order.
func (s *Store) GetRun(ctx context.Context, id int64) (*Run, error) {
	rec, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("get run: %w", err)
	}
	run := &Run{RunRecord: rec}

	rows, err := s.db.QueryContext(ctx, `
SELECT date, portfolio_value, cash, stock_value
FROM valuations
WHERE run_id = ?
ORDER BY seq ASC
`, id)
	if err != nil {
		return nil, fmt.Errorf("list valuations: %w", err)
	}
	for rows.Next() {
		var v models.ValuationPoint
		if err := rows.Scan(&v.Date, &v.PortfolioValue, &v.Cash, &v.StockValue); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan valuation: %w", err)
		}
		run.DailyValues = append(run.DailyValues, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list valuations rows: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `
SELECT date, stock_code, action, shares, price, amount, confidence
FROM transactions
WHERE run_id = ?
ORDER BY seq ASC
`, id)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t models.Transaction
		var action string
		if err := rows.Scan(&t.Date, &t.StockCode, &action, &t.Shares, &t.Price, &t.Amount, &t.Confidence); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Action = models.Action(action)
		run.Transactions = append(run.Transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions rows: %w", err)
	}
	return run, nil
}

// DeleteRun removes a run and its series.
func (s *Store) DeleteRun(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	return nil
}
