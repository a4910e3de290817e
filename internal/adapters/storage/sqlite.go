package storage

// sqlite.go — histórico de runs del backtest.
//
// Estrategia:
//   - `runs`: una fila por run con parámetros, rango de la serie y resumen.
//   - `orders`: el blotter del run, en el orden exacto en que se generó (seq).
//   - `ledger`: una fila por trade; las columnas de trades abiertos quedan NULL.
//   - Un run se escribe entero en una transacción: o está completo o no existe.
//   - Las fechas de negocio se guardan como TEXT YYYY-MM-DD para no depender de la
//     zona horaria del driver.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alejandrodnm/blotter/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id              TEXT PRIMARY KEY,
    asset           TEXT    NOT NULL,
    alpha1          REAL    NOT NULL,
    n1              INTEGER NOT NULL,
    alpha2          REAL    NOT NULL,
    n2              INTEGER NOT NULL,
    created_at      TEXT    NOT NULL,
    first_date      TEXT    NOT NULL,
    last_date       TEXT    NOT NULL,
    bars            INTEGER NOT NULL DEFAULT 0,
    trades          INTEGER NOT NULL DEFAULT 0,
    successes       INTEGER NOT NULL DEFAULT 0,
    failures        INTEGER NOT NULL DEFAULT 0,
    no_entries      INTEGER NOT NULL DEFAULT 0,
    open_trades     INTEGER NOT NULL DEFAULT 0,
    success_rate    REAL    NOT NULL DEFAULT 0,
    mean_log_return REAL    NOT NULL DEFAULT 0,
    with_return     INTEGER NOT NULL DEFAULT 0,
    next_entry_date TEXT,
    next_entry_px   REAL
);

CREATE TABLE IF NOT EXISTS orders (
    run_id   TEXT    NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    seq      INTEGER NOT NULL,
    trade_id INTEGER NOT NULL,
    date     TEXT    NOT NULL,
    asset    TEXT    NOT NULL,
    trip     TEXT    NOT NULL,
    action   TEXT    NOT NULL,
    type     TEXT    NOT NULL,
    price    REAL    NOT NULL,
    status   TEXT    NOT NULL,
    PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS ledger (
    run_id      TEXT    NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    trade_id    INTEGER NOT NULL,
    asset       TEXT    NOT NULL,
    dt_enter    TEXT    NOT NULL,
    dt_exit     TEXT,
    success     INTEGER,
    n           INTEGER,
    entry_price REAL,
    exit_price  REAL,
    rtn         REAL,
    PRIMARY KEY (run_id, trade_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_asset   ON runs(asset, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);
`

// createdLayout tiene ancho fijo para que el orden de TEXT sea el cronológico.
const createdLayout = "2006-01-02T15:04:05.000000000Z"

// ErrRunNotFound indica que no existe un run con el ID pedido.
var ErrRunNotFound = errors.New("run not found")

// SQLiteStorage implementa ports.RunStorage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada y aplica el schema.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// dsn activa foreign_keys en cada conexión que abra el pool, no solo en la primera.
func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)"
}

// SaveRun persiste cabecera, blotter y ledger del run en una sola transacción.
// Guardar dos veces el mismo ID es un error.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run domain.Run) error {
	if run.ID == "" {
		return fmt.Errorf("storage.SaveRun: empty run id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: begin tx: %w", err)
	}
	defer tx.Rollback()

	var nextDate sql.NullString
	var nextPx sql.NullFloat64
	if run.NextEntry != nil {
		nextDate = sql.NullString{String: domain.FormatDate(run.NextEntry.Date), Valid: true}
		nextPx = sql.NullFloat64{Float64: run.NextEntry.Price, Valid: true}
	}

	sum := run.Summary
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs
			(id, asset, alpha1, n1, alpha2, n2, created_at, first_date, last_date, bars,
			 trades, successes, failures, no_entries, open_trades, success_rate,
			 mean_log_return, with_return, next_entry_date, next_entry_px)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Asset,
		run.Params.Alpha1, run.Params.N1, run.Params.Alpha2, run.Params.N2,
		run.CreatedAt.UTC().Format(createdLayout),
		domain.FormatDate(run.FirstDate), domain.FormatDate(run.LastDate), run.Bars,
		sum.Trades, sum.Successes, sum.Failures, sum.NoEntries, sum.Open,
		sum.SuccessRate, sum.MeanLogReturn, sum.WithReturn,
		nextDate, nextPx,
	); err != nil {
		return fmt.Errorf("storage.SaveRun: insert run %s: %w", run.ID, err)
	}

	if err := insertOrders(ctx, tx, run.ID, run.Orders); err != nil {
		return fmt.Errorf("storage.SaveRun: %w", err)
	}
	if err := insertLedger(ctx, tx, run.ID, run.Ledger); err != nil {
		return fmt.Errorf("storage.SaveRun: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveRun: commit: %w", err)
	}
	return nil
}

func insertOrders(ctx context.Context, tx *sql.Tx, runID string, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO orders (run_id, seq, trade_id, date, asset, trip, action, type, price, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare orders: %w", err)
	}
	defer stmt.Close()

	for i, o := range orders {
		if _, err := stmt.ExecContext(ctx,
			runID, i, o.TradeID, domain.FormatDate(o.Date), o.Asset,
			string(o.Leg), string(o.Action), string(o.Type), o.Price, string(o.Status),
		); err != nil {
			return fmt.Errorf("insert order %d (trade %d): %w", i, o.TradeID, err)
		}
	}
	return nil
}

func insertLedger(ctx context.Context, tx *sql.Tx, runID string, entries []domain.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ledger (run_id, trade_id, asset, dt_enter, dt_exit, success, n, entry_price, exit_price, rtn)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare ledger: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		var exit sql.NullString
		if e.ExitDate != nil {
			exit = sql.NullString{String: domain.FormatDate(*e.ExitDate), Valid: true}
		}
		var success, n sql.NullInt64
		if e.Outcome != nil {
			success = sql.NullInt64{Int64: int64(*e.Outcome), Valid: true}
		}
		if e.HoldingDays != nil {
			n = sql.NullInt64{Int64: int64(*e.HoldingDays), Valid: true}
		}

		if _, err := stmt.ExecContext(ctx,
			runID, e.TradeID, e.Asset, domain.FormatDate(e.EntryDate), exit, success, n,
			nullFloat(e.EntryPrice), nullFloat(e.ExitPrice), nullFloat(e.LogReturn),
		); err != nil {
			return fmt.Errorf("insert ledger trade %d: %w", e.TradeID, err)
		}
	}
	return nil
}

const runColumns = `
	id, asset, alpha1, n1, alpha2, n2, created_at, first_date, last_date, bars,
	trades, successes, failures, no_entries, open_trades, success_rate,
	mean_log_return, with_return, next_entry_date, next_entry_px`

// GetRun devuelve un run completo. ErrRunNotFound si el ID no existe.
func (s *SQLiteStorage) GetRun(ctx context.Context, runID string) (domain.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Run{}, fmt.Errorf("storage.GetRun: %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return domain.Run{}, fmt.Errorf("storage.GetRun: %w", err)
	}

	if run.Orders, err = s.loadOrders(ctx, runID); err != nil {
		return domain.Run{}, fmt.Errorf("storage.GetRun: %w", err)
	}
	if run.Ledger, err = s.loadLedger(ctx, runID); err != nil {
		return domain.Run{}, fmt.Errorf("storage.GetRun: %w", err)
	}
	return run, nil
}

// ListRuns devuelve las cabeceras de los runs, los más recientes primero.
// asset vacío lista todos los activos.
func (s *SQLiteStorage) ListRuns(ctx context.Context, asset string) ([]domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if asset != "" {
		query += ` WHERE asset = ?`
		args = append(args, asset)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.ListRuns: query: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.ListRuns: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Prune elimina los runs creados antes de now-olderThan y devuelve cuántos borró.
// Órdenes y ledger caen en cascada.
func (s *SQLiteStorage) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(createdLayout)
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("storage.Prune: %w", err)
	}
	return res.RowsAffected()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (domain.Run, error) {
	var (
		run                  domain.Run
		created, first, last string
		nextDate             sql.NullString
		nextPx               sql.NullFloat64
	)
	if err := sc.Scan(
		&run.ID, &run.Asset,
		&run.Params.Alpha1, &run.Params.N1, &run.Params.Alpha2, &run.Params.N2,
		&created, &first, &last, &run.Bars,
		&run.Summary.Trades, &run.Summary.Successes, &run.Summary.Failures,
		&run.Summary.NoEntries, &run.Summary.Open, &run.Summary.SuccessRate,
		&run.Summary.MeanLogReturn, &run.Summary.WithReturn,
		&nextDate, &nextPx,
	); err != nil {
		return domain.Run{}, err
	}
	run.Params.Asset = run.Asset

	var err error
	if run.CreatedAt, err = time.Parse(createdLayout, created); err != nil {
		return domain.Run{}, fmt.Errorf("run %s: created_at %q: %w", run.ID, created, err)
	}
	if run.FirstDate, err = domain.ParseDate(first); err != nil {
		return domain.Run{}, fmt.Errorf("run %s: first_date %q: %w", run.ID, first, err)
	}
	if run.LastDate, err = domain.ParseDate(last); err != nil {
		return domain.Run{}, fmt.Errorf("run %s: last_date %q: %w", run.ID, last, err)
	}

	if nextDate.Valid {
		d, err := domain.ParseDate(nextDate.String)
		if err != nil {
			return domain.Run{}, fmt.Errorf("run %s: next_entry_date %q: %w", run.ID, nextDate.String, err)
		}
		run.NextEntry = &domain.Order{
			TradeID: run.Bars,
			Date:    d,
			Asset:   run.Asset,
			Leg:     domain.LegEnter,
			Action:  domain.ActionBuy,
			Type:    domain.OrderLimit,
			Price:   nextPx.Float64,
			Status:  domain.StatusLive,
		}
	}
	return run, nil
}

func (s *SQLiteStorage) loadOrders(ctx context.Context, runID string) ([]domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT trade_id, date, asset, trip, action, type, price, status
		FROM orders WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var (
			o                          domain.Order
			date, leg, action, typ, st string
		)
		if err := rows.Scan(&o.TradeID, &date, &o.Asset, &leg, &action, &typ, &o.Price, &st); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		if o.Date, err = domain.ParseDate(date); err != nil {
			return nil, fmt.Errorf("order date %q: %w", date, err)
		}
		o.Leg = domain.Leg(leg)
		o.Action = domain.Action(action)
		o.Type = domain.OrderType(typ)
		o.Status = domain.OrderStatus(st)
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (s *SQLiteStorage) loadLedger(ctx context.Context, runID string) ([]domain.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT trade_id, asset, dt_enter, dt_exit, success, n, entry_price, exit_price, rtn
		FROM ledger WHERE run_id = ? ORDER BY trade_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var (
			e                   domain.LedgerEntry
			enter               string
			exit                sql.NullString
			success, n          sql.NullInt64
			entryPx, exitPx, rt sql.NullFloat64
		)
		if err := rows.Scan(&e.TradeID, &e.Asset, &enter, &exit, &success, &n, &entryPx, &exitPx, &rt); err != nil {
			return nil, fmt.Errorf("scan ledger: %w", err)
		}
		if e.EntryDate, err = domain.ParseDate(enter); err != nil {
			return nil, fmt.Errorf("ledger dt_enter %q: %w", enter, err)
		}
		if exit.Valid {
			d, err := domain.ParseDate(exit.String)
			if err != nil {
				return nil, fmt.Errorf("ledger dt_exit %q: %w", exit.String, err)
			}
			e.ExitDate = &d
		}
		if success.Valid {
			o := domain.Outcome(success.Int64)
			e.Outcome = &o
		}
		if n.Valid {
			v := int(n.Int64)
			e.HoldingDays = &v
		}
		e.EntryPrice = floatPtr(entryPx)
		e.ExitPrice = floatPtr(exitPx)
		e.LogReturn = floatPtr(rt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
