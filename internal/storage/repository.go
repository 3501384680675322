// Package storage is the SQLite Ledger Store.
//
// Amounts are INTEGER cents, calendar dates are TEXT in YYYY-MM-DD form and
// audit timestamps are RFC 3339 UTC strings. Driver failures are returned as
// *core.StoreError so callers can tell them apart from missing records.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"society/internal/core"
	"society/internal/ledger"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ ledger.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return NewWithDB(db), nil
}

// NewWithDB wraps an open database whose schema is already migrated.
func NewWithDB(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

func dsn(path string) string {
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return storeErr("ping", err)
	}
	return nil
}

// GetConfig returns "" for unknown keys.
func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", storeErr("get config", err)
	}
	return value, nil
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO config (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return storeErr("set config", err)
	}
	return nil
}

func (r *SQLiteRepository) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr(op, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return storeErr(op, err)
	}
	return nil
}

// resolveActor returns the user id a write is attributed to. It runs inside
// the write's transaction so a concurrently deleted admin is never referenced.
func resolveActor(ctx context.Context, tx *sql.Tx, a core.Actor) (int64, error) {
	var id int64
	if a.Source != core.ActorFallback {
		err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id = ?`, a.UserID).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, core.NotFoundError("user", a.UserID)
		}
		if err != nil {
			return 0, storeErr("resolve actor", err)
		}
		return id, nil
	}
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM users WHERE role = 'admin' ORDER BY id LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("system admin: %w", core.ErrNotFound)
	}
	if err != nil {
		return 0, storeErr("resolve fallback actor", err)
	}
	return id, nil
}

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%s: %w", op, core.ErrConflict)
	}
	return &core.StoreError{Op: op, Err: err}
}

// dateRange turns a year and optional month into a closed [from, through]
// interval over YYYY-MM-DD strings. The bound is inclusive so year 9999
// never needs a five-digit year.
func dateRange(year, month int) (string, string) {
	if month == 0 {
		return core.NewDate(year, 1, 1).String(), core.NewDate(year, 12, 31).String()
	}
	start := core.Period{Year: year, Month: month}.Start()
	return start.Format(core.DateLayout), start.AddDate(0, 1, -1).Format(core.DateLayout)
}

// where collects AND-combined conditions.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, args ...any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) dateIn(column string, year, month int) {
	if year == 0 {
		return
	}
	from, to := dateRange(year, month)
	w.add(column+" BETWEEN ? AND ?", from, to)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func (r *SQLiteRepository) timestamp() string {
	return r.now().UTC().Format(time.RFC3339)
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseStoredDate(s string) (core.Date, error) {
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, &core.StoreError{Op: "decode date", Err: fmt.Errorf("bad stored date %q", s)}
	}
	return d, nil
}

func nullableID(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
