package storage

import (
	"context"
	"database/sql"
	"errors"

	"society/internal/core"
	"society/internal/ledger"
)

const expenseColumns = `id, title, description, amount_cents, date, paid_by,
	created_by, updated_by, created_at, updated_at`

func scanExpense(s rowScanner) (core.Expense, error) {
	var e core.Expense
	var cents int64
	var date, created, updated string
	var createdBy, updatedBy sql.NullInt64
	err := s.Scan(&e.ID, &e.Title, &e.Description, &cents, &date, &e.PaidBy,
		&createdBy, &updatedBy, &created, &updated)
	if err != nil {
		return core.Expense{}, err
	}
	if e.Date, err = parseStoredDate(date); err != nil {
		return core.Expense{}, err
	}
	e.Amount = core.Cents(cents)
	e.CreatedBy, e.UpdatedBy = nullableID(createdBy), nullableID(updatedBy)
	e.CreatedAt, e.UpdatedAt = parseTimestamp(created), parseTimestamp(updated)
	return e, nil
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense, actor core.Actor) (core.Expense, error) {
	err := r.withTx(ctx, "create expense", func(tx *sql.Tx) error {
		uid, err := resolveActor(ctx, tx, actor)
		if err != nil {
			return err
		}
		now := r.timestamp()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO expenses (title, description, amount_cents, date, paid_by,
				created_by, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.Title, e.Description, e.Amount.Cents, e.Date.String(), e.PaidBy, uid, now, now)
		if err != nil {
			return storeErr("insert expense", err)
		}
		if e.ID, err = res.LastInsertId(); err != nil {
			return storeErr("insert expense", err)
		}
		e.CreatedBy, e.UpdatedBy = &uid, nil
		e.CreatedAt = parseTimestamp(now)
		e.UpdatedAt = e.CreatedAt
		return nil
	})
	if err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense, actor core.Actor) (core.Expense, error) {
	var out core.Expense
	err := r.withTx(ctx, "update expense", func(tx *sql.Tx) error {
		uid, err := resolveActor(ctx, tx, actor)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE expenses SET title = ?, description = ?, amount_cents = ?, date = ?,
				paid_by = ?, updated_by = ?, updated_at = ?
			 WHERE id = ?`,
			e.Title, e.Description, e.Amount.Cents, e.Date.String(), e.PaidBy, uid, r.timestamp(), e.ID)
		if err != nil {
			return storeErr("update expense", err)
		}
		if err := expectRow(res, "expense", e.ID); err != nil {
			return err
		}
		out, err = scanExpense(tx.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, e.ID))
		if err != nil {
			return storeErr("reload expense", err)
		}
		return nil
	})
	if err != nil {
		return core.Expense{}, err
	}
	return out, nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return storeErr("delete expense", err)
	}
	return expectRow(res, "expense", id)
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	e, err := scanExpense(r.db.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.NotFoundError("expense", id)
	}
	if err != nil {
		return core.Expense{}, storeErr("get expense", err)
	}
	return e, nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, f ledger.ExpenseFilter) ([]core.Expense, error) {
	var w where
	w.dateIn("date", f.Year, f.Month)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses`+w.String()+` ORDER BY date DESC, id DESC`, w.args...)
	if err != nil {
		return nil, storeErr("list expenses", err)
	}
	defer rows.Close()

	out := []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, storeErr("list expenses", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list expenses", err)
	}
	return out, nil
}
