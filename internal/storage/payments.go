package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"society/internal/core"
	"society/internal/ledger"
)

const paymentViewSelect = `SELECT p.id, p.flat_id, p.amount_cents, p.mode, p.payment_date,
	p.billing_month, p.billing_year, p.remarks, p.created_by, p.updated_by,
	p.created_at, p.updated_at,
	COALESCE(f.flat_number, ''), COALESCE(f.owner_name, ''),
	COALESCE(cu.name, ''), COALESCE(uu.name, '')
	FROM payments p
	LEFT JOIN flats f ON f.id = p.flat_id
	LEFT JOIN users cu ON cu.id = p.created_by
	LEFT JOIN users uu ON uu.id = p.updated_by`

func scanPaymentView(s rowScanner) (core.PaymentView, error) {
	var v core.PaymentView
	var cents int64
	var date, created, updated string
	var createdBy, updatedBy sql.NullInt64
	err := s.Scan(&v.ID, &v.FlatID, &cents, &v.Mode, &date,
		&v.BillingMonth, &v.BillingYear, &v.Remarks, &createdBy, &updatedBy,
		&created, &updated,
		&v.FlatNumber, &v.OwnerName, &v.CreatedByName, &v.UpdatedByName)
	if err != nil {
		return core.PaymentView{}, err
	}
	if v.PaymentDate, err = parseStoredDate(date); err != nil {
		return core.PaymentView{}, err
	}
	v.AmountPaid = core.Cents(cents)
	v.CreatedBy, v.UpdatedBy = nullableID(createdBy), nullableID(updatedBy)
	v.CreatedAt, v.UpdatedAt = parseTimestamp(created), parseTimestamp(updated)
	return v, nil
}

func (r *SQLiteRepository) queryPaymentViews(ctx context.Context, op, query string, args ...any) ([]core.PaymentView, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(op, err)
	}
	defer rows.Close()

	out := []core.PaymentView{}
	for rows.Next() {
		v, err := scanPaymentView(rows)
		if err != nil {
			return nil, storeErr(op, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(op, err)
	}
	return out, nil
}

func (r *SQLiteRepository) CreatePayment(ctx context.Context, p core.Payment, actor core.Actor) (core.Payment, error) {
	err := r.withTx(ctx, "create payment", func(tx *sql.Tx) error {
		if err := flatExists(ctx, tx, p.FlatID); err != nil {
			return err
		}
		uid, err := resolveActor(ctx, tx, actor)
		if err != nil {
			return err
		}
		now := r.timestamp()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO payments (flat_id, amount_cents, mode, payment_date, billing_month,
				billing_year, remarks, created_by, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.FlatID, p.AmountPaid.Cents, p.Mode, p.PaymentDate.String(), p.BillingMonth,
			p.BillingYear, p.Remarks, uid, now, now)
		if err != nil {
			return storeErr("insert payment", err)
		}
		if p.ID, err = res.LastInsertId(); err != nil {
			return storeErr("insert payment", err)
		}
		p.CreatedBy, p.UpdatedBy = &uid, nil
		p.CreatedAt = parseTimestamp(now)
		p.UpdatedAt = p.CreatedAt
		return nil
	})
	if err != nil {
		return core.Payment{}, err
	}
	return p, nil
}

func (r *SQLiteRepository) UpdatePayment(ctx context.Context, p core.Payment, actor core.Actor) (core.Payment, error) {
	var out core.Payment
	err := r.withTx(ctx, "update payment", func(tx *sql.Tx) error {
		if err := flatExists(ctx, tx, p.FlatID); err != nil {
			return err
		}
		uid, err := resolveActor(ctx, tx, actor)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE payments SET flat_id = ?, amount_cents = ?, mode = ?, payment_date = ?,
				billing_month = ?, billing_year = ?, remarks = ?, updated_by = ?, updated_at = ?
			 WHERE id = ?`,
			p.FlatID, p.AmountPaid.Cents, p.Mode, p.PaymentDate.String(),
			p.BillingMonth, p.BillingYear, p.Remarks, uid, r.timestamp(), p.ID)
		if err != nil {
			return storeErr("update payment", err)
		}
		if err := expectRow(res, "payment", p.ID); err != nil {
			return err
		}
		v, err := scanPaymentView(tx.QueryRowContext(ctx, paymentViewSelect+` WHERE p.id = ?`, p.ID))
		if err != nil {
			return storeErr("reload payment", err)
		}
		out = v.Payment
		return nil
	})
	if err != nil {
		return core.Payment{}, err
	}
	return out, nil
}

func (r *SQLiteRepository) DeletePayment(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, id)
	if err != nil {
		return storeErr("delete payment", err)
	}
	return expectRow(res, "payment", id)
}

func (r *SQLiteRepository) GetPayment(ctx context.Context, id int64) (core.PaymentView, error) {
	v, err := scanPaymentView(r.db.QueryRowContext(ctx, paymentViewSelect+` WHERE p.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.PaymentView{}, core.NotFoundError("payment", id)
	}
	if err != nil {
		return core.PaymentView{}, storeErr("get payment", err)
	}
	return v, nil
}

// likeEscaper makes a search term match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListPayments pages through payments newest first. Search matches flat
// number or owner name; Month and Year match the billing period.
func (r *SQLiteRepository) ListPayments(ctx context.Context, q ledger.PaymentQuery) (ledger.PaymentPage, error) {
	q = q.Normalize()
	var w where
	if q.Search != "" {
		like := "%" + likeEscaper.Replace(q.Search) + "%"
		w.add(`(f.flat_number LIKE ? ESCAPE '\' OR f.owner_name LIKE ? ESCAPE '\')`, like, like)
	}
	if q.Month != 0 {
		w.add("p.billing_month = ?", q.Month)
	}
	if q.Year != 0 {
		w.add("p.billing_year = ?", q.Year)
	}

	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM payments p LEFT JOIN flats f ON f.id = p.flat_id`+w.String(),
		w.args...).Scan(&total)
	if err != nil {
		return ledger.PaymentPage{}, storeErr("count payments", err)
	}

	args := append(append([]any{}, w.args...), q.Limit, q.Offset())
	items, err := r.queryPaymentViews(ctx, "list payments",
		paymentViewSelect+w.String()+` ORDER BY p.payment_date DESC, p.id DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return ledger.PaymentPage{}, err
	}
	return ledger.NewPaymentPage(items, total, q), nil
}

func (r *SQLiteRepository) ListPaymentsByFlat(ctx context.Context, flatID int64) ([]core.PaymentView, error) {
	return r.queryPaymentViews(ctx, "list payments by flat",
		paymentViewSelect+` WHERE p.flat_id = ? ORDER BY p.payment_date DESC, p.id DESC`, flatID)
}

func (r *SQLiteRepository) ListPaymentsPaidIn(ctx context.Context, year, month int) ([]core.PaymentView, error) {
	from, to := dateRange(year, month)
	return r.queryPaymentViews(ctx, "list payments paid in period",
		paymentViewSelect+` WHERE p.payment_date BETWEEN ? AND ?
		ORDER BY p.payment_date ASC, p.id ASC`, from, to)
}

func flatExists(ctx context.Context, tx *sql.Tx, id int64) error {
	var found int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM flats WHERE id = ?`, id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return core.NotFoundError("flat", id)
	}
	if err != nil {
		return storeErr("lookup flat", err)
	}
	return nil
}
