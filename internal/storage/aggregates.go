package storage

import (
	"context"
	"database/sql"

	"society/internal/core"
	"society/internal/ledger"
)

func (r *SQLiteRepository) SumPayments(ctx context.Context, f ledger.PaymentFilter) (core.Money, error) {
	var w where
	w.dateIn("payment_date", f.Year, f.Month)
	if f.FlatID != 0 {
		w.add("flat_id = ?", f.FlatID)
	}
	if f.BillingYear != 0 {
		w.add("billing_year = ?", f.BillingYear)
	}
	if f.BillingMonth != 0 {
		w.add("billing_month = ?", f.BillingMonth)
	}
	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM payments`+w.String(), w.args...).Scan(&total)
	if err != nil {
		return core.Money{}, storeErr("sum payments", err)
	}
	return core.Cents(total), nil
}

func (r *SQLiteRepository) SumExpenses(ctx context.Context, f ledger.ExpenseFilter) (core.Money, error) {
	var w where
	w.dateIn("date", f.Year, f.Month)
	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM expenses`+w.String(), w.args...).Scan(&total)
	if err != nil {
		return core.Money{}, storeErr("sum expenses", err)
	}
	return core.Cents(total), nil
}

func (r *SQLiteRepository) PaymentTotalsByMonth(ctx context.Context, year int) (map[int]core.Money, error) {
	from, to := dateRange(year, 0)
	return r.totalsByMonth(ctx, "payment totals by month",
		`SELECT CAST(substr(payment_date, 6, 2) AS INTEGER) AS m, SUM(amount_cents)
		 FROM payments WHERE payment_date BETWEEN ? AND ?
		 GROUP BY m`, from, to)
}

func (r *SQLiteRepository) ExpenseTotalsByMonth(ctx context.Context, year int) (map[int]core.Money, error) {
	from, to := dateRange(year, 0)
	return r.totalsByMonth(ctx, "expense totals by month",
		`SELECT CAST(substr(date, 6, 2) AS INTEGER) AS m, SUM(amount_cents)
		 FROM expenses WHERE date BETWEEN ? AND ?
		 GROUP BY m`, from, to)
}

func (r *SQLiteRepository) totalsByMonth(ctx context.Context, op, query string, args ...any) (map[int]core.Money, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(op, err)
	}
	defer rows.Close()

	out := map[int]core.Money{}
	for rows.Next() {
		var month int
		var total int64
		if err := rows.Scan(&month, &total); err != nil {
			return nil, storeErr(op, err)
		}
		out[month] = core.Cents(total)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(op, err)
	}
	return out, nil
}

func (r *SQLiteRepository) PaidByFlat(ctx context.Context, period core.Period) (map[int64]core.Money, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT flat_id, SUM(amount_cents) FROM payments
		 WHERE billing_year = ? AND billing_month = ?
		 GROUP BY flat_id`, period.Year, period.Month)
	if err != nil {
		return nil, storeErr("paid by flat", err)
	}
	defer rows.Close()

	out := map[int64]core.Money{}
	for rows.Next() {
		var flatID, total int64
		if err := rows.Scan(&flatID, &total); err != nil {
			return nil, storeErr("paid by flat", err)
		}
		out[flatID] = core.Cents(total)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("paid by flat", err)
	}
	return out, nil
}

func (r *SQLiteRepository) MonthlyPaymentTotals(ctx context.Context) ([]core.MonthTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT substr(payment_date, 1, 7) AS month, SUM(amount_cents)
		 FROM payments GROUP BY month ORDER BY month DESC`)
	if err != nil {
		return nil, storeErr("monthly payment totals", err)
	}
	defer rows.Close()

	out := []core.MonthTotal{}
	for rows.Next() {
		var mt core.MonthTotal
		var total int64
		if err := rows.Scan(&mt.Month, &total); err != nil {
			return nil, storeErr("monthly payment totals", err)
		}
		mt.Total = core.Cents(total)
		out = append(out, mt)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("monthly payment totals", err)
	}
	return out, nil
}

func (r *SQLiteRepository) ExpenseTrend(ctx context.Context) ([]core.ExpenseTrendRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT substr(date, 1, 7) AS month, title, SUM(amount_cents)
		 FROM expenses GROUP BY month, title ORDER BY month ASC, title ASC`)
	if err != nil {
		return nil, storeErr("expense trend", err)
	}
	defer rows.Close()

	out := []core.ExpenseTrendRow{}
	for rows.Next() {
		var tr core.ExpenseTrendRow
		var total int64
		if err := rows.Scan(&tr.Month, &tr.Title, &total); err != nil {
			return nil, storeErr("expense trend", err)
		}
		tr.Total = core.Cents(total)
		out = append(out, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("expense trend", err)
	}
	return out, nil
}

func (r *SQLiteRepository) UserActivity(ctx context.Context, f ledger.UserActivityFilter) ([]core.UserActivity, error) {
	payCond, expCond := "", ""
	var args []any
	if f.Period != nil {
		from, to := dateRange(f.Period.Year, f.Period.Month)
		payCond = " AND p.billing_year = ? AND p.billing_month = ?"
		expCond = " AND e.date BETWEEN ? AND ?"
		args = append(args, f.Period.Year, f.Period.Month, from, to)
	}
	userCond := ""
	if f.UserID != 0 {
		userCond = " WHERE u.id = ?"
		args = append(args, f.UserID)
	}
	query := `SELECT u.id, u.name, u.role,
		(SELECT COALESCE(SUM(p.amount_cents), 0) FROM payments p WHERE p.created_by = u.id` + payCond + `),
		(SELECT COALESCE(SUM(e.amount_cents), 0) FROM expenses e WHERE e.created_by = u.id` + expCond + `)
		FROM users u` + userCond + ` ORDER BY u.name, u.id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("user activity", err)
	}
	defer rows.Close()

	out := []core.UserActivity{}
	for rows.Next() {
		var a core.UserActivity
		var role string
		var pays, exps sql.NullInt64
		if err := rows.Scan(&a.UserID, &a.Name, &role, &pays, &exps); err != nil {
			return nil, storeErr("user activity", err)
		}
		a.Role = core.Role(role)
		a.TotalPayments = core.Cents(pays.Int64)
		a.TotalExpenses = core.Cents(exps.Int64)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("user activity", err)
	}
	return out, nil
}
