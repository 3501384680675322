package storage

import (
	"context"
	"database/sql"
	"errors"

	"society/internal/core"
	"society/internal/ledger"
)

const flatColumns = `id, flat_number, owner_name, phone_number, floor, flat_type,
	maintenance_cents, ownership_type, status`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFlat(s rowScanner) (core.Flat, error) {
	var f core.Flat
	var cents int64
	var ownership, status string
	if err := s.Scan(&f.ID, &f.FlatNumber, &f.OwnerName, &f.PhoneNumber, &f.Floor, &f.FlatType,
		&cents, &ownership, &status); err != nil {
		return core.Flat{}, err
	}
	f.MaintenanceAmount = core.Cents(cents)
	f.OwnershipType = core.OwnershipType(ownership)
	f.Status = core.FlatStatus(status)
	return f, nil
}

// ListFlats returns flats in natural flat number order.
func (r *SQLiteRepository) ListFlats(ctx context.Context, f ledger.FlatFilter) ([]core.Flat, error) {
	var w where
	if f.Status != "" {
		w.add("status = ?", string(f.Status))
	}
	if f.OwnershipType != "" {
		w.add("ownership_type = ?", string(f.OwnershipType))
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+flatColumns+` FROM flats`+w.String(), w.args...)
	if err != nil {
		return nil, storeErr("list flats", err)
	}
	defer rows.Close()

	out := []core.Flat{}
	for rows.Next() {
		fl, err := scanFlat(rows)
		if err != nil {
			return nil, storeErr("list flats", err)
		}
		out = append(out, fl)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list flats", err)
	}
	core.SortFlats(out)
	return out, nil
}

func (r *SQLiteRepository) GetFlat(ctx context.Context, id int64) (core.Flat, error) {
	fl, err := scanFlat(r.db.QueryRowContext(ctx, `SELECT `+flatColumns+` FROM flats WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Flat{}, core.NotFoundError("flat", id)
	}
	if err != nil {
		return core.Flat{}, storeErr("get flat", err)
	}
	return fl, nil
}

func (r *SQLiteRepository) CreateFlat(ctx context.Context, f core.Flat) (core.Flat, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO flats (flat_number, owner_name, phone_number, floor, flat_type,
			maintenance_cents, ownership_type, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.FlatNumber, f.OwnerName, f.PhoneNumber, f.Floor, f.FlatType,
		f.MaintenanceAmount.Cents, string(f.OwnershipType), string(f.Status))
	if err != nil {
		return core.Flat{}, storeErr("create flat", err)
	}
	if f.ID, err = res.LastInsertId(); err != nil {
		return core.Flat{}, storeErr("create flat", err)
	}
	return f, nil
}

func (r *SQLiteRepository) UpdateFlat(ctx context.Context, f core.Flat) (core.Flat, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE flats SET flat_number = ?, owner_name = ?, phone_number = ?, floor = ?,
			flat_type = ?, maintenance_cents = ?, ownership_type = ?, status = ?
		 WHERE id = ?`,
		f.FlatNumber, f.OwnerName, f.PhoneNumber, f.Floor, f.FlatType,
		f.MaintenanceAmount.Cents, string(f.OwnershipType), string(f.Status), f.ID)
	if err != nil {
		return core.Flat{}, storeErr("update flat", err)
	}
	if err := expectRow(res, "flat", f.ID); err != nil {
		return core.Flat{}, err
	}
	return f, nil
}

// DeleteFlat removes the flat; its payments go with it.
func (r *SQLiteRepository) DeleteFlat(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM flats WHERE id = ?`, id)
	if err != nil {
		return storeErr("delete flat", err)
	}
	return expectRow(res, "flat", id)
}

func expectRow(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr(entity+" rows affected", err)
	}
	if n == 0 {
		return core.NotFoundError(entity, id)
	}
	return nil
}
