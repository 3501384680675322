package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"society/internal/core"
)

const userColumns = `id, name, email, username, mobile, password_hash, role, status`

func scanUser(s rowScanner) (core.User, error) {
	var u core.User
	var role string
	if err := s.Scan(&u.ID, &u.Name, &u.Email, &u.Username, &u.Mobile, &u.PasswordHash, &role, &u.Status); err != nil {
		return core.User{}, err
	}
	u.Role = core.Role(role)
	return u, nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	if u.Status == "" {
		u.Status = "Active"
	}
	now := r.timestamp()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (name, email, username, mobile, password_hash, role, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Name, u.Email, u.Username, u.Mobile, u.PasswordHash, string(u.Role), u.Status, now, now)
	if err != nil {
		return core.User{}, storeErr("create user", err)
	}
	if u.ID, err = res.LastInsertId(); err != nil {
		return core.User{}, storeErr("create user", err)
	}
	return u, nil
}

// UpdateUser changes profile fields and role; the password hash is kept.
func (r *SQLiteRepository) UpdateUser(ctx context.Context, u core.User) (core.User, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = ?, email = ?, username = ?, mobile = ?, role = ?,
			status = COALESCE(NULLIF(?, ''), status), updated_at = ?
		 WHERE id = ?`,
		u.Name, u.Email, u.Username, u.Mobile, string(u.Role), u.Status, r.timestamp(), u.ID)
	if err != nil {
		return core.User{}, storeErr("update user", err)
	}
	if err := expectRow(res, "user", u.ID); err != nil {
		return core.User{}, err
	}
	return r.GetUser(ctx, u.ID)
}

func (r *SQLiteRepository) DeleteUser(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return storeErr("delete user", err)
	}
	return expectRow(res, "user", id)
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.NotFoundError("user", id)
	}
	if err != nil {
		return core.User{}, storeErr("get user", err)
	}
	return u, nil
}

func (r *SQLiteRepository) FindUserByLogin(ctx context.Context, login string) (core.User, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return core.User{}, fmt.Errorf("user %q: %w", login, core.ErrNotFound)
	}
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE email = ? COLLATE NOCASE OR username = ? OR mobile = ?
		 ORDER BY id LIMIT 1`, login, login, login))
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, fmt.Errorf("user %q: %w", login, core.ErrNotFound)
	}
	if err != nil {
		return core.User{}, storeErr("find user", err)
	}
	return u, nil
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id DESC`)
	if err != nil {
		return nil, storeErr("list users", err)
	}
	defer rows.Close()

	out := []core.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, storeErr("list users", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list users", err)
	}
	return out, nil
}

func (r *SQLiteRepository) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`, hash, r.timestamp(), id)
	if err != nil {
		return storeErr("set password", err)
	}
	return expectRow(res, "user", id)
}
