package repo

import (
	"context"
	"database/sql"

	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/domain"
)

func (r Repo) InsertUser(ctx context.Context, tx *sql.Tx, u domain.User) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO users(id,email,name,role,created_at) VALUES (?,?,?,?,?)`,
		u.ID, u.Email, u.Name, u.Role, u.CreatedAt)
	return err
}

func (r Repo) GetUser(ctx context.Context, id string) (domain.User, error) {
	var u domain.User
	err := r.DB.QueryRowContext(ctx, `SELECT id,email,name,role,created_at FROM users WHERE id=?`, id).
		Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	return u, err
}

func (r Repo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var u domain.User
	err := r.DB.QueryRowContext(ctx, `SELECT id,email,name,role,created_at FROM users WHERE email=?`, email).
		Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	return u, err
}

func (r Repo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,email,name,role,created_at FROM users ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (r Repo) DeleteUser(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM group_members WHERE user_id=?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) InsertGroup(ctx context.Context, tx *sql.Tx, g domain.Group) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO groups(id,name) VALUES (?,?)`, g.ID, g.Name)
	return err
}

func (r Repo) GetGroup(ctx context.Context, id string) (domain.Group, error) {
	var g domain.Group
	err := r.DB.QueryRowContext(ctx, `SELECT id,name FROM groups WHERE id=?`, id).Scan(&g.ID, &g.Name)
	if err == sql.ErrNoRows {
		return g, ErrNotFound
	}
	return g, err
}

func (r Repo) AddGroupMember(ctx context.Context, tx *sql.Tx, groupID, userID string) error {
	_, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO group_members(group_id,user_id) VALUES (?,?)`, groupID, userID)
	return err
}

func (r Repo) ListGroupMembers(ctx context.Context, groupID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT user_id FROM group_members WHERE group_id=?`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r Repo) DeleteGroup(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM group_members WHERE group_id=?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM groups WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
