package repo

import (
	"context"
	"database/sql"
	"strings"

	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/domain"
)

const okrColumns = `id,type,title,target_value,current_value,status,created_at,updated_at`

func scanOKR(scan func(dest ...any) error) (domain.OKR, error) {
	var o domain.OKR
	var target, current sql.NullFloat64
	err := scan(&o.ID, &o.Type, &o.Title, &target, &current, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err == sql.ErrNoRows {
		return o, ErrNotFound
	}
	if err != nil {
		return o, err
	}
	if target.Valid {
		o.TargetValue = &target.Float64
	}
	if current.Valid {
		o.CurrentValue = &current.Float64
	}
	return o, nil
}

func (r Repo) InsertOKR(ctx context.Context, tx *sql.Tx, o domain.OKR) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO okrs(`+okrColumns+`) VALUES (?,?,?,?,?,?,?,?)`,
		o.ID, o.Type, o.Title, nullableFloatPtr(o.TargetValue), nullableFloatPtr(o.CurrentValue), o.Status, o.CreatedAt, o.UpdatedAt)
	return err
}

func (r Repo) GetOKR(ctx context.Context, id string) (domain.OKR, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+okrColumns+` FROM okrs WHERE id=?`, id)
	return scanOKR(row.Scan)
}

func (r Repo) ListOKRs(ctx context.Context, okrType, status string) ([]domain.OKR, error) {
	var clauses []string
	var args []any
	if okrType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, okrType)
	}
	if status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, status)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+okrColumns+` FROM okrs `+where+` ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.OKR
	for rows.Next() {
		o, err := scanOKR(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, o)
	}
	return res, rows.Err()
}

func (r Repo) UpdateOKRProgress(ctx context.Context, tx *sql.Tx, id string, current *float64, status, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE okrs SET current_value=?, status=?, updated_at=? WHERE id=?`,
		nullableFloatPtr(current), status, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) ArchiveOKR(ctx context.Context, tx *sql.Tx, id, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE okrs SET status='archived', updated_at=? WHERE id=?`, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ArchiveActiveWeeklyOKRs is the week-boundary bulk archive. Returns
// how many rows changed.
func (r Repo) ArchiveActiveWeeklyOKRs(ctx context.Context, tx *sql.Tx, updatedAt string) (int64, error) {
	res, err := tx.ExecContext(ctx, `UPDATE okrs SET status='archived', updated_at=? WHERE type='weekly' AND status='active'`, updatedAt)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nullableFloatPtr(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
