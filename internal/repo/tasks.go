package repo

import (
	"context"
	"database/sql"
	"strings"

	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/domain"
)

const taskColumns = `id,kind,title,owner_id,due_date,status,archived,justification,justification_at,created_at,updated_at`

func scanTask(scan func(dest ...any) error) (domain.TaskItem, error) {
	var t domain.TaskItem
	var archived int
	var just, justAt sql.NullString
	err := scan(&t.ID, &t.Kind, &t.Title, &t.OwnerID, &t.DueDate, &t.Status, &archived, &just, &justAt, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	t.Archived = archived != 0
	if just.Valid {
		t.Justification = &just.String
	}
	if justAt.Valid {
		t.JustificationAt = &justAt.String
	}
	return t, nil
}

func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.TaskItem) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO tasks(`+taskColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.Kind, t.Title, t.OwnerID, t.DueDate, t.Status, boolInt(t.Archived),
		nullableStringPtr(t.Justification), nullableStringPtr(t.JustificationAt), t.CreatedAt, t.UpdatedAt)
	return err
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.TaskItem, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id)
	return scanTask(row.Scan)
}

type TaskFilters struct {
	Kind            string
	OwnerID         string
	Status          string
	IncludeArchived bool
}

// ListTasks returns tasks ordered by insertion so overdue filtering
// keeps a deterministic tie order.
func (r Repo) ListTasks(ctx context.Context, f TaskFilters) ([]domain.TaskItem, error) {
	var clauses []string
	var args []any
	if f.Kind != "" {
		clauses = append(clauses, "kind=?")
		args = append(args, f.Kind)
	}
	if f.OwnerID != "" {
		clauses = append(clauses, "owner_id=?")
		args = append(args, f.OwnerID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if !f.IncludeArchived {
		clauses = append(clauses, "archived=0")
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks `+where+` ORDER BY rowid ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.TaskItem
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) SetTaskStatus(ctx context.Context, tx *sql.Tx, id, status, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE tasks SET status=?, updated_at=? WHERE id=?`, status, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) ArchiveTask(ctx context.Context, tx *sql.Tx, id, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE tasks SET archived=1, updated_at=? WHERE id=? AND archived=0`, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// JustifyTask stamps justification and justification_at atomically.
// Returns false when the task already carries a justification or has
// left the pending set: completed, archived, or due today or later.
func (r Repo) JustifyTask(ctx context.Context, tx *sql.Tx, id, text, at, today string) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE tasks SET justification=?, justification_at=?, updated_at=?
WHERE id=? AND justification IS NULL AND status!=? AND archived=0 AND due_date<?`,
		text, at, at, id, domain.TaskDone, today)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
