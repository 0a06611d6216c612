package repo

import (
	"context"
	"database/sql"

	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/domain"
)

const trackingColumns = `client_id,manager_id,last_moved_at,justification,justification_at`

func scanTracking(scan func(dest ...any) error) (domain.TrackingRecord, error) {
	var rec domain.TrackingRecord
	var just, justAt sql.NullString
	err := scan(&rec.ClientID, &rec.ManagerID, &rec.LastMovedAt, &just, &justAt)
	if err == sql.ErrNoRows {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, err
	}
	if just.Valid {
		rec.Justification = &just.String
	}
	if justAt.Valid {
		rec.JustificationAt = &justAt.String
	}
	return rec, nil
}

// UpsertTracking records a move; a new move clears any prior
// justification since the client is no longer delayed.
func (r Repo) UpsertTracking(ctx context.Context, tx *sql.Tx, clientID, managerID, movedAt string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO tracking(client_id,manager_id,last_moved_at) VALUES (?,?,?)
ON CONFLICT(client_id) DO UPDATE SET manager_id=excluded.manager_id, last_moved_at=excluded.last_moved_at, justification=NULL, justification_at=NULL`,
		clientID, managerID, movedAt)
	return err
}

func (r Repo) GetTracking(ctx context.Context, clientID string) (domain.TrackingRecord, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+trackingColumns+` FROM tracking WHERE client_id=?`, clientID)
	return scanTracking(row.Scan)
}

func (r Repo) ListTracking(ctx context.Context, managerID string) ([]domain.TrackingRecord, error) {
	query := `SELECT ` + trackingColumns + ` FROM tracking`
	var args []any
	if managerID != "" {
		query += ` WHERE manager_id=?`
		args = append(args, managerID)
	}
	query += ` ORDER BY client_id ASC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.TrackingRecord
	for rows.Next() {
		rec, err := scanTracking(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// JustifyTracking stamps justification and justification_at together;
// one is never written without the other. The WHERE guard rejects rows
// already justified so a concurrent submission surfaces as stale.
func (r Repo) JustifyTracking(ctx context.Context, tx *sql.Tx, clientID, text, at string) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE tracking SET justification=?, justification_at=? WHERE client_id=? AND justification IS NULL`,
		text, at, clientID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
