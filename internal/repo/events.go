package repo

import (
	"context"
	"database/sql"

	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/domain"
)

const eventColumns = `id,ts,type,table_name,entity_id,actor_id,payload_json`

func scanEvent(scan func(dest ...any) error) (domain.Event, error) {
	var e domain.Event
	var entity sql.NullString
	err := scan(&e.ID, &e.TS, &e.Type, &e.Table, &entity, &e.ActorID, &e.Payload)
	if err != nil {
		return e, err
	}
	if entity.Valid {
		e.EntityID = entity.String
	}
	return e, nil
}

func (r Repo) LatestEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+eventColumns+` FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// EventsAfter is the change-feed cursor query. Callers poll with the
// highest id they have seen; rows come back oldest first.
func (r Repo) EventsAfter(ctx context.Context, afterID int64, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id>? ORDER BY id ASC LIMIT ?`, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
