package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/domain"
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/events"
)

// OKRCreateOptions are parameters for creating an OKR.
type OKRCreateOptions struct {
	ID          string
	Type        string
	Title       string
	TargetValue *float64
	ActorID     string
}

func (e Engine) CreateOKR(ctx context.Context, opts OKRCreateOptions) (domain.OKR, error) {
	if opts.Title == "" {
		return domain.OKR{}, errors.New("title is required")
	}
	switch opts.Type {
	case "annual", "weekly":
	default:
		return domain.OKR{}, fmt.Errorf("invalid okr type %s", opts.Type)
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	ts := e.stamp()
	o := domain.OKR{
		ID:          opts.ID,
		Type:        opts.Type,
		Title:       opts.Title,
		TargetValue: opts.TargetValue,
		Status:      "active",
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.OKR{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertOKR(ctx, tx, o); err != nil {
		return domain.OKR{}, fmt.Errorf("insert okr: %w", err)
	}
	if err := e.audit().Append(ctx, tx, "okr.create", "okrs", o.ID, opts.ActorID, events.EventPayload{"type": o.Type, "title": o.Title}); err != nil {
		return domain.OKR{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.OKR{}, err
	}
	e.notify("okrs")
	return o, nil
}

// UpdateOKRProgress records progress; reaching the target marks the
// OKR completed.
func (e Engine) UpdateOKRProgress(ctx context.Context, okrID string, current float64, actorID string) (domain.OKR, error) {
	o, err := e.Repo.GetOKR(ctx, okrID)
	if err != nil {
		return domain.OKR{}, err
	}
	if o.Status == "archived" {
		return domain.OKR{}, errors.New("okr is archived")
	}
	status := o.Status
	if o.TargetValue != nil && current >= *o.TargetValue {
		status = "completed"
	}
	ts := e.stamp()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.OKR{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateOKRProgress(ctx, tx, okrID, &current, status, ts); err != nil {
		return domain.OKR{}, err
	}
	if err := e.audit().Append(ctx, tx, "okr.progress", "okrs", okrID, actorID, events.EventPayload{"current_value": current, "status": status}); err != nil {
		return domain.OKR{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.OKR{}, err
	}
	e.notify("okrs")
	return e.Repo.GetOKR(ctx, okrID)
}

func (e Engine) ArchiveOKR(ctx context.Context, okrID, actorID string) error {
	ts := e.stamp()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.ArchiveOKR(ctx, tx, okrID, ts); err != nil {
		return err
	}
	if err := e.audit().Append(ctx, tx, "okr.archive", "okrs", okrID, actorID, nil); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.notify("okrs")
	return nil
}

// ArchiveWeeklyOKRs archives every active weekly OKR. Ran at the week
// boundary by whoever schedules it; calling it twice is harmless.
func (e Engine) ArchiveWeeklyOKRs(ctx context.Context, actorID string) (int64, error) {
	ts := e.stamp()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	n, err := e.Repo.ArchiveActiveWeeklyOKRs(ctx, tx, ts)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		if err := e.audit().Append(ctx, tx, "okr.week_rollover", "okrs", "", actorID, events.EventPayload{"archived": n}); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	if n > 0 {
		e.notify("okrs")
	}
	return n, nil
}
