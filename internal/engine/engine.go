// Package engine holds the transactional business operations. Each
// operation opens one transaction, writes its rows plus an audit
// event, commits, then signals the change feed.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/classify"
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/config"
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/delay"
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/domain"
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/events"
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/repo"
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/report"
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/workflow"
)

type Engine struct {
	DB       *sql.DB
	Repo     repo.Repo
	Events   events.Writer
	Notifier *events.Notifier
	Config   *config.Config
	Now      func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:       db,
		Repo:     repo.Repo{DB: db},
		Events:   events.Writer{DB: db},
		Notifier: events.NewNotifier(),
		Config:   cfg,
		Now:      time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) stamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) notify(table string) {
	if e.Notifier != nil {
		e.Notifier.Notify(table)
	}
}

func (e Engine) location() *time.Location {
	if e.Config != nil {
		return e.Config.Location()
	}
	return time.UTC
}

// audit returns the event writer bound to the engine clock so event
// timestamps match the rows they describe.
func (e Engine) audit() events.Writer {
	w := e.Events
	if w.Now == nil {
		w.Now = e.now
	}
	return w
}

// ClientCreateOptions are parameters for creating a client.
type ClientCreateOptions struct {
	ID           string
	Name         string
	ManagerID    string
	Status       string
	MonthlyValue float64
	ActorID      string
}

func (e Engine) CreateClient(ctx context.Context, opts ClientCreateOptions) (domain.Client, error) {
	if opts.Name == "" {
		return domain.Client{}, errors.New("name is required")
	}
	if opts.ManagerID == "" {
		return domain.Client{}, errors.New("manager is required")
	}
	if _, err := e.Repo.GetManager(ctx, opts.ManagerID); err != nil {
		return domain.Client{}, err
	}
	if opts.Status == "" {
		opts.Status = domain.StatusOnboarding
	}
	if !validClientStatus(opts.Status) {
		return domain.Client{}, fmt.Errorf("invalid status %s", opts.Status)
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	ts := e.stamp()
	c := domain.Client{
		ID:             opts.ID,
		Name:           opts.Name,
		ManagerID:      opts.ManagerID,
		Classification: string(domain.ClassNormal),
		Status:         opts.Status,
		MonthlyValue:   opts.MonthlyValue,
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Client{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertClient(ctx, tx, c); err != nil {
		return domain.Client{}, fmt.Errorf("insert client: %w", err)
	}
	if err := e.audit().Append(ctx, tx, "client.create", "clients", c.ID, opts.ActorID, events.EventPayload{"name": c.Name, "manager_id": c.ManagerID}); err != nil {
		return domain.Client{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Client{}, err
	}
	e.notify("clients")
	return c, nil
}

// SetClientLabel applies a label change and its derived classification
// in one transaction. An empty label clears the label and leaves the
// stored classification alone.
func (e Engine) SetClientLabel(ctx context.Context, clientID, rawLabel, actorID string) (domain.Client, error) {
	label := domain.Label(rawLabel)
	switch label {
	case domain.LabelOtimo, domain.LabelBom, domain.LabelMedio, domain.LabelRuim, domain.LabelNone:
	default:
		return domain.Client{}, fmt.Errorf("invalid label %s", rawLabel)
	}
	c, err := e.Repo.GetClient(ctx, clientID)
	if err != nil {
		return domain.Client{}, err
	}
	outcome := classify.Classify(label, c.Label)
	ts := e.stamp()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Client{}, err
	}
	defer tx.Rollback()
	if outcome.Changed {
		if err := e.Repo.SetClientLabel(ctx, tx, clientID, label, string(outcome.Classification), outcome.Reason, ts); err != nil {
			return domain.Client{}, err
		}
		c.Classification = string(outcome.Classification)
		c.ClassificationReason = outcome.Reason
	} else {
		if err := e.Repo.SetClientLabelOnly(ctx, tx, clientID, label, ts); err != nil {
			return domain.Client{}, err
		}
	}
	c.Label = label
	c.UpdatedAt = ts
	payload := events.EventPayload{"label": string(label), "cs_classification": c.Classification}
	if err := e.audit().Append(ctx, tx, "client.label", "clients", clientID, actorID, payload); err != nil {
		return domain.Client{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Client{}, err
	}
	e.notify("clients")
	return c, nil
}

// RecordContact stamps last_contact_at with the current time.
func (e Engine) RecordContact(ctx context.Context, clientID, actorID string) (domain.Client, error) {
	if _, err := e.Repo.GetClient(ctx, clientID); err != nil {
		return domain.Client{}, err
	}
	ts := e.stamp()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Client{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.SetLastContact(ctx, tx, clientID, ts, ts); err != nil {
		return domain.Client{}, err
	}
	if err := e.audit().Append(ctx, tx, "client.contact", "clients", clientID, actorID, nil); err != nil {
		return domain.Client{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Client{}, err
	}
	e.notify("clients")
	return e.Repo.GetClient(ctx, clientID)
}

// SetClientStatus moves a client through its lifecycle. Churning stamps
// archived_at and forces the encerrado classification so the client
// drops out of the risk tiers.
func (e Engine) SetClientStatus(ctx context.Context, clientID, status, actorID string) (domain.Client, error) {
	if !validClientStatus(status) {
		return domain.Client{}, fmt.Errorf("invalid status %s", status)
	}
	c, err := e.Repo.GetClient(ctx, clientID)
	if err != nil {
		return domain.Client{}, err
	}
	ts := e.stamp()
	classification := c.Classification
	var archivedAt *string
	if status == domain.StatusChurned {
		classification = string(domain.ClassEncerrado)
		archivedAt = &ts
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Client{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.SetClientStatus(ctx, tx, clientID, status, classification, archivedAt, ts); err != nil {
		return domain.Client{}, err
	}
	if err := e.audit().Append(ctx, tx, "client.status", "clients", clientID, actorID, events.EventPayload{"status": status}); err != nil {
		return domain.Client{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Client{}, err
	}
	e.notify("clients")
	return e.Repo.GetClient(ctx, clientID)
}

func (e Engine) ArchiveClient(ctx context.Context, clientID, actorID string) error {
	ts := e.stamp()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.ArchiveClient(ctx, tx, clientID, ts); err != nil {
		return err
	}
	if err := e.audit().Append(ctx, tx, "client.archive", "clients", clientID, actorID, nil); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.notify("clients")
	return nil
}

// UpsertClientProduct writes one product value and refreshes the
// client's monthly_value from the sum of its products.
func (e Engine) UpsertClientProduct(ctx context.Context, clientID, productSlug string, value float64, actorID string) error {
	if productSlug == "" {
		return errors.New("product slug is required")
	}
	if _, err := e.Repo.GetClient(ctx, clientID); err != nil {
		return err
	}
	ts := e.stamp()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.UpsertClientProduct(ctx, tx, domain.ClientProduct{
		ClientID: clientID, ProductSlug: productSlug, Value: value, UpdatedAt: ts,
	}); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE clients SET monthly_value=(SELECT COALESCE(SUM(value),0) FROM client_products WHERE client_id=?), updated_at=? WHERE id=?`,
		clientID, ts, clientID); err != nil {
		return err
	}
	if err := e.audit().Append(ctx, tx, "client.product", "clients", clientID, actorID, events.EventPayload{"product": productSlug, "value": value}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.notify("clients")
	return nil
}

func (e Engine) CreateManager(ctx context.Context, name, email, department string) (domain.Manager, error) {
	if name == "" {
		return domain.Manager{}, errors.New("name is required")
	}
	m := domain.Manager{
		ID:         uuid.NewString(),
		Name:       name,
		Email:      email,
		Department: department,
		CreatedAt:  e.stamp(),
	}
	if err := e.Repo.InsertManager(ctx, m); err != nil {
		return domain.Manager{}, fmt.Errorf("insert manager: %w", err)
	}
	return m, nil
}

// MarkMoved records a pipeline card move for a client, clearing any
// standing delay justification.
func (e Engine) MarkMoved(ctx context.Context, clientID, actorID string) (domain.TrackingRecord, error) {
	c, err := e.Repo.GetClient(ctx, clientID)
	if err != nil {
		return domain.TrackingRecord{}, err
	}
	ts := e.stamp()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.TrackingRecord{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpsertTracking(ctx, tx, clientID, c.ManagerID, ts); err != nil {
		return domain.TrackingRecord{}, err
	}
	if err := e.audit().Append(ctx, tx, "tracking.move", "tracking", clientID, actorID, nil); err != nil {
		return domain.TrackingRecord{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.TrackingRecord{}, err
	}
	e.notify("tracking")
	return e.Repo.GetTracking(ctx, clientID)
}

// JustifyTracking files a delay justification for a client's tracking
// record. A record that is no longer pending, already justified or
// moved again today, surfaces as workflow.ErrStaleItem.
func (e Engine) JustifyTracking(ctx context.Context, clientID, text, actorID string) error {
	if strings.TrimSpace(text) == "" {
		return workflow.ErrEmptyJustification
	}
	rec, err := e.Repo.GetTracking(ctx, clientID)
	if err != nil {
		return err
	}
	now := e.now()
	if !delay.PendingToday([]domain.TrackingRecord{rec}, now, e.location())[clientID] {
		return workflow.ErrStaleItem
	}
	ts := now.UTC().Format(time.RFC3339)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	ok, err := e.Repo.JustifyTracking(ctx, tx, clientID, text, ts)
	if err != nil {
		return err
	}
	if !ok {
		return workflow.ErrStaleItem
	}
	if err := e.audit().Append(ctx, tx, "tracking.justify", "tracking", clientID, actorID, events.EventPayload{"justification": text}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.notify("tracking")
	return nil
}

// TaskCreateOptions are parameters for creating a task.
type TaskCreateOptions struct {
	ID      string
	Kind    domain.TaskKind
	Title   string
	OwnerID string
	DueDate string
	ActorID string
}

func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions) (domain.TaskItem, error) {
	if opts.Title == "" {
		return domain.TaskItem{}, errors.New("title is required")
	}
	if opts.OwnerID == "" {
		return domain.TaskItem{}, errors.New("owner is required")
	}
	switch opts.Kind {
	case domain.KindAds, domain.KindComercial, domain.KindDepartment:
	default:
		return domain.TaskItem{}, fmt.Errorf("invalid task kind %s", opts.Kind)
	}
	if _, err := time.Parse("2006-01-02", opts.DueDate); err != nil {
		return domain.TaskItem{}, fmt.Errorf("invalid due date %s", opts.DueDate)
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	ts := e.stamp()
	t := domain.TaskItem{
		ID:        opts.ID,
		Kind:      opts.Kind,
		Title:     opts.Title,
		OwnerID:   opts.OwnerID,
		DueDate:   opts.DueDate,
		Status:    domain.TaskTodo,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.TaskItem{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertTask(ctx, tx, t); err != nil {
		return domain.TaskItem{}, fmt.Errorf("insert task: %w", err)
	}
	if err := e.audit().Append(ctx, tx, "task.create", "tasks", t.ID, opts.ActorID, events.EventPayload{"kind": string(t.Kind), "title": t.Title}); err != nil {
		return domain.TaskItem{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.TaskItem{}, err
	}
	e.notify("tasks")
	return t, nil
}

func (e Engine) SetTaskStatus(ctx context.Context, taskID, status, actorID string) (domain.TaskItem, error) {
	switch status {
	case domain.TaskTodo, domain.TaskDoing, domain.TaskDone:
	default:
		return domain.TaskItem{}, fmt.Errorf("invalid task status %s", status)
	}
	ts := e.stamp()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.TaskItem{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.SetTaskStatus(ctx, tx, taskID, status, ts); err != nil {
		return domain.TaskItem{}, err
	}
	if err := e.audit().Append(ctx, tx, "task.status", "tasks", taskID, actorID, events.EventPayload{"status": status}); err != nil {
		return domain.TaskItem{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.TaskItem{}, err
	}
	e.notify("tasks")
	return e.Repo.GetTask(ctx, taskID)
}

// CompleteTask marks a task done.
func (e Engine) CompleteTask(ctx context.Context, taskID, actorID string) (domain.TaskItem, error) {
	return e.SetTaskStatus(ctx, taskID, domain.TaskDone, actorID)
}

func (e Engine) ArchiveTask(ctx context.Context, taskID, actorID string) error {
	ts := e.stamp()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.ArchiveTask(ctx, tx, taskID, ts); err != nil {
		return err
	}
	if err := e.audit().Append(ctx, tx, "task.archive", "tasks", taskID, actorID, nil); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.notify("tasks")
	return nil
}

// JustifyTask files an overdue justification on a task. A task no
// longer in the pending set, completed, archived, justified, or not
// yet due, surfaces as workflow.ErrStaleItem.
func (e Engine) JustifyTask(ctx context.Context, taskID, text, actorID string) error {
	if strings.TrimSpace(text) == "" {
		return workflow.ErrEmptyJustification
	}
	if _, err := e.Repo.GetTask(ctx, taskID); err != nil {
		return err
	}
	now := e.now()
	ts := now.UTC().Format(time.RFC3339)
	today := delay.CivilDateKey(now, e.location())
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	ok, err := e.Repo.JustifyTask(ctx, tx, taskID, text, ts, today)
	if err != nil {
		return err
	}
	if !ok {
		return workflow.ErrStaleItem
	}
	if err := e.audit().Append(ctx, tx, "task.justify", "tasks", taskID, actorID, events.EventPayload{"justification": text}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.notify("tasks")
	return nil
}

// PendingActions snapshots what a manager must justify right now:
// overdue tasks oldest first, then clients not moved today.
func (e Engine) PendingActions(ctx context.Context, managerID string, now time.Time) ([]workflow.Item, error) {
	loc := e.location()
	today := delay.CivilDateKey(now, loc)

	tasks, err := e.Repo.ListTasks(ctx, repo.TaskFilters{OwnerID: managerID})
	if err != nil {
		return nil, err
	}
	var items []workflow.Item
	for _, t := range delay.OverdueTasks(tasks, today) {
		if t.Justification != nil {
			continue
		}
		items = append(items, workflow.Item{ID: t.ID, Kind: workflow.ItemTask, Title: t.Title})
	}

	records, err := e.Repo.ListTracking(ctx, managerID)
	if err != nil {
		return nil, err
	}
	pending := delay.PendingToday(records, now, loc)
	for _, rec := range records {
		if !pending[rec.ClientID] || rec.Justification != nil {
			continue
		}
		title := rec.ClientID
		if c, err := e.Repo.GetClient(ctx, rec.ClientID); err == nil {
			if c.Archived {
				continue
			}
			title = c.Name
		}
		items = append(items, workflow.Item{ID: rec.ClientID, Kind: workflow.ItemTracking, Title: title})
	}
	return items, nil
}

// ManagerReport aggregates per-manager portfolio stats as of now.
func (e Engine) ManagerReport(ctx context.Context, now time.Time) ([]report.ManagerStats, error) {
	managers, err := e.Repo.ListManagers(ctx)
	if err != nil {
		return nil, err
	}
	clients, err := e.Repo.ListClients(ctx, repo.ClientFilters{IncludeArchived: true})
	if err != nil {
		return nil, err
	}
	tracking, err := e.Repo.ListTracking(ctx, "")
	if err != nil {
		return nil, err
	}
	opts := report.Options{Now: now, Location: e.location()}
	if e.Config != nil {
		opts.LegacyLabels = e.Config.LegacyLabels
	}
	return report.SummarizeByManager(managers, clients, tracking, opts), nil
}

func validClientStatus(status string) bool {
	switch status {
	case domain.StatusActive, domain.StatusOnboarding, domain.StatusPaused, domain.StatusChurned:
		return true
	}
	return false
}
