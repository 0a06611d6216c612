package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/config"
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/db"
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/domain"
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/engine"
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/migrate"
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/repo"
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/workflow"
)

type testEnv struct {
	Engine  engine.Engine
	Ctx     context.Context
	Now     time.Time
	Manager domain.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	env := &testEnv{
		Ctx: context.Background(),
		Now: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
	}
	eng := engine.New(conn, config.Default())
	eng.Now = func() time.Time { return env.Now }
	env.Engine = eng
	m, err := eng.CreateManager(env.Ctx, "Ana", "ana@example.com", "cs")
	if err != nil {
		t.Fatalf("create manager: %v", err)
	}
	env.Manager = m
	return env
}

func (env *testEnv) createClient(t *testing.T, name string) domain.Client {
	t.Helper()
	c, err := env.Engine.CreateClient(env.Ctx, engine.ClientCreateOptions{
		Name:      name,
		ManagerID: env.Manager.ID,
		Status:    domain.StatusActive,
		ActorID:   "tester",
	})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	return c
}

func TestLabelTransitionsDriveClassification(t *testing.T) {
	env := newTestEnv(t)
	c := env.createClient(t, "Acme")
	if c.Classification != string(domain.ClassNormal) {
		t.Fatalf("new client classification = %s, want normal", c.Classification)
	}

	// null -> ruim: critico with reason.
	c, err := env.Engine.SetClientLabel(env.Ctx, c.ID, "ruim", "tester")
	if err != nil {
		t.Fatalf("set ruim: %v", err)
	}
	if c.Classification != string(domain.ClassCritico) {
		t.Fatalf("classification = %s, want critico", c.Classification)
	}
	stored, err := env.Engine.Repo.GetClient(env.Ctx, c.ID)
	if err != nil {
		t.Fatalf("get client: %v", err)
	}
	if stored.ClassificationReason == nil || *stored.ClassificationReason != "label changed to Ruim" {
		t.Fatalf("reason = %v", stored.ClassificationReason)
	}

	// ruim -> bom: back to normal, reason cleared.
	c, err = env.Engine.SetClientLabel(env.Ctx, c.ID, "bom", "tester")
	if err != nil {
		t.Fatalf("set bom: %v", err)
	}
	stored, _ = env.Engine.Repo.GetClient(env.Ctx, c.ID)
	if stored.Classification != string(domain.ClassNormal) || stored.ClassificationReason != nil {
		t.Fatalf("after bom: classification=%s reason=%v", stored.Classification, stored.ClassificationReason)
	}

	// bom -> medio: alerta.
	_, err = env.Engine.SetClientLabel(env.Ctx, c.ID, "medio", "tester")
	if err != nil {
		t.Fatalf("set medio: %v", err)
	}
	stored, _ = env.Engine.Repo.GetClient(env.Ctx, c.ID)
	if stored.Classification != string(domain.ClassAlerta) {
		t.Fatalf("classification = %s, want alerta", stored.Classification)
	}
}

func TestEmptyLabelLeavesClassification(t *testing.T) {
	env := newTestEnv(t)
	c := env.createClient(t, "Acme")
	if _, err := env.Engine.SetClientLabel(env.Ctx, c.ID, "ruim", "tester"); err != nil {
		t.Fatal(err)
	}
	c2, err := env.Engine.SetClientLabel(env.Ctx, c.ID, "", "tester")
	if err != nil {
		t.Fatalf("clear label: %v", err)
	}
	if c2.Label != domain.LabelNone {
		t.Fatalf("label = %q, want empty", c2.Label)
	}
	stored, _ := env.Engine.Repo.GetClient(env.Ctx, c.ID)
	if stored.Classification != string(domain.ClassCritico) {
		t.Fatalf("classification drifted to %s on empty label", stored.Classification)
	}
}

func TestInvalidLabelRejected(t *testing.T) {
	env := newTestEnv(t)
	c := env.createClient(t, "Acme")
	if _, err := env.Engine.SetClientLabel(env.Ctx, c.ID, "amazing", "tester"); err == nil {
		t.Fatal("expected invalid label error")
	}
}

func TestChurnStampsArchiveAndClassification(t *testing.T) {
	env := newTestEnv(t)
	c := env.createClient(t, "Acme")
	c, err := env.Engine.SetClientStatus(env.Ctx, c.ID, domain.StatusChurned, "tester")
	if err != nil {
		t.Fatalf("churn: %v", err)
	}
	if c.Classification != string(domain.ClassEncerrado) {
		t.Fatalf("classification = %s, want encerrado", c.Classification)
	}
	if c.ArchivedAt == nil {
		t.Fatal("archived_at not stamped on churn")
	}
}

func TestMoveClearsJustificationAndJustifyGuards(t *testing.T) {
	env := newTestEnv(t)
	c := env.createClient(t, "Acme")

	env.Now = time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)
	if _, err := env.Engine.MarkMoved(env.Ctx, c.ID, "tester"); err != nil {
		t.Fatalf("move: %v", err)
	}

	// Next civil day the client is pending and may be justified.
	env.Now = time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	if err := env.Engine.JustifyTracking(env.Ctx, c.ID, "waiting on contract", "tester"); err != nil {
		t.Fatalf("justify: %v", err)
	}
	rec, err := env.Engine.Repo.GetTracking(env.Ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Justification == nil || rec.JustificationAt == nil {
		t.Fatalf("justification pair not written atomically: %+v", rec)
	}

	// Second justification against the same delay is stale.
	err = env.Engine.JustifyTracking(env.Ctx, c.ID, "again", "tester")
	if !errors.Is(err, workflow.ErrStaleItem) {
		t.Fatalf("expected ErrStaleItem, got %v", err)
	}

	// A new move clears both fields.
	env.Now = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	if _, err := env.Engine.MarkMoved(env.Ctx, c.ID, "tester"); err != nil {
		t.Fatal(err)
	}
	rec, _ = env.Engine.Repo.GetTracking(env.Ctx, c.ID)
	if rec.Justification != nil || rec.JustificationAt != nil {
		t.Fatalf("move should clear justification: %+v", rec)
	}
}

func TestJustifyTaskNoLongerPendingIsStale(t *testing.T) {
	env := newTestEnv(t)
	mk := func(title, due string) domain.TaskItem {
		t.Helper()
		task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
			Kind: domain.KindAds, Title: title, OwnerID: env.Manager.ID, DueDate: due, ActorID: "tester",
		})
		if err != nil {
			t.Fatal(err)
		}
		return task
	}

	// Completed after going overdue: left the pending set.
	done := mk("done late", "2024-03-01")
	if _, err := env.Engine.CompleteTask(env.Ctx, done.ID, "other"); err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.JustifyTask(env.Ctx, done.ID, "slipped", "tester"); !errors.Is(err, workflow.ErrStaleItem) {
		t.Fatalf("justify done task: %v, want ErrStaleItem", err)
	}
	stored, err := env.Engine.Repo.GetTask(env.Ctx, done.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Justification != nil {
		t.Fatalf("done task carries justification: %+v", stored)
	}

	// Archived while overdue.
	archived := mk("archived late", "2024-03-01")
	if err := env.Engine.ArchiveTask(env.Ctx, archived.ID, "tester"); err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.JustifyTask(env.Ctx, archived.ID, "slipped", "tester"); !errors.Is(err, workflow.ErrStaleItem) {
		t.Fatalf("justify archived task: %v, want ErrStaleItem", err)
	}

	// Not yet due: never entered the pending set.
	future := mk("future", "2024-03-20")
	if err := env.Engine.JustifyTask(env.Ctx, future.ID, "early", "tester"); !errors.Is(err, workflow.ErrStaleItem) {
		t.Fatalf("justify future task: %v, want ErrStaleItem", err)
	}

	// A genuinely overdue task still accepts one.
	late := mk("late", "2024-03-01")
	if err := env.Engine.JustifyTask(env.Ctx, late.ID, "waiting on client", "tester"); err != nil {
		t.Fatalf("justify overdue task: %v", err)
	}
}

func TestJustifyMovedTodayIsStale(t *testing.T) {
	env := newTestEnv(t)
	c := env.createClient(t, "Acme")
	if _, err := env.Engine.MarkMoved(env.Ctx, c.ID, "tester"); err != nil {
		t.Fatal(err)
	}
	err := env.Engine.JustifyTracking(env.Ctx, c.ID, "no delay to explain", "tester")
	if !errors.Is(err, workflow.ErrStaleItem) {
		t.Fatalf("justify on move day: %v, want ErrStaleItem", err)
	}
	rec, err := env.Engine.Repo.GetTracking(env.Ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Justification != nil {
		t.Fatalf("moved-today record carries justification: %+v", rec)
	}
}

func TestEventTimestampsFollowEngineClock(t *testing.T) {
	env := newTestEnv(t)
	env.createClient(t, "Acme")
	evts, err := env.Engine.Repo.EventsAfter(env.Ctx, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(evts) == 0 {
		t.Fatal("no events written")
	}
	want := env.Now.UTC().Format(time.RFC3339)
	for _, evt := range evts {
		if evt.TS != want {
			t.Fatalf("event ts = %s, want %s", evt.TS, want)
		}
	}
}

func TestJustifyEmptyTextRejected(t *testing.T) {
	env := newTestEnv(t)
	c := env.createClient(t, "Acme")
	if _, err := env.Engine.MarkMoved(env.Ctx, c.ID, "tester"); err != nil {
		t.Fatal(err)
	}
	err := env.Engine.JustifyTracking(env.Ctx, c.ID, "   ", "tester")
	if !errors.Is(err, workflow.ErrEmptyJustification) {
		t.Fatalf("expected ErrEmptyJustification, got %v", err)
	}
}

func TestPendingActionsOrdering(t *testing.T) {
	env := newTestEnv(t)
	c := env.createClient(t, "Acme")

	// Moved yesterday: pending today.
	env.Now = time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)
	if _, err := env.Engine.MarkMoved(env.Ctx, c.ID, "tester"); err != nil {
		t.Fatal(err)
	}
	env.Now = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	for _, task := range []struct{ title, due string }{
		{"late mid", "2024-03-03"},
		{"late old", "2024-03-01"},
		{"future", "2024-03-20"},
	} {
		if _, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
			Kind:    domain.KindDepartment,
			Title:   task.title,
			OwnerID: env.Manager.ID,
			DueDate: task.due,
			ActorID: "tester",
		}); err != nil {
			t.Fatal(err)
		}
	}

	items, err := env.Engine.PendingActions(env.Ctx, env.Manager.ID, env.Now)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 {
		t.Fatalf("pending = %d items, want 3: %+v", len(items), items)
	}
	if items[0].Title != "late old" || items[1].Title != "late mid" {
		t.Fatalf("overdue tasks out of order: %+v", items)
	}
	if items[2].Kind != workflow.ItemTracking || items[2].ID != c.ID {
		t.Fatalf("tracking item missing: %+v", items)
	}
}

func TestManagerReportRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	labels := []string{"otimo", "bom", "bom", "medio"}
	for i, label := range labels {
		c := env.createClient(t, "client"+string(rune('a'+i)))
		if _, err := env.Engine.SetClientLabel(env.Ctx, c.ID, label, "tester"); err != nil {
			t.Fatal(err)
		}
	}
	stats, err := env.Engine.ManagerReport(env.Ctx, env.Now)
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 1 {
		t.Fatalf("expected one manager, got %d", len(stats))
	}
	s := stats[0]
	if s.Total != 4 || s.HealthScore != 75 {
		t.Fatalf("stats %+v, want total 4 health 75", s)
	}
}

func TestWeeklyOKRRollover(t *testing.T) {
	env := newTestEnv(t)
	for _, typ := range []string{"weekly", "weekly", "annual"} {
		if _, err := env.Engine.CreateOKR(env.Ctx, engine.OKRCreateOptions{Type: typ, Title: "goal", ActorID: "tester"}); err != nil {
			t.Fatal(err)
		}
	}
	n, err := env.Engine.ArchiveWeeklyOKRs(env.Ctx, "tester")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("archived %d, want 2", n)
	}
	remaining, err := env.Engine.Repo.ListOKRs(env.Ctx, "", "active")
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 1 || remaining[0].Type != "annual" {
		t.Fatalf("annual OKR should survive rollover: %+v", remaining)
	}
}

func TestOKRProgressCompletesAtTarget(t *testing.T) {
	env := newTestEnv(t)
	target := 10.0
	o, err := env.Engine.CreateOKR(env.Ctx, engine.OKRCreateOptions{Type: "weekly", Title: "calls", TargetValue: &target, ActorID: "tester"})
	if err != nil {
		t.Fatal(err)
	}
	o, err = env.Engine.UpdateOKRProgress(env.Ctx, o.ID, 4, "tester")
	if err != nil || o.Status != "active" {
		t.Fatalf("mid progress: %v %+v", err, o)
	}
	o, err = env.Engine.UpdateOKRProgress(env.Ctx, o.ID, 10, "tester")
	if err != nil || o.Status != "completed" {
		t.Fatalf("target reached: %v %+v", err, o)
	}
}

func TestUserManagementCEOGate(t *testing.T) {
	env := newTestEnv(t)
	ceo, err := env.Engine.BootstrapUser(env.Ctx, "ceo@example.com", "Boss", "")
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if ceo.Role != "ceo" {
		t.Fatalf("bootstrap role = %s, want ceo", ceo.Role)
	}

	staff, err := env.Engine.CreateUser(env.Ctx, engine.UserCreateOptions{
		Email: "staff@example.com", Role: "manager", ActorID: ceo.ID,
	})
	if err != nil {
		t.Fatalf("create staff: %v", err)
	}

	// Non-CEO caller is rejected.
	_, err = env.Engine.CreateUser(env.Ctx, engine.UserCreateOptions{
		Email: "other@example.com", Role: "manager", ActorID: staff.ID,
	})
	var fe engine.ForbiddenError
	if !errors.As(err, &fe) {
		t.Fatalf("expected ForbiddenError, got %v", err)
	}

	// The CEO account is protected.
	if err := env.Engine.DeleteUser(env.Ctx, ceo.ID, ceo.ID); !errors.Is(err, engine.ErrProtectedUser) {
		t.Fatalf("expected ErrProtectedUser, got %v", err)
	}
	if err := env.Engine.DeleteUser(env.Ctx, staff.ID, ceo.ID); err != nil {
		t.Fatalf("delete staff: %v", err)
	}
	if _, err := env.Engine.Repo.GetUser(env.Ctx, staff.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("staff still present: %v", err)
	}
}

func TestDeleteGroupCascade(t *testing.T) {
	env := newTestEnv(t)
	ceo, err := env.Engine.BootstrapUser(env.Ctx, "ceo@example.com", "Boss", "")
	if err != nil {
		t.Fatal(err)
	}
	g, err := env.Engine.CreateGroup(env.Ctx, "ops", ceo.ID)
	if err != nil {
		t.Fatal(err)
	}
	member, err := env.Engine.CreateUser(env.Ctx, engine.UserCreateOptions{
		Email: "member@example.com", Role: "manager", GroupID: g.ID, ActorID: ceo.ID,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.DeleteGroup(env.Ctx, g.ID, true, ceo.ID); err != nil {
		t.Fatalf("delete group: %v", err)
	}
	if _, err := env.Engine.Repo.GetGroup(env.Ctx, g.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("group still present: %v", err)
	}
	if _, err := env.Engine.Repo.GetUser(env.Ctx, member.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("member should be deleted with group: %v", err)
	}
}

func TestProductUpsertRefreshesMonthlyValue(t *testing.T) {
	env := newTestEnv(t)
	c := env.createClient(t, "Acme")
	if err := env.Engine.UpsertClientProduct(env.Ctx, c.ID, "ads", 1000, "tester"); err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.UpsertClientProduct(env.Ctx, c.ID, "site", 500, "tester"); err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.UpsertClientProduct(env.Ctx, c.ID, "ads", 1200, "tester"); err != nil {
		t.Fatal(err)
	}
	stored, err := env.Engine.Repo.GetClient(env.Ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.MonthlyValue != 1700 {
		t.Fatalf("monthly value = %v, want 1700", stored.MonthlyValue)
	}
}

func TestChangeFeedCursor(t *testing.T) {
	env := newTestEnv(t)
	c := env.createClient(t, "Acme")
	if _, err := env.Engine.SetClientLabel(env.Ctx, c.ID, "ruim", "tester"); err != nil {
		t.Fatal(err)
	}
	all, err := env.Engine.Repo.EventsAfter(env.Ctx, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) < 2 {
		t.Fatalf("expected at least create+label events, got %d", len(all))
	}
	// Cursor excludes already-seen events.
	rest, err := env.Engine.Repo.EventsAfter(env.Ctx, all[0].ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != len(all)-1 {
		t.Fatalf("cursor paging wrong: %d vs %d", len(rest), len(all))
	}
	if rest[0].ID <= all[0].ID {
		t.Fatalf("events not ordered by id: %+v", rest[0])
	}
}
