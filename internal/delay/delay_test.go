package delay_test

import (
	"testing"
	"time"

	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/delay"
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/domain"
)

func saoPaulo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func TestPendingFlipsAtCivilMidnight(t *testing.T) {
	loc := saoPaulo(t)
	moved := time.Date(2024, 3, 10, 23, 59, 59, 0, loc)
	records := []domain.TrackingRecord{
		{ClientID: "c1", ManagerID: "m1", LastMovedAt: moved.Format(time.RFC3339)},
	}

	// Same civil day: not pending.
	ref := time.Date(2024, 3, 10, 23, 59, 59, 0, loc)
	if pending := delay.PendingToday(records, ref, loc); pending["c1"] {
		t.Fatalf("client pending on the day it was moved")
	}

	// Two seconds later, past midnight: pending with no new data.
	ref = time.Date(2024, 3, 11, 0, 0, 1, 0, loc)
	if pending := delay.PendingToday(records, ref, loc); !pending["c1"] {
		t.Fatalf("client not pending after civil midnight")
	}
}

func TestPendingUsesConfiguredZoneNotUTC(t *testing.T) {
	loc := saoPaulo(t)
	// 01:00 UTC on the 11th is still the evening of the 10th in São Paulo.
	moved := time.Date(2024, 3, 11, 1, 0, 0, 0, time.UTC)
	records := []domain.TrackingRecord{
		{ClientID: "c1", ManagerID: "m1", LastMovedAt: moved.Format(time.RFC3339)},
	}
	ref := time.Date(2024, 3, 10, 23, 30, 0, 0, loc)
	if pending := delay.PendingToday(records, ref, loc); pending["c1"] {
		t.Fatalf("civil date must be evaluated in the configured zone")
	}
}

func TestUnparseableTimestampIsPending(t *testing.T) {
	loc := saoPaulo(t)
	records := []domain.TrackingRecord{
		{ClientID: "c1", ManagerID: "m1", LastMovedAt: "not-a-time"},
	}
	if pending := delay.PendingToday(records, time.Now(), loc); !pending["c1"] {
		t.Fatalf("unparseable timestamp should count as never moved")
	}
}

func TestOverdueTasksOrderedByDueDate(t *testing.T) {
	tasks := []domain.TaskItem{
		{ID: "t3", DueDate: "2024-03-05", Status: domain.TaskTodo},
		{ID: "t1", DueDate: "2024-03-01", Status: domain.TaskTodo},
		{ID: "t2", DueDate: "2024-03-03", Status: domain.TaskDoing},
		{ID: "t4", DueDate: "2024-03-09", Status: domain.TaskTodo}, // not yet due
		{ID: "t5", DueDate: "2024-03-01", Status: domain.TaskDone}, // done
		{ID: "t6", DueDate: "2024-03-01", Status: domain.TaskTodo, Archived: true},
	}
	overdue := delay.OverdueTasks(tasks, "2024-03-08")
	var got []string
	for _, task := range overdue {
		got = append(got, task.DueDate)
	}
	want := []string{"2024-03-01", "2024-03-03", "2024-03-05"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
