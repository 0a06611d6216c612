// Package delay decides which clients and tasks are late. All checks
// work on civil calendar dates in a fixed timezone: a record "moved
// today" at 23:59 becomes pending at 00:00 local time without any new
// data arriving.
package delay

import (
	"sort"
	"time"

	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/domain"
)

const dateKeyLayout = "2006-01-02"

// CivilDateKey returns the YYYY-MM-DD key of t in loc.
func CivilDateKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dateKeyLayout)
}

// PendingToday returns the IDs of clients whose tracking record was not
// moved on the reference day. Records with unparseable timestamps are
// treated as never moved.
func PendingToday(records []domain.TrackingRecord, ref time.Time, loc *time.Location) map[string]bool {
	todayKey := CivilDateKey(ref, loc)
	pending := make(map[string]bool)
	for _, rec := range records {
		moved, err := time.Parse(time.RFC3339, rec.LastMovedAt)
		if err != nil || CivilDateKey(moved, loc) != todayKey {
			pending[rec.ClientID] = true
		}
	}
	return pending
}

// OverdueTasks filters tasks past their due date that are neither done
// nor archived, ordered oldest due date first. The sort is stable so
// arrival order breaks ties.
func OverdueTasks(tasks []domain.TaskItem, today string) []domain.TaskItem {
	var overdue []domain.TaskItem
	for _, t := range tasks {
		if t.Archived || t.Status == domain.TaskDone {
			continue
		}
		if t.DueDate < today {
			overdue = append(overdue, t)
		}
	}
	sort.SliceStable(overdue, func(i, j int) bool {
		return overdue[i].DueDate < overdue[j].DueDate
	})
	return overdue
}
