// Package report rolls up per-manager portfolio statistics for the
// dashboard summary views.
package report

import (
	"math"
	"time"

	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/classify"
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/delay"
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/domain"
)

// ManagerStats summarizes one manager's portfolio.
type ManagerStats struct {
	ManagerID           string `json:"manager_id"`
	ManagerName         string `json:"manager_name"`
	Otimo               int    `json:"otimo"`
	Bom                 int    `json:"bom"`
	Medio               int    `json:"medio"`
	Ruim                int    `json:"ruim"`
	Unlabeled           int    `json:"unlabeled"`
	Total               int    `json:"total"`
	ChurnsThisMonth     int    `json:"churns_this_month"`
	DocumentedYesterday bool   `json:"documented_yesterday"`
	HealthScore         int    `json:"health_score"`
}

// Options carries the reference time context for a summary pass.
type Options struct {
	Now      time.Time
	Location *time.Location
	// LegacyLabels maps pre-migration label tokens for bucketing.
	LegacyLabels map[string]string
}

// SummarizeByManager buckets each manager's active clients by label,
// counts churns since the start of the current calendar month, and
// flags managers who documented tracking since yesterday. All date
// boundaries use the configured civil timezone.
func SummarizeByManager(managers []domain.Manager, clients []domain.Client, tracking []domain.TrackingRecord, opts Options) []ManagerStats {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	monthStart := startOfMonth(opts.Now, loc)
	yesterdayKey := delay.CivilDateKey(opts.Now.In(loc).AddDate(0, 0, -1), loc)

	documented := make(map[string]bool)
	for _, rec := range tracking {
		moved, err := time.Parse(time.RFC3339, rec.LastMovedAt)
		if err != nil {
			continue
		}
		if delay.CivilDateKey(moved, loc) >= yesterdayKey {
			documented[rec.ManagerID] = true
		}
	}

	stats := make([]ManagerStats, 0, len(managers))
	for _, m := range managers {
		s := ManagerStats{ManagerID: m.ID, ManagerName: m.Name, DocumentedYesterday: documented[m.ID]}
		normal := 0
		for _, c := range clients {
			if c.ManagerID != m.ID {
				continue
			}
			if c.Status == domain.StatusChurned {
				if c.ArchivedAt != nil {
					if at, err := time.Parse(time.RFC3339, *c.ArchivedAt); err == nil && !at.Before(monthStart) {
						s.ChurnsThisMonth++
					}
				}
				continue
			}
			if c.Archived {
				continue
			}
			s.Total++
			if c.Classification == string(domain.ClassNormal) {
				normal++
			}
			switch classify.Bucket(string(c.Label), opts.LegacyLabels) {
			case domain.LabelOtimo:
				s.Otimo++
			case domain.LabelBom:
				s.Bom++
			case domain.LabelMedio:
				s.Medio++
			case domain.LabelRuim:
				s.Ruim++
			default:
				s.Unlabeled++
			}
		}
		s.HealthScore = HealthScore(normal, s.Total)
		stats = append(stats, s)
	}
	return stats
}

// HealthScore is the share of normal-classified clients, rounded to a
// whole percentage. An empty portfolio scores 100.
func HealthScore(normal, total int) int {
	if total == 0 {
		return 100
	}
	return int(math.Round(float64(normal) / float64(total) * 100))
}

func startOfMonth(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
}
