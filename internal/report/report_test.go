package report_test

import (
	"testing"
	"time"

	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/domain"
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/report"
)

func strPtr(s string) *string { return &s }

func TestHealthScore(t *testing.T) {
	cases := []struct {
		normal, total, want int
	}{
		{0, 0, 100}, // empty portfolio
		{3, 4, 75},
		{1, 3, 33},
		{2, 3, 67},
		{5, 5, 100},
	}
	for _, tc := range cases {
		if got := report.HealthScore(tc.normal, tc.total); got != tc.want {
			t.Fatalf("HealthScore(%d,%d) = %d, want %d", tc.normal, tc.total, got, tc.want)
		}
	}
}

func TestSummarizeBucketsAndScore(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	managers := []domain.Manager{{ID: "m1", Name: "Ana"}}
	clients := []domain.Client{
		{ID: "c1", ManagerID: "m1", Label: domain.LabelOtimo, Classification: "normal", Status: "active"},
		{ID: "c2", ManagerID: "m1", Label: domain.LabelBom, Classification: "normal", Status: "active"},
		{ID: "c3", ManagerID: "m1", Label: domain.LabelBom, Classification: "normal", Status: "active"},
		{ID: "c4", ManagerID: "m1", Label: domain.LabelMedio, Classification: "alerta", Status: "active"},
	}
	stats := report.SummarizeByManager(managers, clients, nil, report.Options{Now: now, Location: time.UTC})
	if len(stats) != 1 {
		t.Fatalf("expected one manager, got %d", len(stats))
	}
	s := stats[0]
	if s.Otimo != 1 || s.Bom != 2 || s.Medio != 1 || s.Ruim != 0 || s.Total != 4 {
		t.Fatalf("unexpected buckets %+v", s)
	}
	if s.HealthScore != 75 {
		t.Fatalf("health score = %d, want 75", s.HealthScore)
	}
}

func TestSummarizeLegacyTokensFoldIntoConfiguredBucket(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	managers := []domain.Manager{{ID: "m1", Name: "Ana"}}
	clients := []domain.Client{
		{ID: "c1", ManagerID: "m1", Label: domain.Label("yellow"), Classification: "normal", Status: "active"},
		{ID: "c2", ManagerID: "m1", Label: domain.Label("green"), Classification: "normal", Status: "active"},
		{ID: "c3", ManagerID: "m1", Label: domain.Label("mystery"), Classification: "normal", Status: "active"},
	}
	legacy := map[string]string{"yellow": "medio", "green": "otimo"}
	stats := report.SummarizeByManager(managers, clients, nil, report.Options{Now: now, Location: time.UTC, LegacyLabels: legacy})
	s := stats[0]
	// Unknown tokens land in medio alongside mapped ones.
	if s.Medio != 2 || s.Otimo != 1 {
		t.Fatalf("legacy bucketing wrong: %+v", s)
	}
}

func TestSummarizeChurnsThisMonth(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	managers := []domain.Manager{{ID: "m1", Name: "Ana"}}
	clients := []domain.Client{
		{ID: "c1", ManagerID: "m1", Status: "churned", ArchivedAt: strPtr("2024-03-02T10:00:00Z")},
		{ID: "c2", ManagerID: "m1", Status: "churned", ArchivedAt: strPtr("2024-02-27T10:00:00Z")}, // last month
		{ID: "c3", ManagerID: "m1", Label: domain.LabelBom, Classification: "normal", Status: "active"},
	}
	stats := report.SummarizeByManager(managers, clients, nil, report.Options{Now: now, Location: time.UTC})
	s := stats[0]
	if s.ChurnsThisMonth != 1 {
		t.Fatalf("churns = %d, want 1", s.ChurnsThisMonth)
	}
	// Churned clients are excluded from buckets and score.
	if s.Total != 1 || s.HealthScore != 100 {
		t.Fatalf("churned clients leaked into totals: %+v", s)
	}
}

func TestSummarizeDocumentedYesterday(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	managers := []domain.Manager{
		{ID: "m1", Name: "Ana"},
		{ID: "m2", Name: "Bea"},
	}
	tracking := []domain.TrackingRecord{
		{ClientID: "c1", ManagerID: "m1", LastMovedAt: "2024-03-14T09:00:00Z"},
		{ClientID: "c2", ManagerID: "m2", LastMovedAt: "2024-03-12T09:00:00Z"},
	}
	stats := report.SummarizeByManager(managers, nil, tracking, report.Options{Now: now, Location: time.UTC})
	if !stats[0].DocumentedYesterday {
		t.Fatalf("m1 documented yesterday, got %+v", stats[0])
	}
	if stats[1].DocumentedYesterday {
		t.Fatalf("m2 last documented three days ago, got %+v", stats[1])
	}
}
