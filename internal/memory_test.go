package internal

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryListLogsFiltersAndOrders(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)

	for i, sev := range []string{"info", "critical", "info", "warning"} {
		_, err := store.AddLog(ctx, "2024", "12", LogEntry{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Severity:  sev,
			Message:   sev,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	_, _ = store.AddLog(ctx, "2024", "11", LogEntry{Timestamp: base.Add(-time.Hour), Severity: "info"})

	tests := []struct {
		name  string
		q     LogQuery
		want  int
		first time.Time
	}{
		{"whole partition", LogQuery{Year: "2024", Month: "12"}, 4, base.Add(3 * time.Hour)},
		{"severity", LogQuery{Year: "2024", Month: "12", Severity: "info"}, 2, base.Add(2 * time.Hour)},
		{"all severity", LogQuery{Year: "2024", Month: "12", Severity: "all"}, 4, base.Add(3 * time.Hour)},
		{"window", LogQuery{Year: "2024", Month: "12", Start: base.Add(time.Hour), End: base.Add(2 * time.Hour)}, 2, base.Add(2 * time.Hour)},
		{"limit", LogQuery{Year: "2024", Month: "12", Limit: 1}, 1, base.Add(3 * time.Hour)},
		{"other partition", LogQuery{Year: "2024", Month: "11"}, 1, base.Add(-time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ListLogs(ctx, tt.q)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.want {
				t.Fatalf("len = %d, want %d", len(got), tt.want)
			}
			if !got[0].Timestamp.Equal(tt.first) {
				t.Errorf("first = %v, want %v (newest first)", got[0].Timestamp, tt.first)
			}
		})
	}
}

func TestMemoryAlertsStatusFlow(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)

	older, _ := store.AddAlert(ctx, Alert{Title: "older", Status: "active", Timestamp: base})
	_, _ = store.AddAlert(ctx, Alert{Title: "newer", Status: "active", Timestamp: base.Add(time.Minute)})

	active, _ := store.ListAlerts(ctx, "active", 0)
	if len(active) != 2 || active[0].Title != "older" {
		t.Fatalf("active = %+v, want oldest first", active)
	}

	if err := store.UpdateAlertStatus(ctx, older, "resolved"); err != nil {
		t.Fatal(err)
	}
	resolved, _ := store.ListAlerts(ctx, "resolved", 0)
	if len(resolved) != 1 || resolved[0].ID != older {
		t.Errorf("resolved = %+v", resolved)
	}

	if err := store.UpdateAlertStatus(ctx, "missing", "resolved"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing alert: err = %v, want ErrNotFound", err)
	}
}

func TestMemoryUserRole(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, ok, _ := store.GetUserRole(ctx, "nobody"); ok {
		t.Error("unknown user should not be found")
	}
	if err := store.UpdateUserRole(ctx, "nobody", "admin"); !errors.Is(err, ErrNotFound) {
		t.Errorf("update unknown user: err = %v", err)
	}

	_ = store.SetUser(ctx, "u1", User{Email: "a@example.com", Role: "viewer"})
	if err := store.UpdateUserRole(ctx, "u1", "analyst"); err != nil {
		t.Fatal(err)
	}
	role, ok, _ := store.GetUserRole(ctx, "u1")
	if !ok || role != "analyst" {
		t.Errorf("role = %q ok=%v", role, ok)
	}
}

func TestMemoryIncrementSummary(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for _, sev := range []string{"critical", "info", "info", "warning", "info"} {
		if err := store.IncrementSummary(ctx, "2024-12-23", sev); err != nil {
			t.Fatal(err)
		}
	}
	got, _, _ := store.GetSummary(ctx, "2024-12-23")
	want := Summary{Date: "2024-12-23", CriticalCount: 1, WarningCount: 1, InfoCount: 3}
	if got != want {
		t.Errorf("summary = %+v, want %+v", got, want)
	}

	if err := store.IncrementSummary(ctx, "2024-12-23", "debug"); !errors.Is(err, ErrInvalidSeverity) {
		t.Errorf("debug severity: err = %v, want ErrInvalidSeverity", err)
	}
}

func TestMemoryListEventsBySource(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	_, _ = store.AddEvent(ctx, Event{Source: "firewall", Timestamp: now})
	_, _ = store.AddEvent(ctx, Event{Source: "ids", Timestamp: now.Add(time.Second)})
	_, _ = store.AddEvent(ctx, Event{Source: "firewall", Timestamp: now.Add(-48 * time.Hour)})

	got, _ := store.ListEvents(ctx, EventQuery{Start: now.Add(-time.Hour), End: now.Add(time.Hour), Source: "firewall"})
	if len(got) != 1 {
		t.Fatalf("events = %d, want 1", len(got))
	}
}

func TestValidKey(t *testing.T) {
	for key, want := range map[string]bool{
		"user123":    true,
		"2024-12-23": true,
		"":           false,
		".":          false,
		"..":         false,
		"a/b":        false,
		"__id__":     false,
		"__partial":  true,
	} {
		if got := validKey(key); got != want {
			t.Errorf("validKey(%q) = %v, want %v", key, got, want)
		}
	}
}
