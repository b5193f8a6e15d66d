package internal

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store with the same insert/upsert semantics as
// the Firestore backend. Used for dry runs and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]User
	logs      map[string][]LogEntry // keyed year/month
	alerts    []Alert
	events    []Event
	threats   []ThreatIntel
	rules     []NotificationRule
	summaries map[string]Summary
	traffic   []Traffic
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]User),
		logs:      make(map[string][]LogEntry),
		summaries: make(map[string]Summary),
	}
}

func (m *MemoryStore) SetUser(_ context.Context, uid string, u User) error {
	if !validKey(uid) {
		return fmt.Errorf("%s/%q: %w", UsersCollection, uid, errBadKey)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = uid
	m.users[uid] = u
	return nil
}

func (m *MemoryStore) AddLog(_ context.Context, year, month string, e LogEntry) (string, error) {
	if !validKey(year) || !validKey(month) {
		return "", fmt.Errorf("log partition %q/%q: %w", year, month, errBadKey)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = newDocID()
	e.AdditionalData = maps.Clone(e.AdditionalData)
	key := year + "/" + month
	m.logs[key] = append(m.logs[key], e)
	return e.ID, nil
}

func (m *MemoryStore) AddAlert(_ context.Context, a Alert) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = newDocID()
	m.alerts = append(m.alerts, a)
	return a.ID, nil
}

func (m *MemoryStore) AddEvent(_ context.Context, ev Event) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev.ID = newDocID()
	ev.AdditionalData = maps.Clone(ev.AdditionalData)
	m.events = append(m.events, ev)
	return ev.ID, nil
}

func (m *MemoryStore) AddThreatIntel(_ context.Context, ti ThreatIntel) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ti.ID = newDocID()
	m.threats = append(m.threats, ti)
	return ti.ID, nil
}

func (m *MemoryStore) AddNotificationRule(_ context.Context, r NotificationRule) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = newDocID()
	m.rules = append(m.rules, r)
	return r.ID, nil
}

func (m *MemoryStore) SetSummary(_ context.Context, s Summary) error {
	if !validKey(s.Date) {
		return fmt.Errorf("%s/%q: %w", SummariesCollection, s.Date, errBadKey)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries[s.Date] = s
	return nil
}

func (m *MemoryStore) AddTraffic(_ context.Context, t Traffic) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = newDocID()
	m.traffic = append(m.traffic, t)
	return t.ID, nil
}

func (m *MemoryStore) GetUserRole(_ context.Context, uid string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[uid]
	return u.Role, ok, nil
}

func (m *MemoryStore) UpdateUserRole(_ context.Context, uid, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[uid]
	if !ok {
		return fmt.Errorf("user %s: %w", uid, ErrNotFound)
	}
	u.Role = role
	m.users[uid] = u
	return nil
}

func (m *MemoryStore) ListLogs(_ context.Context, q LogQuery) ([]LogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []LogEntry
	for _, e := range m.logs[q.Year+"/"+q.Month] {
		if !q.Start.IsZero() && e.Timestamp.Before(q.Start) {
			continue
		}
		if !q.End.IsZero() && e.Timestamp.After(q.End) {
			continue
		}
		if !severityMatches(q.Severity, e.Severity) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return truncate(out, limitOr(q.Limit, defaultLogLimit)), nil
}

func (m *MemoryStore) ListAlerts(_ context.Context, status string, limit int) ([]Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Alert
	for _, a := range m.alerts {
		if a.Status == status {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return truncate(out, limitOr(limit, defaultAlertLimit)), nil
}

func (m *MemoryStore) UpdateAlertStatus(_ context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.alerts {
		if m.alerts[i].ID == id {
			m.alerts[i].Status = status
			return nil
		}
	}
	return fmt.Errorf("alert %s: %w", id, ErrNotFound)
}

func (m *MemoryStore) ListEvents(_ context.Context, q EventQuery) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Event
	for _, ev := range m.events {
		if !q.Start.IsZero() && ev.Timestamp.Before(q.Start) {
			continue
		}
		if !q.End.IsZero() && ev.Timestamp.After(q.End) {
			continue
		}
		if q.Source != "" && ev.Source != q.Source {
			continue
		}
		out = append(out, ev)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return truncate(out, limitOr(q.Limit, defaultEventLimit)), nil
}

func (m *MemoryStore) ListThreatIntel(_ context.Context) ([]ThreatIntel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ThreatIntel(nil), m.threats...), nil
}

func (m *MemoryStore) NotificationRules(_ context.Context, severity string) ([]NotificationRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []NotificationRule
	for _, r := range m.rules {
		if r.Severity == severity {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemoryStore) GetSummary(_ context.Context, date string) (Summary, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.summaries[date]
	return s, ok, nil
}

func (m *MemoryStore) IncrementSummary(_ context.Context, date, severity string) error {
	if _, err := summaryField(severity); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.summaries[date]
	if !ok {
		m.summaries[date] = newSummary(date, severity)
		return nil
	}
	switch severity {
	case SeverityCritical:
		s.CriticalCount++
	case SeverityWarning:
		s.WarningCount++
	case SeverityInfo:
		s.InfoCount++
	}
	m.summaries[date] = s
	return nil
}

// Counts reports how many documents each collection holds.
func (m *MemoryStore) Counts() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	nlogs := 0
	for _, l := range m.logs {
		nlogs += len(l)
	}
	return map[string]int{
		UsersCollection:             len(m.users),
		LogsCollection:              nlogs,
		AlertsCollection:            len(m.alerts),
		EventsCollection:            len(m.events),
		ThreatIntelCollection:       len(m.threats),
		NotificationRulesCollection: len(m.rules),
		SummariesCollection:         len(m.summaries),
		TrafficCollection:           len(m.traffic),
	}
}

// Traffic returns a copy of the recorded traffic samples in insertion order.
func (m *MemoryStore) Traffic() []Traffic {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Traffic(nil), m.traffic...)
}

func truncate[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
