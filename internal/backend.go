package internal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned by Querier updates that target a missing document.
var ErrNotFound = errors.New("document not found")

// Backend abstracts Firestore vs HTTP ingest vs in-memory writes. Keyed writes
// (users, summaries) overwrite; every Add creates a new document and returns
// its generated id.
type Backend interface {
	SetUser(ctx context.Context, uid string, u User) error
	AddLog(ctx context.Context, year, month string, e LogEntry) (string, error)
	AddAlert(ctx context.Context, a Alert) (string, error)
	AddEvent(ctx context.Context, ev Event) (string, error)
	AddThreatIntel(ctx context.Context, ti ThreatIntel) (string, error)
	AddNotificationRule(ctx context.Context, r NotificationRule) (string, error)
	SetSummary(ctx context.Context, s Summary) error
	AddTraffic(ctx context.Context, t Traffic) (string, error)
}

// LogQuery selects logs from a single year/month partition.
type LogQuery struct {
	Year, Month string
	Start, End  time.Time
	Severity    string // empty or "all" matches every severity
	Limit       int
}

// EventQuery selects events in a time window, optionally by source.
type EventQuery struct {
	Start, End time.Time
	Source     string
	Limit      int
}

const (
	defaultLogLimit   = 1000
	defaultEventLimit = 1000
	defaultAlertLimit = 100
)

// Querier covers the dashboard's read and status-update paths.
type Querier interface {
	GetUserRole(ctx context.Context, uid string) (string, bool, error)
	UpdateUserRole(ctx context.Context, uid, role string) error
	ListLogs(ctx context.Context, q LogQuery) ([]LogEntry, error)
	ListAlerts(ctx context.Context, status string, limit int) ([]Alert, error)
	UpdateAlertStatus(ctx context.Context, id, status string) error
	ListEvents(ctx context.Context, q EventQuery) ([]Event, error)
	ListThreatIntel(ctx context.Context) ([]ThreatIntel, error)
	NotificationRules(ctx context.Context, severity string) ([]NotificationRule, error)
	GetSummary(ctx context.Context, date string) (Summary, bool, error)
	IncrementSummary(ctx context.Context, date, severity string) error
}

type Store interface {
	Backend
	Querier
}

func severityMatches(filter, sev string) bool {
	return filter == "" || filter == "all" || filter == sev
}

// ErrInvalidSeverity is returned for severities outside info|warning|critical
// where a summary counter or processed log is involved.
var ErrInvalidSeverity = errors.New("invalid severity")

// Severities counted by summaries.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

func summaryField(severity string) (string, error) {
	switch severity {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return severity + "_count", nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSeverity, severity)
}

// newSummary is the first summary for date, counting one record of severity.
func newSummary(date, severity string) Summary {
	s := Summary{Date: date}
	switch severity {
	case SeverityCritical:
		s.CriticalCount = 1
	case SeverityWarning:
		s.WarningCount = 1
	case SeverityInfo:
		s.InfoCount = 1
	}
	return s
}

// validKey reports whether id can name a single document or collection.
func validKey(id string) bool {
	if id == "" || id == "." || id == ".." || strings.Contains(id, "/") {
		return false
	}
	return !(strings.HasPrefix(id, "__") && strings.HasSuffix(id, "__"))
}
