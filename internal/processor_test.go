package internal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type captureNotifier struct {
	name string
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (c *captureNotifier) Name() string { return c.name }

func (c *captureNotifier) Send(_ context.Context, n Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, n)
	return c.err
}

func (c *captureNotifier) Close() error { return nil }

func newTestProcessor(t *testing.T) (*Processor, *MemoryStore, *captureNotifier, *captureNotifier) {
	t.Helper()
	rec, store := newTestRecorder()
	email := &captureNotifier{name: ChannelEmail}
	push := &captureNotifier{name: ChannelPush}
	d := NewDispatcher(0)
	d.Register(email)
	d.Register(push)
	p := NewProcessor(rec, store, d)
	p.Now = func() time.Time { return fixedNow }
	return p, store, email, push
}

func TestProcessInfoEvent(t *testing.T) {
	p, store, email, push := newTestProcessor(t)
	ctx := context.Background()

	res, err := p.Process(ctx, IncomingEvent{Type: "login", Source: "sshd", Severity: "info", Message: "accepted"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.LogID == "" || res.AlertID != "" {
		t.Errorf("result = %+v, want log only", res)
	}

	logs, _ := store.ListLogs(ctx, LogQuery{Year: "2024", Month: "12"})
	if len(logs) != 1 || !logs[0].Processed || logs[0].Source != "sshd" {
		t.Fatalf("logs = %+v", logs)
	}
	if logs[0].AdditionalData == nil {
		t.Error("additionalData should default to empty map")
	}
	sum, ok, _ := store.GetSummary(ctx, "2024-12-23")
	if !ok || sum.InfoCount != 1 || sum.CriticalCount != 0 {
		t.Errorf("summary = %+v ok=%v", sum, ok)
	}
	if store.Counts()[AlertsCollection] != 0 || len(email.sent)+len(push.sent) != 0 {
		t.Error("info events must not alert or notify")
	}
}

func TestProcessCriticalEventAlertsAndNotifies(t *testing.T) {
	p, store, email, push := newTestProcessor(t)
	ctx := context.Background()
	rec := p.Rec

	if _, err := rec.AddNotificationRule(ctx, "critical", "admin@example.com", true); err != nil {
		t.Fatal(err)
	}
	if _, err := rec.AddNotificationRule(ctx, "critical", "", false); err != nil {
		t.Fatal(err)
	}
	if _, err := rec.AddNotificationRule(ctx, "warning", "ops@example.com", true); err != nil {
		t.Fatal(err)
	}

	res, err := p.Process(ctx, IncomingEvent{Type: "security", Source: "firewall", Severity: "critical", Message: "Unauthorized access detected"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.AlertID == "" || res.Notified != 2 {
		t.Errorf("result = %+v, want alert and 2 notifications", res)
	}

	alerts, _ := store.ListAlerts(ctx, "active", 0)
	if len(alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(alerts))
	}
	if alerts[0].RelatedLogID != res.LogID || alerts[0].Severity != "critical" {
		t.Errorf("alert = %+v", alerts[0])
	}

	if len(email.sent) != 1 || email.sent[0].To != "admin@example.com" || email.sent[0].Title != "New critical Event" {
		t.Errorf("email sent = %+v", email.sent)
	}
	if len(push.sent) != 1 || push.sent[0].Topic != "alerts-critical" || push.sent[0].Body != "Unauthorized access detected" {
		t.Errorf("push sent = %+v", push.sent)
	}
}

func TestProcessNotificationFailureIsNotFatal(t *testing.T) {
	p, _, email, _ := newTestProcessor(t)
	email.err = errors.New("smtp down")
	ctx := context.Background()
	_, _ = p.Rec.AddNotificationRule(ctx, "critical", "admin@example.com", false)

	res, err := p.Process(ctx, IncomingEvent{Type: "t", Source: "s", Severity: "critical", Message: "m"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Notified != 0 || res.AlertID == "" {
		t.Errorf("result = %+v", res)
	}
}

func TestProcessRejectsUnknownSeverity(t *testing.T) {
	p, store, _, _ := newTestProcessor(t)
	_, err := p.Process(context.Background(), IncomingEvent{Type: "t", Severity: "high"})
	if !errors.Is(err, ErrInvalidSeverity) {
		t.Fatalf("err = %v, want ErrInvalidSeverity", err)
	}
	if store.Counts()[LogsCollection] != 0 {
		t.Error("rejected event must not be logged")
	}
}

func TestProcessSummaryKeyedByUTCDate(t *testing.T) {
	p, store, _, _ := newTestProcessor(t)
	tokyo := time.FixedZone("JST", 9*3600)
	p.Now = func() time.Time { return time.Date(2024, 12, 24, 1, 30, 0, 0, tokyo) }
	ctx := context.Background()

	if _, err := p.Process(ctx, IncomingEvent{Type: "t", Source: "s", Severity: "warning", Message: "m"}); err != nil {
		t.Fatal(err)
	}
	if sum, ok, _ := store.GetSummary(ctx, "2024-12-23"); !ok || sum.WarningCount != 1 {
		t.Errorf("summary for 2024-12-23 = %+v (ok=%v), want warning_count 1", sum, ok)
	}
	if _, ok, _ := store.GetSummary(ctx, "2024-12-24"); ok {
		t.Error("summary must not be keyed by local date")
	}
}
