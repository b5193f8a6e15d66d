package internal

import (
	"context"
	"fmt"
	"time"
)

// Recorder is the write facade: one call per record category, one store
// write per call. It keeps no per-call state and may be shared freely.
type Recorder struct {
	B      Backend
	now    func() time.Time
	sealer Sealer
}

type RecorderOption func(*Recorder)

// WithClock overrides the clock used for write-time timestamps.
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) { r.now = now }
}

// WithSealer encrypts threat-intel values before they are written.
func WithSealer(s Sealer) RecorderOption {
	return func(r *Recorder) { r.sealer = s }
}

func NewRecorder(b Backend, opts ...RecorderOption) *Recorder {
	r := &Recorder{B: b, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

// AddUser creates or overwrites users/{uid}.
func (r *Recorder) AddUser(ctx context.Context, uid, email, role string) (err error) {
	defer func(start time.Time) { observeWrite(UsersCollection, start, err) }(time.Now())
	if err = r.B.SetUser(ctx, uid, User{Email: email, Role: role}); err != nil {
		return fmt.Errorf("add user %s: %w", uid, err)
	}
	return nil
}

// AddLog appends a log entry under logs/{year}/{month}.
func (r *Recorder) AddLog(ctx context.Context, year, month, severity, message, source, typ string, additional Data) (id string, err error) {
	defer func(start time.Time) { observeWrite(LogsCollection, start, err) }(time.Now())
	id, err = r.B.AddLog(ctx, year, month, LogEntry{
		Timestamp:      r.now(),
		Severity:       severity,
		Message:        message,
		Source:         source,
		Type:           typ,
		AdditionalData: orEmpty(additional),
	})
	if err != nil {
		return "", fmt.Errorf("add log %s/%s: %w", year, month, err)
	}
	return id, nil
}

// AddAlert records an alert. relatedLogID is stored as given; it is not
// checked against the logs collection.
func (r *Recorder) AddAlert(ctx context.Context, title, description, severity, status, relatedLogID string) (id string, err error) {
	defer func(start time.Time) { observeWrite(AlertsCollection, start, err) }(time.Now())
	id, err = r.B.AddAlert(ctx, Alert{
		Title:        title,
		Description:  description,
		Severity:     severity,
		Status:       status,
		Timestamp:    r.now(),
		RelatedLogID: relatedLogID,
	})
	if err != nil {
		return "", fmt.Errorf("add alert: %w", err)
	}
	return id, nil
}

func (r *Recorder) AddEvent(ctx context.Context, typ, source, severity, message string, additional Data) (id string, err error) {
	defer func(start time.Time) { observeWrite(EventsCollection, start, err) }(time.Now())
	id, err = r.B.AddEvent(ctx, Event{
		Type:           typ,
		Source:         source,
		Severity:       severity,
		Timestamp:      r.now(),
		Message:        message,
		AdditionalData: orEmpty(additional),
	})
	if err != nil {
		return "", fmt.Errorf("add event: %w", err)
	}
	return id, nil
}

// AddThreatIntelligence stores an indicator. Without a sealer the value is
// written as given and protecting it is the caller's job.
func (r *Recorder) AddThreatIntelligence(ctx context.Context, typ, value, confidence string, verified bool) (id string, err error) {
	defer func(start time.Time) { observeWrite(ThreatIntelCollection, start, err) }(time.Now())
	if r.sealer != nil {
		if value, err = r.sealer.Seal(value); err != nil {
			return "", fmt.Errorf("seal threat value: %w", err)
		}
	}
	id, err = r.B.AddThreatIntel(ctx, ThreatIntel{
		Type:       typ,
		Value:      value,
		Confidence: confidence,
		Verified:   verified,
		Timestamp:  r.now(),
	})
	if err != nil {
		return "", fmt.Errorf("add threat intelligence: %w", err)
	}
	return id, nil
}

// AddNotificationRule stores a rule; an empty email is stored as null.
func (r *Recorder) AddNotificationRule(ctx context.Context, severity, email string, push bool) (id string, err error) {
	defer func(start time.Time) { observeWrite(NotificationRulesCollection, start, err) }(time.Now())
	rule := NotificationRule{Severity: severity, PushNotification: push}
	if email != "" {
		rule.Email = &email
	}
	id, err = r.B.AddNotificationRule(ctx, rule)
	if err != nil {
		return "", fmt.Errorf("add notification rule: %w", err)
	}
	return id, nil
}

// AddSummary creates or overwrites summaries/{date} with the given counters.
func (r *Recorder) AddSummary(ctx context.Context, date string, critical, warning, info int64) (err error) {
	defer func(start time.Time) { observeWrite(SummariesCollection, start, err) }(time.Now())
	err = r.B.SetSummary(ctx, Summary{Date: date, CriticalCount: critical, WarningCount: warning, InfoCount: info})
	if err != nil {
		return fmt.Errorf("add summary %s: %w", date, err)
	}
	return nil
}

func (r *Recorder) AddTraffic(ctx context.Context, volume int64) (id string, err error) {
	defer func(start time.Time) { observeWrite(TrafficCollection, start, err) }(time.Now())
	id, err = r.B.AddTraffic(ctx, Traffic{Timestamp: r.now(), Volume: volume})
	if err != nil {
		return "", fmt.Errorf("add traffic: %w", err)
	}
	return id, nil
}

func orEmpty(d Data) Data {
	if d == nil {
		return Data{}
	}
	return d
}
