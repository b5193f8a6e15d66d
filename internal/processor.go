package internal

import (
	"context"
	"fmt"
	"log"
	"time"
)

// IncomingEvent is a raw event pushed by a collector.
type IncomingEvent struct {
	Type           string `json:"type"`
	Source         string `json:"source"`
	Severity       string `json:"severity"`
	Message        string `json:"message"`
	AdditionalData Data   `json:"additionalData,omitempty"`
}

// ProcessResult names the documents Process created.
type ProcessResult struct {
	LogID    string `json:"logId"`
	AlertID  string `json:"alertId,omitempty"`
	Notified int    `json:"notified"`
}

// Processor turns incoming events into processed logs, keeps the daily
// summary current, and raises alerts and notifications for critical events.
type Processor struct {
	Rec      *Recorder
	Store    Querier
	Dispatch *Dispatcher // nil disables notifications
	Now      func() time.Time
}

func NewProcessor(rec *Recorder, q Querier, d *Dispatcher) *Processor {
	return &Processor{Rec: rec, Store: q, Dispatch: d, Now: time.Now}
}

func (p *Processor) Process(ctx context.Context, ev IncomingEvent) (ProcessResult, error) {
	var res ProcessResult
	if _, err := summaryField(ev.Severity); err != nil {
		return res, err
	}
	now := p.Now()
	// Partitions follow the clock's zone; summaries are keyed by UTC date.
	year, month := LogPartition(now)

	start := time.Now()
	// Written through the backend directly: processed logs carry the flag the
	// facade's AddLog never sets.
	id, err := p.Rec.B.AddLog(ctx, year, month, LogEntry{
		Timestamp:      now,
		Severity:       ev.Severity,
		Message:        ev.Message,
		Source:         ev.Source,
		Type:           ev.Type,
		AdditionalData: orEmpty(ev.AdditionalData),
		Processed:      true,
	})
	observeWrite(LogsCollection, start, err)
	if err != nil {
		return res, fmt.Errorf("write processed log: %w", err)
	}
	res.LogID = id

	if err := p.Store.IncrementSummary(ctx, now.UTC().Format(time.DateOnly), ev.Severity); err != nil {
		return res, fmt.Errorf("update summary: %w", err)
	}

	if ev.Severity != SeverityCritical {
		return res, nil
	}
	res.AlertID, err = p.Rec.AddAlert(ctx, ev.Type, ev.Message, ev.Severity, "active", id)
	if err != nil {
		return res, err
	}
	res.Notified = p.notify(ctx, ev)
	return res, nil
}

// notify sends to every rule for ev.Severity. Failures are logged only.
func (p *Processor) notify(ctx context.Context, ev IncomingEvent) int {
	if p.Dispatch == nil {
		return 0
	}
	rules, err := p.Store.NotificationRules(ctx, ev.Severity)
	if err != nil {
		log.Printf("load notification rules for %s: %v", ev.Severity, err)
		return 0
	}
	n := Notification{
		Title:    fmt.Sprintf("New %s Event", ev.Severity),
		Body:     ev.Message,
		Severity: ev.Severity,
	}
	sent := 0
	for _, rule := range rules {
		if rule.Email != nil && *rule.Email != "" {
			msg := n
			msg.To = *rule.Email
			if err := p.Dispatch.Dispatch(ctx, ChannelEmail, msg); err != nil {
				log.Printf("email to %s for rule %s: %v", msg.To, rule.ID, err)
			} else {
				sent++
			}
		}
		if rule.PushNotification {
			msg := n
			msg.Topic = "alerts-" + ev.Severity
			if err := p.Dispatch.Dispatch(ctx, ChannelPush, msg); err != nil {
				log.Printf("push to %s for rule %s: %v", msg.Topic, rule.ID, err)
			} else {
				sent++
			}
		}
	}
	return sent
}
