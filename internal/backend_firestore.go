package internal

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var errBadKey = errors.New("invalid document key")

// SetUser overwrites users/{uid}.
func (f *Firestore) SetUser(ctx context.Context, uid string, u User) error {
	doc, err := f.doc(UsersCollection, uid)
	if err != nil {
		return err
	}
	_, err = doc.Set(ctx, u)
	return err
}

// doc rejects keys Firestore would misread as paths.
func (f *Firestore) doc(coll, id string) (*firestore.DocumentRef, error) {
	if !validKey(id) {
		return nil, fmt.Errorf("%s/%q: %w", coll, id, errBadKey)
	}
	return f.Client.Collection(coll).Doc(id), nil
}

func (f *Firestore) logsColl(year, month string) (*firestore.CollectionRef, error) {
	if !validKey(year) || !validKey(month) {
		return nil, fmt.Errorf("log partition %q/%q: %w", year, month, errBadKey)
	}
	return f.Client.Collection(LogsCollection).Doc(year).Collection(month), nil
}

func (f *Firestore) AddLog(ctx context.Context, year, month string, e LogEntry) (string, error) {
	coll, err := f.logsColl(year, month)
	if err != nil {
		return "", err
	}
	ref, _, err := coll.Add(ctx, e)
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

func (f *Firestore) AddAlert(ctx context.Context, a Alert) (string, error) {
	return f.add(ctx, AlertsCollection, a)
}

func (f *Firestore) AddEvent(ctx context.Context, ev Event) (string, error) {
	return f.add(ctx, EventsCollection, ev)
}

func (f *Firestore) AddThreatIntel(ctx context.Context, ti ThreatIntel) (string, error) {
	return f.add(ctx, ThreatIntelCollection, ti)
}

func (f *Firestore) AddNotificationRule(ctx context.Context, r NotificationRule) (string, error) {
	return f.add(ctx, NotificationRulesCollection, r)
}

func (f *Firestore) AddTraffic(ctx context.Context, t Traffic) (string, error) {
	return f.add(ctx, TrafficCollection, t)
}

func (f *Firestore) add(ctx context.Context, coll string, data any) (string, error) {
	ref, _, err := f.Client.Collection(coll).Add(ctx, data)
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

// SetSummary overwrites summaries/{date}; no merge, so stale counters vanish.
func (f *Firestore) SetSummary(ctx context.Context, s Summary) error {
	doc, err := f.doc(SummariesCollection, s.Date)
	if err != nil {
		return err
	}
	_, err = doc.Set(ctx, s)
	return err
}

func (f *Firestore) GetUserRole(ctx context.Context, uid string) (string, bool, error) {
	doc, err := f.doc(UsersCollection, uid)
	if err != nil {
		return "", false, err
	}
	snap, err := doc.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	var u User
	if err := snap.DataTo(&u); err != nil {
		return "", true, err
	}
	return u.Role, true, nil
}

func (f *Firestore) UpdateUserRole(ctx context.Context, uid, role string) error {
	doc, err := f.doc(UsersCollection, uid)
	if err != nil {
		return err
	}
	_, err = doc.Update(ctx, []firestore.Update{{Path: "role", Value: role}})
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("user %s: %w", uid, ErrNotFound)
	}
	return err
}

func (f *Firestore) ListLogs(ctx context.Context, lq LogQuery) ([]LogEntry, error) {
	coll, err := f.logsColl(lq.Year, lq.Month)
	if err != nil {
		return nil, err
	}
	q := coll.Query
	if !lq.Start.IsZero() {
		q = q.Where("timestamp", ">=", lq.Start)
	}
	if !lq.End.IsZero() {
		q = q.Where("timestamp", "<=", lq.End)
	}
	if lq.Severity != "" && lq.Severity != "all" {
		q = q.Where("severity", "==", lq.Severity)
	}
	q = q.OrderBy("timestamp", firestore.Desc).Limit(limitOr(lq.Limit, defaultLogLimit))
	return collect(q.Documents(ctx), func(e *LogEntry, id string) { e.ID = id })
}

func (f *Firestore) ListAlerts(ctx context.Context, st string, limit int) ([]Alert, error) {
	q := f.Client.Collection(AlertsCollection).
		Where("status", "==", st).
		OrderBy("timestamp", firestore.Asc).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Limit(limitOr(limit, defaultAlertLimit))
	return collect(q.Documents(ctx), func(a *Alert, id string) { a.ID = id })
}

func (f *Firestore) UpdateAlertStatus(ctx context.Context, id, st string) error {
	doc, err := f.doc(AlertsCollection, id)
	if err != nil {
		return err
	}
	_, err = doc.Update(ctx, []firestore.Update{{Path: "status", Value: st}})
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	return err
}

func (f *Firestore) ListEvents(ctx context.Context, eq EventQuery) ([]Event, error) {
	q := f.Client.Collection(EventsCollection).Query
	if !eq.Start.IsZero() {
		q = q.Where("timestamp", ">=", eq.Start)
	}
	if !eq.End.IsZero() {
		q = q.Where("timestamp", "<=", eq.End)
	}
	if eq.Source != "" {
		q = q.Where("source", "==", eq.Source)
	}
	q = q.OrderBy("timestamp", firestore.Desc).Limit(limitOr(eq.Limit, defaultEventLimit))
	return collect(q.Documents(ctx), func(ev *Event, id string) { ev.ID = id })
}

func (f *Firestore) ListThreatIntel(ctx context.Context) ([]ThreatIntel, error) {
	return collect(f.Client.Collection(ThreatIntelCollection).Documents(ctx), func(ti *ThreatIntel, id string) { ti.ID = id })
}

func (f *Firestore) NotificationRules(ctx context.Context, severity string) ([]NotificationRule, error) {
	q := f.Client.Collection(NotificationRulesCollection).Where("severity", "==", severity)
	return collect(q.Documents(ctx), func(r *NotificationRule, id string) { r.ID = id })
}

func (f *Firestore) GetSummary(ctx context.Context, date string) (Summary, bool, error) {
	doc, err := f.doc(SummariesCollection, date)
	if err != nil {
		return Summary{}, false, err
	}
	snap, err := doc.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return Summary{}, false, nil
	}
	if err != nil {
		return Summary{}, false, err
	}
	var s Summary
	if err := snap.DataTo(&s); err != nil {
		return Summary{}, true, err
	}
	return s, true, nil
}

// IncrementSummary bumps {severity}_count for date inside a transaction,
// creating the document with zeroed counters on first use.
func (f *Firestore) IncrementSummary(ctx context.Context, date, severity string) error {
	field, err := summaryField(severity)
	if err != nil {
		return err
	}
	doc, err := f.doc(SummariesCollection, date)
	if err != nil {
		return err
	}
	return f.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		_, err := tx.Get(doc)
		if status.Code(err) == codes.NotFound {
			return tx.Set(doc, newSummary(date, severity))
		}
		if err != nil {
			return err
		}
		return tx.Update(doc, []firestore.Update{{Path: field, Value: firestore.Increment(1)}})
	})
}

func collect[T any](it *firestore.DocumentIterator, setID func(*T, string)) ([]T, error) {
	defer it.Stop()
	var out []T
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var v T
		if err := snap.DataTo(&v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", snap.Ref.Path, err)
		}
		setID(&v, snap.Ref.ID)
		out = append(out, v)
	}
	return out, nil
}

func limitOr(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}
