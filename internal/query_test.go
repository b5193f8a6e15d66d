package internal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestLogPartition(t *testing.T) {
	y, m := LogPartition(time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC))
	if y != "2024" || m != "3" {
		t.Errorf("partition = %s/%s, want 2024/3", y, m)
	}
}

func TestQueryLogsSpansPartitions(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	at := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 12, 0, 0, 0, time.UTC) }
	for _, ts := range []time.Time{at(2024, 11, 30), at(2024, 12, 15), at(2025, 1, 2), at(2025, 2, 1)} {
		y, m := LogPartition(ts)
		if _, err := store.AddLog(ctx, y, m, LogEntry{Timestamp: ts, Severity: "info"}); err != nil {
			t.Fatal(err)
		}
	}

	got, err := QueryLogs(ctx, store, at(2024, 12, 1), at(2025, 1, 31), "all")
	if err != nil {
		t.Fatalf("query logs: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if !got[0].Timestamp.Equal(at(2024, 12, 15)) || !got[1].Timestamp.Equal(at(2025, 1, 2)) {
		t.Errorf("unexpected order: %v, %v", got[0].Timestamp, got[1].Timestamp)
	}
}

func TestQueryLogsRejectsInvertedRange(t *testing.T) {
	now := time.Now()
	if _, err := QueryLogs(context.Background(), NewMemoryStore(), now, now.Add(-time.Hour), ""); err == nil {
		t.Fatal("expected error for end before start")
	}
}

type failingQuerier struct {
	*MemoryStore
	err error
}

func (f failingQuerier) ListLogs(context.Context, LogQuery) ([]LogEntry, error) { return nil, f.err }

func TestQueryLogsPropagatesErrors(t *testing.T) {
	boom := errors.New("unavailable")
	now := time.Now()
	_, err := QueryLogs(context.Background(), failingQuerier{NewMemoryStore(), boom}, now.AddDate(0, -2, 0), now, "")
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

type partitionRecorder struct {
	*MemoryStore
	mu    sync.Mutex
	parts []string
}

func (p *partitionRecorder) ListLogs(ctx context.Context, lq LogQuery) ([]LogEntry, error) {
	p.mu.Lock()
	p.parts = append(p.parts, lq.Year+"/"+lq.Month)
	p.mu.Unlock()
	return p.MemoryStore.ListLogs(ctx, lq)
}

func TestQueryLogsNormalizesEndZone(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	start := time.Date(2024, 12, 31, 20, 0, 0, 0, est)
	end := time.Date(2025, 1, 1, 2, 0, 0, 0, time.UTC) // 21:00 EST on Dec 31

	q := &partitionRecorder{MemoryStore: NewMemoryStore()}
	if _, err := QueryLogs(context.Background(), q, start, end, ""); err != nil {
		t.Fatal(err)
	}
	if len(q.parts) != 1 || q.parts[0] != "2024/12" {
		t.Errorf("partitions = %v, want [2024/12]", q.parts)
	}
}
