package internal

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
)

// LogPartition returns the logs/{year}/{month} keys for t. Months are not
// zero-padded ("2024", "3").
func LogPartition(t time.Time) (year, month string) {
	return strconv.Itoa(t.Year()), strconv.Itoa(int(t.Month()))
}

// QueryLogs reads every monthly partition between start and end concurrently
// and concatenates the results, partitions in chronological order.
func QueryLogs(ctx context.Context, q Querier, start, end time.Time, severity string) ([]LogEntry, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("query logs: end %s before start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	end = end.In(start.Location())
	var parts []LogQuery
	cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location())
	last := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, start.Location())
	for !cur.After(last) {
		y, m := LogPartition(cur)
		parts = append(parts, LogQuery{Year: y, Month: m, Start: start, End: end, Severity: severity})
		cur = cur.AddDate(0, 1, 0)
	}

	results := make([][]LogEntry, len(parts))
	g, gCtx := errgroup.WithContext(ctx)
	for i, p := range parts {
		i, p := i, p
		g.Go(func() error {
			logs, err := q.ListLogs(gCtx, p)
			if err != nil {
				return fmt.Errorf("logs %s/%s: %w", p.Year, p.Month, err)
			}
			results[i] = logs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []LogEntry
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}
