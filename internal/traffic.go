package internal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type NetTotals struct{ In, Out int64 }

func ReadProcTotals(path string) (map[string]NetTotals, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseNetDev(f)
}

func parseNetDev(r io.Reader) (map[string]NetTotals, error) {
	s := bufio.NewScanner(r)
	// Skip first two lines
	for i := 0; i < 2 && s.Scan(); i++ {
	}
	res := map[string]NetTotals{}
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		parts := strings.Fields(strings.ReplaceAll(line, ":", " "))
		if len(parts) < 17 {
			continue
		}
		iface := parts[0]
		inBytes, _ := strconv.ParseInt(parts[1], 10, 64)
		outBytes, _ := strconv.ParseInt(parts[9], 10, 64)
		res[iface] = NetTotals{In: inBytes, Out: outBytes}
	}
	return res, s.Err()
}

func SumTotals(m map[string]NetTotals) (int64, int64) {
	var in, out int64
	for name, t := range m {
		if strings.HasPrefix(name, "lo") {
			continue
		}
		in += t.In
		out += t.Out
	}
	return in, out
}

// TrafficSampler records the bytes moved across non-loopback interfaces
// between consecutive samples as traffic volume.
type TrafficSampler struct {
	Rec      *Recorder
	Path     string
	Interval time.Duration
	read     func(path string) (map[string]NetTotals, error)
	last     int64
	primed   bool
}

func NewTrafficSampler(rec *Recorder, path string, interval time.Duration) *TrafficSampler {
	return &TrafficSampler{Rec: rec, Path: path, Interval: interval, read: ReadProcTotals}
}

// Sample takes one reading. The first call only sets the baseline and records
// nothing; ok reports whether a volume was written.
func (t *TrafficSampler) Sample(ctx context.Context) (volume int64, ok bool, err error) {
	m, err := t.read(t.Path)
	if err != nil {
		return 0, false, err
	}
	in, out := SumTotals(m)
	total := in + out
	if !t.primed {
		t.last, t.primed = total, true
		return 0, false, nil
	}
	volume = total - t.last
	if volume < 0 {
		// counters reset (interface went away or wrapped)
		volume = total
	}
	t.last = total
	if _, err := t.Rec.AddTraffic(ctx, volume); err != nil {
		return volume, false, err
	}
	return volume, true, nil
}

// Run samples every Interval until ctx is done. Write errors are logged and
// sampling continues.
func (t *TrafficSampler) Run(ctx context.Context) error {
	if t.Interval <= 0 {
		return fmt.Errorf("traffic interval must be positive, got %s", t.Interval)
	}
	tick := time.NewTicker(t.Interval)
	defer tick.Stop()
	if _, _, err := t.Sample(ctx); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			if v, ok, err := t.Sample(ctx); err != nil {
				log.Printf("traffic sample failed: %v", err)
			} else if ok {
				log.Printf("traffic volume %d bytes", v)
			}
		}
	}
}
