package internal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestResolveCredentials(t *testing.T) {
	dir := t.TempDir()
	key := filepath.Join(dir, "key.json")
	if err := os.WriteFile(key, []byte(`{}`), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Run("explicit", func(t *testing.T) {
		t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
		got, err := resolveCredentials(key)
		if err != nil || got != key {
			t.Fatalf("got %q, %v", got, err)
		}
	})
	t.Run("env", func(t *testing.T) {
		t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", key)
		got, err := resolveCredentials("")
		if err != nil || got != key {
			t.Fatalf("got %q, %v", got, err)
		}
	})
	t.Run("missing explicit file", func(t *testing.T) {
		t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", key)
		if _, err := resolveCredentials(filepath.Join(dir, "absent.json")); err == nil {
			t.Fatal("explicit path must not fall through to env")
		}
	})
	t.Run("directory", func(t *testing.T) {
		if _, err := resolveCredentials(dir); err == nil {
			t.Fatal("expected directory error")
		}
	})
}

func TestNewFirestoreRequiresProject(t *testing.T) {
	if _, err := NewFirestore(context.Background(), "", ""); err == nil {
		t.Fatal("expected error for empty project id")
	}
}

// Runs against the Firestore emulator only.
func newEmulatorStore(t *testing.T) *Firestore {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	fs, err := NewFirestore(ctx, "siem-recorder-test", "")
	if err != nil {
		t.Fatalf("emulator: %v", err)
	}
	t.Cleanup(fs.Close)
	return fs
}

func TestFirestoreRecorderRoundTrip(t *testing.T) {
	fs := newEmulatorStore(t)
	rec := NewRecorder(fs)
	ctx := context.Background()
	uid := "user-" + newDocID()
	date := "2099-01-" + time.Now().Format("02")

	if err := rec.AddUser(ctx, uid, "user@example.com", "admin"); err != nil {
		t.Fatal(err)
	}
	if err := rec.AddUser(ctx, uid, "user@example.com", "viewer"); err != nil {
		t.Fatal(err)
	}
	role, ok, err := fs.GetUserRole(ctx, uid)
	if err != nil || !ok || role != "viewer" {
		t.Errorf("role = %q ok=%v err=%v", role, ok, err)
	}

	year := "2099"
	month := newDocID()[:6]
	id, err := rec.AddLog(ctx, year, month, "critical", "m", "s", "t", nil)
	if err != nil {
		t.Fatal(err)
	}
	logs, err := fs.ListLogs(ctx, LogQuery{Year: year, Month: month})
	if err != nil || len(logs) != 1 || logs[0].ID != id {
		t.Fatalf("logs = %+v err=%v", logs, err)
	}

	if err := fs.IncrementSummary(ctx, date, SeverityWarning); err != nil {
		t.Fatal(err)
	}
	if err := fs.IncrementSummary(ctx, date, SeverityWarning); err != nil {
		t.Fatal(err)
	}
	sum, ok, err := fs.GetSummary(ctx, date)
	if err != nil || !ok || sum.WarningCount < 2 {
		t.Errorf("summary = %+v ok=%v err=%v", sum, ok, err)
	}

	if err := fs.UpdateAlertStatus(ctx, "no-such-alert-"+newDocID(), "resolved"); !errors.Is(err, ErrNotFound) {
		t.Errorf("update missing alert: err = %v, want ErrNotFound", err)
	}
}
