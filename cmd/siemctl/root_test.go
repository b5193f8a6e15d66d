package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	in "siem-recorder/internal"
)

func withFlags(t *testing.T, path string, dry bool) {
	t.Helper()
	oldPath, oldDry := configPath, dryRun
	configPath, dryRun = path, dry
	t.Cleanup(func() { configPath, dryRun = oldPath, oldDry })
}

func clearEnv(t *testing.T) {
	for _, k := range []string{"FIREBASE_PROJECT_ID", "SIEM_INGEST_URL", "SIEM_LISTEN", "SIEM_ENCRYPTION_KEY"} {
		t.Setenv(k, "")
	}
}

func TestDryRunConfigKeepsDefaults(t *testing.T) {
	clearEnv(t)
	withFlags(t, filepath.Join(t.TempDir(), "absent.yaml"), true)

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("dry run config: %v", err)
	}
	if cfg.Traffic.IntervalSeconds != 10 || cfg.Traffic.ProcNetDev != "/proc/net/dev" {
		t.Errorf("traffic = %+v", cfg.Traffic)
	}
	if cfg.Ingest.Listen != ":5000" {
		t.Errorf("listen = %q, want :5000", cfg.Ingest.Listen)
	}
	if cfg.Notify.RatePerMinute == nil || *cfg.Notify.RatePerMinute != 10 {
		t.Errorf("rate = %v, want 10", cfg.Notify.RatePerMinute)
	}

	store, closeStore, err := openStore(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer closeStore()
	if _, ok := store.(*in.MemoryStore); !ok {
		t.Errorf("store = %T, want *MemoryStore", store)
	}
}

func TestDryRunConfigReportsParseErrors(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "recorder.yaml")
	if err := os.WriteFile(path, []byte("traffic: [\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	withFlags(t, path, true)

	if _, err := loadConfig(); err == nil {
		t.Fatal("parse error must not be swallowed by --dry-run")
	}
}

func TestConfigWithoutProjectFailsOutsideDryRun(t *testing.T) {
	clearEnv(t)
	withFlags(t, filepath.Join(t.TempDir(), "absent.yaml"), false)

	if _, err := loadConfig(); err == nil {
		t.Fatal("expected validation error")
	}
}
