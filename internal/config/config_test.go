package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_EnvOnlyDefaults(t *testing.T) {
	t.Setenv("ESCROW_SERVER_HTTP_ADDR", ":9999")
	t.Setenv("ESCROW_STORE_DRIVER", "memory")
	cfg, err := Load("", true)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.HTTPAddr != ":9999" || cfg.Store.Driver != "memory" {
		t.Fatalf("unexpected server/store %+v %+v", cfg.Server, cfg.Store)
	}
	if cfg.Platform.PlatformFeeBps != 650 || cfg.Platform.TreasuryFeeBps != 550 || cfg.Platform.ReferralFeeBps != 100 {
		t.Fatalf("fees=%+v", cfg.Platform)
	}
	if cfg.Auth.ChallengeTTL != 5*time.Minute {
		t.Fatalf("challenge ttl=%s", cfg.Auth.ChallengeTTL)
	}
	if cfg.Archive.Enabled() {
		t.Fatalf("archive should be disabled without a bucket")
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "store:\n  driver: memory\nplatform:\n  admin_signers: [a, b, c]\narchive:\n  bucket: matches-archive\nnotify:\n  channels:\n    - type: webhook\n      url: http://hook\n      events: [MatchCompleted]\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Platform.AdminSigners) != 3 {
		t.Fatalf("signers=%v", cfg.Platform.AdminSigners)
	}
	if !cfg.Archive.Enabled() || cfg.Archive.BatchSize != 100 {
		t.Fatalf("archive=%+v", cfg.Archive)
	}
	if len(cfg.Notify.Channels) != 1 || cfg.Notify.Channels[0].Events[0] != "MatchCompleted" {
		t.Fatalf("channels=%+v", cfg.Notify.Channels)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), false); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
