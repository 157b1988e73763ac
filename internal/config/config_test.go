package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"voxeldisplay.ai/internal/sim/rotation"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "display.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.DefaultRotation != rotation.Y0 || !cfg.Audit.Enabled {
		t.Fatalf("defaults=%+v", cfg)
	}
}

func TestLoad_OverridesAndNormalizes(t *testing.T) {
	p := writeConfig(t, `
addr: " :9000 "
store_id: shelf
data_dir: /tmp/shelf
default_rotation: {axis: z, degrees: 90}
audit:
  enabled: false
  rotate: " Daily "
  retain: 3
ws:
  max_queue: 500
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9000" || cfg.StoreID != "shelf" || cfg.Audit.Enabled {
		t.Fatalf("cfg=%+v", cfg)
	}
	if cfg.Audit.Period() != 24*time.Hour || cfg.Audit.Retain != 3 {
		t.Fatalf("audit=%+v", cfg.Audit)
	}
	if cfg.DefaultRotation != rotation.Z90 {
		t.Fatalf("DefaultRotation=%s want Z_90", cfg.DefaultRotation)
	}
	if cfg.WS.MaxQueue != 64 || cfg.WS.ReadTimeoutSec != 60 {
		t.Fatalf("ws=%+v", cfg.WS)
	}
	// Untouched sections keep their defaults.
	if !cfg.Snapshot.OnShutdown {
		t.Fatalf("snapshot=%+v", cfg.Snapshot)
	}
}

func TestLoad_RejectsBadRotation(t *testing.T) {
	p := writeConfig(t, "default_rotation: sideways\n")
	_, err := Load(p)
	if !errors.Is(err, rotation.ErrUnknownRotationName) {
		t.Fatalf("err=%v want ErrUnknownRotationName", err)
	}
}

func TestValidate_RequiresFields(t *testing.T) {
	cfg := Defaults()
	cfg.StoreID = ""
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected missing store_id rejected")
	}
	cfg = Defaults()
	cfg.StoreID = "../elsewhere"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected nested store_id rejected")
	}
}

func TestValidate_AuditPolicy(t *testing.T) {
	cfg := Defaults()
	if cfg.Audit.Period() != time.Hour {
		t.Fatalf("default period=%v want 1h", cfg.Audit.Period())
	}
	cfg.Audit.Rotate = "weekly"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected weekly rotation rejected")
	}
	cfg = Defaults()
	cfg.Audit.Retain = -1
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected negative retain rejected")
	}
}
