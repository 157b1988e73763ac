// Package config loads the display server settings from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"voxeldisplay.ai/internal/sim/rotation"
)

type Config struct {
	Addr string `yaml:"addr"`
	// StoreID names the display store: its directory under DataDir and the
	// id stamped into snapshots.
	StoreID string `yaml:"store_id"`
	DataDir string `yaml:"data_dir"`
	DBPath  string `yaml:"db_path"`

	// DefaultRotation is applied by clients that place a display without
	// choosing one. Any form the tree codec accepts is allowed.
	DefaultRotation rotation.State `yaml:"default_rotation"`

	Audit    AuditConfig    `yaml:"audit"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	WS       WSConfig       `yaml:"ws"`
}

type AuditConfig struct {
	Enabled bool `yaml:"enabled"`
	// Rotate is the segment period: "hourly" or "daily".
	Rotate string `yaml:"rotate"`
	// Retain caps the number of segments kept on disk; 0 keeps all.
	Retain int `yaml:"retain"`
}

// Period is the segment length Rotate names.
func (a AuditConfig) Period() time.Duration {
	if a.Rotate == "daily" {
		return 24 * time.Hour
	}
	return time.Hour
}

type SnapshotConfig struct {
	OnShutdown    bool `yaml:"on_shutdown"`
	RestoreLatest bool `yaml:"restore_latest"`
}

type WSConfig struct {
	MaxQueue        int `yaml:"max_queue"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
}

func Defaults() Config {
	return Config{
		Addr:            ":8080",
		StoreID:         "displays",
		DataDir:         "./data",
		DefaultRotation: rotation.Y0,
		Audit:           AuditConfig{Enabled: true, Rotate: "hourly", Retain: 168},
		Snapshot:        SnapshotConfig{OnShutdown: true, RestoreLatest: true},
		WS:              WSConfig{MaxQueue: 8, ReadTimeoutSec: 60, WriteTimeoutSec: 5},
	}
}

// Load reads path over Defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("display.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("display.yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) Normalize() {
	c.Addr = strings.TrimSpace(c.Addr)
	c.StoreID = strings.TrimSpace(c.StoreID)
	c.DataDir = strings.TrimSpace(c.DataDir)
	c.DBPath = strings.TrimSpace(c.DBPath)
	c.Audit.Rotate = strings.ToLower(strings.TrimSpace(c.Audit.Rotate))
	if c.Audit.Rotate == "" {
		c.Audit.Rotate = "hourly"
	}
	if c.WS.MaxQueue <= 0 {
		c.WS.MaxQueue = 8
	}
	if c.WS.MaxQueue > 64 {
		c.WS.MaxQueue = 64
	}
	if c.WS.ReadTimeoutSec <= 0 {
		c.WS.ReadTimeoutSec = 60
	}
	if c.WS.WriteTimeoutSec <= 0 {
		c.WS.WriteTimeoutSec = 5
	}
}

func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if c.StoreID == "" {
		return fmt.Errorf("store_id is required")
	}
	if c.StoreID != filepath.Base(c.StoreID) || c.StoreID == "." || c.StoreID == ".." {
		return fmt.Errorf("store_id %q must be a plain directory name", c.StoreID)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.Audit.Rotate != "hourly" && c.Audit.Rotate != "daily" {
		return fmt.Errorf("audit.rotate must be hourly or daily, got %q", c.Audit.Rotate)
	}
	if c.Audit.Retain < 0 {
		return fmt.Errorf("audit.retain must be >= 0")
	}
	if !c.DefaultRotation.Valid() {
		return fmt.Errorf("default_rotation: %w", rotation.ErrInvalidState)
	}
	return nil
}
