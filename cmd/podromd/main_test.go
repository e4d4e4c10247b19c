package main

import (
	"log"
	"os"
	"path/filepath"
	"testing"

	"example.com/podrom/internal/common"
	"example.com/podrom/internal/ecid"
	"example.com/podrom/internal/server"
)

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "podromd.yaml")
	if err := os.WriteFile(path, []byte("port: 9090\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Port != 9090 {
		t.Fatalf("Port = %d", cfg.Port)
	}
	if cfg.StorageDir != filepath.Join(dir, "data") {
		t.Fatalf("StorageDir = %q", cfg.StorageDir)
	}
	if cfg.Logs.Directory != filepath.Join(dir, "data", "logs") {
		t.Fatalf("Logs.Directory = %q", cfg.Logs.Directory)
	}
	if cfg.MaxIdentitySize != ecid.MaxIdentitySize || cfg.MaxImageSize != server.DefaultMaxImageSize {
		t.Fatalf("limits = %d / %d", cfg.MaxIdentitySize, cfg.MaxImageSize)
	}
	if cfg.Logs.MaxSizeMB != 25 || cfg.Logs.MaxAgeDays != 7 || cfg.Logs.MaxBackups != 5 {
		t.Fatalf("log rotation = %+v", cfg.Logs)
	}
}

func TestLoadConfigRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "podromd.yaml")
	if err := os.WriteFile(path, []byte("port: 1\nprofiles: []\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := loadConfig(path); err == nil {
		t.Fatalf("expected an error for an unknown field")
	}
}

func TestSetupLoggingWritesRotatedFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config{Logs: logConfig{Directory: filepath.Join(dir, "logs"), MaxSizeMB: 1, MaxAgeDays: 1, MaxBackups: 1}}
	if err := setupLogging(cfg); err != nil {
		t.Fatalf("setupLogging: %v", err)
	}
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		common.SetLogOutput(os.Stderr)
	})
	log.Print("hello from podromd")
	data, err := os.ReadFile(filepath.Join(dir, "logs", "podromd.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("log file is empty")
	}
}
