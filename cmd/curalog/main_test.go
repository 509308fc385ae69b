package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/curalog/curalog/internal/config"
)

func TestStageCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "report.pdf")
	if err := os.WriteFile(src, []byte("%PDF-1.4 test"), 0644); err != nil {
		t.Fatal(err)
	}
	staging := filepath.Join(dir, "staging")

	staged, err := stageCopy(src, staging)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Dir(staged) != staging {
		t.Errorf("staged outside staging dir: %s", staged)
	}
	if filepath.Ext(staged) != ".pdf" {
		t.Errorf("extension lost: %s", staged)
	}
	data, err := os.ReadFile(staged)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "%PDF-1.4 test" {
		t.Errorf("content mismatch: %q", data)
	}
	// original must survive; the pipeline only removes the staged copy
	if _, err := os.Stat(src); err != nil {
		t.Errorf("original removed: %v", err)
	}
}

func TestStageCopyMissingSource(t *testing.T) {
	dir := t.TempDir()
	if _, err := stageCopy(filepath.Join(dir, "absent.pdf"), filepath.Join(dir, "staging")); err == nil {
		t.Error("expected error for missing source")
	}
}

func TestLoadConfigExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9191\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, resolved, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != path {
		t.Errorf("resolved path: %s", resolved)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("port: %d", cfg.Server.Port)
	}
}

func TestLoadConfigMissingExplicitPath(t *testing.T) {
	_, _, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "read config") {
		t.Errorf("error: %v", err)
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "config.yaml")
	if err := writeDefaultConfig(path, false); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("written config does not load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port: %d", cfg.Server.Port)
	}
	if cfg.Embedding.BatchSize != 10 {
		t.Errorf("embedding batch size: %d", cfg.Embedding.BatchSize)
	}

	if err := writeDefaultConfig(path, false); err == nil {
		t.Error("expected refusal to overwrite without force")
	}
	if err := writeDefaultConfig(path, true); err != nil {
		t.Errorf("force overwrite failed: %v", err)
	}
}
