package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunRejectsUnknownFlag(t *testing.T) {
	if err := run([]string{"--bogus"}); err == nil || !strings.Contains(err.Error(), "unknown flag") {
		t.Fatalf("expected flag error, got %v", err)
	}
}

func TestRunReportsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[logging]\nlevel = \"loud\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	err := run([]string{"--config", path})
	if err == nil || !strings.Contains(err.Error(), "logging.level") {
		t.Fatalf("expected validation error, got %v", err)
	}
}
