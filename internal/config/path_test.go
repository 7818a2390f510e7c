package config

import (
	"os"
	"strings"
	"testing"
)

func TestDefaultDataDirXDGOverride(t *testing.T) {
	originalXDG := os.Getenv("XDG_DATA_HOME")
	t.Cleanup(func() {
		if originalXDG != "" {
			os.Setenv("XDG_DATA_HOME", originalXDG)
		} else {
			os.Unsetenv("XDG_DATA_HOME")
		}
	})

	os.Setenv("XDG_DATA_HOME", "/custom/data")
	if got := DefaultDataDir(); got != "/custom/data/queues-demo" {
		t.Errorf("expected /custom/data/queues-demo, got %s", got)
	}
}

func TestDefaultDataDirNeverEmpty(t *testing.T) {
	result := DefaultDataDir()
	if result == "" {
		t.Error("DefaultDataDir should not return empty string")
	}
	if !strings.Contains(result, "queues-demo") && result != "./data" {
		t.Errorf("unexpected data dir %s", result)
	}
}

func TestDefaultDataDirConsistency(t *testing.T) {
	if a, b := DefaultDataDir(), DefaultDataDir(); a != b {
		t.Errorf("DefaultDataDir should be consistent, got %s and %s", a, b)
	}
}

func TestIsDir(t *testing.T) {
	if !isDir(".") {
		t.Error("current directory should be a dir")
	}
	if isDir("/non/existent/path/that/does/not/exist") {
		t.Error("missing path should not be a dir")
	}
}
