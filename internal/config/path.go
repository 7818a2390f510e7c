package config

import (
	"os"
	"path/filepath"
)

// DefaultDataDir returns the default data directory based on the host OS.
// It prefers standard locations when available and falls back to a dotdir
// in the user's home directory.
func DefaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		return "./data"
	}

	// XDG (Linux) override
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "queues-demo")
	}

	// Common Linux/Unix system dir
	if isDir("/var/lib") {
		return "/var/lib/queues-demo"
	}

	// macOS: ~/Library/Application Support/queues-demo
	if isDir(filepath.Join(homeDir, "Library")) {
		return filepath.Join(homeDir, "Library", "Application Support", "queues-demo")
	}

	// Windows: %USERPROFILE%/AppData/Local/queues-demo
	if isDir(filepath.Join(homeDir, "AppData")) {
		return filepath.Join(homeDir, "AppData", "Local", "queues-demo")
	}

	// Fallback: ~/.queues-demo
	return filepath.Join(homeDir, ".queues-demo")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
