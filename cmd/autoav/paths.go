package main

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths holds all resolved autoav state file paths.
// Use ResolvePaths() to populate this struct with defaults + env overrides.
type Paths struct {
	Home           string // ~/.autoav or AUTOAV_HOME
	ConfigPath     string // config.toml or AUTOAV_CONFIG
	TranscriptPath string // sessions.db or AUTOAV_DB_PATH
}

// ResolvePaths returns all autoav paths, respecting env var overrides.
// Environment variables:
//   - AUTOAV_HOME: base directory for autoav state (default: ~/.autoav)
//   - AUTOAV_CONFIG: config file (default: $AUTOAV_HOME/config.toml)
//   - AUTOAV_DB_PATH: session transcript database (default: $AUTOAV_HOME/sessions.db)
func ResolvePaths() (*Paths, error) {
	home, err := resolveHome()
	if err != nil {
		return nil, err
	}
	return &Paths{
		Home:           home,
		ConfigPath:     resolvePathWithEnv("AUTOAV_CONFIG", home, "config.toml"),
		TranscriptPath: resolvePathWithEnv("AUTOAV_DB_PATH", home, "sessions.db"),
	}, nil
}

func resolveHome() (string, error) {
	if v := os.Getenv("AUTOAV_HOME"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".autoav"), nil
}

// resolvePathWithEnv returns the path from envKey if set, otherwise joins base + suffix.
func resolvePathWithEnv(envKey, base, suffix string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return filepath.Join(base, suffix)
}
