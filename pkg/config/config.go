// Package config loads the autoav TOML configuration. Configuration is
// immutable after process start: the loaded Config is passed by value to
// the components that need it and never mutated.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Defaults mirrored in config.toml comments.
const (
	DefaultMaxFileSize     = 10 << 20 // 10 MiB read cap
	DefaultIterationCap    = 10
	DefaultGrantTTLSecs    = 300
	DefaultScanTimeoutSecs = 30
	DefaultPromptTimeoutSecs  = 30
	DefaultRefreshTimeoutSecs = 60
	DefaultModel     = "gpt-4"
	DefaultAPIKeyEnv = "OPENAI_API_KEY"
	DefaultBaseURL   = "https://api.openai.com/v1"
)

// Config holds all autoav configuration.
type Config struct {
	// RestrictedDirs are path roots whose contents require elevation to
	// inspect. Matched against canonicalized path segments.
	RestrictedDirs []string `toml:"restricted_dirs"`

	// AllowedCommands is the static allow-list for the run_command tool.
	// Read-only diagnostic commands only.
	AllowedCommands []string `toml:"allowed_commands"`

	MaxFileSize  int64 `toml:"max_file_size"`
	IterationCap int   `toml:"iteration_cap"`
	TokenCap     int   `toml:"token_cap"` // 0 = unlimited

	GrantTTLSecs       int `toml:"grant_ttl_secs"`
	ScanTimeoutSecs    int `toml:"scan_timeout_secs"`
	PromptTimeoutSecs  int `toml:"prompt_timeout_secs"`
	RefreshTimeoutSecs int `toml:"refresh_timeout_secs"`

	Model     string `toml:"model"`
	BaseURL   string `toml:"base_url"`
	APIKeyEnv string `toml:"api_key_env"`

	TranscriptPath string `toml:"transcript_path"` // empty = no audit log
}

// withDefaults fills zero-valued fields.
func (c Config) withDefaults() Config {
	out := c
	if len(out.RestrictedDirs) == 0 {
		out.RestrictedDirs = []string{"/System", "/Library", "/bin", "/sbin", "/usr"}
	}
	if len(out.AllowedCommands) == 0 {
		out.AllowedCommands = DefaultAllowedCommands()
	}
	if out.MaxFileSize == 0 {
		out.MaxFileSize = DefaultMaxFileSize
	}
	if out.IterationCap == 0 {
		out.IterationCap = DefaultIterationCap
	}
	if out.GrantTTLSecs == 0 {
		out.GrantTTLSecs = DefaultGrantTTLSecs
	}
	if out.ScanTimeoutSecs == 0 {
		out.ScanTimeoutSecs = DefaultScanTimeoutSecs
	}
	if out.PromptTimeoutSecs == 0 {
		out.PromptTimeoutSecs = DefaultPromptTimeoutSecs
	}
	if out.RefreshTimeoutSecs == 0 {
		out.RefreshTimeoutSecs = DefaultRefreshTimeoutSecs
	}
	if out.Model == "" {
		out.Model = DefaultModel
	}
	if out.BaseURL == "" {
		out.BaseURL = DefaultBaseURL
	}
	if out.APIKeyEnv == "" {
		out.APIKeyEnv = DefaultAPIKeyEnv
	}
	return out
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{}.withDefaults()
}

// Load reads a TOML config file and applies defaults. A missing file is
// not an error: the defaults are returned.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg.withDefaults(), nil
}

// GrantTTL is how long an elevation grant stays active.
func (c Config) GrantTTL() time.Duration { return time.Duration(c.GrantTTLSecs) * time.Second }

// ScanTimeout bounds a single-file signature scan. Directory scans get
// twice this.
func (c Config) ScanTimeout() time.Duration { return time.Duration(c.ScanTimeoutSecs) * time.Second }

// PromptTimeout bounds interactive credential entry.
func (c Config) PromptTimeout() time.Duration {
	return time.Duration(c.PromptTimeoutSecs) * time.Second
}

// RefreshTimeout bounds a signature-database refresh.
func (c Config) RefreshTimeout() time.Duration {
	return time.Duration(c.RefreshTimeoutSecs) * time.Second
}

// APIKey resolves the reasoning-service credential from the environment.
func (c Config) APIKey() string {
	return os.Getenv(c.APIKeyEnv)
}

// DefaultAllowedCommands returns the built-in read-only diagnostic command
// allow-list for the run_command tool. Nothing here writes, and arguments
// are always passed as a discrete argv, never through a shell.
func DefaultAllowedCommands() []string {
	return []string{
		// filesystem
		"ls", "cat", "head", "tail", "file", "stat", "find", "which", "du", "df", "wc",
		// processes
		"ps", "pgrep", "lsof",
		// network
		"netstat", "ss", "ifconfig", "ip", "route", "arp", "nslookup", "dig", "host",
		// system
		"uname", "hostname", "whoami", "id", "who", "last", "uptime", "date",
		"free", "vmstat", "dmesg", "journalctl",
		// accounts and scheduling
		"groups", "getent", "crontab",
		// packages
		"dpkg", "rpm", "brew",
		// security
		"clamscan", "clamdscan", "freshclam",
		// binary inspection
		"strings", "hexdump", "xxd", "od", "md5sum", "sha1sum", "sha256sum",
		"objdump", "nm", "readelf", "ldd",
	}
}
