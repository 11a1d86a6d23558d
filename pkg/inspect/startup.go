package inspect

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// startupLocation is one place the OS launches things from at boot or
// login.
type startupLocation struct {
	Label   string
	Dir     string // ~ expands to the user home
	Pattern string
}

// startupLocations returns the survey table for the current OS.
func startupLocations() []startupLocation {
	if runtime.GOOS == "darwin" {
		return []startupLocation{
			{"User LaunchAgents", "~/Library/LaunchAgents", "*.plist"},
			{"LaunchAgents", "/Library/LaunchAgents", "*.plist"},
			{"LaunchDaemons", "/Library/LaunchDaemons", "*.plist"},
			{"System LaunchDaemons", "/System/Library/LaunchDaemons", "*.plist"},
		}
	}
	return []startupLocation{
		{"systemd system units", "/etc/systemd/system", "*.service"},
		{"systemd user units", "~/.config/systemd/user", "*.service"},
		{"cron.d", "/etc/cron.d", "*"},
		{"XDG autostart", "~/.config/autostart", "*.desktop"},
		{"rc.local", "/etc", "rc.local"},
	}
}

// maxStartupItems bounds how many entries each location reports.
const maxStartupItems = 10

// CheckStartupItems surveys the OS startup locations and lists what is
// registered in each. It never reads the item contents; follow-up reads
// go through the read_file tool where the permission gate applies.
func (h *Host) CheckStartupItems() (string, error) {
	var b strings.Builder
	b.WriteString("Startup Items Analysis:\n\n")

	for _, loc := range startupLocations() {
		fmt.Fprintf(&b, "=== %s (%s) ===\n", loc.Label, loc.Dir)
		dir := expandHome(loc.Dir)
		matches, err := filepath.Glob(filepath.Join(dir, loc.Pattern))
		if err != nil || len(matches) == 0 {
			if _, statErr := os.Stat(dir); statErr != nil {
				b.WriteString("Directory not found\n\n")
			} else {
				b.WriteString("No items\n\n")
			}
			continue
		}
		fmt.Fprintf(&b, "Found %d items\n", len(matches))
		shown := matches
		if len(shown) > maxStartupItems {
			shown = shown[:maxStartupItems]
		}
		for _, m := range shown {
			fmt.Fprintf(&b, "  - %s\n", filepath.Base(m))
		}
		if len(matches) > maxStartupItems {
			fmt.Fprintf(&b, "  (and %d more)\n", len(matches)-maxStartupItems)
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

// expandHome rewrites a leading ~ to the user home directory.
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return path
}
