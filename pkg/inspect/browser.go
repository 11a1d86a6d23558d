package inspect

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// browserProfile names one browser's extension directory.
type browserProfile struct {
	Name string
	Dir  string
}

// browserProfiles returns the extension locations for the current OS.
// Only browsers present in the table are surveyed; "all" covers the
// whole table.
func browserProfiles() []browserProfile {
	if runtime.GOOS == "darwin" {
		return []browserProfile{
			{"chrome", "~/Library/Application Support/Google/Chrome/Default/Extensions"},
			{"safari", "~/Library/Safari/Extensions"},
			{"firefox", "~/Library/Application Support/Firefox/Profiles"},
		}
	}
	return []browserProfile{
		{"chrome", "~/.config/google-chrome/Default/Extensions"},
		{"chromium", "~/.config/chromium/Default/Extensions"},
		{"firefox", "~/.mozilla/firefox"},
	}
}

// maxExtensionEntries bounds how many extension directories one browser
// survey reports.
const maxExtensionEntries = 10

// CheckBrowserExtensions surveys installed browser extension directories.
// browser selects one entry from the profile table, or "all".
func (h *Host) CheckBrowserExtensions(browser string) (string, error) {
	var b strings.Builder
	b.WriteString("Browser Extensions Analysis:\n\n")

	found := false
	for _, p := range browserProfiles() {
		if browser != "" && browser != "all" && !strings.EqualFold(browser, p.Name) {
			continue
		}
		found = true
		fmt.Fprintf(&b, "=== %s ===\n", p.Name)

		dir := expandHome(p.Dir)
		entries, err := os.ReadDir(dir)
		if err != nil {
			b.WriteString("Extension directory not found\n\n")
			continue
		}
		fmt.Fprintf(&b, "Found %d extension directories\n", len(entries))
		shown := entries
		if len(shown) > maxExtensionEntries {
			shown = shown[:maxExtensionEntries]
		}
		for _, e := range shown {
			if e.IsDir() {
				fmt.Fprintf(&b, "  - %s\n", e.Name())
			}
		}
		b.WriteString("\n")
	}
	if !found {
		return "", fmt.Errorf("unknown browser %q", browser)
	}
	return b.String(), nil
}
