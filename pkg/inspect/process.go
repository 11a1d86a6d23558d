package inspect

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// processEntry is one row of a process listing.
type processEntry struct {
	PID      int32
	Name     string
	Cmdline  string
	MemoryMB float64
	ExePath  string
}

// ListProcesses snapshots the process table, optionally filtered by a
// case-insensitive substring of the process name, ordered by resident
// memory descending. Individual process lookups that fail (the process
// exited, or belongs to another user) are skipped, not fatal.
func (h *Host) ListProcesses(ctx context.Context, filter string) (string, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return "", fmt.Errorf("list processes: %w", err)
	}

	var entries []processEntry
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		if filter != "" && !strings.Contains(strings.ToLower(name), strings.ToLower(filter)) {
			continue
		}
		entry := processEntry{PID: p.Pid, Name: name}
		if cmdline, err := p.CmdlineWithContext(ctx); err == nil {
			entry.Cmdline = cmdline
		}
		if mem, err := p.MemoryInfoWithContext(ctx); err == nil && mem != nil {
			entry.MemoryMB = float64(mem.RSS) / 1024 / 1024
		}
		if exe, err := p.ExeWithContext(ctx); err == nil {
			entry.ExePath = exe
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].MemoryMB > entries[j].MemoryMB })

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d processes", len(entries))
	if filter != "" {
		fmt.Fprintf(&b, " matching %q", filter)
	}
	b.WriteString(":\n\n")

	shown := entries
	if len(shown) > topProcessCount {
		shown = shown[:topProcessCount]
	}
	for _, e := range shown {
		fmt.Fprintf(&b, "PID: %d\nName: %s\nMemory: %.2f MB\n", e.PID, e.Name, e.MemoryMB)
		if e.ExePath != "" {
			fmt.Fprintf(&b, "Path: %s\n", e.ExePath)
		}
		if e.Cmdline != "" {
			fmt.Fprintf(&b, "Command: %s\n", e.Cmdline)
		}
		b.WriteString(strings.Repeat("-", 50) + "\n")
	}
	if len(entries) > topProcessCount {
		fmt.Fprintf(&b, "(showing top %d by memory)\n", topProcessCount)
	}
	return b.String(), nil
}
