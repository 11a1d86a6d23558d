package inspect

import (
	"context"
	"fmt"
	"strings"

	gopsnet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sys/unix"
)

// NetworkConnections snapshots active inet connections with their owning
// processes. filter is a case-insensitive substring matched against the
// owning process name or either address.
func (h *Host) NetworkConnections(ctx context.Context, filter string) (string, error) {
	conns, err := gopsnet.ConnectionsWithContext(ctx, "inet")
	if err != nil {
		return "", fmt.Errorf("list connections: %w", err)
	}

	// pid -> name cache; repeated lookups are common (browsers)
	names := make(map[int32]string)
	procName := func(pid int32) string {
		if pid == 0 {
			return "unknown"
		}
		if name, ok := names[pid]; ok {
			return name
		}
		name := "unknown"
		if p, err := process.NewProcessWithContext(ctx, pid); err == nil {
			if n, err := p.NameWithContext(ctx); err == nil {
				name = n
			}
		}
		names[pid] = name
		return name
	}

	type row struct {
		pid           int32
		proc          string
		proto         string
		local, remote string
		status        string
	}
	var rows []row
	for _, c := range conns {
		r := row{
			pid:    c.Pid,
			proc:   procName(c.Pid),
			proto:  protoName(c.Type),
			local:  addrString(c.Laddr),
			remote: addrString(c.Raddr),
			status: c.Status,
		}
		if filter != "" {
			f := strings.ToLower(filter)
			if !strings.Contains(strings.ToLower(r.proc), f) &&
				!strings.Contains(r.local, f) && !strings.Contains(r.remote, f) {
				continue
			}
		}
		rows = append(rows, r)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d network connections", len(rows))
	if filter != "" {
		fmt.Fprintf(&b, " matching %q", filter)
	}
	b.WriteString(":\n\n")

	shown := rows
	if len(shown) > topConnectionCount {
		shown = shown[:topConnectionCount]
	}
	for _, r := range shown {
		fmt.Fprintf(&b, "Process: %s (PID: %d)\nType: %s\nLocal: %s\nRemote: %s\nStatus: %s\n",
			r.proc, r.pid, r.proto, r.local, r.remote, r.status)
		b.WriteString(strings.Repeat("-", 40) + "\n")
	}
	if len(rows) > topConnectionCount {
		fmt.Fprintf(&b, "(showing first %d)\n", topConnectionCount)
	}
	return b.String(), nil
}

func protoName(typ uint32) string {
	switch typ {
	case unix.SOCK_STREAM:
		return "TCP"
	case unix.SOCK_DGRAM:
		return "UDP"
	default:
		return fmt.Sprintf("type %d", typ)
	}
}

func addrString(a gopsnet.Addr) string {
	if a.IP == "" {
		return "N/A"
	}
	return fmt.Sprintf("%s:%d", a.IP, a.Port)
}
