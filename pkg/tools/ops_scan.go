package tools

import (
	"context"
	"fmt"
	"os"

	"autoav/pkg/access"
	"autoav/pkg/protocol"
	"autoav/pkg/scanner"
)

// scanPath runs exactly one signature scan. Restricted unreadable
// targets route through the elevation manager the same way reads do.
func (d *Dispatcher) scanPath(ctx context.Context, path string, recursive bool) (string, error) {
	resolved := d.accessor.Resolve(path)

	var res scanner.Result
	switch {
	case d.accessor.IsReadable(resolved):
		if recursive {
			res = d.scan.ScanDirectory(ctx, resolved)
		} else {
			res = d.scan.ScanFile(ctx, resolved)
		}
	case d.accessor.Classify(resolved) == access.Restricted:
		op := "scan file " + path
		if recursive {
			op = "scan directory " + path
		}
		if err := d.priv.Ensure(ctx, op); err != nil {
			return "", err
		}
		if recursive {
			res = d.scan.ScanDirectoryElevated(ctx, resolved, d.priv)
		} else {
			res = d.scan.ScanFileElevated(ctx, resolved, d.priv)
		}
	default:
		if _, err := os.Stat(resolved); err != nil {
			return "", fmt.Errorf("path %s does not exist", path)
		}
		return "", &protocol.PermissionDeniedError{Operation: "scan " + path, Reason: "not readable by the current user"}
	}

	switch res.Verdict {
	case scanner.Clean:
		return fmt.Sprintf("ClamAV scan of %s\nStatus: Clean (no threats detected)\n", path), nil
	case scanner.Infected:
		return fmt.Sprintf("ClamAV scan of %s\nStatus: INFECTED\nDetails: %s\n", path, res.Details), nil
	case scanner.ScanTimeout:
		return "", &protocol.TimeoutError{Operation: "scan of " + path, Limit: d.cfg.ScanTimeout().String()}
	default:
		return "", fmt.Errorf("scan of %s failed: %s", path, res.Details)
	}
}
