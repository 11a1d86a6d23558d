package tools

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"autoav/pkg/access"
	"autoav/pkg/inspect"
	"autoav/pkg/protocol"
)

// readFile reads a file for the transcript. Directly readable files are
// read in-process; restricted unreadable files go through the elevation
// manager. Binary content never appears raw: metadata and hash only.
func (d *Dispatcher) readFile(ctx context.Context, path string, maxSize int64) (string, error) {
	limit := d.cfg.MaxFileSize
	if maxSize > 0 && maxSize < limit {
		limit = maxSize
	}
	resolved := d.accessor.Resolve(path)

	info, statErr := os.Stat(resolved)
	if statErr == nil && info.IsDir() {
		return "", fmt.Errorf("%s is a directory, not a file", path)
	}

	if statErr == nil && d.accessor.IsReadable(resolved) {
		if info.Size() > limit {
			return "", &protocol.ResourceTooLargeError{Path: path, Size: info.Size(), Cap: limit}
		}
		return d.readLocal(resolved, info.Size())
	}

	if d.accessor.Classify(resolved) == access.Restricted {
		return d.readElevated(ctx, resolved, limit)
	}
	if statErr != nil {
		return "", fmt.Errorf("file %s does not exist", path)
	}
	return "", &protocol.PermissionDeniedError{Operation: "read file " + path, Reason: "not readable by the current user"}
}

func (d *Dispatcher) readLocal(path string, size int64) (string, error) {
	mime, err := inspect.DetectFileMIME(path)
	if err != nil {
		return "", err
	}
	if !inspect.IsTextMIME(mime) {
		hash, err := inspect.HashFile(path)
		if err != nil {
			return "", err
		}
		return binaryFileSummary(path, mime, size, hash), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return textFileSummary(path, mime, size, string(content)), nil
}

// readElevated reads a restricted file under an elevation grant: size
// probe first so the payload cap applies before any content crosses, then
// the content itself.
func (d *Dispatcher) readElevated(ctx context.Context, path string, limit int64) (string, error) {
	if err := d.priv.Ensure(ctx, "read file "+path); err != nil {
		return "", err
	}

	sizeOut, err := d.priv.RunElevated(ctx, "stat", statSizeArgs(path)...)
	if err != nil {
		return "", err
	}
	size, parseErr := strconv.ParseInt(strings.TrimSpace(string(sizeOut)), 10, 64)
	if parseErr != nil {
		return "", fmt.Errorf("parse size of %s: %w", path, parseErr)
	}
	if size > limit {
		return "", &protocol.ResourceTooLargeError{Path: path, Size: size, Cap: limit}
	}

	content, err := d.priv.RunElevated(ctx, "cat", path)
	if err != nil {
		return "", err
	}

	mime := inspect.DetectMIME(content)
	if !inspect.IsTextMIME(mime) {
		return binaryFileSummary(path, mime, size, inspect.HashBytes(content)) + "Read with elevation: yes\n", nil
	}
	return textFileSummary(path, mime, size, string(content)), nil
}

// statSizeArgs returns the stat argv printing just the byte size, which
// differs between BSD and GNU stat.
func statSizeArgs(path string) []string {
	if runtime.GOOS == "darwin" {
		return []string{"-f", "%z", path}
	}
	return []string{"-c", "%s", path}
}

func textFileSummary(path, mime string, size int64, content string) string {
	return fmt.Sprintf("File: %s\nType: %s\nSize: %d bytes\nContent:\n%s", path, mime, size, content)
}

func binaryFileSummary(path, mime string, size int64, hash string) string {
	return fmt.Sprintf("File: %s\nType: %s (binary)\nSize: %d bytes\nSHA256: %s\nNote: binary content is not displayed\n", path, mime, size, hash)
}

// listDirectory lists a directory, elevating for restricted unreadable
// paths.
func (d *Dispatcher) listDirectory(ctx context.Context, path string, showHidden bool) (string, error) {
	resolved := d.accessor.Resolve(path)
	if d.accessor.IsReadable(resolved) {
		return d.host.ListDirectory(resolved, showHidden)
	}
	if d.accessor.Classify(resolved) == access.Restricted {
		if err := d.priv.Ensure(ctx, "list directory "+path); err != nil {
			return "", err
		}
		args := []string{"-l"}
		if showHidden {
			args = []string{"-la"}
		}
		out, err := d.priv.RunElevated(ctx, "ls", append(args, resolved)...)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Directory contents of %s (read with elevation):\n\n%s", path, out), nil
	}
	if _, err := os.Stat(resolved); err != nil {
		return "", fmt.Errorf("directory %s does not exist", path)
	}
	return "", &protocol.PermissionDeniedError{Operation: "list directory " + path, Reason: "not readable by the current user"}
}

// findFiles searches for files by name pattern, elevating for restricted
// roots.
func (d *Dispatcher) findFiles(ctx context.Context, pattern, dir string, maxResults int) (string, error) {
	if maxResults <= 0 {
		maxResults = 50
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		dir = home
	}
	resolved := d.accessor.Resolve(dir)

	if d.accessor.IsReadable(resolved) {
		return d.host.FindFiles(pattern, resolved, maxResults)
	}
	if d.accessor.Classify(resolved) == access.Restricted {
		if err := d.priv.Ensure(ctx, fmt.Sprintf("search %s for %s", dir, pattern)); err != nil {
			return "", err
		}
		out, err := d.priv.RunElevated(ctx, "find", resolved, "-name", pattern, "-type", "f")
		if err != nil {
			return "", err
		}
		lines := strings.Split(strings.TrimSpace(string(out)), "\n")
		if len(lines) > maxResults {
			lines = lines[:maxResults]
		}
		return fmt.Sprintf("Found %d files matching %q in %s (searched with elevation):\n\n%s\n",
			len(lines), pattern, dir, strings.Join(lines, "\n")), nil
	}
	return "", &protocol.PermissionDeniedError{Operation: "search directory " + dir, Reason: "not readable by the current user"}
}

// fileInfo reports file metadata, elevating for restricted unreadable
// paths.
func (d *Dispatcher) fileInfo(ctx context.Context, path string) (string, error) {
	resolved := d.accessor.Resolve(path)
	if d.accessor.IsReadable(resolved) {
		return d.host.FileInfo(resolved, true)
	}
	if d.accessor.Classify(resolved) == access.Restricted {
		if err := d.priv.Ensure(ctx, "inspect file "+path); err != nil {
			return "", err
		}
		out, err := d.priv.RunElevated(ctx, "stat", resolved)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("File Information: %s (read with elevation)\n%s", path, out), nil
	}
	if _, err := os.Stat(resolved); err != nil {
		return "", fmt.Errorf("file %s does not exist", path)
	}
	return "", &protocol.PermissionDeniedError{Operation: "inspect file " + path, Reason: "not readable by the current user"}
}
