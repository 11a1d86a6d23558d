package inspect

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// textMIMEs are the non-"text/*" MIME types whose content may be returned
// verbatim. Everything else is treated as binary: metadata and hash only.
var textMIMEs = []string{
	"application/json",
	"application/xml",
	"text/xml",
}

// IsTextMIME reports whether content of the given MIME type may appear in
// the transcript as raw text.
func IsTextMIME(mime string) bool {
	base, _, _ := strings.Cut(mime, ";")
	base = strings.TrimSpace(base)
	if strings.HasPrefix(base, "text/") {
		return true
	}
	for _, m := range textMIMEs {
		if base == m {
			return true
		}
	}
	return false
}

// DetectFileMIME sniffs the MIME type of a file on disk.
func DetectFileMIME(path string) (string, error) {
	m, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("detect mime of %s: %w", path, err)
	}
	return m.String(), nil
}

// DetectMIME sniffs the MIME type of an in-memory buffer (used for
// content obtained through an elevated read).
func DetectMIME(data []byte) string {
	return mimetype.Detect(data).String()
}

// HashFile returns the SHA-256 of a file's contents, hex encoded.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashBytes returns the SHA-256 of a buffer, hex encoded.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FileInfo describes a file: size, type, times, ownership, hash and the
// effective permission view (write and execute always read as denied —
// the investigator never uses either).
func (h *Host) FileInfo(path string, readable bool) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}

	mime, err := DetectFileMIME(path)
	if err != nil {
		mime = "unknown"
	}
	hash, err := HashFile(path)
	if err != nil {
		hash = "unavailable"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "File Information: %s\n", path)
	fmt.Fprintf(&b, "Type: %s\n", mime)
	fmt.Fprintf(&b, "Size: %d bytes\n", info.Size())
	fmt.Fprintf(&b, "Modified: %s\n", info.ModTime().Format(time.RFC3339))
	fmt.Fprintf(&b, "Mode: %s\n", info.Mode())
	fmt.Fprintf(&b, "SHA256: %s\n", hash)
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		fmt.Fprintf(&b, "Owner: %d\nGroup: %d\n", stat.Uid, stat.Gid)
	}
	perm := "-"
	if readable {
		perm = "r"
	}
	fmt.Fprintf(&b, "Permissions: %s--\n", perm)
	return b.String(), nil
}

// ListDirectory lists a directory's immediate entries, directories first
// then files, each with size and mtime. Hidden entries are skipped unless
// showHidden is set.
func (h *Host) ListDirectory(path string, showHidden bool) (string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return "", fmt.Errorf("read directory %s: %w", path, err)
	}

	type item struct {
		name  string
		isDir bool
		size  int64
		mtime time.Time
	}
	var items []item
	for _, e := range entries {
		if !showHidden && strings.HasPrefix(e.Name(), ".") {
			continue
		}
		it := item{name: e.Name(), isDir: e.IsDir()}
		if info, err := e.Info(); err == nil {
			if !it.isDir {
				it.size = info.Size()
			}
			it.mtime = info.ModTime()
		}
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].isDir != items[j].isDir {
			return items[i].isDir
		}
		return items[i].name < items[j].name
	})

	var b strings.Builder
	fmt.Fprintf(&b, "Directory contents of %s:\n\n", path)
	for _, it := range items {
		tag := "[FILE]"
		if it.isDir {
			tag = "[DIR]"
		}
		fmt.Fprintf(&b, "%s %s\n", tag, it.name)
		if !it.isDir {
			fmt.Fprintf(&b, "  Size: %d bytes\n", it.size)
		}
		fmt.Fprintf(&b, "  Modified: %s\n", it.mtime.Format(time.RFC3339))
	}
	if len(items) == 0 {
		b.WriteString("(empty)\n")
	}
	return b.String(), nil
}

// FindFiles walks root looking for file names matching a glob pattern,
// stopping after maxResults matches. Unreadable subtrees are skipped.
func (h *Host) FindFiles(pattern, root string, maxResults int) (string, error) {
	if maxResults <= 0 {
		maxResults = 50
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", root)
	}

	type match struct {
		path  string
		size  int64
		mtime time.Time
	}
	var matches []match
	errStop := fmt.Errorf("enough results")
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ok, matchErr := filepath.Match(pattern, d.Name())
		if matchErr != nil {
			return fmt.Errorf("bad pattern %q: %w", pattern, matchErr)
		}
		if !ok {
			return nil
		}
		m := match{path: path}
		if info, err := d.Info(); err == nil {
			m.size = info.Size()
			m.mtime = info.ModTime()
		}
		matches = append(matches, m)
		if len(matches) >= maxResults {
			return errStop
		}
		return nil
	})
	if walkErr != nil && walkErr != errStop {
		return "", walkErr
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d files matching %q in %s:\n\n", len(matches), pattern, root)
	for _, m := range matches {
		fmt.Fprintf(&b, "Path: %s\n  Size: %d bytes\n  Modified: %s\n", m.path, m.size, m.mtime.Format(time.RFC3339))
	}
	return b.String(), nil
}
