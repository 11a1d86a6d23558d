// Package access answers whether the current principal may read a path and
// classifies paths as restricted or unrestricted. All queries are pure:
// OS permission bits plus the static restricted-directory set.
package access

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// Class is the restriction classification of a path.
type Class string

// Classification constants.
const (
	Unrestricted Class = "unrestricted"
	Restricted   Class = "restricted"
)

// Accessor classifies paths against a static restricted-directory set.
type Accessor struct {
	// restricted holds the bare segment names of the restricted roots,
	// e.g. "System", "bin". Precomputed once; never mutated.
	restricted map[string]struct{}
}

// New creates an Accessor from restricted directory entries such as
// "/System" or "/usr". Entries are reduced to their segment names so that
// comparison works on any canonicalized path.
func New(restrictedDirs []string) *Accessor {
	set := make(map[string]struct{}, len(restrictedDirs))
	for _, dir := range restrictedDirs {
		seg := strings.Trim(filepath.Clean(dir), string(filepath.Separator))
		if seg != "" {
			set[seg] = struct{}{}
		}
	}
	return &Accessor{restricted: set}
}

// IsReadable reports whether the current principal can read path.
func (a *Accessor) IsReadable(path string) bool {
	return unix.Access(path, unix.R_OK) == nil
}

// IsWritable always returns false. Write access is never granted: the
// investigator only produces findings.
func (a *Accessor) IsWritable(path string) bool {
	return false
}

// IsExecutable always returns false. Nothing discovered during an
// investigation is ever executed as a program.
func (a *Accessor) IsExecutable(path string) bool {
	return false
}

// Classify resolves path to its canonical absolute form and reports
// whether any segment matches the restricted set. Resolution follows
// symlinks first; otherwise a link into a restricted root would bypass
// the check.
func (a *Accessor) Classify(path string) Class {
	resolved := a.Resolve(path)
	for _, seg := range strings.Split(resolved, string(filepath.Separator)) {
		if seg == "" {
			continue
		}
		if _, ok := a.restricted[seg]; ok {
			return Restricted
		}
	}
	return Unrestricted
}

// Resolve canonicalizes path: absolute, cleaned, symlinks followed. If the
// path (or a symlink target) does not exist the cleaned absolute form is
// returned, so classification still sees the literal segments.
func (a *Accessor) Resolve(path string) string {
	abs, err := filepath.Abs(expandHome(path))
	if err != nil {
		return filepath.Clean(path)
	}
	if eval, err := filepath.EvalSymlinks(abs); err == nil {
		return eval
	}
	return filepath.Clean(abs)
}

// expandHome rewrites a leading ~ to the current user's home directory.
// The reasoning service frequently asks for ~/Library paths verbatim.
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return path
}
