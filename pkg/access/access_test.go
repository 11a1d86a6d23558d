package access_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoav/pkg/access"
)

func newAccessor() *access.Accessor {
	return access.New([]string{"/System", "/Library", "/bin", "/sbin", "/usr"})
}

func TestClassify_RestrictedRoots(t *testing.T) {
	a := newAccessor()

	cases := []string{
		"/usr/lib/libc.dylib",
		"/bin/ls",
		"/System/Library/LaunchDaemons",
		"/usr/",
		"/usr",
	}
	for _, p := range cases {
		assert.Equal(t, access.Restricted, a.Classify(p), "path %s", p)
	}
}

func TestClassify_Unrestricted(t *testing.T) {
	a := newAccessor()

	dir := t.TempDir()
	assert.Equal(t, access.Unrestricted, a.Classify(dir))
	assert.Equal(t, access.Unrestricted, a.Classify("/etc/hosts"))
}

func TestClassify_TrailingSlashAndDotSegments(t *testing.T) {
	a := newAccessor()

	assert.Equal(t, access.Restricted, a.Classify("/usr/lib/"))
	assert.Equal(t, access.Restricted, a.Classify("/etc/../usr/lib"))
}

func TestClassify_SymlinkIntoRestrictedRoot(t *testing.T) {
	a := newAccessor()

	dir := t.TempDir()
	link := filepath.Join(dir, "innocent")
	require.NoError(t, os.Symlink("/usr", link))

	assert.Equal(t, access.Restricted, a.Classify(filepath.Join(link, "lib")))
}

func TestClassify_RelativePath(t *testing.T) {
	a := access.New([]string{"/tmp"})

	wd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(wd) })
	require.NoError(t, os.Chdir("/tmp"))

	// "." resolves under /tmp (possibly via /private/tmp on macOS, which
	// still carries the tmp segment)
	assert.Equal(t, access.Restricted, a.Classify("."))
}

func TestIsWritableAndIsExecutable_AlwaysFalse(t *testing.T) {
	a := newAccessor()

	// Including paths the principal definitely can write and execute:
	// the invariant has no exceptions.
	own := filepath.Join(t.TempDir(), "own.sh")
	require.NoError(t, os.WriteFile(own, []byte("#!/bin/sh\n"), 0o755))

	for _, p := range []string{own, "/tmp", "/bin/ls", "relative/path", ""} {
		assert.False(t, a.IsWritable(p), "IsWritable(%q)", p)
		assert.False(t, a.IsExecutable(p), "IsExecutable(%q)", p)
	}
}

func TestIsReadable(t *testing.T) {
	a := newAccessor()

	readable := filepath.Join(t.TempDir(), "r.txt")
	require.NoError(t, os.WriteFile(readable, []byte("ok"), 0o644))
	assert.True(t, a.IsReadable(readable))

	assert.False(t, a.IsReadable(filepath.Join(t.TempDir(), "missing")))

	if os.Geteuid() != 0 {
		locked := filepath.Join(t.TempDir(), "locked.txt")
		require.NoError(t, os.WriteFile(locked, []byte("no"), 0o000))
		assert.False(t, a.IsReadable(locked))
	}
}
