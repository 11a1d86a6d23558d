package inspect_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoav/pkg/inspect"
)

func newHost() *inspect.Host {
	return inspect.New(zerolog.Nop())
}

func TestIsTextMIME(t *testing.T) {
	cases := []struct {
		mime string
		want bool
	}{
		{"text/plain", true},
		{"text/plain; charset=utf-8", true},
		{"text/html", true},
		{"application/json", true},
		{"application/xml", true},
		{"application/octet-stream", false},
		{"application/x-mach-binary", false},
		{"image/png", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, inspect.IsTextMIME(tc.mime), tc.mime)
	}
}

func TestDetectFileMIME(t *testing.T) {
	dir := t.TempDir()

	text := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(text, []byte("hello world\n"), 0o644))
	mime, err := inspect.DetectFileMIME(text)
	require.NoError(t, err)
	assert.True(t, inspect.IsTextMIME(mime), "got %s", mime)

	binary := filepath.Join(dir, "a.bin")
	require.NoError(t, os.WriteFile(binary, []byte{0x7f, 'E', 'L', 'F', 0x02, 0x01, 0x01, 0x00}, 0o644))
	mime, err = inspect.DetectFileMIME(binary)
	require.NoError(t, err)
	assert.False(t, inspect.IsTextMIME(mime), "got %s", mime)
}

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.txt")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	got, err := inspect.HashFile(path)
	require.NoError(t, err)
	// sha256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", got)
	assert.Equal(t, got, inspect.HashBytes([]byte("abc")))
}

func TestListProcesses_FindsOwnProcess(t *testing.T) {
	h := newHost()
	out, err := h.ListProcesses(context.Background(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "PID:")
	assert.Contains(t, out, "processes")
}

func TestListProcesses_FilterNoMatches(t *testing.T) {
	h := newHost()
	out, err := h.ListProcesses(context.Background(), "no-such-process-name-zzz")
	require.NoError(t, err)
	assert.Contains(t, out, "Found 0 processes")
}

func TestListDirectory(t *testing.T) {
	h := newHost()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "visible.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	out, err := h.ListDirectory(dir, false)
	require.NoError(t, err)
	assert.Contains(t, out, "[FILE] visible.txt")
	assert.Contains(t, out, "[DIR] sub")
	assert.NotContains(t, out, ".hidden")

	out, err = h.ListDirectory(dir, true)
	require.NoError(t, err)
	assert.Contains(t, out, ".hidden")

	// directories sort before files
	dirIdx := strings.Index(out, "[DIR] sub")
	fileIdx := strings.Index(out, "[FILE] visible.txt")
	assert.Less(t, dirIdx, fileIdx)
}

func TestFindFiles(t *testing.T) {
	h := newHost()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.plist"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "b.plist"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.txt"), []byte("x"), 0o644))

	out, err := h.FindFiles("*.plist", dir, 50)
	require.NoError(t, err)
	assert.Contains(t, out, "a.plist")
	assert.Contains(t, out, "b.plist")
	assert.NotContains(t, out, "c.txt")
}

func TestFindFiles_MaxResults(t *testing.T) {
	h := newHost()
	dir := t.TempDir()
	for _, name := range []string{"a.log", "b.log", "c.log"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	out, err := h.FindFiles("*.log", dir, 2)
	require.NoError(t, err)
	assert.Contains(t, out, "Found 2 files")
}

func TestFileInfo(t *testing.T) {
	h := newHost()
	path := filepath.Join(t.TempDir(), "info.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	out, err := h.FileInfo(path, true)
	require.NoError(t, err)
	assert.Contains(t, out, "Size: 5 bytes")
	assert.Contains(t, out, "SHA256:")
	// write/execute always read as denied
	assert.Contains(t, out, "Permissions: r--")
}

func TestCheckStartupItems_NeverErrors(t *testing.T) {
	h := newHost()
	out, err := h.CheckStartupItems()
	require.NoError(t, err)
	assert.Contains(t, out, "Startup Items Analysis")
}

func TestCheckBrowserExtensions(t *testing.T) {
	h := newHost()
	out, err := h.CheckBrowserExtensions("all")
	require.NoError(t, err)
	assert.Contains(t, out, "Browser Extensions Analysis")

	_, err = h.CheckBrowserExtensions("netscape")
	require.Error(t, err)
}
