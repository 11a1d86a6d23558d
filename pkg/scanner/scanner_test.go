package scanner_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoav/pkg/scanner"
)

// fakeEngine writes a clamscan stand-in script plus a signature database
// directory and returns a Scanner pinned to them.
func fakeEngine(t *testing.T, script string, timeout time.Duration) (*scanner.Scanner, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake engine scripts are POSIX shell")
	}

	dir := t.TempDir()
	bin := filepath.Join(dir, "clamscan")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"+script+"\n"), 0o755))

	dbDir := filepath.Join(dir, "db")
	require.NoError(t, os.Mkdir(dbDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dbDir, "daily.cvd"), []byte("sig"), 0o644))

	s := scanner.New(scanner.Config{
		ClamscanPath: bin,
		DatabaseDir:  dbDir,
		ScanTimeout:  timeout,
	}, zerolog.Nop())
	return s, dir
}

func writeTarget(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "target.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestScanFile_Clean(t *testing.T) {
	s, dir := fakeEngine(t, "exit 0", time.Second)
	target := writeTarget(t, dir, "just text\n")

	res := s.ScanFile(context.Background(), target)
	assert.Equal(t, scanner.Clean, res.Verdict)
	assert.Empty(t, res.Details)
}

func TestScanFile_Infected(t *testing.T) {
	s, dir := fakeEngine(t, `echo "$3: Eicar-Signature FOUND"; exit 1`, time.Second)
	target := writeTarget(t, dir, "EICAR test body")

	res := s.ScanFile(context.Background(), target)
	assert.Equal(t, scanner.Infected, res.Verdict)
	assert.NotEmpty(t, res.Details, "infected verdict must carry signature details")
}

func TestScanFile_EngineError(t *testing.T) {
	s, dir := fakeEngine(t, `echo "LibClamAV Error: bad database" >&2; exit 2`, time.Second)
	target := writeTarget(t, dir, "x")

	res := s.ScanFile(context.Background(), target)
	assert.Equal(t, scanner.ScanError, res.Verdict)
	assert.Contains(t, res.Details, "bad database")
}

func TestScanFile_Timeout(t *testing.T) {
	s, dir := fakeEngine(t, "sleep 5; exit 0", 50*time.Millisecond)
	target := writeTarget(t, dir, "x")

	start := time.Now()
	res := s.ScanFile(context.Background(), target)
	assert.Equal(t, scanner.ScanTimeout, res.Verdict)
	assert.Less(t, time.Since(start), 2*time.Second, "timed-out scan must be terminated, not awaited")
}

func TestScanFile_MissingTargetSkipsEngine(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "ran")
	s, dir := fakeEngine(t, "touch "+marker+"; exit 0", time.Second)

	res := s.ScanFile(context.Background(), filepath.Join(dir, "no-such-file"))
	assert.Equal(t, scanner.ScanError, res.Verdict)

	_, err := os.Stat(marker)
	assert.True(t, os.IsNotExist(err), "engine must not be invoked for a missing path")
}

func TestScanDirectory(t *testing.T) {
	s, dir := fakeEngine(t, "exit 0", time.Second)

	res := s.ScanDirectory(context.Background(), dir)
	assert.Equal(t, scanner.Clean, res.Verdict)

	// a plain file is rejected before the engine runs
	target := writeTarget(t, dir, "x")
	res = s.ScanDirectory(context.Background(), target)
	assert.Equal(t, scanner.ScanError, res.Verdict)
}

func TestScanFile_NoEngine(t *testing.T) {
	s := scanner.New(scanner.Config{ClamscanPath: "", DatabaseDir: t.TempDir()}, zerolog.Nop())
	if s.Available() {
		t.Skip("clamscan installed on this host; discovery found it")
	}
	res := s.ScanFile(context.Background(), os.Args[0])
	assert.Equal(t, scanner.ScanError, res.Verdict)
	assert.Contains(t, res.Details, "clamscan not found")
}

func TestDescribe(t *testing.T) {
	s, _ := fakeEngine(t, "exit 0", time.Second)
	st := s.Describe()
	assert.True(t, st.Available)
	assert.NotEmpty(t, st.ClamscanPath)
	assert.NotEmpty(t, st.DatabaseDir)
}
