package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionFlag(t *testing.T) {
	out, err := runRoot(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "autoav")
}

func TestToolsCommand(t *testing.T) {
	out, err := runRoot(t, "tools")
	require.NoError(t, err)
	for _, name := range []string{"read_file", "list_processes", "scan_file", "run_command"} {
		assert.Contains(t, out, name)
	}
	assert.NotContains(t, out, "write_file")
}

func TestInvestigate_MissingAPIKey(t *testing.T) {
	t.Setenv("AUTOAV_HOME", t.TempDir())
	t.Setenv("OPENAI_API_KEY", "")

	_, err := runRoot(t, "investigate", "slow machine")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestInvestigate_EndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{
			"choices": [{"message": {"content": "No signs of compromise."}, "finish_reason": "stop"}],
			"usage": {"total_tokens": 42}
		}`)
	}))
	defer srv.Close()

	home := t.TempDir()
	t.Setenv("AUTOAV_HOME", home)
	t.Setenv("OPENAI_API_KEY", "test-key")
	writeConfig(t, home, srv.URL)

	out, err := runRoot(t, "investigate", "--no-transcript", "my", "machine", "is", "slow")
	require.NoError(t, err)
	assert.Contains(t, out, "No signs of compromise.")
	assert.Contains(t, out, "completed")
}

func TestInvestigate_JSONOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{
			"choices": [{"message": {"content": "clean"}, "finish_reason": "stop"}],
			"usage": {"total_tokens": 7}
		}`)
	}))
	defer srv.Close()

	home := t.TempDir()
	t.Setenv("AUTOAV_HOME", home)
	t.Setenv("OPENAI_API_KEY", "test-key")
	writeConfig(t, home, srv.URL)

	out, err := runRoot(t, "investigate", "--no-transcript", "-o", "json", "check")
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "completed", report["status"])
	assert.Equal(t, "clean", report["findings"])
	assert.EqualValues(t, 7, report["tokens_used"])
}

func TestInvestigate_TranscriptWritten(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"choices": [{"message": {"content": "done"}, "finish_reason": "stop"}]}`)
	}))
	defer srv.Close()

	home := t.TempDir()
	t.Setenv("AUTOAV_HOME", home)
	t.Setenv("OPENAI_API_KEY", "test-key")
	writeConfig(t, home, srv.URL)

	_, err := runRoot(t, "investigate", "audit", "me")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(home, "sessions.db"))
}

func TestStatusCommand(t *testing.T) {
	t.Setenv("AUTOAV_HOME", t.TempDir())
	t.Setenv("OPENAI_API_KEY", "")

	out, err := runRoot(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Reasoning service")
	assert.Contains(t, out, "missing")
}

func TestInvestigate_BadOutputFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"choices": [{"message": {"content": "x"}, "finish_reason": "stop"}]}`)
	}))
	defer srv.Close()

	home := t.TempDir()
	t.Setenv("AUTOAV_HOME", home)
	t.Setenv("OPENAI_API_KEY", "k")
	writeConfig(t, home, srv.URL)

	_, err := runRoot(t, "investigate", "--no-transcript", "-o", "xml", "check")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func writeConfig(t *testing.T, home, baseURL string) {
	t.Helper()
	body := fmt.Sprintf("model = \"test-model\"\nbase_url = %q\n", baseURL)
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.toml"), []byte(body), 0o644))
}
