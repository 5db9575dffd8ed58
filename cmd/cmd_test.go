package cmd

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stabilityStub(t *testing.T, status int, body any) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	t.Setenv("STABILITY_API_HOST", srv.URL)
	t.Setenv("STABILITY_API_KEY", "sk")
	t.Setenv("STABILITY_API_KEY_PARAM", "")
	t.Setenv("OUTPUT_BUCKET", "")
	t.Setenv("HISTORY_BUCKET", "")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	c := NewCLI()
	c.SetOut(&out)
	c.SetErr(&bytes.Buffer{})
	c.SetArgs(args)
	err := c.Execute()
	return out.String(), err
}

func TestGenerateAndHistory(t *testing.T) {
	stabilityStub(t, http.StatusOK, map[string]any{
		"artifacts": []map[string]any{{"base64": base64.StdEncoding.EncodeToString([]byte("png"))}},
	})
	dir := t.TempDir()
	historyFile := filepath.Join(dir, "history.json")
	outFile := filepath.Join(dir, "cat.png")

	out, err := run(t, "generate", "a cat", "--history-file", historyFile, "--out", outFile)
	require.NoError(t, err)
	assert.Equal(t, outFile, strings.TrimSpace(out))

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)

	_, err = run(t, "generate", "a cat", "--history-file", historyFile, "--out", outFile)
	require.NoError(t, err)

	out, err = run(t, "history", "--history-file", historyFile)
	require.NoError(t, err)
	assert.Equal(t, "a cat\n", out)
}

func TestGenerateReportsAPIMessage(t *testing.T) {
	stabilityStub(t, http.StatusUnauthorized, map[string]any{"message": "invalid api key"})

	_, err := run(t, "generate", "a cat", "--ephemeral", "--out", filepath.Join(t.TempDir(), "x.png"))
	require.Error(t, err)
	assert.Equal(t, "invalid api key", err.Error())
}

func TestGenerateWithoutKey(t *testing.T) {
	stabilityStub(t, http.StatusOK, nil)
	t.Setenv("STABILITY_API_KEY", "")

	_, err := run(t, "generate", "a cat", "--ephemeral")
	assert.Error(t, err)
}
