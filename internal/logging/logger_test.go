package logging

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInit_WritesJSONLogFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(dir, "sess-1"))
	defer Close()

	Info(context.Background(), "hello", "k", "v")
	Close()

	data, err := os.ReadFile(filepath.Join(dir, ".blameprompt", "logs", "sess-1.log"))
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"hello"`)
	require.Contains(t, string(data), `"session_id":"sess-1"`)
}

func TestInit_SanitizesSessionID(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(dir, "../../etc/passwd"))
	defer Close()

	entries, err := os.ReadDir(filepath.Join(dir, ".blameprompt", "logs"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotContains(t, entries[0].Name(), "..")
}

func TestWithComponent_AppearsInLogAttrs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(dir, "sess-2"))

	ctx := WithComponent(context.Background(), "hooks")
	ctx = WithAgent(ctx, "claude-code")
	Info(ctx, "installed")
	Close()

	data, err := os.ReadFile(filepath.Join(dir, ".blameprompt", "logs", "sess-2.log"))
	require.NoError(t, err)
	require.Contains(t, string(data), `"component":"hooks"`)
	require.Contains(t, string(data), `"agent":"claude-code"`)
}
