package hooks

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	return dir
}

func TestInstallGitHooks_WritesExecutableMarkedScripts(t *testing.T) {
	dir := initRepo(t)

	n, err := InstallGitHooks(dir)
	require.NoError(t, err)
	require.Equal(t, len(gitHookNames), n)

	for _, name := range gitHookNames {
		path := filepath.Join(dir, ".git", "hooks", name)
		info, err := os.Stat(path)
		require.NoError(t, err)
		require.NotZero(t, info.Mode()&0o100, "hook %s should be executable", name)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Contains(t, string(data), gitHookMarker)
	}
	require.True(t, GitHooksInstalled(dir))
}

func TestInstallGitHooks_SecondRunIsNoop(t *testing.T) {
	dir := initRepo(t)

	_, err := InstallGitHooks(dir)
	require.NoError(t, err)

	n, err := InstallGitHooks(dir)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestInstallHookScripts_PopulatesTemplateDirectory(t *testing.T) {
	hooksDir := filepath.Join(t.TempDir(), "git-template", "hooks")

	n, err := InstallHookScripts(hooksDir)
	require.NoError(t, err)
	require.Equal(t, len(gitHookNames), n)

	for _, name := range gitHookNames {
		data, err := os.ReadFile(filepath.Join(hooksDir, name))
		require.NoError(t, err)
		require.Contains(t, string(data), gitHookMarker)
	}
}

func TestRemoveGitHooks_RemovesOnlyMarkedFiles(t *testing.T) {
	dir := initRepo(t)

	_, err := InstallGitHooks(dir)
	require.NoError(t, err)

	unrelated := filepath.Join(dir, ".git", "hooks", "applypatch-msg.sample")
	require.NoError(t, os.WriteFile(unrelated, []byte("#!/bin/sh\necho hi\n"), 0o755))

	removed, err := RemoveGitHooks(dir)
	require.NoError(t, err)
	require.Equal(t, len(gitHookNames), removed)

	for _, name := range gitHookNames {
		_, err := os.Stat(filepath.Join(dir, ".git", "hooks", name))
		require.True(t, os.IsNotExist(err))
	}
	_, err = os.Stat(unrelated)
	require.NoError(t, err)
	require.False(t, GitHooksInstalled(dir))
}
