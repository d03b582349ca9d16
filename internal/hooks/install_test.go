package hooks

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGlobalMarker_Lifecycle(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	require.False(t, GlobalMarkerExists())
	require.NoError(t, WriteGlobalMarker())
	require.True(t, GlobalMarkerExists())
	require.NoError(t, RemoveGlobalMarker())
	require.False(t, GlobalMarkerExists())
}

func TestRemoveGlobalMarker_MissingIsNotAnError(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, RemoveGlobalMarker())
}

func TestMaybeAutoInstall_InstallsWhenMarkerPresent(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, WriteGlobalMarker())

	dir := initRepo(t)
	MaybeAutoInstall(dir)
	require.True(t, GitHooksInstalled(dir))
}

func TestMaybeAutoInstall_NoopWithoutMarker(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	dir := initRepo(t)
	MaybeAutoInstall(dir)
	require.False(t, GitHooksInstalled(dir))
}
