package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/blameprompt/blameprompt/internal/logging"
	"github.com/blameprompt/blameprompt/internal/staging"
)

// globalMarkerName is the one-shot flag recording that a global install
// completed, kept under ~/.blameprompt. It is checked at the start of
// every invocation and only ever removed by `uninstall --purge`.
const globalMarkerName = "global-installed"

func globalMarkerPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".blameprompt", globalMarkerName), nil
}

// WriteGlobalMarker records that a global install has happened.
func WriteGlobalMarker() error {
	path, err := globalMarkerPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create global config directory: %w", err)
	}
	return os.WriteFile(path, []byte("installed\n"), 0o600)
}

// GlobalMarkerExists reports whether a global install has happened.
func GlobalMarkerExists() bool {
	path, err := globalMarkerPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// RemoveGlobalMarker deletes the marker; a missing marker is not an error.
func RemoveGlobalMarker() error {
	path, err := globalMarkerPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// MaybeAutoInstall wires the current repository when a prior global
// install left its marker and this repository's hooks are missing (e.g. a
// clone made before the git template existed). Every failure is silent:
// this runs at the start of each invocation and must never get in the way
// of the command the user actually asked for.
func MaybeAutoInstall(repoRoot string) {
	if !GlobalMarkerExists() {
		return
	}
	if _, err := GetGitDir(repoRoot); err != nil {
		return
	}
	if GitHooksInstalled(repoRoot) {
		return
	}
	if _, err := InstallGitHooks(repoRoot); err != nil {
		return
	}
	_ = staging.EnsureIgnored(repoRoot)
}

// InstallResult summarises what Install did, for the init command's
// user-visible output.
type InstallResult struct {
	GitHooksInstalled int
	AgentsConfigured  []string
}

// Install wires blameprompt into repoRoot: VCS hooks, the ignored staging
// directory, and every present agent's hook configuration. VCS hook
// installation failure is fatal, matching the init operation's contract;
// agent hook failures are collected into the log only.
func Install(repoRoot string) (InstallResult, error) {
	ctx := logging.WithComponent(context.Background(), "hooks")

	n, err := InstallGitHooks(repoRoot)
	if err != nil {
		return InstallResult{}, fmt.Errorf("install git hooks: %w", err)
	}

	if err := staging.EnsureIgnored(repoRoot); err != nil {
		return InstallResult{}, fmt.Errorf("update .gitignore: %w", err)
	}

	agents := InstallAgentHooks(repoRoot)
	logging.Info(ctx, "install complete", slog.Int("git_hooks", n), slog.Any("agents", agents))

	return InstallResult{GitHooksInstalled: n, AgentsConfigured: agents}, nil
}

// UninstallResult summarises what Uninstall did.
type UninstallResult struct {
	GitHooksRemoved int
	AgentsTouched   []string
	NotesPurged     bool
}

// Uninstall removes blameprompt's git hooks and every agent's hook
// configuration. When purgeNotes is true, it also deletes the primary and
// interop annotation refs entirely rather than leaving them for a future
// reinstall to pick back up.
func Uninstall(repoRoot string, purgeNotes bool, purge func() error) (UninstallResult, error) {
	n, err := RemoveGitHooks(repoRoot)
	if err != nil {
		return UninstallResult{}, fmt.Errorf("remove git hooks: %w", err)
	}

	touched := UninstallAgentHooks(repoRoot)

	result := UninstallResult{GitHooksRemoved: n, AgentsTouched: touched}
	if purgeNotes && purge != nil {
		if err := purge(); err != nil {
			return result, fmt.Errorf("purge annotations: %w", err)
		}
		result.NotesPurged = true
	}
	return result, nil
}
