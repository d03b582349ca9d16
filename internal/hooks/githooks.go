// Package hooks installs and removes the lifecycle callbacks blameprompt
// registers in external tools: the VCS's own hook scripts, and each
// transcript adapter's agent-specific configuration file.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// gitHookMarker is embedded in every installed hook script so install is
// idempotent and uninstall only ever removes blameprompt's own fragment.
const gitHookMarker = "blameprompt git hooks"

// gitHookNames are the git hooks blameprompt manages, mapped onto the
// lifecycle points it must observe: pre-commit reports the staged count,
// post-commit triggers attachment, post-rewrite triggers the remapper,
// post-checkout initialises staging and pulls remote annotations, and
// post-merge preserves staging across a merge.
var gitHookNames = []string{"pre-commit", "post-commit", "post-rewrite", "post-checkout", "post-merge"}

// GetGitDir returns the git directory for the repository at dir, resolving
// worktrees the same way `git rev-parse --git-dir` does.
func GetGitDir(dir string) (string, error) {
	cmd := exec.CommandContext(context.Background(), "git", "rev-parse", "--git-dir")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", errors.New("not a git repository")
	}
	gitDir := strings.TrimSpace(string(out))
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(dir, gitDir)
	}
	return filepath.Clean(gitDir), nil
}

// hookScript returns the shell script body for one managed hook. verb is
// passed as the first argument to `blameprompt hooks git <verb>`, followed
// by the positional arguments git passes to that hook (none for pre-commit
// and post-commit). Every script is best-effort: errors are discarded and
// it exits 0, so it never blocks the user's git command. Only post-rewrite
// reads from stdin (git's old/new sha pairs).
func hookScript(verb string) string {
	switch verb {
	case "pre-commit":
		return fmt.Sprintf("#!/bin/sh\n# %s\nblameprompt hooks git pre-commit 2>/dev/null || true\n", gitHookMarker)
	case "post-commit":
		return fmt.Sprintf("#!/bin/sh\n# %s\nblameprompt hooks git post-commit 2>/dev/null || true\n", gitHookMarker)
	case "post-rewrite":
		return fmt.Sprintf("#!/bin/sh\n# %s\n# $1 is the rewrite source command (amend or rebase); old/new sha pairs\n# come from stdin per git's post-rewrite hook protocol.\nblameprompt hooks git post-rewrite \"$1\" 2>/dev/null || true\n", gitHookMarker)
	case "post-checkout":
		return fmt.Sprintf("#!/bin/sh\n# %s\n# $1 previous HEAD, $2 new HEAD, $3 1 if a branch checkout\nblameprompt hooks git post-checkout \"$1\" \"$2\" \"$3\" 2>/dev/null || true\n", gitHookMarker)
	case "post-merge":
		return fmt.Sprintf("#!/bin/sh\n# %s\n# $1 is 1 for a squash merge\nblameprompt hooks git post-merge \"$1\" 2>/dev/null || true\n", gitHookMarker)
	default:
		return ""
	}
}

// InstallGitHooks writes blameprompt's git hook scripts under repoRoot's
// git directory, skipping any that already carry identical content.
// Returns the number of files actually (re)written.
func InstallGitHooks(repoRoot string) (int, error) {
	gitDir, err := GetGitDir(repoRoot)
	if err != nil {
		return 0, err
	}
	return InstallHookScripts(filepath.Join(gitDir, "hooks"))
}

// InstallHookScripts writes the managed hook scripts into hooksDir,
// creating it if needed. Shared between a live repository's .git/hooks and
// the global git template's hooks directory, which git copies into every
// repository created after `init --global`.
func InstallHookScripts(hooksDir string) (int, error) {
	if err := os.MkdirAll(hooksDir, 0o755); err != nil {
		return 0, fmt.Errorf("create hooks directory: %w", err)
	}

	installed := 0
	for _, name := range gitHookNames {
		written, err := writeHookFile(filepath.Join(hooksDir, name), hookScript(name))
		if err != nil {
			return installed, fmt.Errorf("install %s hook: %w", name, err)
		}
		if written {
			installed++
		}
	}
	return installed, nil
}

// writeHookFile writes content to path unless it already holds that exact
// content, in which case it is left untouched. Hook scripts must be
// executable.
func writeHookFile(path, content string) (bool, error) {
	existing, err := os.ReadFile(path)
	if err == nil && string(existing) == content {
		return false, nil
	}
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

// RemoveGitHooks deletes any managed hook file whose content carries
// gitHookMarker, leaving hooks a user or another tool installed untouched.
// Returns the number of files removed.
func RemoveGitHooks(repoRoot string) (int, error) {
	gitDir, err := GetGitDir(repoRoot)
	if err != nil {
		return 0, err
	}

	removed := 0
	var errs []string
	for _, name := range gitHookNames {
		path := filepath.Join(gitDir, "hooks", name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if !strings.Contains(string(data), gitHookMarker) {
			continue
		}
		if err := os.Remove(path); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		removed++
	}
	if len(errs) > 0 {
		return removed, fmt.Errorf("remove git hooks: %s", strings.Join(errs, "; "))
	}
	return removed, nil
}

// GitHooksInstalled reports whether every managed hook file is present and
// carries gitHookMarker.
func GitHooksInstalled(repoRoot string) bool {
	gitDir, err := GetGitDir(repoRoot)
	if err != nil {
		return false
	}
	for _, name := range gitHookNames {
		data, err := os.ReadFile(filepath.Join(gitDir, "hooks", name))
		if err != nil || !strings.Contains(string(data), gitHookMarker) {
			return false
		}
	}
	return true
}
