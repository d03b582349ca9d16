//go:build e2e

// Package e2e drives the built blameprompt binary through real git
// repositories and, where a prompt needs answering, a real pty — the same
// style of black-box coverage the rest of the command tree's unit tests
// can't reach.
package e2e

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// testBinaryEnvVar names the environment variable the test suite expects to
// carry a path to a built blameprompt binary. It is never built here.
const testBinaryEnvVar = "BLAMEPROMPT_TEST_BINARY"

func getTestBinary() string {
	if path := os.Getenv(testBinaryEnvVar); path != "" {
		return path
	}
	return "blameprompt"
}

// TestEnv is an isolated repository plus a handle on the test driving it.
type TestEnv struct {
	T       *testing.T
	RepoDir string
}

// NewTestEnv creates an isolated temporary git repository.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	repoDir := t.TempDir()
	if resolved, err := filepath.EvalSymlinks(repoDir); err == nil {
		repoDir = resolved
	}
	env := &TestEnv{T: t, RepoDir: repoDir}
	env.initRepo()
	return env
}

func (env *TestEnv) initRepo() {
	env.T.Helper()

	repo, err := git.PlainInit(env.RepoDir, false)
	if err != nil {
		env.T.Fatalf("init repo: %v", err)
	}
	cfg, err := repo.Config()
	if err != nil {
		env.T.Fatalf("repo config: %v", err)
	}
	cfg.User.Name = "E2E Test User"
	cfg.User.Email = "e2e-test@example.com"
	if err := repo.SetConfig(cfg); err != nil {
		env.T.Fatalf("set config: %v", err)
	}

	env.WriteFile("README.md", "# test repository\n")
	wt, err := repo.Worktree()
	if err != nil {
		env.T.Fatalf("worktree: %v", err)
	}
	if _, err := wt.Add("README.md"); err != nil {
		env.T.Fatalf("add: %v", err)
	}
	if _, err := wt.Commit("initial commit", &git.CommitOptions{
		Author: &object.Signature{Name: "E2E Test User", Email: "e2e-test@example.com", When: time.Now()},
	}); err != nil {
		env.T.Fatalf("commit: %v", err)
	}
}

// WriteFile writes content to path, relative to the repository root.
func (env *TestEnv) WriteFile(path, content string) {
	env.T.Helper()
	full := filepath.Join(env.RepoDir, path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		env.T.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		env.T.Fatalf("write %s: %v", path, err)
	}
}

// TryReadFile reads path relative to the repository root, returning an
// empty string if it doesn't exist.
func (env *TestEnv) TryReadFile(path string) string {
	env.T.Helper()
	data, err := os.ReadFile(filepath.Join(env.RepoDir, path))
	if err != nil {
		return ""
	}
	return string(data)
}

// FileExists reports whether path exists relative to the repository root.
func (env *TestEnv) FileExists(path string) bool {
	env.T.Helper()
	_, err := os.Stat(filepath.Join(env.RepoDir, path))
	return err == nil
}

func (env *TestEnv) command(args ...string) *exec.Cmd {
	cmd := exec.Command(getTestBinary(), args...) //nolint:gosec // test code, args are static
	cmd.Dir = env.RepoDir
	return cmd
}
