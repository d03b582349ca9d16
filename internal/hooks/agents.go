package hooks

import (
	"context"
	"log/slog"

	"github.com/blameprompt/blameprompt/internal/logging"
	"github.com/blameprompt/blameprompt/internal/transcript"
)

// InstallAgentHooks iterates every registered transcript adapter and
// installs its hook configuration if the adapter supports it. An adapter
// that also implements PresenceDetector is skipped (not attempted at all)
// when its agent isn't configured in repoRoot; any other adapter is always
// attempted. Errors from individual adapters are logged and otherwise
// ignored: agent hook installation failures for agents not present on the
// machine must never be fatal.
func InstallAgentHooks(repoRoot string) []string {
	return forEachHookInstaller(repoRoot, func(name string, hi transcript.HookInstaller) error {
		return hi.InstallHookConfig(repoRoot)
	})
}

// UninstallAgentHooks mirrors InstallAgentHooks for removal. Unlike
// install, uninstall is attempted for every adapter regardless of detected
// presence, since a previously-installed config may outlive the agent
// being removed from the machine.
func UninstallAgentHooks(repoRoot string) []string {
	ctx := logging.WithComponent(context.Background(), "hooks")
	var touched []string
	for _, name := range transcript.List() {
		a, err := transcript.Get(name)
		if err != nil {
			continue
		}
		hi, ok := a.(transcript.HookInstaller)
		if !ok {
			continue
		}
		if err := hi.UninstallHookConfig(repoRoot); err != nil {
			logging.Warn(ctx, "uninstall agent hooks failed", slog.String("agent", name), slog.Any("err", err))
			continue
		}
		touched = append(touched, name)
	}
	return touched
}

// forEachHookInstaller is the shared traversal both Install and tests use:
// presence-gate when possible, attempt install, collect the names that
// actually got a hook installed.
func forEachHookInstaller(repoRoot string, install func(name string, hi transcript.HookInstaller) error) []string {
	ctx := logging.WithComponent(context.Background(), "hooks")
	var installed []string
	for _, name := range transcript.List() {
		a, err := transcript.Get(name)
		if err != nil {
			continue
		}
		hi, ok := a.(transcript.HookInstaller)
		if !ok {
			continue
		}
		if pd, ok := a.(transcript.PresenceDetector); ok {
			present, err := pd.DetectPresence(repoRoot)
			if err != nil {
				logging.Debug(ctx, "presence detection failed", slog.String("agent", name), slog.Any("err", err))
			} else if !present {
				logging.Debug(ctx, "agent not present, skipping hook install", slog.String("agent", name))
				continue
			}
		}
		if err := install(name, hi); err != nil {
			logging.Warn(ctx, "install agent hooks failed", slog.String("agent", name), slog.Any("err", err))
			continue
		}
		installed = append(installed, name)
	}
	return installed
}
