package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/blameprompt/blameprompt/internal/blamepromptconfig"
	"github.com/blameprompt/blameprompt/internal/gitrepo"
	"github.com/blameprompt/blameprompt/internal/hooks"
)

func newInitCmd() *cobra.Command {
	var global bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Install blameprompt's git and agent hooks in the current repository",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if global {
				return installGlobalTemplate(cmd)
			}
			return runInit(cmd)
		},
	}
	cmd.Flags().BoolVar(&global, "global", false, "install a git template so every future `git init`/`git clone` gets blameprompt's hooks")
	return cmd
}

func runInit(cmd *cobra.Command) error {
	repoRoot, err := os.Getwd()
	if err != nil {
		return err
	}
	if _, err := gitrepo.Open(repoRoot); err != nil {
		fmt.Fprintln(cmd.OutOrStderr(), "blameprompt: not a git repository")
		return NewSilentError(err)
	}

	result, err := hooks.Install(repoRoot)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStderr(), "blameprompt: init failed: %v\n", err)
		return NewSilentError(err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "blameprompt: installed %d git hook(s)\n", result.GitHooksInstalled)
	if len(result.AgentsConfigured) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "blameprompt: configured agents: %v\n", result.AgentsConfigured)
	}

	if err := promptTelemetryConsent(cmd, repoRoot); err != nil {
		fmt.Fprintf(cmd.OutOrStderr(), "blameprompt: telemetry prompt skipped: %v\n", err)
	}

	return nil
}

// promptTelemetryConsent asks the user once whether to enable anonymized
// telemetry, persisting the answer so future invocations don't re-ask.
func promptTelemetryConsent(cmd *cobra.Command, repoRoot string) error {
	cfg, err := blamepromptconfig.Load(repoRoot)
	if err != nil {
		return err
	}
	if cfg.Telemetry.Enabled != nil {
		return nil
	}
	if os.Getenv("BLAMEPROMPT_TELEMETRY_OPTOUT") != "" {
		f := false
		cfg.Telemetry.Enabled = &f
		return blamepromptconfig.Save(repoRoot, cfg)
	}

	consent := false
	form := NewAccessibleForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Help improve blameprompt?").
				Description("Share anonymous command-shape usage data. No prompts, code, or file paths are ever sent.").
				Affirmative("Yes").
				Negative("No").
				Value(&consent),
		),
	)
	if err := form.Run(); err != nil {
		return nil //nolint:nilerr // user cancelled, not fatal
	}

	cfg.Telemetry.Enabled = &consent
	if err := blamepromptconfig.Save(repoRoot, cfg); err != nil {
		return fmt.Errorf("save telemetry preference: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "blameprompt: telemetry preference saved")
	return nil
}

func installGlobalTemplate(cmd *cobra.Command) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return NewSilentError(err)
	}
	templateDir := filepath.Join(home, ".blameprompt", "git-template")
	n, err := hooks.InstallHookScripts(filepath.Join(templateDir, "hooks"))
	if err != nil {
		fmt.Fprintf(cmd.OutOrStderr(), "blameprompt: global install failed: %v\n", err)
		return NewSilentError(err)
	}
	if err := hooks.WriteGlobalMarker(); err != nil {
		fmt.Fprintf(cmd.OutOrStderr(), "blameprompt: global install failed: %v\n", err)
		return NewSilentError(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "blameprompt: git template with %d hook(s) installed at %s\nRun `git config --global init.templateDir %s` to apply it to new repositories.\n", n, templateDir, templateDir)
	return nil
}
