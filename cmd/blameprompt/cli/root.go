package cli

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/blameprompt/blameprompt/internal/blamepromptconfig"
	"github.com/blameprompt/blameprompt/internal/hooks"
	"github.com/blameprompt/blameprompt/internal/telemetry"
	"github.com/blameprompt/blameprompt/internal/versioncheck"
)

// Version and Commit are overridable at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

// agentAnnotationKey records which agent a subcommand concerned, for
// telemetry's PersistentPostRun to read back without a global variable.
const agentAnnotationKey = "blameprompt_agent"

// NewRootCmd builds the blameprompt command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "blameprompt",
		Short:         "Provenance ledger for AI-assisted code changes",
		Long:          "blameprompt records which AI agent, model, session, and prompt produced each line committed to this repository.",
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if wd, err := os.Getwd(); err == nil {
				hooks.MaybeAutoInstall(wd)
			}
			versioncheck.CheckAndNotify(cmd, Version)
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			trackTelemetry(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newCheckpointCmd())
	cmd.AddCommand(newHooksCmd())
	cmd.AddCommand(newAttachCmd())
	cmd.AddCommand(newStagingCountCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newAuditCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newBlameCmd())
	cmd.AddCommand(newDiffCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newPushCmd())
	cmd.AddCommand(newPullCmd())
	cmd.AddCommand(newRecordCmd())
	cmd.AddCommand(newUninstallCmd())
	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newCacheSyncCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("blameprompt %s (%s)\n", Version, Commit)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// trackTelemetry loads the repo's telemetry preference and fires a
// best-effort usage event. Any failure along the way (no repo, no config)
// silently results in no event, never an error.
func trackTelemetry(cmd *cobra.Command) {
	repoRoot, err := os.Getwd()
	if err != nil {
		return
	}
	cfg, err := blamepromptconfig.Load(repoRoot)
	if err != nil {
		return
	}

	client := telemetry.NewClient(Version, cfg.Telemetry.Enabled)
	defer client.Close()

	client.TrackCommand(cmd, cmd.Annotations[agentAnnotationKey])
}
