package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blameprompt/blameprompt/internal/blamepromptconfig"
	"github.com/blameprompt/blameprompt/internal/checkpoint"
	"github.com/blameprompt/blameprompt/internal/gitrepo"
	"github.com/blameprompt/blameprompt/internal/hooks"
	"github.com/blameprompt/blameprompt/internal/transcript"

	_ "github.com/blameprompt/blameprompt/internal/transcript/claudecode"
	_ "github.com/blameprompt/blameprompt/internal/transcript/geminicli"
	_ "github.com/blameprompt/blameprompt/internal/transcript/ideworkspace"
)

// newRecordCmd retro-ingests one transcript file directly, independent of
// any hook: a cold-start path for a transcript that was captured before
// blameprompt was installed, or recovered after a hook misfired.
func newRecordCmd() *cobra.Command {
	var agentName string
	var sessionPath string
	cmd := &cobra.Command{
		Use:   "record --session <path>",
		Short: "Ingest a single agent transcript file directly into the staging journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if sessionPath == "" {
				return NewSilentError(fmt.Errorf("--session is required"))
			}

			repoRoot, err := os.Getwd()
			if err != nil {
				return NewSilentError(err)
			}
			repo, err := gitrepo.Open(repoRoot)
			if err != nil {
				return NewSilentError(fmt.Errorf("not a git repository: %w", err))
			}

			adapter, err := transcript.Get(agentName)
			if err != nil {
				return NewSilentError(err)
			}
			sess, err := adapter.Parse(sessionPath)
			if err != nil {
				return NewSilentError(fmt.Errorf("parse %s: %w", sessionPath, err))
			}

			cfg, err := blamepromptconfig.Load(repoRoot)
			if err != nil {
				return NewSilentError(err)
			}

			r, err := checkpoint.Upsert(sess, checkpoint.Options{
				Provider: agentName,
				RepoRoot: repoRoot,
				Repo:     repo,
				Config:   cfg,
			}, hooks.HiddenDirName)
			if err != nil {
				return NewSilentError(err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "blameprompt: recorded %s from %s\n", r.ID, sessionPath)
			cmd.Annotations = map[string]string{agentAnnotationKey: agentName}
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionPath, "session", "", "path to the transcript file to ingest")
	cmd.Flags().StringVar(&agentName, "agent", "claude-code", "agent family the transcript belongs to")
	return cmd
}
