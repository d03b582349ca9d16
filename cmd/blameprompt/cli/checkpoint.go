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
)

// newCheckpointCmd exposes the manual escape hatch for staging a receipt
// from an agent's session directly, bypassing the hook protocol entirely —
// useful when a hook failed to fire, or the agent isn't wired for hooks.
func newCheckpointCmd() *cobra.Command {
	var agentName string
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Stage a receipt from the named agent's most recent session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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
			sessions, err := adapter.FindSessions(repoRoot)
			if err != nil || len(sessions) == 0 {
				return NewSilentError(fmt.Errorf("no %s sessions found for this repository", agentName))
			}

			sess, err := adapter.Parse(sessions[len(sessions)-1])
			if err != nil {
				return NewSilentError(err)
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

			fmt.Fprintf(cmd.OutOrStdout(), "blameprompt: staged receipt %s (%d message(s))\n", r.ID, r.MessageCount)
			cmd.Annotations = map[string]string{agentAnnotationKey: agentName}
			return nil
		},
	}
	cmd.Flags().StringVar(&agentName, "agent", "claude-code", "agent family to read a session from")
	return cmd
}
