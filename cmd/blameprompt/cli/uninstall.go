package cli

import (
	"fmt"
	"os"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/spf13/cobra"

	"github.com/blameprompt/blameprompt/internal/gitrepo"
	"github.com/blameprompt/blameprompt/internal/hooks"
	"github.com/blameprompt/blameprompt/internal/query"
)

func newUninstallCmd() *cobra.Command {
	var purge bool
	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove blameprompt's git and agent hooks from the current repository",
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

			purgeFn := func() error {
				refs := []plumbing.ReferenceName{
					plumbing.ReferenceName("refs/notes/blameprompt"),
					plumbing.ReferenceName(query.InteropRef),
				}
				for _, ref := range refs {
					if _, err := repo.Reference(ref, false); err != nil {
						continue
					}
					if err := repo.Storer.RemoveReference(ref); err != nil {
						return err
					}
				}
				return nil
			}

			result, err := hooks.Uninstall(repoRoot, purge, purgeFn)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStderr(), "blameprompt: uninstall failed: %v\n", err)
				return NewSilentError(err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "blameprompt: removed %d git hook(s)\n", result.GitHooksRemoved)
			if len(result.AgentsTouched) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "blameprompt: agent hooks removed from: %v\n", result.AgentsTouched)
			}
			if result.NotesPurged {
				fmt.Fprintln(cmd.OutOrStdout(), "blameprompt: annotation refs purged")
			}
			if purge {
				if err := hooks.RemoveGlobalMarker(); err != nil {
					fmt.Fprintf(cmd.OutOrStderr(), "blameprompt: could not remove global install marker: %v\n", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&purge, "purge", false, "also delete every annotation ref (irreversible)")
	return cmd
}
