package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blameprompt/blameprompt/internal/attach"
	"github.com/blameprompt/blameprompt/internal/gitrepo"
	"github.com/blameprompt/blameprompt/internal/hooks"
	"github.com/blameprompt/blameprompt/internal/notes"
	"github.com/blameprompt/blameprompt/internal/staging"
)

func newAttachCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "attach",
		Short: "Bind every currently staged receipt onto HEAD",
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

			stagingStore := staging.New(fmt.Sprintf("%s/%s", repoRoot, hooks.HiddenDirName))
			notesStore := notes.New(repo)

			result, err := attach.Head(repo, stagingStore, notesStore)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStderr(), "blameprompt: attach failed: %v\n", err)
				return NewSilentError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Summary())
			return nil
		},
	}
}

func newStagingCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "staging",
		Short: "Report the number of receipts staged but not yet attached",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repoRoot, err := os.Getwd()
			if err != nil {
				return NewSilentError(err)
			}
			store := staging.New(fmt.Sprintf("%s/%s", repoRoot, hooks.HiddenDirName))
			count, err := store.Count()
			if err != nil {
				return NewSilentError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d receipt(s) staged\n", count)
			return nil
		},
	}
}
