package cli

import (
	"fmt"
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/spf13/cobra"

	"github.com/blameprompt/blameprompt/internal/gitrepo"
	"github.com/blameprompt/blameprompt/internal/notes"
	"github.com/blameprompt/blameprompt/internal/query"
	"github.com/blameprompt/blameprompt/internal/remote"
)

func newPushCmd() *cobra.Command {
	var remoteName string
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Push annotation and interop refs to a remote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRemoteOp(cmd, remoteName, remote.Push)
		},
	}
	cmd.Flags().StringVar(&remoteName, "remote", remote.DefaultRemoteName, "remote to push to")
	return cmd
}

func newPullCmd() *cobra.Command {
	var remoteName string
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Pull annotation and interop refs from a remote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRemoteOp(cmd, remoteName, remote.Pull)
		},
	}
	cmd.Flags().StringVar(&remoteName, "remote", remote.DefaultRemoteName, "remote to pull from")
	return cmd
}

// runRemoteOp opens the current repository and runs op (remote.Push or
// remote.Pull) against the primary annotation ref and the interop ref.
func runRemoteOp(cmd *cobra.Command, remoteName string, op func(repo *git.Repository, remoteName string, refs ...string) error) error {
	repoRoot, err := os.Getwd()
	if err != nil {
		return NewSilentError(err)
	}
	repo, err := gitrepo.Open(repoRoot)
	if err != nil {
		return NewSilentError(fmt.Errorf("not a git repository: %w", err))
	}
	if !remote.HasRemote(repo, remoteName) {
		return NewSilentError(fmt.Errorf("no remote named %q", remoteName))
	}
	if err := op(repo, remoteName, notes.DefaultRef, query.InteropRef); err != nil {
		fmt.Fprintf(cmd.OutOrStderr(), "blameprompt: %v\n", err)
		return NewSilentError(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "blameprompt: synced with %s\n", remoteName)
	return nil
}
