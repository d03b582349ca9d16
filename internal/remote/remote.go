// Package remote propagates blameprompt's annotation refs to and from a
// git remote, independent of whatever refspecs the user's own push/pull
// already cover.
package remote

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
)

// DefaultRemoteName is used when the caller doesn't specify one.
const DefaultRemoteName = "origin"

// HasRemote reports whether repo has a remote configured under name.
func HasRemote(repo *git.Repository, name string) bool {
	_, err := repo.Remote(name)
	return err == nil
}

// Push pushes each of refs to remoteName as a direct (non-force) refspec.
// git.NoErrAlreadyUpToDate is treated as success.
func Push(repo *git.Repository, remoteName string, refs ...string) error {
	specs := make([]config.RefSpec, 0, len(refs))
	for _, r := range refs {
		specs = append(specs, config.RefSpec(fmt.Sprintf("%s:%s", r, r)))
	}
	err := repo.Push(&git.PushOptions{RemoteName: remoteName, RefSpecs: specs})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	return err
}

// Pull fetches each of refs from remoteName, force-updating the local ref
// to match. git.NoErrAlreadyUpToDate is treated as success.
func Pull(repo *git.Repository, remoteName string, refs ...string) error {
	specs := make([]config.RefSpec, 0, len(refs))
	for _, r := range refs {
		specs = append(specs, config.RefSpec(fmt.Sprintf("+%s:%s", r, r)))
	}
	err := repo.Fetch(&git.FetchOptions{RemoteName: remoteName, RefSpecs: specs})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	return err
}
