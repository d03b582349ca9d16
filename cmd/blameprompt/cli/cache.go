package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blameprompt/blameprompt/internal/cache"
	"github.com/blameprompt/blameprompt/internal/gitrepo"
	"github.com/blameprompt/blameprompt/internal/notes"
)

// openCache opens the global prompt cache at its default path, syncing it
// from the current repository's annotation ref first.
func openCache() (*cache.Store, error) {
	path, err := cache.DefaultFilePath()
	if err != nil {
		return nil, err
	}
	store, err := cache.Open(path)
	if err != nil {
		return nil, err
	}

	repoRoot, err := os.Getwd()
	if err == nil {
		if repo, openErr := gitrepo.Open(repoRoot); openErr == nil {
			_, _ = store.SyncFromNotes(repo, notes.New(repo))
		}
	}
	return store, nil
}

func newCacheSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "sync-cache",
		Short:  "Sync the global prompt cache from this repository's annotations",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openCache()
			if err != nil {
				return NewSilentError(err)
			}
			defer store.Close()
			n, err := store.Count(context.Background())
			if err != nil {
				return NewSilentError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "blameprompt: cache holds %d receipt(s)\n", n)
			return nil
		},
	}
}
