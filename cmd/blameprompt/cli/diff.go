package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blameprompt/blameprompt/internal/attribution"
	"github.com/blameprompt/blameprompt/internal/gitrepo"
	"github.com/blameprompt/blameprompt/internal/notes"
)

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff [rev]",
		Short: "Show a revision's diff with per-hunk AI/human provenance markers",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rev := "HEAD"
			if len(args) == 1 {
				rev = args[0]
			}

			repoRoot, err := os.Getwd()
			if err != nil {
				return NewSilentError(err)
			}
			repo, err := gitrepo.Open(repoRoot)
			if err != nil {
				return NewSilentError(fmt.Errorf("not a git repository: %w", err))
			}
			hash, err := gitrepo.ResolveRevision(repo, rev)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStderr(), "blameprompt: %v\n", err)
				return NewSilentError(err)
			}

			hunks, err := attribution.AnnotatedDiff(repo, notes.New(repo), hash)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStderr(), "blameprompt: %v\n", err)
				return NewSilentError(err)
			}

			out := cmd.OutOrStdout()
			if len(hunks) == 0 {
				fmt.Fprintf(out, "blameprompt: %s introduces no changes to diff\n", rev)
				return nil
			}

			lastPath := ""
			for _, h := range hunks {
				if h.Path != lastPath {
					fmt.Fprintf(out, "--- a/%s\n+++ b/%s\n", h.Path, h.Path)
					lastPath = h.Path
				}
				fmt.Fprintf(out, "%s %s\n", h.Header(), h.Marker())
				for _, l := range h.Removed {
					fmt.Fprintf(out, "-%s\n", l)
				}
				for _, l := range h.Added {
					fmt.Fprintf(out, "+%s\n", l)
				}
			}
			return nil
		},
	}
}

func newExportCmd() *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "export [rev]",
		Short: "Project a revision's receipts into the language-neutral interop record",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rev := "HEAD"
			if len(args) == 1 {
				rev = args[0]
			}

			surface, err := openSurface()
			if err != nil {
				return NewSilentError(err)
			}

			record, err := surface.ExportRevision(rev)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStderr(), "blameprompt: %v\n", err)
				return NewSilentError(err)
			}

			if write {
				if err := surface.WriteExport(record); err != nil {
					return NewSilentError(err)
				}
			}

			data, err := json.MarshalIndent(record, "", "  ")
			if err != nil {
				return NewSilentError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().BoolVar(&write, "write", false, "also persist the interop record to the interop annotation ref")
	return cmd
}
