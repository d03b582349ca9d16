package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blameprompt/blameprompt/internal/gitrepo"
	"github.com/blameprompt/blameprompt/internal/hooks"
	"github.com/blameprompt/blameprompt/internal/query"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [rev]",
		Short: "Show every receipt attached to a revision",
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

			payload, ok, err := surface.Read(rev)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStderr(), "blameprompt: %v\n", err)
				return NewSilentError(err)
			}
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "blameprompt: %s carries no annotation\n", rev)
				return nil
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d receipt(s)\n", rev, len(payload.Receipts))
			for _, r := range payload.Receipts {
				fmt.Fprintf(out, "  - %s  %-12s  %s  (+%d/-%d)\n", r.ID[:8], r.Model, r.PromptSummary, r.EffectiveTotalAdditions(), r.EffectiveTotalDeletions())
			}
			return nil
		},
	}
}

func newAuditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Summarise AI-authored line counts across every annotated revision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			surface, err := openSurface()
			if err != nil {
				return NewSilentError(err)
			}
			report, err := surface.Audit()
			if err != nil {
				return NewSilentError(err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "revisions annotated: %d\n", report.RevisionCount)
			fmt.Fprintf(out, "receipts:            %d\n", report.ReceiptCount)
			fmt.Fprintf(out, "AI-attributed lines: %d\n", report.TotalAILines)
			for model, lines := range report.ModelLineCount {
				fmt.Fprintf(out, "  %-24s %d\n", model, lines)
			}
			return nil
		},
	}
}

func newSearchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search staged and attached receipts by prompt, model, provider, or file path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			surface, err := openSurface()
			if err != nil {
				return NewSilentError(err)
			}

			var results []query.SearchResult
			if store, openErr := openCache(); openErr == nil {
				defer store.Close()
				results, err = surface.SearchCached(store, args[0], limit)
			} else {
				results, err = surface.Search(args[0], limit)
			}
			if err != nil {
				return NewSilentError(err)
			}

			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintln(out, "blameprompt: no matches")
				return nil
			}
			for _, res := range results {
				fmt.Fprintf(out, "%s  %-8s  %s\n", res.Revision.String()[:7], res.Receipt.Model, res.Receipt.PromptSummary)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of results")
	return cmd
}

// openSurface opens a query.Surface rooted at the current working
// directory's repository and staging journal.
func openSurface() (query.Surface, error) {
	repoRoot, err := os.Getwd()
	if err != nil {
		return query.Surface{}, err
	}
	repo, err := gitrepo.Open(repoRoot)
	if err != nil {
		return query.Surface{}, fmt.Errorf("not a git repository: %w", err)
	}
	return query.New(repo, fmt.Sprintf("%s/%s", repoRoot, hooks.HiddenDirName)), nil
}
