package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blameprompt/blameprompt/internal/attribution"
	"github.com/blameprompt/blameprompt/internal/gitrepo"
	"github.com/blameprompt/blameprompt/internal/notes"
)

func newBlameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "blame <file>",
		Short: "Show per-line code provenance for a file at HEAD",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repoRoot, err := os.Getwd()
			if err != nil {
				return NewSilentError(err)
			}
			repo, err := gitrepo.Open(repoRoot)
			if err != nil {
				return NewSilentError(fmt.Errorf("not a git repository: %w", err))
			}

			result, err := attribution.Attribute(repo, notes.New(repo), args[0])
			if err != nil {
				fmt.Fprintf(cmd.OutOrStderr(), "blameprompt: %v\n", err)
				return NewSilentError(err)
			}

			out := cmd.OutOrStdout()
			for _, line := range result.Lines {
				marker := "human"
				switch line.Origin {
				case attribution.LineOriginAI:
					marker = line.Model
					if marker == "" {
						marker = "AI"
					}
				case attribution.LineOriginEdited:
					marker = "edited(" + line.Model + ")"
				}
				fmt.Fprintf(out, "%5d  %-24s  %s\n", line.LineNo, marker, line.Author)
			}
			fmt.Fprintf(out, "\n%.1f%% AI-generated, %.1f%% human-edited AI, %.1f%% pure human\n",
				result.Stats.AIGeneratedPct, result.Stats.HumanEditedPct, result.Stats.PureHumanPct)
			return nil
		},
	}
}
