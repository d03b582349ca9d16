package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/blameprompt/blameprompt/internal/blamepromptconfig"
	"github.com/blameprompt/blameprompt/internal/checkpoint"
	"github.com/blameprompt/blameprompt/internal/gitrepo"
	"github.com/blameprompt/blameprompt/internal/hooks"
	"github.com/blameprompt/blameprompt/internal/logging"
	"github.com/blameprompt/blameprompt/internal/transcript"

	_ "github.com/blameprompt/blameprompt/internal/transcript/claudecode"
	_ "github.com/blameprompt/blameprompt/internal/transcript/geminicli"
)

// agentHookPayload is the JSON object every agent hook command receives on
// stdin. Not every field is populated on every verb: session-start only
// carries session_id and cwd, while the terminal verb (stop/session-end)
// also carries a usable transcript_path.
type agentHookPayload struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	Cwd            string `json:"cwd"`
}

func newHooksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "hooks",
		Short:  "Hook handlers invoked by git and by configured agents",
		Hidden: true,
	}

	cmd.AddCommand(newHooksGitCmd())
	for _, name := range transcript.List() {
		cmd.AddCommand(newAgentHooksCmd(name))
	}

	return cmd
}

func newHooksGitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "git",
		Short:  "Git lifecycle hook handlers",
		Hidden: true,
	}
	cmd.AddCommand(&cobra.Command{
		Use:  "pre-commit",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHandler(cmd, func(h *hooks.Handler) error { return h.PreCommit(cmd.OutOrStdout()) })
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:  "post-commit",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHandler(cmd, func(h *hooks.Handler) error { return h.PostCommit(cmd.OutOrStdout()) })
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:  "post-rewrite <rewrite-reason>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHandler(cmd, func(h *hooks.Handler) error { return h.PostRewrite(cmd.InOrStdin()) })
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:  "post-checkout <prev-head> <new-head> <branch-flag>",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHandler(cmd, func(h *hooks.Handler) error { return h.PostCheckout("") })
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:  "post-merge <squash-flag>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHandler(cmd, func(h *hooks.Handler) error { return h.PostMerge() })
		},
	})
	return cmd
}

// withHandler opens the repository rooted at the working directory and runs
// fn against a freshly built Handler. Per the hook-invocation contract, a
// failure here is logged, never surfaced as a command failure: a git hook
// that exits non-zero aborts the host git operation.
func withHandler(cmd *cobra.Command, fn func(*hooks.Handler) error) error {
	repoRoot, err := os.Getwd()
	if err != nil {
		return nil
	}
	repo, err := gitrepo.Open(repoRoot)
	if err != nil {
		return nil
	}
	h := hooks.NewHandler(repo, repoRoot)
	if err := fn(h); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "blameprompt: %v\n", err)
	}
	return nil
}

// newAgentHooksCmd builds the `blameprompt hooks <agent>` subtree. Every
// verb reads one JSON payload from stdin; only the agent's terminal verb
// (the point at which its transcript is known to be complete for this
// checkpoint) stages a receipt.
func newAgentHooksCmd(agentName string) *cobra.Command {
	cmd := &cobra.Command{
		Use:    agentName,
		Short:  fmt.Sprintf("%s hook handlers", agentName),
		Hidden: true,
	}

	terminalVerb := terminalVerbFor(agentName)
	for _, verb := range hookVerbsFor(agentName) {
		verb := verb
		cmd.AddCommand(&cobra.Command{
			Use:  verb,
			Args: cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				payload, err := readAgentHookPayload(cmd.InOrStdin())
				if err != nil {
					return nil //nolint:nilerr // malformed hook input never fails the host agent
				}
				if verb != terminalVerb {
					return nil
				}
				return runCheckpoint(cmd, agentName, payload)
			},
		})
	}
	return cmd
}

func hookVerbsFor(agentName string) []string {
	switch agentName {
	case "claude-code":
		return []string{"session-start", "user-prompt-submit", "stop"}
	case "gemini-cli":
		return []string{"session-start", "after-agent", "session-end"}
	default:
		return nil
	}
}

func terminalVerbFor(agentName string) string {
	switch agentName {
	case "gemini-cli":
		return "session-end"
	default:
		return "stop"
	}
}

func readAgentHookPayload(r io.Reader) (agentHookPayload, error) {
	var p agentHookPayload
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return agentHookPayload{}, fmt.Errorf("decode hook payload: %w", err)
	}
	return p, nil
}

// runCheckpoint parses the agent's transcript and stages a receipt for it.
// Failures are logged, not surfaced: an ingestion failure must never block
// the agent it was observing.
func runCheckpoint(cmd *cobra.Command, agentName string, payload agentHookPayload) error {
	ctx := logging.WithComponent(cmd.Context(), "hooks")

	repoRoot := payload.Cwd
	if repoRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil
		}
		repoRoot = wd
	}
	repo, err := gitrepo.Open(repoRoot)
	if err != nil {
		logging.Warn(ctx, "checkpoint: not a git repository", "agent", agentName)
		return nil
	}

	adapter, err := transcript.Get(agentName)
	if err != nil {
		logging.Warn(ctx, "checkpoint: unknown agent", "agent", agentName)
		return nil
	}

	path := payload.TranscriptPath
	if path == "" {
		sessions, err := adapter.FindSessions(repoRoot)
		if err != nil || len(sessions) == 0 {
			logging.Warn(ctx, "checkpoint: no transcript available", "agent", agentName)
			return nil
		}
		path = sessions[len(sessions)-1]
	}

	sess, err := adapter.Parse(path)
	if err != nil {
		logging.Warn(ctx, "checkpoint: parse failed", "agent", agentName, "err", err.Error())
		return nil
	}
	if payload.SessionID != "" {
		sess.SessionID = payload.SessionID
	}

	cfg, err := blamepromptconfig.Load(repoRoot)
	if err != nil {
		logging.Warn(ctx, "checkpoint: config load failed", "err", err.Error())
		return nil
	}

	r, err := checkpoint.Upsert(sess, checkpoint.Options{
		Provider: agentName,
		RepoRoot: repoRoot,
		Repo:     repo,
		Config:   cfg,
	}, hooks.HiddenDirName)
	if err != nil {
		logging.Warn(ctx, "checkpoint: stage failed", "agent", agentName, "err", err.Error())
		return nil
	}

	logging.Info(ctx, "staged receipt", "agent", agentName, "session_id", r.SessionID, "prompt_number", derefUint32(r.PromptNumber))
	return nil
}

func derefUint32(p *uint32) uint32 {
	if p == nil {
		return 0
	}
	return *p
}
