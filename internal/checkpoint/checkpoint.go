// Package checkpoint implements the ingestion pipeline's glue: the part of
// C9's control flow between "agent tool call" and "upsert into staging".
// It turns one agent's ParsedSession into a redacted, hashed Receipt and
// files it into the working copy's staging journal.
package checkpoint

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"

	"github.com/blameprompt/blameprompt/internal/blamepromptconfig"
	"github.com/blameprompt/blameprompt/internal/cache"
	"github.com/blameprompt/blameprompt/internal/gitrepo"
	"github.com/blameprompt/blameprompt/internal/receipt"
	"github.com/blameprompt/blameprompt/internal/redact"
	"github.com/blameprompt/blameprompt/internal/staging"
	"github.com/blameprompt/blameprompt/internal/transcript"
)

// Options carries everything Build needs beyond the parsed session itself.
type Options struct {
	// Provider overrides the provider derived from model classification,
	// e.g. an adapter that already knows its agent's vendor.
	Provider string
	RepoRoot string
	Repo     *git.Repository
	Config   blamepromptconfig.Config
}

// Build turns sess into a Receipt: redacts every message, computes the
// stable prompt hash over the full (redacted) conversation, derives
// prompt_number from the count of user turns seen so far, and attaches
// working-tree diff stats for every file the session touched.
func Build(sess transcript.ParsedSession, opts Options) (receipt.Receipt, error) {
	policy := opts.Config.RedactPolicy()
	maxLen := opts.Config.Capture.MaxPromptLength
	if maxLen <= 0 {
		maxLen = blamepromptconfig.DefaultMaxPromptLength
	}

	turns := make([]receipt.ConversationTurn, 0, len(sess.Messages))
	var promptNumber uint32
	var lastUserText, lastAssistantText string

	for i, m := range sess.Messages {
		scrubbed, _ := redact.Scrub(m.Text, policy)

		role := receipt.RoleTool
		switch m.Role {
		case transcript.RoleUser:
			role = receipt.RoleUser
			promptNumber++
			lastUserText = scrubbed
		case transcript.RoleAssistant:
			role = receipt.RoleAssistant
			lastAssistantText = scrubbed
		}

		turns = append(turns, receipt.ConversationTurn{
			Turn:     uint32(i + 1),
			Role:     role,
			Content:  scrubbed,
			ToolName: m.ToolName,
		})
	}
	if promptNumber == 0 {
		promptNumber = 1
	}

	r := receipt.Receipt{
		ID:            receipt.NewID(),
		Model:         sess.Model,
		SessionID:     sess.SessionID,
		PromptSummary: capText(lastUserText, maxLen),
		PromptHash:    receipt.PromptHash(turns),
		MessageCount:  uint32(len(sess.Messages)),
		Timestamp:     time.Now().UTC(),
		SessionStart:  sess.SessionStart,
		SessionEnd:    sess.SessionEnd,
		User:          gitrepo.CurrentAuthor(opts.Repo).String(),
		ToolsUsed:     sess.ToolsUsed,
		MCPServers:    mcpServers(sess.ToolsUsed),
		AgentsSpawned: agentsSpawned(sess.ToolsUsed),
		PromptNumber:  &promptNumber,
	}
	if lastAssistantText != "" {
		r.ResponseSummary = capText(lastAssistantText, maxLen)
	}
	if opts.Config.Capture.StoreFullConversation {
		r.Conversation = turns
	}

	r.Provider = opts.Provider
	if r.Provider == "" {
		r.Provider = cache.Classify(sess.Model).Vendor
	}

	if sess.Tokens != nil {
		in, out := sess.Tokens.InputTokens, sess.Tokens.OutputTokens
		r.InputTokens = &in
		r.OutputTokens = &out
		r.CostUSD = cache.EstimateCost(sess.Model, in, out)
	}
	if sess.AvgResponseTimeSecs != nil {
		r.AIResponseTimeSecs = sess.AvgResponseTimeSecs
	}
	if sess.SessionStart != nil && sess.SessionEnd != nil {
		secs := uint64(sess.SessionEnd.Sub(*sess.SessionStart).Seconds())
		r.SessionDurationSecs = &secs
	}

	changes, err := fileChanges(opts.RepoRoot, sess.FilesModified)
	if err != nil {
		return receipt.Receipt{}, fmt.Errorf("collect file changes: %w", err)
	}
	r.FilesChanged = changes
	for _, c := range changes {
		r.TotalAdditions += c.Additions
		r.TotalDeletions += c.Deletions
	}

	return r, nil
}

func fileChanges(repoRoot string, paths []string) ([]receipt.FileChange, error) {
	out := make([]receipt.FileChange, 0, len(paths))
	for _, p := range paths {
		stat, err := gitrepo.WorkingDiffStat(repoRoot, p)
		if err != nil {
			// A path the transcript mentions may already be committed, may
			// be outside the repo, or the diff may legitimately be empty;
			// none of that should abort the whole checkpoint.
			out = append(out, receipt.FileChange{Path: p, LineRange: receipt.LineRange{Start: 1, End: 1}})
			continue
		}
		out = append(out, receipt.FileChange{
			Path:      p,
			LineRange: receipt.LineRange{Start: stat.StartLine, End: stat.EndLine},
			Additions: stat.Additions,
			Deletions: stat.Deletions,
		})
	}
	return out, nil
}

// mcpServers extracts the distinct MCP server names out of tool names of
// the form "mcp__<server>__<tool>".
func mcpServers(tools []string) []string {
	seen := map[string]bool{}
	var servers []string
	for _, t := range tools {
		rest, ok := strings.CutPrefix(t, "mcp__")
		if !ok {
			continue
		}
		server, _, ok := strings.Cut(rest, "__")
		if !ok || server == "" || seen[server] {
			continue
		}
		seen[server] = true
		servers = append(servers, server)
	}
	return servers
}

// agentsSpawned reports subagent-dispatch tools (Task and friends) seen in
// the session.
func agentsSpawned(tools []string) []string {
	var agents []string
	for _, t := range tools {
		if t == "Task" || t == "Agent" || strings.HasPrefix(t, "agent_") {
			agents = append(agents, t)
		}
	}
	return agents
}

func capText(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return strings.TrimSpace(s[:maxLen])
}

// Upsert builds a Receipt from sess and files it into the staging store
// rooted at opts.RepoRoot's hidden directory. This is the checkpoint
// operation's full contract: parse already happened upstream (the adapter
// call), this is redact + build + stage.
func Upsert(sess transcript.ParsedSession, opts Options, hiddenDirName string) (receipt.Receipt, error) {
	r, err := Build(sess, opts)
	if err != nil {
		return receipt.Receipt{}, err
	}
	store := staging.New(opts.RepoRoot + "/" + hiddenDirName)
	if err := store.Upsert(r); err != nil {
		return receipt.Receipt{}, fmt.Errorf("upsert staging: %w", err)
	}
	return r, nil
}
