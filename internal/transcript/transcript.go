// Package transcript canonicalises heterogeneous agent session formats into
// one ParsedSession shape. Each supported agent family lives in its own
// subpackage and registers an Adapter; everything downstream of parsing
// depends only on ParsedSession, never on a particular agent's native
// format.
package transcript

import (
	"encoding/json"
	"fmt"
	"time"
)

// Role is a canonical speaker in a parsed conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// NormalizeRole maps an agent-native role spelling onto the canonical set.
// "model", "cascade", "ai", and "copilot" all mean assistant; "human" means
// user. Anything already canonical, or unrecognised, passes through as-is
// (callers treat an unrecognised role as RoleTool-adjacent noise and may
// choose to drop it).
func NormalizeRole(raw string) Role {
	switch raw {
	case "model", "cascade", "ai", "copilot", "assistant":
		return RoleAssistant
	case "human", "user":
		return RoleUser
	case "tool", "tool_use", "tool_result":
		return RoleTool
	default:
		return Role(raw)
	}
}

// Message is one canonical turn in a ParsedSession.
type Message struct {
	Role      Role
	Text      string
	ToolName  string
	Timestamp *time.Time
}

// TokenCounts aggregates usage across whichever shape the source API used.
type TokenCounts struct {
	InputTokens  uint64
	OutputTokens uint64
}

// Add folds other into c in place.
func (c *TokenCounts) Add(other TokenCounts) {
	c.InputTokens += other.InputTokens
	c.OutputTokens += other.OutputTokens
}

// ParsedSession is the canonical shape every adapter produces.
type ParsedSession struct {
	SessionID           string
	Model               string
	Messages            []Message
	FilesModified       []string
	ToolsUsed           []string
	Tokens              *TokenCounts
	SessionStart        *time.Time
	SessionEnd          *time.Time
	AvgResponseTimeSecs *float64
}

// Adapter is the capability set every agent family implements: discover
// session files under a repository, and parse one into a ParsedSession.
// HookInstaller is a separate, optional capability: not every adapter can
// register lifecycle hooks for its agent.
type Adapter interface {
	Name() string
	FindSessions(repoRoot string) ([]string, error)
	Parse(path string) (ParsedSession, error)
}

// HookInstaller is implemented by adapters whose agent supports installing
// a hook configuration fragment that reports events back to the engine.
// InstallHookConfig and UninstallHookConfig must be idempotent: calling
// either twice in a row leaves the configuration file unchanged after the
// first call.
type HookInstaller interface {
	Adapter
	InstallHookConfig(repoRoot string) error
	UninstallHookConfig(repoRoot string) error
}

// PresenceDetector is implemented by adapters that can tell whether their
// agent is configured in a given repository. Install uses this to decide
// whether attempting to install that agent's hooks makes sense at all;
// failing to detect presence is never itself an error, just grounds for
// skipping.
type PresenceDetector interface {
	Adapter
	DetectPresence(repoRoot string) (bool, error)
}

// ExtractFilePath extracts a file path from tool call arguments, trying the
// three keys agents use interchangeably: file_path, path, filename.
func ExtractFilePath(args map[string]any) (string, bool) {
	for _, key := range []string{"file_path", "path", "filename"} {
		if v, ok := args[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s, true
			}
		}
	}
	return "", false
}

// apiUsage is the union of the two token-count shapes adapters encounter:
// OpenAI-style (prompt_tokens/completion_tokens) and Gemini-style
// (promptTokenCount/candidatesTokenCount).
type apiUsage struct {
	PromptTokens         *uint64 `json:"prompt_tokens,omitempty"`
	CompletionTokens     *uint64 `json:"completion_tokens,omitempty"`
	PromptTokenCount     *uint64 `json:"promptTokenCount,omitempty"`
	CandidatesTokenCount *uint64 `json:"candidatesTokenCount,omitempty"`
}

// ParseAPIUsage extracts token counts from a raw usage object, accepting
// either the OpenAI shape or the Gemini shape (or both populated at once,
// which never happens in practice but sums harmlessly).
func ParseAPIUsage(data []byte) TokenCounts {
	var u apiUsage
	if err := json.Unmarshal(data, &u); err != nil {
		return TokenCounts{}
	}
	return u.toCounts()
}

// toCounts reduces whichever fields are populated to canonical TokenCounts.
func (u apiUsage) toCounts() TokenCounts {
	var c TokenCounts
	if u.PromptTokens != nil {
		c.InputTokens += *u.PromptTokens
	}
	if u.PromptTokenCount != nil {
		c.InputTokens += *u.PromptTokenCount
	}
	if u.CompletionTokens != nil {
		c.OutputTokens += *u.CompletionTokens
	}
	if u.CandidatesTokenCount != nil {
		c.OutputTokens += *u.CandidatesTokenCount
	}
	return c
}

// ErrNoSessionFound is returned by an adapter's FindSessions when the
// agent's session directory doesn't exist for a repository at all (as
// opposed to existing but being empty, which is not an error).
type ErrNoSessionFound struct {
	Agent string
	Root  string
}

func (e ErrNoSessionFound) Error() string {
	return fmt.Sprintf("no %s sessions found under %s", e.Agent, e.Root)
}
