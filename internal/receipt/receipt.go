// Package receipt defines the canonical provenance record produced by every
// transcript adapter and carried, unchanged once attached, inside a
// NotePayload on the annotated revision.
package receipt

import (
	"time"

	"github.com/google/uuid"
)

// LineRange is an inclusive [Start, End] span. (1, 1) is the sentinel for
// "whole file / unknown" when no finer-grained overlay exists.
type LineRange struct {
	Start uint32 `json:"start"`
	End   uint32 `json:"end"`
}

// Len returns the number of lines spanned, or 0 if the range is malformed.
func (r LineRange) Len() uint32 {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// FileChange is one file touched by a prompt.
type FileChange struct {
	Path      string    `json:"path"`
	LineRange LineRange `json:"line_range"`
	BlobHash  string    `json:"blob_hash,omitempty"`
	Additions uint32    `json:"additions,omitempty"`
	Deletions uint32    `json:"deletions,omitempty"`
}

// SubagentActivity tracks one subagent spawned during a prompt.
type SubagentActivity struct {
	AgentID     string     `json:"agent_id,omitempty"`
	AgentType   string     `json:"agent_type,omitempty"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ToolsUsed   []string   `json:"tools_used,omitempty"`
}

// DecisionOption is one option presented in an AskUserQuestion-style prompt.
type DecisionOption struct {
	Label    string `json:"label"`
	Selected bool   `json:"selected,omitempty"`
}

// UserDecision is a structured decision point: the agent asked, the user
// picked from a fixed option set.
type UserDecision struct {
	ToolUseID   string           `json:"tool_use_id"`
	Question    string           `json:"question"`
	Header      string           `json:"header,omitempty"`
	Options     []DecisionOption `json:"options"`
	MultiSelect bool             `json:"multi_select,omitempty"`
	Answer      string           `json:"answer,omitempty"`
}

// TurnRole identifies who produced a ConversationTurn.
type TurnRole string

const (
	RoleUser      TurnRole = "USER"
	RoleAssistant TurnRole = "ASSISTANT"
	RoleTool      TurnRole = "TOOL"
)

// ConversationTurn is one redacted turn of the linearised conversation.
type ConversationTurn struct {
	Turn         uint32   `json:"turn"`
	Role         TurnRole `json:"role"`
	Content      string   `json:"content"`
	ToolName     string   `json:"tool_name,omitempty"`
	FilesTouched []string `json:"files_touched,omitempty"`
}

// Receipt is the atomic provenance record: one prompt, its metadata, and the
// file changes it produced. Immutable once attached to a revision, except
// under the rewrite-remap protocol.
type Receipt struct {
	ID              string  `json:"id"`
	Provider        string  `json:"provider"`
	Model           string  `json:"model"`
	SessionID       string  `json:"session_id"`
	PromptSummary   string  `json:"prompt_summary"`
	ResponseSummary string  `json:"response_summary,omitempty"`
	PromptHash      string  `json:"prompt_hash"`
	MessageCount    uint32  `json:"message_count"`
	CostUSD         float64 `json:"cost_usd"`

	InputTokens         *uint64 `json:"input_tokens,omitempty"`
	OutputTokens        *uint64 `json:"output_tokens,omitempty"`
	CacheReadTokens     *uint64 `json:"cache_read_tokens,omitempty"`
	CacheCreationTokens *uint64 `json:"cache_creation_tokens,omitempty"`

	Timestamp           time.Time  `json:"timestamp"`
	SessionStart        *time.Time `json:"session_start,omitempty"`
	SessionEnd          *time.Time `json:"session_end,omitempty"`
	SessionDurationSecs *uint64    `json:"session_duration_secs,omitempty"`
	AIResponseTimeSecs  *float64   `json:"ai_response_time_secs,omitempty"`
	PromptSubmittedAt   *time.Time `json:"prompt_submitted_at,omitempty"`
	PromptDurationSecs  *uint64    `json:"prompt_duration_secs,omitempty"`

	// AcceptedLines/OverriddenLines are not set by any ingestion path in this
	// engine; nil means "not measured", never "zero".
	AcceptedLines   *uint32 `json:"accepted_lines,omitempty"`
	OverriddenLines *uint32 `json:"overridden_lines,omitempty"`

	User string `json:"user"`

	// FilePath/LineRangeLegacy are the pre-multi-file receipt shape. Readers
	// must accept either this or FilesChanged; AllFileChanges resolves it.
	FilePath        string       `json:"file_path,omitempty"`
	LineRangeLegacy LineRange    `json:"line_range,omitempty"`
	FilesChanged    []FileChange `json:"files_changed,omitempty"`

	ParentReceiptID   string  `json:"parent_receipt_id,omitempty"`
	ParentSessionID   string  `json:"parent_session_id,omitempty"`
	IsContinuation    *bool   `json:"is_continuation,omitempty"`
	ContinuationDepth *uint32 `json:"continuation_depth,omitempty"`
	PromptNumber      *uint32 `json:"prompt_number,omitempty"`

	TotalAdditions uint32 `json:"total_additions,omitempty"`
	TotalDeletions uint32 `json:"total_deletions,omitempty"`

	ToolsUsed           []string           `json:"tools_used,omitempty"`
	MCPServers          []string           `json:"mcp_servers,omitempty"`
	AgentsSpawned       []string           `json:"agents_spawned,omitempty"`
	SubagentActivities  []SubagentActivity `json:"subagent_activities,omitempty"`
	ConcurrentToolCalls *uint32            `json:"concurrent_tool_calls,omitempty"`
	UserDecisions       []UserDecision     `json:"user_decisions,omitempty"`
	Conversation        []ConversationTurn `json:"conversation,omitempty"`
}

// NewID returns a fresh receipt identifier.
func NewID() string {
	return uuid.NewString()
}

// AllFileChanges resolves the current file-change set: FilesChanged if
// non-empty, else a single entry synthesised from the legacy FilePath and
// LineRangeLegacy fields, else empty.
func (r *Receipt) AllFileChanges() []FileChange {
	if len(r.FilesChanged) > 0 {
		return r.FilesChanged
	}
	if r.FilePath != "" {
		return []FileChange{{Path: r.FilePath, LineRange: r.LineRangeLegacy}}
	}
	return nil
}

// AllFilePaths returns the unique file paths touched by this receipt.
func (r *Receipt) AllFilePaths() []string {
	changes := r.AllFileChanges()
	paths := make([]string, len(changes))
	for i, c := range changes {
		paths[i] = c.Path
	}
	return paths
}

// TotalLinesChanged sums each file change's line-range span.
func (r *Receipt) TotalLinesChanged() uint32 {
	var total uint32
	for _, c := range r.AllFileChanges() {
		total += c.LineRange.Len()
	}
	return total
}

// EffectiveTotalAdditions returns TotalAdditions if set, else the sum of
// each file change's Additions.
func (r *Receipt) EffectiveTotalAdditions() uint32 {
	if r.TotalAdditions > 0 {
		return r.TotalAdditions
	}
	var total uint32
	for _, c := range r.AllFileChanges() {
		total += c.Additions
	}
	return total
}

// EffectiveTotalDeletions returns TotalDeletions if set, else the sum of
// each file change's Deletions.
func (r *Receipt) EffectiveTotalDeletions() uint32 {
	if r.TotalDeletions > 0 {
		return r.TotalDeletions
	}
	var total uint32
	for _, c := range r.AllFileChanges() {
		total += c.Deletions
	}
	return total
}
