package claudecode

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/blameprompt/blameprompt/internal/transcript"
)

func TestFindSessions_ListsJSONLFiles(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BLAMEPROMPT_TEST_CLAUDE_PROJECT_DIR", dir)

	if err := os.WriteFile(filepath.Join(dir, "abc.jsonl"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	paths, err := (Adapter{}).FindSessions(".")
	if err != nil {
		t.Fatalf("find sessions: %v", err)
	}
	if len(paths) != 1 || filepath.Base(paths[0]) != "abc.jsonl" {
		t.Errorf("unexpected paths: %v", paths)
	}
}

func TestFindSessions_MissingDirReturnsNoSessionFound(t *testing.T) {
	t.Setenv("BLAMEPROMPT_TEST_CLAUDE_PROJECT_DIR", filepath.Join(t.TempDir(), "does-not-exist"))
	_, err := (Adapter{}).FindSessions(".")
	if _, ok := err.(transcript.ErrNoSessionFound); !ok {
		t.Errorf("expected ErrNoSessionFound, got %v", err)
	}
}

func TestParse_ExtractsMessagesToolsAndFiles(t *testing.T) {
	lines := []string{
		`{"type":"user","message":{"content":"fix the bug"}}`,
		`{"type":"assistant","message":{"model":"claude-sonnet-4-5","id":"m1","content":[{"type":"text","text":"sure"},{"type":"tool_use","name":"Write","input":{"file_path":"src/a.go"}}],"usage":{"input_tokens":100,"output_tokens":50}}}`,
		`{"type":"assistant","message":{"id":"m1","content":[{"type":"tool_use","name":"Write","input":{"file_path":"src/a.go"}}],"usage":{"input_tokens":100,"output_tokens":60}}}`,
		`not even json`,
	}
	path := filepath.Join(t.TempDir(), "session-123.jsonl")
	if err := os.WriteFile(path, []byte(joinNL(lines)), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	session, err := (Adapter{}).Parse(path)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if session.SessionID != "session-123" {
		t.Errorf("unexpected session id: %q", session.SessionID)
	}
	if session.Model != "claude-sonnet-4-5" {
		t.Errorf("unexpected model: %q", session.Model)
	}
	if len(session.FilesModified) != 1 || session.FilesModified[0] != "src/a.go" {
		t.Errorf("unexpected files: %v", session.FilesModified)
	}
	if len(session.ToolsUsed) != 1 || session.ToolsUsed[0] != "Write" {
		t.Errorf("unexpected tools: %v", session.ToolsUsed)
	}
	if session.Tokens == nil || session.Tokens.OutputTokens != 60 {
		t.Errorf("expected deduped usage keeping highest output_tokens, got %+v", session.Tokens)
	}

	var userCount int
	for _, m := range session.Messages {
		if m.Role == transcript.RoleUser {
			userCount++
		}
	}
	if userCount != 1 {
		t.Errorf("expected one user message, got %d", userCount)
	}
}

func joinNL(lines []string) string {
	out := ""
	for _, l := range lines {
		out += l + "\n"
	}
	return out
}
