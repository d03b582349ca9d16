// Package claudecode adapts Claude Code's line-delimited JSONL transcript
// format into a transcript.ParsedSession.
package claudecode

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blameprompt/blameprompt/internal/transcript"
)

func init() {
	transcript.Register(Adapter{})
}

const scannerBufferSize = 10 * 1024 * 1024

// Adapter implements transcript.Adapter and transcript.HookInstaller for
// Claude Code's session format.
type Adapter struct{}

func (Adapter) Name() string { return "claude-code" }

// FindSessions lists every *.jsonl transcript Claude Code has recorded for
// this repository, under ~/.claude/projects/<sanitized-repo-path>/.
func (a Adapter) FindSessions(repoRoot string) ([]string, error) {
	dir, err := sessionDir(repoRoot)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, transcript.ErrNoSessionFound{Agent: a.Name(), Root: repoRoot}
	}
	if err != nil {
		return nil, fmt.Errorf("list claude session dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".jsonl") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	return paths, nil
}

func sessionDir(repoRoot string) (string, error) {
	if override := os.Getenv("BLAMEPROMPT_TEST_CLAUDE_PROJECT_DIR"); override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".claude", "projects", sanitizePath(repoRoot)), nil
}

// sanitizePath mirrors Claude Code's own scheme for naming a project's
// session directory after its absolute path: every path separator and dot
// becomes a hyphen.
func sanitizePath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	replacer := strings.NewReplacer("/", "-", ".", "-")
	return replacer.Replace(abs)
}

// transcriptLine is one JSONL row. Unknown or malformed rows are skipped by
// the caller, never fatal to the parse.
type transcriptLine struct {
	Type    string          `json:"type"`
	Message json.RawMessage `json:"message"`
}

type userMessage struct {
	Content json.RawMessage `json:"content"`
}

type assistantMessage struct {
	Model   string         `json:"model,omitempty"`
	Content []contentBlock `json:"content"`
	ID      string         `json:"id,omitempty"`
	Usage   *usage         `json:"usage,omitempty"`
}

type contentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type usage struct {
	InputTokens              uint64 `json:"input_tokens"`
	CacheCreationInputTokens uint64 `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     uint64 `json:"cache_read_input_tokens"`
	OutputTokens             uint64 `json:"output_tokens"`
}

var fileModificationTools = map[string]bool{
	"Write":           true,
	"Edit":            true,
	"NotebookEdit":    true,
	"mcp__acp__Write": true,
	"mcp__acp__Edit":  true,
}

// Parse folds a Claude Code JSONL transcript into a ParsedSession. Malformed
// lines are skipped; the parse never fails because of one bad record.
func (a Adapter) Parse(path string) (transcript.ParsedSession, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return transcript.ParsedSession{}, fmt.Errorf("read transcript: %w", err)
	}

	session := transcript.ParsedSession{
		SessionID: strings.TrimSuffix(filepath.Base(path), ".jsonl"),
	}

	fileSet := map[string]bool{}
	toolSet := map[string]bool{}
	var tools []string
	var files []string
	usageByMessageID := map[string]usage{}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, scannerBufferSize), scannerBufferSize)
	for scanner.Scan() {
		var line transcriptLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			continue
		}

		switch line.Type {
		case "user":
			var msg userMessage
			if err := json.Unmarshal(line.Message, &msg); err != nil {
				continue
			}
			if text := extractUserText(msg.Content); text != "" {
				session.Messages = append(session.Messages, transcript.Message{
					Role: transcript.RoleUser,
					Text: text,
				})
			}

		case "assistant":
			var msg assistantMessage
			if err := json.Unmarshal(line.Message, &msg); err != nil {
				continue
			}
			if session.Model == "" && msg.Model != "" {
				session.Model = msg.Model
			}
			if msg.ID != "" && msg.Usage != nil {
				existing, ok := usageByMessageID[msg.ID]
				if !ok || msg.Usage.OutputTokens > existing.OutputTokens {
					usageByMessageID[msg.ID] = *msg.Usage
				}
			}
			for _, block := range msg.Content {
				switch block.Type {
				case "text":
					if block.Text != "" {
						session.Messages = append(session.Messages, transcript.Message{
							Role: transcript.RoleAssistant,
							Text: block.Text,
						})
					}
				case "tool_use":
					if !toolSet[block.Name] {
						toolSet[block.Name] = true
						tools = append(tools, block.Name)
					}
					session.Messages = append(session.Messages, transcript.Message{
						Role:     transcript.RoleTool,
						ToolName: block.Name,
					})
					if fileModificationTools[block.Name] {
						var args map[string]any
						if err := json.Unmarshal(block.Input, &args); err == nil {
							if fp, ok := transcript.ExtractFilePath(args); ok && !fileSet[fp] {
								fileSet[fp] = true
								files = append(files, fp)
							}
						}
					}
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return transcript.ParsedSession{}, fmt.Errorf("scan transcript: %w", err)
	}

	if len(usageByMessageID) > 0 {
		var counts transcript.TokenCounts
		for _, u := range usageByMessageID {
			counts.InputTokens += u.InputTokens + u.CacheCreationInputTokens + u.CacheReadInputTokens
			counts.OutputTokens += u.OutputTokens
		}
		session.Tokens = &counts
	}
	session.FilesModified = files
	session.ToolsUsed = tools
	return session, nil
}

// extractUserText handles both plain-string content and the array-of-blocks
// shape Claude Code uses once a message carries attachments or tool results.
func extractUserText(raw json.RawMessage) string {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}

	var blocks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}
	var texts []string
	for _, b := range blocks {
		if b.Type == "text" && b.Text != "" {
			texts = append(texts, b.Text)
		}
	}
	return strings.Join(texts, "\n\n")
}
